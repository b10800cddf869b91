package handler

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"video-vault/app/logger"
	"video-vault/app/utils/pathhelper"

	"github.com/gin-gonic/gin"
)

// ProxyDownloadHandler 下载代理：服务端代拉远端文件并以附件形式回给客户端，
// 绕开浏览器对跨域直链下载的限制
type ProxyDownloadHandler struct {
	logger *logger.Logger
	client *http.Client
}

// NewProxyDownloadHandler 创建下载代理处理器
func NewProxyDownloadHandler(log *logger.Logger) *ProxyDownloadHandler {
	return &ProxyDownloadHandler{
		logger: log,
		client: &http.Client{Timeout: 30 * time.Minute},
	}
}

// ProxyDownloadRequest 下载代理请求结构
type ProxyDownloadRequest struct {
	URL string `json:"url" binding:"required"`
}

// Download 代拉远端文件，整个响应体以流式透传
func (h *ProxyDownloadHandler) Download(c *gin.Context) {
	var req ProxyDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	target, err := url.Parse(req.URL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		fail(c, http.StatusBadRequest, 400, "不支持的下载地址")
		return
	}

	upstream, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, req.URL, nil)
	if err != nil {
		fail(c, http.StatusBadRequest, 400, "构造下载请求失败")
		return
	}

	resp, err := h.client.Do(upstream)
	if err != nil {
		h.logger.Errorf("代理下载失败: %s: %v", req.URL, err)
		fail(c, http.StatusBadGateway, 502, "拉取远端文件失败")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fail(c, http.StatusBadGateway, 502, fmt.Sprintf("源站返回 %d", resp.StatusCode))
		return
	}

	fileName := pathhelper.FilenameFromURL(req.URL)
	if fileName == "" {
		fileName = fmt.Sprintf("download-%d", time.Now().Unix())
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = pathhelper.MimeByExtension(pathhelper.FileExtension(fileName))
	}

	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, strings.ReplaceAll(fileName, `"`, "")))
	if resp.ContentLength > 0 {
		c.Header("Content-Length", fmt.Sprintf("%d", resp.ContentLength))
	}

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		h.logger.Warnf("代理下载传输中断: %s: %v", req.URL, err)
	}
}
