package handler

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"video-vault/app/logger"
	"video-vault/app/utils/pathhelper"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// StreamProxyHandler 视频流代理：透传 Range 请求，
// 并在源站报告通用类型时按扩展名修正 Content-Type
type StreamProxyHandler struct {
	logger *logger.Logger
	client *http.Client
	// 修正后的 Content-Type 按 URL 缓存，省掉重复判断
	typeCache *cache.Cache
}

// NewStreamProxyHandler 创建视频流代理处理器
func NewStreamProxyHandler(log *logger.Logger) *StreamProxyHandler {
	return &StreamProxyHandler{
		logger: log,
		// 流式播放不设整体超时，按连接惰性断开
		client:    &http.Client{},
		typeCache: cache.New(30*time.Minute, 10*time.Minute),
	}
}

// Stream 透传视频流，Range 头原样转给源站
func (h *StreamProxyHandler) Stream(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		fail(c, http.StatusBadRequest, 400, "缺少 url 参数")
		return
	}

	target, err := url.Parse(rawURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		fail(c, http.StatusBadRequest, 400, "不支持的视频地址")
		return
	}

	upstream, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, rawURL, nil)
	if err != nil {
		fail(c, http.StatusBadRequest, 400, "构造流请求失败")
		return
	}
	if rangeHeader := c.GetHeader("Range"); rangeHeader != "" {
		upstream.Header.Set("Range", rangeHeader)
	}

	resp, err := h.client.Do(upstream)
	if err != nil {
		h.logger.Errorf("视频流代理失败: %s: %v", rawURL, err)
		fail(c, http.StatusBadGateway, 502, "拉取视频流失败")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		fail(c, http.StatusBadGateway, 502, "源站拒绝了流请求")
		return
	}

	c.Header("Content-Type", h.contentType(rawURL, resp.Header.Get("Content-Type")))
	c.Header("Accept-Ranges", "bytes")
	for _, header := range []string{"Content-Length", "Content-Range"} {
		if value := resp.Header.Get(header); value != "" {
			c.Header(header, value)
		}
	}

	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		// 播放器拖动进度条会频繁断开连接，降级为调试日志
		h.logger.Debugf("视频流传输中断: %s: %v", rawURL, err)
	}
}

// contentType 源站给出通用类型时按扩展名修正，结果进缓存
func (h *StreamProxyHandler) contentType(rawURL, origin string) string {
	if cached, found := h.typeCache.Get(rawURL); found {
		return cached.(string)
	}

	resolved := origin
	if origin == "" || strings.HasPrefix(origin, "application/octet-stream") ||
		strings.HasPrefix(origin, "binary/") {
		ext := pathhelper.FileExtension(pathhelper.FilenameFromURL(rawURL))
		if mime := pathhelper.VideoMimeByExtension(ext); mime != "" {
			resolved = mime
		} else if origin == "" {
			resolved = "application/octet-stream"
		}
	}

	h.typeCache.Set(rawURL, resolved, cache.DefaultExpiration)
	return resolved
}
