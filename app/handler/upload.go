package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"video-vault/app/config"
	"video-vault/app/logger"
	"video-vault/app/uploader"
	"video-vault/app/utils"

	"github.com/gin-gonic/gin"
)

// UploadHandler 上传队列处理器
type UploadHandler struct {
	config  *config.Config
	manager *uploader.Manager
	logger  *logger.Logger
}

// NewUploadHandler 创建上传队列处理器
func NewUploadHandler(cfg *config.Config, manager *uploader.Manager, log *logger.Logger) *UploadHandler {
	return &UploadHandler{
		config:  cfg,
		manager: manager,
		logger:  log,
	}
}

// StartUploadRequest 发起上传请求结构
type StartUploadRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// AddFiles 接收 multipart 文件并加入队列。
// paths 字段与 files 一一对应，携带目录选择时的相对路径
func (h *UploadHandler) AddFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		fail(c, http.StatusBadRequest, 400, "解析上传表单失败: "+err.Error())
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		fail(c, http.StatusBadRequest, 400, "没有收到任何文件")
		return
	}
	paths := form.Value["paths"]

	stagingDir := h.config.Upload.StagingDir
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		fail(c, http.StatusInternalServerError, 500, "创建暂存目录失败")
		return
	}

	incoming := make([]uploader.IncomingFile, 0, len(files))
	for i, file := range files {
		relativePath := file.Filename
		if i < len(paths) && paths[i] != "" {
			relativePath = paths[i]
		}
		relativePath = filepath.ToSlash(relativePath)

		fileName := filepath.Base(relativePath)
		stagePath := filepath.Join(stagingDir,
			fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), utils.RandomSuffix(6), fileName))

		if err := c.SaveUploadedFile(file, stagePath); err != nil {
			h.logger.Errorf("暂存上传文件失败: %s: %v", fileName, err)
			fail(c, http.StatusInternalServerError, 500, "暂存文件失败: "+fileName)
			return
		}

		mimeType := file.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		incoming = append(incoming, uploader.IncomingFile{
			FileName:     fileName,
			Size:         file.Size,
			MimeType:     mimeType,
			RelativePath: relativePath,
			StagePath:    stagePath,
		})
	}

	items := h.manager.AddFiles(incoming)
	success(c, items, "文件已加入队列")
}

// Items 队列条目列表
func (h *UploadHandler) Items(c *gin.Context) {
	success(c, h.manager.Items(), "success")
}

// Tree 队列的目录树视图
func (h *UploadHandler) Tree(c *gin.Context) {
	success(c, h.manager.Tree(), "success")
}

// Status 管理器状态和整体进度
func (h *UploadHandler) Status(c *gin.Context) {
	success(c, gin.H{
		"state":    h.manager.State(),
		"progress": h.manager.OverallProgress(),
	}, "success")
}

// Start 发起一轮上传。校验同步完成，传输在后台进行
func (h *UploadHandler) Start(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, 401, "未认证")
		return
	}

	var req StartUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	startReq := uploader.StartRequest{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		OnComplete: func() {
			h.logger.Info("本轮上传全部完成")
		},
	}

	// 校验不通过立刻报错，不产生任何副作用
	if err := h.manager.Validate(startReq); err != nil {
		fail(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	go func() {
		if err := h.manager.StartUpload(context.Background(), startReq); err != nil &&
			!errors.Is(err, uploader.ErrBusy) {
			h.logger.Errorf("上传执行失败: %v", err)
		}
	}()

	success(c, gin.H{"state": uploader.StateUploading}, "上传已开始")
}

// Pause 暂停在途上传
func (h *UploadHandler) Pause(c *gin.Context) {
	h.manager.PauseUpload()
	success(c, gin.H{"state": h.manager.State()}, "上传已暂停")
}

// Resume 恢复被暂停的上传
func (h *UploadHandler) Resume(c *gin.Context) {
	if h.manager.State() != uploader.StatePaused {
		fail(c, http.StatusConflict, 409, uploader.ErrNotPaused.Error())
		return
	}

	go func() {
		if err := h.manager.ResumeUpload(context.Background()); err != nil &&
			!errors.Is(err, uploader.ErrNotPaused) {
			h.logger.Errorf("恢复上传失败: %v", err)
		}
	}()

	success(c, gin.H{"state": uploader.StateUploading}, "上传已恢复")
}

// Remove 移除单个队列条目
func (h *UploadHandler) Remove(c *gin.Context) {
	id := c.Param("id")
	if err := h.manager.RemoveItem(id); err != nil {
		switch {
		case errors.Is(err, uploader.ErrItemNotFound):
			fail(c, http.StatusNotFound, 404, err.Error())
		case errors.Is(err, uploader.ErrItemUploading):
			fail(c, http.StatusConflict, 409, err.Error())
		default:
			fail(c, http.StatusInternalServerError, 500, err.Error())
		}
		return
	}
	success(c, nil, "条目已移除")
}

// Clear 清空队列
func (h *UploadHandler) Clear(c *gin.Context) {
	if err := h.manager.Clear(); err != nil {
		fail(c, http.StatusConflict, 409, err.Error())
		return
	}
	success(c, nil, "队列已清空")
}
