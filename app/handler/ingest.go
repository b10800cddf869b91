package handler

import (
	"net/http"
	"strconv"

	"video-vault/app/service"

	"github.com/gin-gonic/gin"
)

// IngestHandler URL 拉取处理器
type IngestHandler struct {
	service *service.UrlIngestService
}

// NewIngestHandler 创建 URL 拉取处理器
func NewIngestHandler(ingestService *service.UrlIngestService) *IngestHandler {
	return &IngestHandler{service: ingestService}
}

// IngestRequest URL 拉取请求结构
type IngestRequest struct {
	URL string `json:"url" binding:"required"`
}

// Create 创建拉取任务，下载在后台进行
func (h *IngestHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, 401, "未认证")
		return
	}

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	task, err := h.service.Ingest(userID, req.URL)
	if err != nil {
		fail(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	success(c, task, "拉取任务已创建")
}

// List 当前用户的拉取任务列表
func (h *IngestHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, 401, "未认证")
		return
	}

	tasks, err := h.service.Tasks(userID)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "查询拉取任务失败")
		return
	}
	success(c, tasks, "success")
}

// Get 查询单个拉取任务
func (h *IngestHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, 401, "未认证")
		return
	}

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, 400, "任务 ID 无效")
		return
	}

	task, err := h.service.Task(userID, uint(taskID))
	if err != nil {
		fail(c, http.StatusNotFound, 404, "任务不存在")
		return
	}
	success(c, task, "success")
}
