package handler

import (
	"net/http"
	"strconv"

	"video-vault/app/database"
	"video-vault/app/model"

	"github.com/gin-gonic/gin"
)

// LibraryHandler 媒体库查询处理器
type LibraryHandler struct{}

// NewLibraryHandler 创建媒体库查询处理器
func NewLibraryHandler() *LibraryHandler {
	return &LibraryHandler{}
}

// Folders 列出文件夹，parent_id 为空时返回根目录下的文件夹
func (h *LibraryHandler) Folders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, 401, "未认证")
		return
	}

	query := database.GetDB().Where("user_id = ?", userID)
	if parent := c.Query("parent_id"); parent != "" {
		parentID, err := strconv.ParseUint(parent, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, 400, "parent_id 参数无效")
			return
		}
		query = query.Where("parent_id = ?", uint(parentID))
	} else {
		query = query.Where("parent_id IS NULL")
	}

	var folders []model.Folder
	if err := query.Order("name ASC").Find(&folders).Error; err != nil {
		fail(c, http.StatusInternalServerError, 500, "查询文件夹失败")
		return
	}

	success(c, folders, "success")
}

// Videos 列出视频记录，支持按文件夹、分类和标题关键字过滤
func (h *LibraryHandler) Videos(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, 401, "未认证")
		return
	}

	query := database.GetDB().Where("user_id = ?", userID)

	if folder := c.Query("folder_id"); folder != "" {
		folderID, err := strconv.ParseUint(folder, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, 400, "folder_id 参数无效")
			return
		}
		query = query.Where("folder_id = ?", uint(folderID))
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if keyword := c.Query("keyword"); keyword != "" {
		query = query.Where("title LIKE ?", "%"+keyword+"%")
	}

	var videos []model.Video
	if err := query.Order("created_at DESC").Find(&videos).Error; err != nil {
		fail(c, http.StatusInternalServerError, 500, "查询视频失败")
		return
	}

	success(c, videos, "success")
}

// Video 获取单条视频记录
func (h *LibraryHandler) Video(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, 401, "未认证")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, 400, "视频 ID 无效")
		return
	}

	var video model.Video
	if err := database.GetDB().
		Where("id = ? AND user_id = ?", uint(id), userID).
		First(&video).Error; err != nil {
		fail(c, http.StatusNotFound, 404, "视频不存在")
		return
	}

	success(c, video, "success")
}
