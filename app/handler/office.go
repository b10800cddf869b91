package handler

import (
	"net/http"

	"video-vault/app/logger"
	"video-vault/app/storage"

	"github.com/gin-gonic/gin"
)

// OfficeHandler 办公存储浏览处理器，封装 Graph API 的站点/驱动器/文件浏览
type OfficeHandler struct {
	storage *storage.OfficeStorage
	logger  *logger.Logger
}

// NewOfficeHandler 创建办公存储处理器
func NewOfficeHandler(officeStorage *storage.OfficeStorage, log *logger.Logger) *OfficeHandler {
	return &OfficeHandler{
		storage: officeStorage,
		logger:  log,
	}
}

// Sites 列出可用站点
func (h *OfficeHandler) Sites(c *gin.Context) {
	sites, err := h.storage.ListSites(c.Request.Context())
	if err != nil {
		h.logger.Errorf("列出站点失败: %v", err)
		fail(c, http.StatusBadGateway, 502, "列出站点失败: "+err.Error())
		return
	}
	success(c, sites, "success")
}

// Drives 列出站点下的驱动器
func (h *OfficeHandler) Drives(c *gin.Context) {
	siteID := c.Param("siteId")
	if siteID == "" {
		fail(c, http.StatusBadRequest, 400, "缺少站点 ID")
		return
	}

	drives, err := h.storage.ListDrives(c.Request.Context(), siteID)
	if err != nil {
		h.logger.Errorf("列出驱动器失败: %v", err)
		fail(c, http.StatusBadGateway, 502, "列出驱动器失败: "+err.Error())
		return
	}
	success(c, drives, "success")
}

// Files 列出驱动器/文件夹下的条目，folder_id 为空表示根目录
func (h *OfficeHandler) Files(c *gin.Context) {
	driveID := c.Param("driveId")
	if driveID == "" {
		fail(c, http.StatusBadRequest, 400, "缺少驱动器 ID")
		return
	}

	files, err := h.storage.ListFiles(c.Request.Context(), driveID, c.Query("folder_id"))
	if err != nil {
		h.logger.Errorf("列出文件失败: %v", err)
		fail(c, http.StatusBadGateway, 502, "列出文件失败: "+err.Error())
		return
	}
	success(c, files, "success")
}

// DownloadURL 获取条目的临时下载地址
func (h *OfficeHandler) DownloadURL(c *gin.Context) {
	driveID := c.Param("driveId")
	itemID := c.Param("itemId")
	if driveID == "" || itemID == "" {
		fail(c, http.StatusBadRequest, 400, "缺少驱动器或条目 ID")
		return
	}

	downloadURL, err := h.storage.GetDownloadURL(c.Request.Context(), driveID, itemID)
	if err != nil {
		h.logger.Errorf("获取下载地址失败: %v", err)
		fail(c, http.StatusBadGateway, 502, "获取下载地址失败: "+err.Error())
		return
	}
	success(c, gin.H{"download_url": downloadURL}, "success")
}
