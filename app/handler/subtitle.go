package handler

import (
	"io"
	"net/http"

	"video-vault/app/database"
	"video-vault/app/model"
	"video-vault/app/subtitle"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// 单个字幕文件的大小上限
const maxSubtitleSize = 5 * 1024 * 1024

// SubtitleHandler 字幕解析和偏好处理器
type SubtitleHandler struct{}

// NewSubtitleHandler 创建字幕处理器
func NewSubtitleHandler() *SubtitleHandler {
	return &SubtitleHandler{}
}

// PreferenceRequest 偏好更新请求结构
type PreferenceRequest struct {
	FontSize        int    `json:"font_size" binding:"required,min=10,max=72"`
	FontFamily      string `json:"font_family" binding:"required"`
	TextColor       string `json:"text_color" binding:"required"`
	BackgroundColor string `json:"background_color" binding:"required"`
	TextOutline     bool   `json:"text_outline"`
	OutlineColor    string `json:"outline_color"`
	OutlineWidth    int    `json:"outline_width" binding:"min=0,max=10"`
	Position        string `json:"position" binding:"required,oneof=top middle bottom"`
}

// Parse 解析上传的字幕文件（SRT/WebVTT），返回条目列表。
// 解析从不报错，格式问题只会让返回的列表变短
func (h *SubtitleHandler) Parse(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, 400, "没有收到字幕文件")
		return
	}
	if file.Size > maxSubtitleSize {
		fail(c, http.StatusBadRequest, 400, "字幕文件过大")
		return
	}

	f, err := file.Open()
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "读取字幕文件失败")
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "读取字幕文件失败")
		return
	}

	cues := subtitle.Parse(string(content))

	response := gin.H{
		"file_name": file.Filename,
		"cues":      cues,
	}
	if len(cues) == 0 && len(content) > 0 {
		response["warning"] = "没有解析出任何字幕条目，请检查文件格式"
	}
	success(c, response, "success")
}

// GetPreference 读取当前用户的字幕偏好，没存过时返回默认值
func (h *SubtitleHandler) GetPreference(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, 401, "未认证")
		return
	}

	var pref model.SubtitlePreference
	err := database.GetDB().Where("user_id = ?", userID).First(&pref).Error
	if err == gorm.ErrRecordNotFound {
		style := subtitle.DefaultStyleConfig()
		success(c, gin.H{
			"style":       style,
			"text_shadow": style.TextShadow(),
		}, "success")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "查询字幕偏好失败")
		return
	}

	style := styleFromPreference(&pref)
	success(c, gin.H{
		"style":       style,
		"text_shadow": style.TextShadow(),
	}, "success")
}

// UpdatePreference 覆盖写入当前用户的字幕偏好
func (h *SubtitleHandler) UpdatePreference(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, 401, "未认证")
		return
	}

	var req PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	db := database.GetDB()

	var pref model.SubtitlePreference
	err := db.Where("user_id = ?", userID).First(&pref).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		fail(c, http.StatusInternalServerError, 500, "查询字幕偏好失败")
		return
	}

	pref.UserID = userID
	pref.FontSize = req.FontSize
	pref.FontFamily = req.FontFamily
	pref.TextColor = req.TextColor
	pref.BackgroundColor = req.BackgroundColor
	pref.TextOutline = req.TextOutline
	pref.OutlineColor = req.OutlineColor
	pref.OutlineWidth = req.OutlineWidth
	pref.Position = req.Position

	if err := db.Save(&pref).Error; err != nil {
		fail(c, http.StatusInternalServerError, 500, "保存字幕偏好失败")
		return
	}

	style := styleFromPreference(&pref)
	success(c, gin.H{
		"style":       style,
		"text_shadow": style.TextShadow(),
	}, "保存成功")
}

// styleFromPreference 数据库记录转渲染配置
func styleFromPreference(pref *model.SubtitlePreference) subtitle.StyleConfig {
	return subtitle.StyleConfig{
		FontSize:        pref.FontSize,
		FontFamily:      pref.FontFamily,
		TextColor:       pref.TextColor,
		BackgroundColor: pref.BackgroundColor,
		TextOutline:     pref.TextOutline,
		OutlineColor:    pref.OutlineColor,
		OutlineWidth:    pref.OutlineWidth,
		Position:        pref.Position,
	}
}
