package model

import (
	"time"
)

// SubtitlePreference 每个用户的字幕渲染偏好，设置面板每次修改都直接写回
type SubtitlePreference struct {
	ID              uint      `json:"id" gorm:"primarykey"`
	UserID          uint      `json:"user_id" gorm:"uniqueIndex;not null;comment:所属用户ID"`
	FontSize        int       `json:"font_size" gorm:"default:24;comment:字号（px）"`
	FontFamily      string    `json:"font_family" gorm:"size:100;default:Arial;comment:字体"`
	TextColor       string    `json:"text_color" gorm:"size:30;default:#FFFFFF;comment:文字颜色"`
	BackgroundColor string    `json:"background_color" gorm:"size:50;default:'rgba(0, 0, 0, 0.75)';comment:背景颜色"`
	TextOutline     bool      `json:"text_outline" gorm:"default:false;comment:是否描边"`
	OutlineColor    string    `json:"outline_color" gorm:"size:30;default:#000000;comment:描边颜色"`
	OutlineWidth    int       `json:"outline_width" gorm:"default:2;comment:描边宽度（px）"`
	Position        string    `json:"position" gorm:"size:10;default:bottom;comment:位置(top,middle,bottom)"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName 指定表名
func (SubtitlePreference) TableName() string {
	return "subtitle_preferences"
}

// 字幕位置常量
const (
	SubtitlePositionTop    = "top"
	SubtitlePositionMiddle = "middle"
	SubtitlePositionBottom = "bottom"
)
