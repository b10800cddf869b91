package subtitle

import (
	"fmt"
	"strings"
)

// StyleConfig 字幕渲染偏好，纯展示属性，不参与任何时间逻辑
type StyleConfig struct {
	FontSize        int    `json:"font_size"`
	FontFamily      string `json:"font_family"`
	TextColor       string `json:"text_color"`
	BackgroundColor string `json:"background_color"`
	TextOutline     bool   `json:"text_outline"`
	OutlineColor    string `json:"outline_color"`
	OutlineWidth    int    `json:"outline_width"`
	Position        string `json:"position"` // top、middle、bottom
}

// DefaultStyleConfig 进程级默认偏好，用户没有存过配置时使用
func DefaultStyleConfig() StyleConfig {
	return StyleConfig{
		FontSize:        24,
		FontFamily:      "Arial",
		TextColor:       "#FFFFFF",
		BackgroundColor: "rgba(0, 0, 0, 0.75)",
		TextOutline:     false,
		OutlineColor:    "#000000",
		OutlineWidth:    2,
		Position:        "bottom",
	}
}

// TextShadow 描边通过多方向阴影偏移实现，关闭描边时返回空字符串
func (c StyleConfig) TextShadow() string {
	if !c.TextOutline || c.OutlineWidth <= 0 {
		return ""
	}

	w := c.OutlineWidth
	offsets := [][2]int{
		{-w, -w}, {w, -w}, {-w, w}, {w, w},
		{0, -w}, {0, w}, {-w, 0}, {w, 0},
	}

	parts := make([]string, 0, len(offsets))
	for _, o := range offsets {
		parts = append(parts, fmt.Sprintf("%dpx %dpx 0 %s", o[0], o[1], c.OutlineColor))
	}
	return strings.Join(parts, ", ")
}
