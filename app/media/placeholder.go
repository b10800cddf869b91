package media

import (
	"fmt"
	"strings"

	"github.com/fogleman/gg"
)

const (
	placeholderWidth  = 480
	placeholderHeight = 270
)

// renderPlaceholder 渲染视频占位封面：深色画布加扩展名徽标，
// 服务端没有视频帧解码能力时用它顶替首帧截图
func renderPlaceholder(ext string, durationSeconds int) (string, error) {
	dc := gg.NewContext(placeholderWidth, placeholderHeight)

	// 深色背景
	dc.SetRGB(0.09, 0.09, 0.12)
	dc.Clear()

	// 中间的徽标底
	dc.SetRGB(0.18, 0.18, 0.24)
	dc.DrawRoundedRectangle(placeholderWidth/2-70, placeholderHeight/2-30, 140, 60, 8)
	dc.Fill()

	label := strings.ToUpper(ext)
	if label == "" {
		label = "VIDEO"
	}

	dc.SetRGB(0.85, 0.85, 0.9)
	dc.DrawStringAnchored(label, placeholderWidth/2, placeholderHeight/2, 0.5, 0.5)

	if durationSeconds > 0 {
		dc.DrawStringAnchored(formatDuration(durationSeconds), placeholderWidth-16, placeholderHeight-16, 1, 1)
	}

	return encodeJPEGDataURL(dc.Image())
}

// formatDuration 把秒数格式化成 MM:SS 或 HH:MM:SS
func formatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
