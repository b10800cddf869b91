package subtitle

import (
	"regexp"
	"strconv"
	"strings"
)

// Cue 一条字幕：起止时间（秒）和文本，解析后不可变
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

var (
	// HH:MM:SS,mmm --> HH:MM:SS,mmm（逗号或点都接受）
	hourTimestampPattern = regexp.MustCompile(
		`^(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})`)
	// MM:SS,mmm --> MM:SS,mmm
	shortTimestampPattern = regexp.MustCompile(
		`^(\d{1,2}):(\d{2})[,.](\d{1,3})\s*-->\s*(\d{1,2}):(\d{2})[,.](\d{1,3})`)
	sequenceNumberPattern = regexp.MustCompile(`^\d+$`)
)

// Parse 把 SRT 或 WebVTT 文本解析成字幕序列。
// 解析从不失败：格式错乱只会让对应的条目被丢弃，最坏返回空列表。
// 条目保持文件中的出现顺序，不做排序也不做重叠合并。
func Parse(content string) (cues []Cue) {
	defer func() {
		if r := recover(); r != nil {
			cues = nil
		}
	}()

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	// WebVTT 以字面标记开头，跳过头部行；否则按 SRT 处理
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "WEBVTT") {
		lines = lines[1:]
	}

	var current *Cue
	var textLines []string

	flush := func() {
		if current != nil && len(textLines) > 0 {
			current.Text = strings.Join(textLines, "\n")
			cues = append(cues, *current)
		}
		current = nil
		textLines = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flush()
			continue
		}

		if start, end, ok := parseTimestampLine(trimmed); ok {
			flush()
			current = &Cue{Start: start, End: end}
			continue
		}

		// 纯序号行不算文本
		if sequenceNumberPattern.MatchString(trimmed) {
			continue
		}

		if current != nil {
			textLines = append(textLines, trimmed)
		}
	}

	flush()
	return cues
}

// parseTimestampLine 尝试匹配两种时间轴格式
func parseTimestampLine(line string) (float64, float64, bool) {
	if m := hourTimestampPattern.FindStringSubmatch(line); m != nil {
		start := timestampSeconds(m[1], m[2], m[3], m[4])
		end := timestampSeconds(m[5], m[6], m[7], m[8])
		return start, end, true
	}
	if m := shortTimestampPattern.FindStringSubmatch(line); m != nil {
		start := timestampSeconds("0", m[1], m[2], m[3])
		end := timestampSeconds("0", m[4], m[5], m[6])
		return start, end, true
	}
	return 0, 0, false
}

// timestampSeconds 把时分秒毫秒换算成小数秒
func timestampSeconds(h, m, s, ms string) float64 {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	seconds, _ := strconv.Atoi(s)
	millis, _ := strconv.Atoi(ms)

	return float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + float64(millis)/1000
}
