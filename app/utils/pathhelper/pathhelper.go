package pathhelper

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SplitFolderPath 按 / 切分相对路径并丢弃空段
func SplitFolderPath(path string) []string {
	if path == "" {
		return nil
	}

	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// PathDepth 返回路径的层级数
func PathDepth(path string) int {
	return len(SplitFolderPath(path))
}

// NormalizeName 规范化文件/文件夹名称（NFC），避免同名不同编码的目录被建两次
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// FileExtension 返回小写扩展名（不含点），没有扩展名返回空字符串
func FileExtension(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx == -1 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// TrimExtension 去掉文件名的扩展名，作为默认标题使用
func TrimExtension(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx <= 0 {
		return filename
	}
	return filename[:idx]
}

// 文件类型常量，由 MIME 类型一次性推导
const (
	FileTypeVideo    = "video"
	FileTypeImage    = "image"
	FileTypeDocument = "document"
	FileTypeOther    = "other"
)

// FileTypeOf 根据 MIME 类型推导文件类型
func FileTypeOf(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return FileTypeVideo
	case strings.HasPrefix(mimeType, "image/"):
		return FileTypeImage
	case strings.Contains(mimeType, "pdf"),
		strings.Contains(mimeType, "document"),
		strings.Contains(mimeType, "text"),
		strings.Contains(mimeType, "spreadsheet"),
		strings.Contains(mimeType, "presentation"):
		return FileTypeDocument
	default:
		return FileTypeOther
	}
}

// videoMimeTypes 视频扩展名到 MIME 的映射，流媒体代理依赖这张表修正源站的通用类型
var videoMimeTypes = map[string]string{
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
	"m4v":  "video/x-m4v",
	"ts":   "video/mp2t",
	"flv":  "video/x-flv",
	"wmv":  "video/x-ms-wmv",
	"ogv":  "video/ogg",
	"m3u8": "application/vnd.apple.mpegurl",
}

// VideoMimeByExtension 按扩展名查视频 MIME，没有返回空字符串
func VideoMimeByExtension(ext string) string {
	return videoMimeTypes[strings.ToLower(ext)]
}

// mimeTypes 常见扩展名到 MIME 的映射，URL 拉取时用来补全类型
var mimeTypes = map[string]string{
	"mp4": "video/mp4", "webm": "video/webm", "mov": "video/quicktime",
	"avi": "video/x-msvideo", "mkv": "video/x-matroska",
	"jpg": "image/jpeg", "jpeg": "image/jpeg", "png": "image/png",
	"gif": "image/gif", "webp": "image/webp",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"zip":  "application/zip",
	"mp3":  "audio/mpeg", "wav": "audio/wav",
	"srt": "text/plain", "vtt": "text/vtt",
}

// MimeByExtension 按扩展名查 MIME，未知返回 application/octet-stream
func MimeByExtension(ext string) string {
	if m, ok := mimeTypes[strings.ToLower(ext)]; ok {
		return m
	}
	return "application/octet-stream"
}

// FilenameFromURL 从 URL 路径中提取文件名，失败返回空字符串
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	parts := strings.Split(u.Path, "/")
	name := parts[len(parts)-1]
	if name == "" {
		return ""
	}

	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}

// FormatFileSize 把字节数格式化成可读字符串
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	units := []string{"Bytes", "KB", "MB", "GB", "TB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}

	value := float64(bytes) / math.Pow(1024, float64(i))
	return fmt.Sprintf("%s %s", strings.TrimSuffix(fmt.Sprintf("%.2f", value), ".00"), units[i])
}
