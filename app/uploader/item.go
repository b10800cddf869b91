package uploader

import (
	"os"
)

// 上传条目状态
const (
	StatusPending   = "pending"
	StatusUploading = "uploading"
	StatusComplete  = "complete"
	StatusError     = "error"
	StatusPaused    = "paused"
)

// Item 队列中的一个待传文件。
// 文件内容先落到暂存目录，StagePath 指向暂存副本，
// 条目完成或被移除后暂存副本被清理
type Item struct {
	ID              string `json:"id"`
	FileName        string `json:"file_name"`
	Size            int64  `json:"size"`
	MimeType        string `json:"mime_type"`
	FileType        string `json:"file_type"`
	RelativePath    string `json:"relative_path"`
	FolderPath      string `json:"folder_path"`
	StagePath       string `json:"-"`
	Thumbnail       string `json:"thumbnail,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	Status          string `json:"status"`
	Progress        int    `json:"progress"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// Release 清理暂存副本
func (i *Item) Release() {
	if i.StagePath != "" {
		_ = os.Remove(i.StagePath)
		i.StagePath = ""
	}
}
