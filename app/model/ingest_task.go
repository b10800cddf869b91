package model

import (
	"time"
)

// IngestTask URL 拉取任务模型
type IngestTask struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	UserID    uint      `json:"user_id" gorm:"not null;index;comment:所属用户ID"`
	URL       string    `json:"url" gorm:"type:text;not null;comment:来源地址"`
	FileName  string    `json:"file_name" gorm:"size:255;comment:推断的文件名"`
	Progress  int       `json:"progress" gorm:"default:0;comment:下载进度(0-100)"`
	UsedProxy bool      `json:"used_proxy" gorm:"default:false;comment:是否走了代理回退"`
	Status    string    `json:"status" gorm:"size:20;default:pending;comment:状态"`
	LastError string    `json:"last_error" gorm:"type:text;comment:最后一次错误信息"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (IngestTask) TableName() string {
	return "ingest_tasks"
}

// 拉取任务状态常量
const (
	IngestStatusPending     = "pending"     // 等待中
	IngestStatusDownloading = "downloading" // 下载中
	IngestStatusCompleted   = "completed"   // 已完成
	IngestStatusFailed      = "failed"      // 失败
)

// SetDownloading 设置为下载中状态
func (t *IngestTask) SetDownloading() {
	t.Status = IngestStatusDownloading
}

// SetCompleted 设置为已完成状态
func (t *IngestTask) SetCompleted() {
	t.Status = IngestStatusCompleted
	t.Progress = 100
	t.LastError = ""
}

// SetError 设置错误信息
func (t *IngestTask) SetError(err error) {
	t.Status = IngestStatusFailed
	t.LastError = err.Error()
}
