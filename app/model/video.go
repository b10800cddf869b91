package model

import (
	"time"
)

// Video 视频/文件元数据记录，上传成功后写入，只建不改
type Video struct {
	ID              uint      `json:"id" gorm:"primarykey"`
	UserID          uint      `json:"user_id" gorm:"not null;index;comment:所属用户ID"`
	Title           string    `json:"title" gorm:"size:255;not null;comment:标题"`
	Description     string    `json:"description" gorm:"type:text;comment:描述"`
	Category        string    `json:"category" gorm:"size:50;comment:分类"`
	VideoURL        string    `json:"video_url" gorm:"type:text;not null;comment:对象存储地址"`
	ThumbnailURL    *string   `json:"thumbnail_url" gorm:"type:text;comment:缩略图地址"`
	DurationSeconds int       `json:"duration_seconds" gorm:"default:0;comment:时长（秒）"`
	FolderID        *uint     `json:"folder_id" gorm:"index;comment:所属文件夹ID，null表示根目录"`
	CreatedAt       time.Time `json:"created_at"`

	// 关联关系
	Folder *Folder `gorm:"foreignKey:FolderID" json:"folder,omitempty"`
}

// TableName 指定表名
func (Video) TableName() string {
	return "videos"
}
