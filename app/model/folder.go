package model

import (
	"time"
)

// Folder 远端文件夹记录，由上传管理器创建，只建不改
type Folder struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	UserID    uint      `json:"user_id" gorm:"not null;index;comment:所属用户ID"`
	Name      string    `json:"name" gorm:"size:255;not null;comment:文件夹名称"`
	ParentID  *uint     `json:"parent_id" gorm:"index;comment:父文件夹ID，null表示根目录"`
	CreatedAt time.Time `json:"created_at"`

	// 关联关系
	Parent *Folder `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
}

// TableName 指定表名
func (Folder) TableName() string {
	return "folders"
}
