package uploader

import (
	"video-vault/app/model"

	"gorm.io/gorm"
)

// GormStore 基于数据库的元数据写入口
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建元数据写入口
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// CreateFolder 创建文件夹记录并返回新 ID
func (s *GormStore) CreateFolder(userID uint, name string, parentID *uint) (uint, error) {
	folder := &model.Folder{
		UserID:   userID,
		Name:     name,
		ParentID: parentID,
	}
	if err := s.db.Create(folder).Error; err != nil {
		return 0, err
	}
	return folder.ID, nil
}

// CreateVideo 创建视频记录
func (s *GormStore) CreateVideo(video *model.Video) error {
	return s.db.Create(video).Error
}
