package database

import "video-vault/app/model"

func AutoMigrate() error {
	// 自动迁移表结构
	return DB.AutoMigrate(
		&model.User{},
		&model.Folder{},
		&model.Video{},
		&model.SubtitlePreference{},
		&model.IngestTask{},
	)
}
