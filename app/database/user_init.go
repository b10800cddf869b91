package database

import (
	"video-vault/app/config"
	"video-vault/app/logger"
	"video-vault/app/model"
	"video-vault/app/utils"
)

// InitAdminUser 初始化管理员账户，已存在则跳过
func InitAdminUser(cfg *config.Config, log *logger.Logger) error {
	username := cfg.Server.Username
	password := cfg.Server.Password

	if username == "" || password == "" {
		log.Warn("未配置管理员账户，跳过初始化")
		return nil
	}

	var count int64
	if err := DB.Model(&model.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &model.User{
		Username: username,
		Password: hashed,
		IsActive: true,
		IsAdmin:  true,
	}

	if err := DB.Create(admin).Error; err != nil {
		return err
	}

	log.Infof("管理员账户初始化成功: %s", username)
	return nil
}
