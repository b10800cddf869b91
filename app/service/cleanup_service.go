package service

import (
	"os"
	"path/filepath"
	"time"

	"video-vault/app/database"
	"video-vault/app/logger"
	"video-vault/app/model"
	"video-vault/app/uploader"

	"github.com/robfig/cron/v3"
)

const (
	// 已完成的拉取任务保留 7 天，失败的保留 30 天便于排查
	completedTaskTTL = 7 * 24 * time.Hour
	failedTaskTTL    = 30 * 24 * time.Hour
	// 不在队列里的暂存文件超过 24 小时视为遗留
	staleStagingTTL = 24 * time.Hour
)

// CleanupService 周期清理：过期的拉取任务记录和遗留的暂存文件
type CleanupService struct {
	logger     *logger.Logger
	manager    *uploader.Manager
	stagingDir string
	cron       *cron.Cron
}

// NewCleanupService 创建清理服务
func NewCleanupService(log *logger.Logger, manager *uploader.Manager, stagingDir string) *CleanupService {
	return &CleanupService{
		logger:     log,
		manager:    manager,
		stagingDir: stagingDir,
		cron:       cron.New(),
	}
}

// Start 启动清理服务，每小时跑一轮
func (s *CleanupService) Start() error {
	if _, err := s.cron.AddFunc("@hourly", s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("清理服务已启动")
	return nil
}

// Stop 停止清理服务
func (s *CleanupService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("清理服务已停止")
}

// runOnce 执行一轮清理
func (s *CleanupService) runOnce() {
	s.cleanupOldTasks()
	s.cleanupStaleStaging()
}

// cleanupOldTasks 删除超过保留期的拉取任务记录
func (s *CleanupService) cleanupOldTasks() {
	completedBefore := time.Now().Add(-completedTaskTTL)
	result := database.DB.Where("status = ? AND updated_at < ?",
		model.IngestStatusCompleted, completedBefore).Delete(&model.IngestTask{})
	if result.Error != nil {
		s.logger.Errorf("清理已完成拉取任务失败: %v", result.Error)
	} else if result.RowsAffected > 0 {
		s.logger.Infof("清理了 %d 条已完成的拉取任务", result.RowsAffected)
	}

	failedBefore := time.Now().Add(-failedTaskTTL)
	result = database.DB.Where("status = ? AND updated_at < ?",
		model.IngestStatusFailed, failedBefore).Delete(&model.IngestTask{})
	if result.Error != nil {
		s.logger.Errorf("清理失败拉取任务失败: %v", result.Error)
	} else if result.RowsAffected > 0 {
		s.logger.Infof("清理了 %d 条失败的拉取任务", result.RowsAffected)
	}
}

// cleanupStaleStaging 删除不属于任何队列条目的过期暂存文件
func (s *CleanupService) cleanupStaleStaging() {
	entries, err := os.ReadDir(s.stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Errorf("读取暂存目录失败: %v", err)
		}
		return
	}

	active := s.manager.StagePaths()
	cutoff := time.Now().Add(-staleStagingTTL)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(s.stagingDir, entry.Name())
		if active[path] {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			s.logger.Warnf("删除遗留暂存文件失败: %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Infof("清理了 %d 个遗留暂存文件", removed)
	}
}
