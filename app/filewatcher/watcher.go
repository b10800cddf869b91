package filewatcher

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"video-vault/app/logger"
	"video-vault/app/uploader"
	"video-vault/app/utils"
	"video-vault/app/utils/pathhelper"

	"github.com/fsnotify/fsnotify"
)

const (
	// 文件就绪判定：大小稳定的轮询间隔和最长等待
	readyCheckInterval = 500 * time.Millisecond
	readyMaxWait       = 30 * time.Second
)

// DropWatcher 监控投递目录，新落地的文件搬进暂存目录并加入上传队列。
// 投递目录下的相对路径会原样成为队列条目的文件夹路径
type DropWatcher struct {
	dropDir    string
	stagingDir string
	manager    *uploader.Manager
	logger     *logger.Logger

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	wg       sync.WaitGroup
	watching bool
	mu       sync.Mutex
}

// NewDropWatcher 创建投递目录监控器
func NewDropWatcher(dropDir, stagingDir string, manager *uploader.Manager, log *logger.Logger) (*DropWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}

	return &DropWatcher{
		dropDir:    dropDir,
		stagingDir: stagingDir,
		manager:    manager,
		logger:     log,
		watcher:    watcher,
		stopCh:     make(chan struct{}),
	}, nil
}

// Start 启动监控
func (w *DropWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watching {
		return fmt.Errorf("投递目录监控已经在运行")
	}

	if err := os.MkdirAll(w.dropDir, 0755); err != nil {
		return fmt.Errorf("创建投递目录失败: %w", err)
	}

	if err := w.addWatchPaths(); err != nil {
		return fmt.Errorf("添加监控路径失败: %w", err)
	}

	w.watching = true
	w.wg.Add(1)
	go w.watchLoop()

	w.logger.Infof("投递目录监控已启动: %s", w.dropDir)
	return nil
}

// Stop 停止监控
func (w *DropWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.watching {
		return nil
	}

	close(w.stopCh)
	w.watcher.Close()
	w.wg.Wait()
	w.watching = false

	w.logger.Info("投递目录监控已停止")
	return nil
}

// addWatchPaths 递归监控投递目录下的所有子目录
func (w *DropWatcher) addWatchPaths() error {
	return filepath.Walk(w.dropDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warnf("添加目录监控失败: %s: %v", path, err)
			}
		}
		return nil
	})
}

// watchLoop 监控事件循环
func (w *DropWatcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("投递目录监控错误: %v", err)

		case <-w.stopCh:
			return
		}
	}
}

// handleEvent 只关心创建事件：新目录纳入监控，新文件等写完后入队
func (w *DropWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create == 0 {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		if err := w.watcher.Add(event.Name); err != nil {
			w.logger.Warnf("添加新目录监控失败: %s: %v", event.Name, err)
		}
		return
	}

	// 隐藏文件和写入中的临时文件不收
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".part") || strings.HasSuffix(base, ".tmp") {
		return
	}

	go w.ingest(event.Name)
}

// ingest 等文件写入完成后搬进暂存目录并加入队列
func (w *DropWatcher) ingest(path string) {
	if err := w.waitForFileReady(path); err != nil {
		w.logger.Warnf("等待文件就绪失败: %s: %v", path, err)
		return
	}

	relPath, err := filepath.Rel(w.dropDir, path)
	if err != nil {
		w.logger.Warnf("计算相对路径失败: %s: %v", path, err)
		return
	}
	relPath = filepath.ToSlash(relPath)

	stagePath, size, err := w.stage(path)
	if err != nil {
		w.logger.Errorf("暂存投递文件失败: %s: %v", path, err)
		return
	}

	fileName := filepath.Base(path)
	w.manager.AddFiles([]uploader.IncomingFile{{
		FileName:     fileName,
		Size:         size,
		MimeType:     pathhelper.MimeByExtension(pathhelper.FileExtension(fileName)),
		RelativePath: relPath,
		StagePath:    stagePath,
	}})

	// 入队成功后删除投递副本，避免重复处理
	if err := os.Remove(path); err != nil {
		w.logger.Warnf("删除投递文件失败: %s: %v", path, err)
	}

	w.logger.Infof("投递文件已入队: %s (%s)", relPath, pathhelper.FormatFileSize(size))
}

// stage 把投递文件复制进暂存目录
func (w *DropWatcher) stage(path string) (string, int64, error) {
	if err := os.MkdirAll(w.stagingDir, 0755); err != nil {
		return "", 0, err
	}

	src, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer src.Close()

	stagePath := filepath.Join(w.stagingDir,
		fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), utils.RandomSuffix(6), filepath.Base(path)))

	dst, err := os.Create(stagePath)
	if err != nil {
		return "", 0, err
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(stagePath)
		return "", 0, err
	}
	return stagePath, size, nil
}

// waitForFileReady 轮询文件大小，连续两次不变视为写入完成
func (w *DropWatcher) waitForFileReady(path string) error {
	timeout := time.After(readyMaxWait)
	var lastSize int64 = -1

	for {
		select {
		case <-timeout:
			return fmt.Errorf("等待文件就绪超时: %s", path)
		case <-w.stopCh:
			return fmt.Errorf("监控已停止")
		case <-time.After(readyCheckInterval):
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("获取文件信息失败: %w", err)
			}

			if info.Size() == lastSize && info.Size() > 0 {
				return nil
			}
			lastSize = info.Size()
		}
	}
}
