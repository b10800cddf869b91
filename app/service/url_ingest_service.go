package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-vault/app/database"
	"video-vault/app/logger"
	"video-vault/app/model"
	"video-vault/app/uploader"
	"video-vault/app/utils"
	"video-vault/app/utils/pathhelper"
)

const (
	ingestTimeout   = 30 * time.Minute
	ingestChunkSize = 256 * 1024
)

// UrlIngestService 把远端 URL 指向的文件拉到暂存目录并入上传队列。
// 直连失败且配置了代理地址时，自动走代理回退再试一次
type UrlIngestService struct {
	logger       *logger.Logger
	manager      *uploader.Manager
	stagingDir   string
	proxyBaseURL string
	client       *http.Client
}

// NewUrlIngestService 创建 URL 拉取服务
func NewUrlIngestService(log *logger.Logger, manager *uploader.Manager, stagingDir, proxyBaseURL string) *UrlIngestService {
	return &UrlIngestService{
		logger:       log,
		manager:      manager,
		stagingDir:   stagingDir,
		proxyBaseURL: proxyBaseURL,
		client:       &http.Client{Timeout: ingestTimeout},
	}
}

// Ingest 创建拉取任务并在后台下载，立即返回任务记录
func (s *UrlIngestService) Ingest(userID uint, rawURL string) (*model.IngestTask, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("下载地址不能为空")
	}
	// 没写协议的地址按 https 处理
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, fmt.Errorf("不支持的下载地址: %s", rawURL)
	}

	task := &model.IngestTask{
		UserID:   userID,
		URL:      rawURL,
		FileName: pathhelper.FilenameFromURL(rawURL),
		Status:   model.IngestStatusPending,
	}
	if err := database.DB.Create(task).Error; err != nil {
		return nil, err
	}

	go s.download(task)
	return task, nil
}

// Task 查询单个拉取任务
func (s *UrlIngestService) Task(userID, taskID uint) (*model.IngestTask, error) {
	var task model.IngestTask
	err := database.DB.Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Tasks 查询用户的拉取任务列表，新任务在前
func (s *UrlIngestService) Tasks(userID uint) ([]model.IngestTask, error) {
	var tasks []model.IngestTask
	err := database.DB.Where("user_id = ?", userID).
		Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

// download 执行下载：先直连，失败再走代理回退
func (s *UrlIngestService) download(task *model.IngestTask) {
	task.SetDownloading()
	s.saveTask(task)

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	resp, err := s.fetchDirect(ctx, task.URL)
	if err != nil && s.proxyBaseURL != "" {
		s.logger.Warnf("直连下载失败，改走代理: %s: %v", task.URL, err)
		task.UsedProxy = true
		resp, err = s.fetchViaProxy(ctx, task.URL)
	}
	if err != nil {
		s.logger.Errorf("URL 拉取失败: %s: %v", task.URL, err)
		task.SetError(err)
		s.saveTask(task)
		return
	}
	defer resp.Body.Close()

	fileName := s.resolveFileName(resp, task.URL)
	mimeType := s.resolveMimeType(resp, fileName)

	stagePath, size, err := s.stage(resp.Body, resp.ContentLength, fileName, task)
	if err != nil {
		task.SetError(err)
		s.saveTask(task)
		return
	}

	s.manager.AddFiles([]uploader.IncomingFile{{
		FileName:     fileName,
		Size:         size,
		MimeType:     mimeType,
		RelativePath: fileName,
		StagePath:    stagePath,
	}})

	task.FileName = fileName
	task.SetCompleted()
	s.saveTask(task)
	s.logger.Infof("URL 拉取完成: %s (%s)", fileName, pathhelper.FormatFileSize(size))
}

// fetchDirect 直连拉取，非 2xx 视为失败
func (s *UrlIngestService) fetchDirect(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("源站返回 %d", resp.StatusCode)
	}
	return resp, nil
}

// fetchViaProxy 通过下载代理端点拉取
func (s *UrlIngestService) fetchViaProxy(ctx context.Context, rawURL string) (*http.Response, error) {
	payload, err := json.Marshal(map[string]string{"url": rawURL})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSuffix(s.proxyBaseURL, "/") + "/api/proxy-download"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("代理返回 %d", resp.StatusCode)
	}
	return resp, nil
}

// stage 把响应体写进暂存目录，按块推进任务进度
func (s *UrlIngestService) stage(body io.Reader, total int64, fileName string, task *model.IngestTask) (string, int64, error) {
	if err := os.MkdirAll(s.stagingDir, 0755); err != nil {
		return "", 0, fmt.Errorf("创建暂存目录失败: %w", err)
	}

	stagePath := filepath.Join(s.stagingDir,
		fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), utils.RandomSuffix(6), filepath.Base(fileName)))

	f, err := os.Create(stagePath)
	if err != nil {
		return "", 0, fmt.Errorf("创建暂存文件失败: %w", err)
	}
	defer f.Close()

	var written int64
	buf := make([]byte, ingestChunkSize)
	lastSaved := 0

	// 源站没给总长度时进度无法计算，停在 50% 直到结束
	if total <= 0 {
		task.Progress = 50
		s.saveTask(task)
	}

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				os.Remove(stagePath)
				return "", 0, fmt.Errorf("写入暂存文件失败: %w", err)
			}
			written += int64(n)

			if total > 0 {
				progress := int(written * 100 / total)
				// 每推进 5 个点落库一次，避免进度写放大
				if progress >= lastSaved+5 {
					task.Progress = progress
					s.saveTask(task)
					lastSaved = progress
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			os.Remove(stagePath)
			return "", 0, fmt.Errorf("下载中断: %w", readErr)
		}
	}

	return stagePath, written, nil
}

// resolveFileName 依次尝试 Content-Disposition、URL 路径，最后兜底生成
func (s *UrlIngestService) resolveFileName(resp *http.Response, rawURL string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return pathhelper.NormalizeName(name)
			}
		}
	}

	if name := pathhelper.FilenameFromURL(rawURL); name != "" {
		return pathhelper.NormalizeName(name)
	}

	return fmt.Sprintf("download-%d", time.Now().Unix())
}

// resolveMimeType 优先信源站类型，拿不到再按扩展名推断
func (s *UrlIngestService) resolveMimeType(resp *http.Response, fileName string) string {
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "application/octet-stream") {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return mediaType
		}
	}
	return pathhelper.MimeByExtension(pathhelper.FileExtension(fileName))
}

func (s *UrlIngestService) saveTask(task *model.IngestTask) {
	if err := database.DB.Save(task).Error; err != nil {
		s.logger.Errorf("保存拉取任务失败: %v", err)
	}
}
