package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"video-vault/app/config"
	"video-vault/app/logger"
)

// BucketStorage 通过 HTTP PUT 上传到桶式对象存储
type BucketStorage struct {
	baseURL string
	bucket  string
	token   string
	client  *http.Client
	logger  *logger.Logger
}

// NewBucketStorage 创建桶存储客户端
func NewBucketStorage(cfg *config.Config, log *logger.Logger) *BucketStorage {
	return &BucketStorage{
		baseURL: cfg.Storage.BaseURL,
		bucket:  cfg.Storage.Bucket,
		token:   cfg.Storage.Token,
		client:  &http.Client{},
		logger:  log,
	}
}

// Put 整体上传一个对象，进度来自传输层实际发送的字节数
func (s *BucketStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, onProgress ProgressFunc) (string, error) {
	body := &progressReader{r: r, total: size, onProgress: onProgress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key), body)
	if err != nil {
		return "", fmt.Errorf("创建上传请求失败: %w", err)
	}

	req.ContentLength = size
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := s.client.Do(req)
	if err != nil {
		// 暂停信号取消了请求，按中止处理而不是错误
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return "", ErrAborted
		}
		return "", fmt.Errorf("上传请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("上传失败，状态码: %d, 响应: %s", resp.StatusCode, string(bodyBytes))
	}

	s.logger.Debugf("对象上传成功: key=%s, size=%d", key, size)
	return s.PublicURL(key), nil
}

// PublicURL 按约定推导对象的公开访问地址
func (s *BucketStorage) PublicURL(key string) string {
	return fmt.Sprintf("%s/public/%s/%s", s.baseURL, s.bucket, key)
}
