package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"video-vault/app/config"
	"video-vault/app/logger"

	"github.com/patrickmn/go-cache"
	"resty.dev/v3"
)

const (
	// 小文件直接 PUT 的阈值
	officeSimpleUploadLimit = 4 * 1024 * 1024
	// 大文件分片大小
	officeChunkSize = 10 * 1024 * 1024

	officeTokenCacheKey = "office_access_token"
)

// OfficeStorage 办公存储（Graph API）后端，作为与桶存储等价的上传目标
type OfficeStorage struct {
	cfg        *config.OfficeConfig
	driveID    string
	client     *resty.Client
	tokenCache *cache.Cache
	logger     *logger.Logger
}

// OfficeSite 站点信息
type OfficeSite struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	WebURL      string `json:"webUrl"`
}

// OfficeDrive 驱动器信息
type OfficeDrive struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DriveType string `json:"driveType"`
	WebURL    string `json:"webUrl"`
}

// OfficeItem 文件或文件夹条目
type OfficeItem struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	WebURL               string `json:"webUrl"`
	Size                 int64  `json:"size"`
	CreatedDateTime      string `json:"createdDateTime"`
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
	File                 *struct {
		MimeType string `json:"mimeType"`
	} `json:"file,omitempty"`
	Folder *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder,omitempty"`
}

type officeSiteList struct {
	Value []OfficeSite `json:"value"`
}

type officeDriveList struct {
	Value []OfficeDrive `json:"value"`
}

type officeItemList struct {
	Value []OfficeItem `json:"value"`
}

type officeTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type officeSessionResponse struct {
	UploadURL string `json:"uploadUrl"`
}

// NewOfficeStorage 创建办公存储客户端
func NewOfficeStorage(cfg *config.Config, driveID string, log *logger.Logger) *OfficeStorage {
	return &OfficeStorage{
		cfg:        &cfg.Office,
		driveID:    driveID,
		client:     resty.New(),
		tokenCache: cache.New(50*time.Minute, 10*time.Minute),
		logger:     log,
	}
}

// accessToken 获取访问令牌，带缓存避免每次请求都走令牌端点
func (s *OfficeStorage) accessToken(ctx context.Context) (string, error) {
	if token, found := s.tokenCache.Get(officeTokenCacheKey); found {
		return token.(string), nil
	}

	if s.cfg.TenantID == "" || s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		return "", fmt.Errorf("办公存储凭据未配置")
	}

	var tokenResp officeTokenResponse
	res, err := s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     s.cfg.ClientID,
			"client_secret": s.cfg.ClientSecret,
			"scope":         "https://graph.microsoft.com/.default",
			"grant_type":    "client_credentials",
		}).
		SetResult(&tokenResp).
		Post(fmt.Sprintf(s.cfg.TokenURL, s.cfg.TenantID))
	if err != nil {
		return "", fmt.Errorf("获取访问令牌失败: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("获取访问令牌失败，状态码: %d", res.StatusCode())
	}

	expire := time.Duration(tokenResp.ExpiresIn-300) * time.Second
	if expire <= 0 {
		expire = cache.DefaultExpiration
	}
	s.tokenCache.Set(officeTokenCacheKey, tokenResp.AccessToken, expire)

	return tokenResp.AccessToken, nil
}

// graphGet 发起一次 Graph API GET 请求
func (s *OfficeStorage) graphGet(ctx context.Context, endpoint string, result any) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	res, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(result).
		Get(s.cfg.GraphURL + endpoint)
	if err != nil {
		return fmt.Errorf("Graph API 请求失败: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("Graph API 请求失败，状态码: %d, 响应: %s", res.StatusCode(), res.String())
	}
	return nil
}

// ListSites 列出可用站点
func (s *OfficeStorage) ListSites(ctx context.Context) ([]OfficeSite, error) {
	var resp officeSiteList
	if err := s.graphGet(ctx, "/sites?search=*", &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// ListDrives 列出站点下的驱动器
func (s *OfficeStorage) ListDrives(ctx context.Context, siteID string) ([]OfficeDrive, error) {
	var resp officeDriveList
	if err := s.graphGet(ctx, fmt.Sprintf("/sites/%s/drives", siteID), &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// ListFiles 列出驱动器/文件夹下的条目
func (s *OfficeStorage) ListFiles(ctx context.Context, driveID, folderID string) ([]OfficeItem, error) {
	if folderID == "" {
		folderID = "root"
	}
	var resp officeItemList
	if err := s.graphGet(ctx, fmt.Sprintf("/drives/%s/items/%s/children", driveID, folderID), &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// GetDownloadURL 获取条目的下载地址
func (s *OfficeStorage) GetDownloadURL(ctx context.Context, driveID, itemID string) (string, error) {
	var item struct {
		DownloadURL string `json:"@microsoft.graph.downloadUrl"`
	}
	if err := s.graphGet(ctx, fmt.Sprintf("/drives/%s/items/%s?select=id,@microsoft.graph.downloadUrl", driveID, itemID), &item); err != nil {
		return "", err
	}
	if item.DownloadURL == "" {
		return "", fmt.Errorf("条目没有可用的下载地址")
	}
	return item.DownloadURL, nil
}

// Put 上传对象：小于 4MB 直接单次 PUT，否则创建上传会话后按 10MB 分片顺序上传
func (s *OfficeStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, onProgress ProgressFunc) (string, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return "", err
	}

	itemPath := fmt.Sprintf("/drives/%s/root:/%s", s.driveID, url.PathEscape(key))

	if size < officeSimpleUploadLimit {
		return s.putSimple(ctx, token, itemPath, r, size, contentType, onProgress)
	}
	return s.putChunked(ctx, token, itemPath, r, size, onProgress)
}

// putSimple 小文件单次上传
func (s *OfficeStorage) putSimple(ctx context.Context, token, itemPath string, r io.Reader, size int64, contentType string, onProgress ProgressFunc) (string, error) {
	var item OfficeItem
	res, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", contentType).
		SetBody(&progressReader{r: r, total: size, onProgress: onProgress}).
		SetResult(&item).
		Put(s.cfg.GraphURL + itemPath + ":/content")
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrAborted
		}
		return "", fmt.Errorf("上传失败: %w", err)
	}
	if res.StatusCode() != http.StatusOK && res.StatusCode() != http.StatusCreated {
		return "", fmt.Errorf("上传失败，状态码: %d", res.StatusCode())
	}
	return item.WebURL, nil
}

// putChunked 大文件分片上传，每片携带 Content-Range
func (s *OfficeStorage) putChunked(ctx context.Context, token, itemPath string, r io.Reader, size int64, onProgress ProgressFunc) (string, error) {
	var session officeSessionResponse
	res, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]any{}).
		SetResult(&session).
		Post(s.cfg.GraphURL + itemPath + ":/createUploadSession")
	if err != nil {
		return "", fmt.Errorf("创建上传会话失败: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("创建上传会话失败，状态码: %d", res.StatusCode())
	}

	var item OfficeItem
	buf := make([]byte, officeChunkSize)
	var sent int64

	for sent < size {
		if ctx.Err() != nil {
			return "", ErrAborted
		}

		end := sent + officeChunkSize
		if end > size {
			end = size
		}
		chunkLen := end - sent

		if _, err := io.ReadFull(r, buf[:chunkLen]); err != nil {
			return "", fmt.Errorf("读取分片失败: %w", err)
		}

		chunkRes, err := s.client.R().
			SetContext(ctx).
			SetHeader("Content-Range", fmt.Sprintf("bytes %d-%d/%d", sent, end-1, size)).
			SetBody(buf[:chunkLen]).
			SetResult(&item).
			Put(session.UploadURL)
		if err != nil {
			if ctx.Err() != nil {
				return "", ErrAborted
			}
			return "", fmt.Errorf("分片上传失败: %w", err)
		}

		switch chunkRes.StatusCode() {
		case http.StatusAccepted, http.StatusOK, http.StatusCreated:
			// 中间分片返回 202，最后一片返回 200/201 并携带条目信息
		default:
			return "", fmt.Errorf("分片上传失败，状态码: %d", chunkRes.StatusCode())
		}

		sent = end
		if onProgress != nil {
			onProgress(sent, size)
		}
	}

	if item.WebURL == "" {
		return "", fmt.Errorf("分片上传完成但未返回条目信息")
	}

	s.logger.Infof("办公存储分片上传完成: %s, 大小: %d", item.Name, size)
	return item.WebURL, nil
}
