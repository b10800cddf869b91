package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"io"
	"os"

	"video-vault/app/logger"
	"video-vault/app/utils/pathhelper"

	"github.com/disintegration/imaging"

	// 注册 webp 解码器
	_ "golang.org/x/image/webp"
)

const (
	thumbnailMaxWidth      = 480
	thumbnailQuality       = 80
	thumbnailDataURLPrefix = "data:image/jpeg;base64,"
)

// Result 提取结果，Thumbnail 为空表示没有可用预览，不代表失败
type Result struct {
	Thumbnail string `json:"thumbnail"`
	Duration  int    `json:"duration"`
}

// Extractor 缩略图和元数据提取器
type Extractor struct {
	logger *logger.Logger
}

// NewExtractor 创建提取器
func NewExtractor(log *logger.Logger) *Extractor {
	return &Extractor{logger: log}
}

// Extract 从文件提取缩略图和时长，任何解码失败都降级为空结果，从不返回错误。
// 读取结束后文件偏移量会被重置，调用方保留文件所有权。
func (e *Extractor) Extract(fileName, mimeType string, f *os.File, size int64) Result {
	defer func() {
		// 把文件指针放回起点，后续上传要重读整个文件
		_, _ = f.Seek(0, io.SeekStart)
	}()

	switch pathhelper.FileTypeOf(mimeType) {
	case pathhelper.FileTypeImage:
		return e.extractImage(f)
	case pathhelper.FileTypeVideo:
		return e.extractVideo(fileName, f, size)
	default:
		return Result{}
	}
}

// extractImage 解码图片并压成 JPEG data URL
func (e *Extractor) extractImage(f *os.File) Result {
	img, _, err := image.Decode(f)
	if err != nil {
		e.logger.Debugf("图片解码失败: %v", err)
		return Result{}
	}

	if img.Bounds().Dx() > thumbnailMaxWidth {
		img = imaging.Resize(img, thumbnailMaxWidth, 0, imaging.Lanczos)
	}

	thumbnail, err := encodeJPEGDataURL(img)
	if err != nil {
		e.logger.Debugf("缩略图编码失败: %v", err)
		return Result{}
	}

	return Result{Thumbnail: thumbnail}
}

// extractVideo 探测视频时长并渲染占位封面。
// 进程内没有视频帧解码能力，截帧封面有意用扩展名占位卡片代替
func (e *Extractor) extractVideo(fileName string, f *os.File, size int64) Result {
	duration := probeDuration(f, size)

	thumbnail, err := renderPlaceholder(pathhelper.FileExtension(fileName), duration)
	if err != nil {
		e.logger.Debugf("占位封面渲染失败: %v", err)
		thumbnail = ""
	}

	return Result{Thumbnail: thumbnail, Duration: duration}
}

// encodeJPEGDataURL 把图像编码成内嵌的 JPEG data URL
func encodeJPEGDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return "", err
	}
	return thumbnailDataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURL 解出 data URL 中的原始字节，缩略图二次上传时使用
func DecodeDataURL(dataURL string) ([]byte, bool) {
	idx := bytes.IndexByte([]byte(dataURL), ',')
	if idx == -1 {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(dataURL[idx+1:])
	if err != nil {
		return nil, false
	}
	return raw, true
}
