package storage

import (
	"context"
	"errors"
	"io"
)

// ErrAborted 表示传输被暂停信号中止，区别于真正的上传错误
var ErrAborted = errors.New("传输已被中止")

// ProgressFunc 字节进度回调，sent 为已发送字节数，total 为总字节数
type ProgressFunc func(sent, total int64)

// ObjectStorage 对象存储目标的统一抽象，上传管理器只依赖这个接口
type ObjectStorage interface {
	// Put 上传完整对象，成功返回可公开访问的 URL；
	// ctx 被取消时返回 ErrAborted 而不是普通错误
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, onProgress ProgressFunc) (string, error)
}

// progressReader 包装读取器，按实际读取的字节数上报进度
type progressReader struct {
	r          io.Reader
	total      int64
	sent       int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.sent, p.total)
		}
	}
	return n, err
}
