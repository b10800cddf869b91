package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"video-vault/app/config"
	"video-vault/app/logger"

	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(config.LogConfig{Level: "error", Format: "text", Output: "stdout"})
}

// officeStub 模拟令牌端点和 Graph 上传端点
type officeStub struct {
	mu          sync.Mutex
	server      *httptest.Server
	tokenCalls  atomic.Int32
	ranges      []string
	chunkSizes  []int
	simpleBody  []byte
	contentType string
}

func newOfficeStub(t *testing.T) *officeStub {
	t.Helper()
	stub := &officeStub{}
	stub.server = httptest.NewServer(http.HandlerFunc(stub.handle))
	t.Cleanup(stub.server.Close)
	return stub
}

func (o *officeStub) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasPrefix(r.URL.Path, "/token/"):
		o.tokenCalls.Add(1)
		fmt.Fprint(w, `{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`)

	case strings.HasSuffix(r.URL.Path, ":/createUploadSession"):
		fmt.Fprintf(w, `{"uploadUrl":"%s/upload-session"}`, o.server.URL)

	case r.URL.Path == "/upload-session" && r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		cr := r.Header.Get("Content-Range")

		o.mu.Lock()
		o.ranges = append(o.ranges, cr)
		o.chunkSizes = append(o.chunkSizes, len(body))
		o.mu.Unlock()

		var from, to, total int64
		fmt.Sscanf(cr, "bytes %d-%d/%d", &from, &to, &total)
		if to == total-1 {
			// 最后一片返回条目信息
			fmt.Fprint(w, `{"id":"item-1","name":"clip.mp4","webUrl":"https://contoso.example/clip.mp4"}`)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{}`)

	case strings.HasSuffix(r.URL.Path, ":/content") && r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		o.mu.Lock()
		o.simpleBody = body
		o.contentType = r.Header.Get("Content-Type")
		o.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"item-2","name":"photo.jpg","webUrl":"https://contoso.example/photo.jpg"}`)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestOfficeStorage(stub *officeStub) *OfficeStorage {
	cfg := &config.Config{
		Office: config.OfficeConfig{
			TenantID:     "tenant-1",
			ClientID:     "client-1",
			ClientSecret: "secret-1",
			DriveID:      "drive-1",
			GraphURL:     stub.server.URL + "/graph",
			TokenURL:     stub.server.URL + "/token/%s",
		},
	}
	return NewOfficeStorage(cfg, cfg.Office.DriveID, testLogger())
}

func TestOfficePutSimple(t *testing.T) {
	stub := newOfficeStub(t)
	s := newTestOfficeStorage(stub)

	data := bytes.Repeat([]byte("图"), 512)
	url, err := s.Put(context.Background(), "photo.jpg", bytes.NewReader(data),
		int64(len(data)), "image/jpeg", nil)
	require.NoError(t, err)
	require.Equal(t, "https://contoso.example/photo.jpg", url)

	stub.mu.Lock()
	defer stub.mu.Unlock()
	require.Equal(t, data, stub.simpleBody)
	require.Equal(t, "image/jpeg", stub.contentType)
}

func TestOfficePutChunked(t *testing.T) {
	stub := newOfficeStub(t)
	s := newTestOfficeStorage(stub)

	// 25MB：两个整片加一个 5MB 尾片
	const total = 25 * 1024 * 1024
	data := make([]byte, total)

	var progress []int64
	url, err := s.Put(context.Background(), "clip.mp4", bytes.NewReader(data),
		total, "video/mp4", func(sent, size int64) {
			progress = append(progress, sent)
		})
	require.NoError(t, err)
	require.Equal(t, "https://contoso.example/clip.mp4", url)

	stub.mu.Lock()
	defer stub.mu.Unlock()

	require.Equal(t, []string{
		fmt.Sprintf("bytes 0-%d/%d", officeChunkSize-1, total),
		fmt.Sprintf("bytes %d-%d/%d", officeChunkSize, 2*officeChunkSize-1, total),
		fmt.Sprintf("bytes %d-%d/%d", 2*officeChunkSize, total-1, total),
	}, stub.ranges)
	require.Equal(t, []int{officeChunkSize, officeChunkSize, total - 2*officeChunkSize}, stub.chunkSizes)

	// 每片结束推进一次进度，最后一次等于总大小
	require.Equal(t, []int64{officeChunkSize, 2 * officeChunkSize, total}, progress)

	// 整轮分片只取一次令牌
	require.Equal(t, int32(1), stub.tokenCalls.Load())
}

func TestOfficePutChunkedShortRead(t *testing.T) {
	stub := newOfficeStub(t)
	s := newTestOfficeStorage(stub)

	// 声明 12MB 但实际只有 1MB，读首片就该失败
	data := make([]byte, 1024*1024)
	_, err := s.Put(context.Background(), "clip.mp4", bytes.NewReader(data),
		12*1024*1024, "video/mp4", nil)
	require.Error(t, err)
	require.ErrorContains(t, err, "读取分片失败")
}
