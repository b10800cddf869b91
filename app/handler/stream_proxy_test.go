package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"video-vault/app/config"
	"video-vault/app/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(config.LogConfig{Level: "error", Format: "text", Output: "stdout"})
}

func TestStreamProxyForwardsRangeAndFixesMime(t *testing.T) {
	gin.SetMode(gin.TestMode)

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "bytes=0-3", r.Header.Get("Range"))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Range", "bytes 0-3/10")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("abcd"))
	}))
	defer origin.Close()

	router := gin.New()
	router.GET("/api/stream-video", NewStreamProxyHandler(testLogger()).Stream)

	req := httptest.NewRequest(http.MethodGet,
		"/api/stream-video?url="+url.QueryEscape(origin.URL+"/movie.mp4"), nil)
	req.Header.Set("Range", "bytes=0-3")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusPartialContent, w.Code)
	// 源站的通用类型按扩展名修正
	require.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	require.Equal(t, "bytes 0-3/10", w.Header().Get("Content-Range"))
	require.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	require.Equal(t, "abcd", w.Body.String())
}

func TestStreamProxyKeepsSpecificMime(t *testing.T) {
	gin.SetMode(gin.TestMode)

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/webm")
		w.Write([]byte("webm"))
	}))
	defer origin.Close()

	router := gin.New()
	router.GET("/api/stream-video", NewStreamProxyHandler(testLogger()).Stream)

	req := httptest.NewRequest(http.MethodGet,
		"/api/stream-video?url="+url.QueryEscape(origin.URL+"/movie.mp4"), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "video/webm", w.Header().Get("Content-Type"))
}

func TestStreamProxyRejectsMissingURL(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/api/stream-video", NewStreamProxyHandler(testLogger()).Stream)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stream-video", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProxyDownloadStreamsAsAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("file-bytes"))
	}))
	defer origin.Close()

	router := gin.New()
	router.POST("/api/proxy-download", NewProxyDownloadHandler(testLogger()).Download)

	payload, _ := json.Marshal(map[string]string{"url": origin.URL + "/videos/clip.mp4"})
	req := httptest.NewRequest(http.MethodPost, "/api/proxy-download", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `attachment; filename="clip.mp4"`, w.Header().Get("Content-Disposition"))
	require.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	require.Equal(t, "file-bytes", w.Body.String())
}

func TestProxyDownloadRejectsBadScheme(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/api/proxy-download", NewProxyDownloadHandler(testLogger()).Download)

	payload, _ := json.Marshal(map[string]string{"url": "file:///etc/passwd"})
	req := httptest.NewRequest(http.MethodPost, "/api/proxy-download", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
