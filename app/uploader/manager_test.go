package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"video-vault/app/config"
	"video-vault/app/logger"
	"video-vault/app/media"
	"video-vault/app/model"
	"video-vault/app/storage"

	"github.com/stretchr/testify/require"
)

// fakeStorage 可切换行为的内存存储后端
type fakeStorage struct {
	mu      sync.Mutex
	mode    string // ok、block、fail
	keys    []string
	started chan struct{}
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{mode: "ok", started: make(chan struct{}, 16)}
}

func (f *fakeStorage) setMode(mode string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = mode
}

func (f *fakeStorage) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}

func (f *fakeStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, onProgress storage.ProgressFunc) (string, error) {
	f.mu.Lock()
	mode := f.mode
	f.mu.Unlock()

	select {
	case f.started <- struct{}{}:
	default:
	}

	switch mode {
	case "block":
		<-ctx.Done()
		return "", storage.ErrAborted
	case "fail":
		return "", errors.New("存储后端故障")
	}

	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	if onProgress != nil {
		onProgress(size, size)
	}

	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return "https://cdn.example.test/" + key, nil
}

// fakeStore 记录写入的元数据
type fakeStore struct {
	mu        sync.Mutex
	nextID    uint
	folders   map[string]uint // name -> id
	parents   map[string]*uint
	videos    []*model.Video
	folderErr bool
	videoErr  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		folders: make(map[string]uint),
		parents: make(map[string]*uint),
	}
}

func (s *fakeStore) CreateFolder(userID uint, name string, parentID *uint) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.folderErr {
		return 0, errors.New("文件夹写入失败")
	}
	s.nextID++
	s.folders[name] = s.nextID
	s.parents[name] = parentID
	return s.nextID, nil
}

func (s *fakeStore) CreateVideo(video *model.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.videoErr {
		return errors.New("视频记录写入失败")
	}
	s.videos = append(s.videos, video)
	return nil
}

func (s *fakeStore) folderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.folders)
}

func (s *fakeStore) videoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.videos)
}

func testLogger() *logger.Logger {
	return logger.New(config.LogConfig{Level: "error", Format: "text", Output: "stdout"})
}

func newTestManager(fs *fakeStorage, st *fakeStore) *Manager {
	log := testLogger()
	return NewManager(log, st, fs, media.NewExtractor(log))
}

func stageFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("stage-%s", filepath.Base(name)))
	require.NoError(t, os.WriteFile(path, []byte("测试文件内容"), 0644))
	return path
}

func addFile(t *testing.T, m *Manager, dir, relativePath string) *Item {
	t.Helper()
	items := m.AddFiles([]IncomingFile{{
		FileName:     filepath.Base(relativePath),
		Size:         18,
		MimeType:     "application/octet-stream",
		RelativePath: relativePath,
		StagePath:    stageFile(t, dir, filepath.Base(relativePath)),
	}})
	require.Len(t, items, 1)
	return items[0]
}

func TestValidation(t *testing.T) {
	m := newTestManager(newFakeStorage(), newFakeStore())

	err := m.StartUpload(context.Background(), StartRequest{Title: "无主文件"})
	require.ErrorIs(t, err, ErrUserRequired)

	err = m.StartUpload(context.Background(), StartRequest{UserID: 1, Title: "  "})
	require.ErrorIs(t, err, ErrTitleRequired)

	err = m.StartUpload(context.Background(), StartRequest{UserID: 1, Title: "空队列"})
	require.ErrorIs(t, err, ErrEmptyQueue)
}

func TestValidationFailureHasNoSideEffects(t *testing.T) {
	fs := newFakeStorage()
	st := newFakeStore()
	m := newTestManager(fs, st)
	addFile(t, m, t.TempDir(), "a.bin")

	err := m.StartUpload(context.Background(), StartRequest{UserID: 1, Title: ""})
	require.ErrorIs(t, err, ErrTitleRequired)
	require.Zero(t, fs.putCount())
	require.Zero(t, st.folderCount())
	require.Equal(t, StateIdle, m.State())
}

func TestUploadHappyPath(t *testing.T) {
	fs := newFakeStorage()
	st := newFakeStore()
	m := newTestManager(fs, st)
	dir := t.TempDir()

	addFile(t, m, dir, "电影/a.bin")
	addFile(t, m, dir, "电影/b.bin")

	var completions atomic.Int32
	err := m.StartUpload(context.Background(), StartRequest{
		UserID:     7,
		Title:      "合集",
		Category:   "movie",
		OnComplete: func() { completions.Add(1) },
	})
	require.NoError(t, err)

	require.Equal(t, StateIdle, m.State())
	require.Equal(t, int32(1), completions.Load())
	require.Equal(t, 2, fs.putCount())
	require.Equal(t, 2, st.videoCount())

	// 全部成功后队列被清空
	require.Empty(t, m.Items())

	// 多文件时标题回落到去扩展名的文件名
	st.mu.Lock()
	require.Equal(t, "a", st.videos[0].Title)
	require.Equal(t, uint(7), st.videos[0].UserID)
	require.NotNil(t, st.videos[0].FolderID)
	st.mu.Unlock()
}

func TestFolderDedup(t *testing.T) {
	fs := newFakeStorage()
	st := newFakeStore()
	m := newTestManager(fs, st)
	dir := t.TempDir()

	addFile(t, m, dir, "A/B/x.bin")
	addFile(t, m, dir, "A/B/y.bin")

	err := m.StartUpload(context.Background(), StartRequest{UserID: 1, Title: "去重"})
	require.NoError(t, err)

	// A 和 A/B 各建一次
	require.Equal(t, 2, st.folderCount())

	st.mu.Lock()
	defer st.mu.Unlock()
	require.Nil(t, st.parents["A"])
	require.NotNil(t, st.parents["B"])
	require.Equal(t, st.folders["A"], *st.parents["B"])
}

func TestFolderCreateFailureFallsBackToRoot(t *testing.T) {
	fs := newFakeStorage()
	st := newFakeStore()
	st.folderErr = true
	m := newTestManager(fs, st)

	addFile(t, m, t.TempDir(), "坏目录/a.bin")

	err := m.StartUpload(context.Background(), StartRequest{UserID: 1, Title: "回退"})
	require.NoError(t, err)

	require.Equal(t, 1, st.videoCount())
	st.mu.Lock()
	require.Nil(t, st.videos[0].FolderID)
	st.mu.Unlock()
}

func TestRecordFailureMarksItemError(t *testing.T) {
	fs := newFakeStorage()
	st := newFakeStore()
	st.videoErr = true
	m := newTestManager(fs, st)

	addFile(t, m, t.TempDir(), "a.bin")

	err := m.StartUpload(context.Background(), StartRequest{UserID: 1, Title: "落库失败"})
	require.NoError(t, err)

	items := m.Items()
	require.Equal(t, StatusError, items[0].Status)
	require.NotEmpty(t, items[0].ErrorMessage)
	require.Equal(t, StateIdle, m.State())
	require.Equal(t, 0, m.OverallProgress())
}

func TestPauseThenResume(t *testing.T) {
	fs := newFakeStorage()
	fs.setMode("block")
	st := newFakeStore()
	m := newTestManager(fs, st)
	dir := t.TempDir()

	addFile(t, m, dir, "a.bin")
	addFile(t, m, dir, "b.bin")

	var completions atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.StartUpload(context.Background(), StartRequest{
			UserID:     1,
			Title:      "暂停恢复",
			OnComplete: func() { completions.Add(1) },
		})
	}()

	// 等第一个条目进入传输后再暂停
	<-fs.started
	m.PauseUpload()
	<-done

	require.Equal(t, StatePaused, m.State())
	require.Equal(t, int32(0), completions.Load())
	require.Zero(t, st.videoCount())

	items := m.Items()
	require.Equal(t, StatusPaused, items[0].Status)
	require.NotEqual(t, StatusError, items[0].Status)

	// 恢复后全部走完，每个文件只落一条记录
	fs.setMode("ok")
	require.NoError(t, m.ResumeUpload(context.Background()))

	require.Equal(t, StateIdle, m.State())
	require.Equal(t, int32(1), completions.Load())
	require.Equal(t, 2, st.videoCount())
	require.Empty(t, m.Items())
}

func TestResumeWithoutPause(t *testing.T) {
	m := newTestManager(newFakeStorage(), newFakeStore())
	require.ErrorIs(t, m.ResumeUpload(context.Background()), ErrNotPaused)
}

func TestProgressScaling(t *testing.T) {
	m := newTestManager(newFakeStorage(), newFakeStore())
	item := &Item{Status: StatusUploading, Progress: 5}

	m.updateProgress(item, 0, 100)
	require.Equal(t, 5, item.Progress)

	m.updateProgress(item, 50, 100)
	require.Equal(t, 52, item.Progress)

	// 进度只升不降
	m.updateProgress(item, 30, 100)
	require.Equal(t, 52, item.Progress)

	m.updateProgress(item, 100, 100)
	require.Equal(t, 100, item.Progress)
}

func TestRemoveAndClear(t *testing.T) {
	m := newTestManager(newFakeStorage(), newFakeStore())
	dir := t.TempDir()

	item := addFile(t, m, dir, "a.bin")
	stagePath := m.Items()[0].StagePath

	require.ErrorIs(t, m.RemoveItem("不存在"), ErrItemNotFound)
	require.NoError(t, m.RemoveItem(item.ID))
	require.Empty(t, m.Items())
	_, err := os.Stat(stagePath)
	require.True(t, os.IsNotExist(err))

	addFile(t, m, dir, "b.bin")
	require.NoError(t, m.Clear())
	require.Empty(t, m.Items())
	require.Equal(t, StateIdle, m.State())
}

func TestOverallProgressCountsCompletedOnly(t *testing.T) {
	fs := newFakeStorage()
	st := newFakeStore()
	st.videoErr = true
	m := newTestManager(fs, st)
	dir := t.TempDir()

	addFile(t, m, dir, "a.bin")
	addFile(t, m, dir, "b.bin")
	addFile(t, m, dir, "c.bin")
	require.Equal(t, 0, m.OverallProgress())
}
