package uploader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"video-vault/app/logger"
	"video-vault/app/media"
	"video-vault/app/model"
	"video-vault/app/storage"
	"video-vault/app/utils"
	"video-vault/app/utils/pathhelper"

	"github.com/google/uuid"
)

// 管理器整体状态
const (
	StateIdle      = "idle"
	StateUploading = "uploading"
	StatePaused    = "paused"
)

var (
	ErrUserRequired  = errors.New("缺少用户身份")
	ErrTitleRequired = errors.New("标题不能为空")
	ErrEmptyQueue    = errors.New("上传队列为空")
	ErrBusy          = errors.New("已有上传任务在进行中")
	ErrNotPaused     = errors.New("没有可恢复的上传任务")
	ErrItemUploading = errors.New("条目正在传输中，不能移除")
	ErrItemNotFound  = errors.New("条目不存在")
)

// MetadataStore 上传落库依赖的元数据写入口
type MetadataStore interface {
	CreateFolder(userID uint, name string, parentID *uint) (uint, error)
	CreateVideo(video *model.Video) error
}

// IncomingFile 刚暂存完、还没入队的文件
type IncomingFile struct {
	FileName     string
	Size         int64
	MimeType     string
	RelativePath string
	StagePath    string
}

// StartRequest 发起一轮上传的参数
type StartRequest struct {
	UserID      uint
	Title       string
	Description string
	Category    string
	OnComplete  func()
}

// batch 一轮上传的上下文，暂停后保留，恢复时继续沿用。
// FolderIDs 缓存完整路径到已建文件夹 ID 的映射，保证同一路径只建一次
type batch struct {
	ID          string
	UserID      uint
	Title       string
	Description string
	Category    string
	OnComplete  func()
	FolderIDs   map[string]uint
}

// Manager 串行上传管理器。
// 队列里的文件逐个传输，同一时刻最多一个条目在途；
// 暂停通过取消在途传输实现，被中止的条目回到 paused 而不是 error
type Manager struct {
	mu sync.Mutex

	logger    *logger.Logger
	storage   storage.ObjectStorage
	store     MetadataStore
	extractor *media.Extractor

	items map[string]*Item
	order []string

	state  string
	batch  *batch
	cancel context.CancelFunc
}

// NewManager 创建上传管理器
func NewManager(log *logger.Logger, store MetadataStore, objStorage storage.ObjectStorage, extractor *media.Extractor) *Manager {
	return &Manager{
		logger:    log,
		storage:   objStorage,
		store:     store,
		extractor: extractor,
		items:     make(map[string]*Item),
		state:     StateIdle,
	}
}

// AddFiles 把暂存好的文件加入队列，入队时顺带提取缩略图和时长。
// 返回新建的条目快照
func (m *Manager) AddFiles(files []IncomingFile) []*Item {
	added := make([]*Item, 0, len(files))

	for _, file := range files {
		item := &Item{
			ID:           uuid.NewString(),
			FileName:     pathhelper.NormalizeName(file.FileName),
			Size:         file.Size,
			MimeType:     file.MimeType,
			FileType:     pathhelper.FileTypeOf(file.MimeType),
			RelativePath: file.RelativePath,
			FolderPath:   parentFolderPath(file.RelativePath),
			StagePath:    file.StagePath,
			Status:       StatusPending,
		}

		if f, err := os.Open(file.StagePath); err == nil {
			result := m.extractor.Extract(item.FileName, item.MimeType, f, item.Size)
			item.Thumbnail = result.Thumbnail
			item.DurationSeconds = result.Duration
			f.Close()
		} else {
			m.logger.Warnf("打开暂存文件失败: %s: %v", file.StagePath, err)
		}

		added = append(added, item)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range added {
		m.items[item.ID] = item
		m.order = append(m.order, item.ID)
	}
	return snapshot(added)
}

// Validate 发起前的前置校验，不碰任何网络和磁盘
func (m *Manager) Validate(req StartRequest) error {
	if req.UserID == 0 {
		return ErrUserRequired
	}
	if strings.TrimSpace(req.Title) == "" {
		return ErrTitleRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) == 0 {
		return ErrEmptyQueue
	}
	if m.state == StateUploading {
		return ErrBusy
	}
	return nil
}

// StartUpload 发起一轮上传并阻塞到本轮结束（完成、全部失败或被暂停）。
// 校验失败时不产生任何副作用
func (m *Manager) StartUpload(ctx context.Context, req StartRequest) error {
	if err := m.Validate(req); err != nil {
		return err
	}

	m.mu.Lock()
	if m.state == StateUploading {
		m.mu.Unlock()
		return ErrBusy
	}

	m.batch = &batch{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    req.Category,
		OnComplete:  req.OnComplete,
		FolderIDs:   make(map[string]uint),
	}
	m.state = StateUploading

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	m.materializeFolders()
	m.run(runCtx)
	return nil
}

// PauseUpload 暂停在途传输，当前条目回到 paused
func (m *Manager) PauseUpload() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateUploading {
		return
	}

	m.state = StatePaused
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.logger.Info("上传已暂停")
}

// ResumeUpload 恢复被暂停的一轮上传并阻塞到本轮结束。
// 已完成的条目直接跳过，文件夹缓存沿用不再重建
func (m *Manager) ResumeUpload(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StatePaused || m.batch == nil {
		m.mu.Unlock()
		return ErrNotPaused
	}

	m.state = StateUploading
	for _, id := range m.order {
		if item := m.items[id]; item.Status == StatusPaused {
			item.Status = StatusPending
			item.ErrorMessage = ""
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	m.materializeFolders()
	m.run(runCtx)
	return nil
}

// RemoveItem 把条目移出队列并清理暂存副本，在途条目不能移除
func (m *Manager) RemoveItem(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return ErrItemNotFound
	}
	if item.Status == StatusUploading {
		return ErrItemUploading
	}

	item.Release()
	delete(m.items, id)
	for i, itemID := range m.order {
		if itemID == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear 清空整个队列，在途上传存在时拒绝
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateUploading {
		return ErrBusy
	}

	for _, item := range m.items {
		item.Release()
	}
	m.items = make(map[string]*Item)
	m.order = nil
	m.batch = nil
	m.state = StateIdle
	return nil
}

// Items 队列条目快照，保持加入顺序
func (m *Manager) Items() []*Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.ordered())
}

// Tree 队列的目录树视图
func (m *Manager) Tree() []*TreeNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return BuildTree(m.ordered())
}

// State 管理器整体状态
func (m *Manager) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OverallProgress 整体进度：已完成条目数占比，向下取整
func (m *Manager) OverallProgress() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) == 0 {
		return 0
	}

	done := 0
	for _, id := range m.order {
		if m.items[id].Status == StatusComplete {
			done++
		}
	}
	return done * 100 / len(m.order)
}

// StagePaths 队列中所有暂存文件的路径，清理任务据此避开活动文件
func (m *Manager) StagePaths() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make(map[string]bool, len(m.order))
	for _, id := range m.order {
		if p := m.items[id].StagePath; p != "" {
			paths[p] = true
		}
	}
	return paths
}

// run 串行跑完队列中所有未完成的条目
func (m *Manager) run(ctx context.Context) {
	for _, id := range m.orderSnapshot() {
		m.mu.Lock()
		item, ok := m.items[id]
		if !ok || item.Status == StatusComplete {
			m.mu.Unlock()
			continue
		}
		if m.state != StateUploading {
			m.mu.Unlock()
			return
		}
		item.Status = StatusUploading
		item.Progress = 5
		item.ErrorMessage = ""
		m.mu.Unlock()

		m.transfer(ctx, item)

		// 暂停信号在条目间也要生效
		if ctx.Err() != nil {
			return
		}
	}
	m.finish()
}

// transfer 上传单个条目并落库
func (m *Manager) transfer(ctx context.Context, item *Item) {
	f, err := os.Open(item.StagePath)
	if err != nil {
		m.fail(item, fmt.Sprintf("暂存文件不可读: %v", err))
		return
	}
	defer f.Close()

	userID := m.batchUserID()
	key := objectKey(userID, item.FileName)

	url, err := m.storage.Put(ctx, key, f, item.Size, item.MimeType, func(sent, total int64) {
		m.updateProgress(item, sent, total)
	})
	if errors.Is(err, storage.ErrAborted) {
		m.markPaused(item)
		return
	}
	if err != nil {
		m.fail(item, fmt.Sprintf("上传失败: %v", err))
		return
	}

	thumbnailURL := m.uploadThumbnail(ctx, userID, item)

	video := &model.Video{
		UserID:          userID,
		Title:           m.videoTitle(item),
		Description:     m.batchField(func(b *batch) string { return b.Description }),
		Category:        m.batchField(func(b *batch) string { return b.Category }),
		VideoURL:        url,
		ThumbnailURL:    thumbnailURL,
		DurationSeconds: item.DurationSeconds,
		FolderID:        m.folderIDFor(item.FolderPath),
	}
	if err := m.store.CreateVideo(video); err != nil {
		m.fail(item, fmt.Sprintf("写入元数据失败: %v", err))
		return
	}

	m.mu.Lock()
	item.Status = StatusComplete
	item.Progress = 100
	item.Release()
	m.mu.Unlock()

	m.logger.Infof("条目上传完成: %s (%s)", item.FileName, pathhelper.FormatFileSize(item.Size))
}

// uploadThumbnail 缩略图单独上传一份，失败只降级不阻断条目
func (m *Manager) uploadThumbnail(ctx context.Context, userID uint, item *Item) *string {
	raw, ok := media.DecodeDataURL(item.Thumbnail)
	if !ok {
		return nil
	}

	key := fmt.Sprintf("%d/thumbnails/%d-%s.jpg", userID, time.Now().UnixMilli(), utils.RandomSuffix(8))
	url, err := m.storage.Put(ctx, key, strings.NewReader(string(raw)), int64(len(raw)), "image/jpeg", nil)
	if err != nil {
		m.logger.Warnf("缩略图上传失败: %s: %v", item.FileName, err)
		return nil
	}
	return &url
}

// materializeFolders 按层级自浅向深创建文件夹，并缓存路径到 ID 的映射。
// 单个文件夹创建失败只记录告警，其下的文件回落到根目录
func (m *Manager) materializeFolders() {
	m.mu.Lock()
	paths := make(map[string]bool)
	for _, id := range m.order {
		item := m.items[id]
		if item.Status == StatusComplete {
			continue
		}
		prefix := ""
		for _, segment := range pathhelper.SplitFolderPath(item.FolderPath) {
			if prefix == "" {
				prefix = segment
			} else {
				prefix = prefix + "/" + segment
			}
			paths[prefix] = true
		}
	}

	pending := make([]string, 0, len(paths))
	for path := range paths {
		if _, ok := m.batch.FolderIDs[path]; !ok {
			pending = append(pending, path)
		}
	}
	userID := m.batch.UserID
	m.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool {
		di, dj := pathhelper.PathDepth(pending[i]), pathhelper.PathDepth(pending[j])
		if di != dj {
			return di < dj
		}
		return pending[i] < pending[j]
	})

	for _, path := range pending {
		segments := pathhelper.SplitFolderPath(path)
		name := segments[len(segments)-1]

		var parentID *uint
		if len(segments) > 1 {
			parentPath := strings.Join(segments[:len(segments)-1], "/")
			m.mu.Lock()
			if id, ok := m.batch.FolderIDs[parentPath]; ok {
				parentID = &id
			}
			m.mu.Unlock()
		}

		folderID, err := m.store.CreateFolder(userID, name, parentID)
		if err != nil {
			m.logger.Warnf("创建文件夹失败: %s: %v", path, err)
			continue
		}

		m.mu.Lock()
		m.batch.FolderIDs[path] = folderID
		m.mu.Unlock()
	}
}

// finish 本轮收尾：全部完成时清空队列、回到空闲态并触发完成回调
func (m *Manager) finish() {
	m.mu.Lock()
	allDone := true
	for _, id := range m.order {
		if m.items[id].Status != StatusComplete {
			allDone = false
			break
		}
	}

	var onComplete func()
	if allDone && m.batch != nil {
		onComplete = m.batch.OnComplete
		m.batch = nil
		for _, item := range m.items {
			item.Release()
		}
		m.items = make(map[string]*Item)
		m.order = nil
	}
	m.state = StateIdle
	m.cancel = nil
	m.mu.Unlock()

	if onComplete != nil {
		onComplete()
	}
}

// updateProgress 按字节进度换算条目进度，区间 [5,100]，只升不降
func (m *Manager) updateProgress(item *Item, sent, total int64) {
	if total <= 0 {
		return
	}

	progress := 5 + int(sent*95/total)
	if progress > 100 {
		progress = 100
	}

	m.mu.Lock()
	if progress > item.Progress {
		item.Progress = progress
	}
	m.mu.Unlock()
}

func (m *Manager) markPaused(item *Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.Status = StatusPaused
	m.state = StatePaused
}

func (m *Manager) fail(item *Item, message string) {
	m.mu.Lock()
	item.Status = StatusError
	item.ErrorMessage = message
	m.mu.Unlock()
	m.logger.Errorf("条目上传出错: %s: %s", item.FileName, message)
}

func (m *Manager) folderIDFor(path string) *uint {
	if path == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batch == nil {
		return nil
	}
	if id, ok := m.batch.FolderIDs[path]; ok {
		return &id
	}
	return nil
}

// videoTitle 单文件用整轮标题，多文件时逐个回落到去扩展名的文件名
func (m *Manager) videoTitle(item *Item) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.batch != nil && len(m.order) == 1 {
		return m.batch.Title
	}
	return pathhelper.TrimExtension(item.FileName)
}

func (m *Manager) batchUserID() uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batch == nil {
		return 0
	}
	return m.batch.UserID
}

func (m *Manager) batchField(pick func(*batch) string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batch == nil {
		return ""
	}
	return pick(m.batch)
}

func (m *Manager) ordered() []*Item {
	items := make([]*Item, 0, len(m.order))
	for _, id := range m.order {
		items = append(items, m.items[id])
	}
	return items
}

func (m *Manager) orderSnapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// snapshot 复制条目，调用方拿到的是脱离锁保护的副本
func snapshot(items []*Item) []*Item {
	copies := make([]*Item, 0, len(items))
	for _, item := range items {
		c := *item
		copies = append(copies, &c)
	}
	return copies
}

// parentFolderPath 相对路径去掉文件名后剩下的目录部分
func parentFolderPath(relativePath string) string {
	segments := pathhelper.SplitFolderPath(relativePath)
	if len(segments) <= 1 {
		return ""
	}
	return strings.Join(segments[:len(segments)-1], "/")
}

// objectKey 对象存储键：用户隔离加毫秒时间戳加随机后缀，避免同名覆盖
func objectKey(userID uint, fileName string) string {
	ext := pathhelper.FileExtension(fileName)
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%d/%d-%s.%s", userID, time.Now().UnixMilli(), utils.RandomSuffix(8), ext)
}
