package player

import (
	"sync"
	"time"

	"video-vault/app/subtitle"
)

// 控制条在播放状态下的自动隐藏延迟
const defaultHideDelay = 3 * time.Second

// MediaElement 播放会话操纵的媒体后端。
// 会话自身不产生时间，所有时间轴状态都来自后端的事件回调。
type MediaElement interface {
	CurrentTime() float64
	SetCurrentTime(seconds float64)
	Duration() float64
	Play()
	Pause()
	SetVolume(volume float64)
	SetMuted(muted bool)
	RequestFullscreen()
	ExitFullscreen()
}

// Session 单个视频的播放会话：跟踪播放进度、音量、全屏、
// 控制条可见性，以及当前命中的字幕条目
type Session struct {
	mu sync.Mutex

	media MediaElement
	cues  []subtitle.Cue

	currentTime float64
	duration    float64
	playing     bool
	volume      float64
	muted       bool
	fullscreen  bool

	showControls bool
	hideDelay    time.Duration
	hideTimer    *time.Timer
}

// NewSession 创建播放会话，初始音量 1.0，控制条可见
func NewSession(media MediaElement, cues []subtitle.Cue) *Session {
	return &Session{
		media:        media,
		cues:         cues,
		volume:       1.0,
		showControls: true,
		hideDelay:    defaultHideDelay,
	}
}

// OnTimeUpdate 媒体时间推进回调
func (s *Session) OnTimeUpdate(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTime = seconds
}

// OnLoadedMetadata 媒体元数据就绪回调
func (s *Session) OnLoadedMetadata() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duration = s.media.Duration()
}

// OnEnded 播放结束回调，回到暂停态并亮出控制条
func (s *Session) OnEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.revealControlsLocked()
}

// OnFullscreenChange 全屏状态由外部环境决定，会话只镜像它
func (s *Session) OnFullscreenChange(fullscreen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullscreen = fullscreen
}

// ActiveCue 返回覆盖当前时间点的第一条字幕。
// 条目保持文件顺序，重叠时靠前的条目胜出；没有命中返回 nil
func (s *Session) ActiveCue() *subtitle.Cue {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cues {
		if s.currentTime >= s.cues[i].Start && s.currentTime <= s.cues[i].End {
			return &s.cues[i]
		}
	}
	return nil
}

// TogglePlay 播放和暂停互切
func (s *Session) TogglePlay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing {
		s.media.Pause()
		s.playing = false
		s.revealControlsLocked()
		return
	}

	s.media.Play()
	s.playing = true
	s.scheduleHideLocked()
}

// Seek 跳到指定时间点，越界交给媒体后端处理
func (s *Session) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.media.SetCurrentTime(seconds)
	s.currentTime = seconds
}

// Skip 相对跳转，正负各 10 秒的快进快退都走这里
func (s *Session) Skip(deltaSeconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.currentTime + deltaSeconds
	s.media.SetCurrentTime(target)
	s.currentTime = target
}

// SetVolume 设置音量，0 视为静音，非 0 解除静音
func (s *Session) SetVolume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = volume
	s.media.SetVolume(volume)

	muted := volume == 0
	if muted != s.muted {
		s.muted = muted
		s.media.SetMuted(muted)
	}
}

// ToggleMute 静音开关，不改动音量值
func (s *Session) ToggleMute() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.muted = !s.muted
	s.media.SetMuted(s.muted)
}

// ToggleFullscreen 请求进入或退出全屏，
// 实际状态等 OnFullscreenChange 回调确认
func (s *Session) ToggleFullscreen() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fullscreen {
		s.media.ExitFullscreen()
	} else {
		s.media.RequestFullscreen()
	}
}

// RevealControls 用户活动让控制条重新出现，播放中会再次安排隐藏
func (s *Session) RevealControls() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revealControlsLocked()
	if s.playing {
		s.scheduleHideLocked()
	}
}

// ControlsVisible 暂停时控制条始终可见
func (s *Session) ControlsVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showControls || !s.playing
}

// CurrentTime 当前播放时间点
func (s *Session) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTime
}

// Duration 媒体总时长，元数据未就绪时为 0
func (s *Session) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// Playing 是否处于播放状态
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Volume 当前音量
func (s *Session) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Muted 是否静音
func (s *Session) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Fullscreen 是否处于全屏
func (s *Session) Fullscreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullscreen
}

// Close 停掉挂起的定时器，会话废弃时调用
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hideTimer != nil {
		s.hideTimer.Stop()
		s.hideTimer = nil
	}
}

func (s *Session) revealControlsLocked() {
	s.showControls = true
	if s.hideTimer != nil {
		s.hideTimer.Stop()
		s.hideTimer = nil
	}
}

func (s *Session) scheduleHideLocked() {
	s.showControls = true
	if s.hideTimer != nil {
		s.hideTimer.Stop()
	}

	s.hideTimer = time.AfterFunc(s.hideDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.playing {
			s.showControls = false
		}
	})
}
