package player

import (
	"testing"
	"time"

	"video-vault/app/subtitle"

	"github.com/stretchr/testify/require"
)

// fakeMedia 记录调用的媒体后端
type fakeMedia struct {
	currentTime float64
	duration    float64
	playCalls   int
	pauseCalls  int
	volume      float64
	muted       bool
	fullscreen  bool
}

func (m *fakeMedia) CurrentTime() float64           { return m.currentTime }
func (m *fakeMedia) SetCurrentTime(seconds float64) { m.currentTime = seconds }
func (m *fakeMedia) Duration() float64              { return m.duration }
func (m *fakeMedia) Play()                          { m.playCalls++ }
func (m *fakeMedia) Pause()                         { m.pauseCalls++ }
func (m *fakeMedia) SetVolume(volume float64)       { m.volume = volume }
func (m *fakeMedia) SetMuted(muted bool)            { m.muted = muted }
func (m *fakeMedia) RequestFullscreen()             { m.fullscreen = true }
func (m *fakeMedia) ExitFullscreen()                { m.fullscreen = false }

func testCues() []subtitle.Cue {
	return []subtitle.Cue{
		{Start: 1, End: 3, Text: "Hello"},
		{Start: 2, End: 5, Text: "Overlap"},
		{Start: 4, End: 6, Text: "World"},
	}
}

func TestActiveCue(t *testing.T) {
	s := NewSession(&fakeMedia{}, testCues())
	defer s.Close()

	s.OnTimeUpdate(2.5)
	cue := s.ActiveCue()
	require.NotNil(t, cue)
	// 重叠时文件里靠前的条目胜出
	require.Equal(t, "Hello", cue.Text)

	s.OnTimeUpdate(3.5)
	cue = s.ActiveCue()
	require.NotNil(t, cue)
	require.Equal(t, "Overlap", cue.Text)

	s.OnTimeUpdate(10)
	require.Nil(t, s.ActiveCue())
}

func TestTogglePlay(t *testing.T) {
	media := &fakeMedia{}
	s := NewSession(media, nil)
	defer s.Close()

	s.TogglePlay()
	require.True(t, s.Playing())
	require.Equal(t, 1, media.playCalls)

	s.TogglePlay()
	require.False(t, s.Playing())
	require.Equal(t, 1, media.pauseCalls)
}

func TestSkipDoesNotClamp(t *testing.T) {
	media := &fakeMedia{}
	s := NewSession(media, nil)
	defer s.Close()

	s.OnTimeUpdate(3)
	s.Skip(-10)
	// 越界交给媒体后端处理，会话不做截断
	require.Equal(t, -7.0, media.currentTime)
	require.Equal(t, -7.0, s.CurrentTime())

	s.Skip(10)
	require.Equal(t, 3.0, s.CurrentTime())
}

func TestVolumeZeroMutes(t *testing.T) {
	media := &fakeMedia{}
	s := NewSession(media, nil)
	defer s.Close()

	s.SetVolume(0)
	require.True(t, s.Muted())
	require.True(t, media.muted)

	s.SetVolume(0.5)
	require.False(t, s.Muted())
	require.Equal(t, 0.5, s.Volume())
}

func TestToggleMuteKeepsVolume(t *testing.T) {
	media := &fakeMedia{}
	s := NewSession(media, nil)
	defer s.Close()

	s.SetVolume(0.8)
	s.ToggleMute()
	require.True(t, s.Muted())
	require.Equal(t, 0.8, s.Volume())
}

func TestControlsAutoHide(t *testing.T) {
	media := &fakeMedia{}
	s := NewSession(media, nil)
	s.hideDelay = 20 * time.Millisecond
	defer s.Close()

	require.True(t, s.ControlsVisible())

	s.TogglePlay()
	require.True(t, s.ControlsVisible())

	require.Eventually(t, func() bool {
		return !s.ControlsVisible()
	}, time.Second, 5*time.Millisecond)

	// 用户活动让控制条回来
	s.RevealControls()
	require.True(t, s.ControlsVisible())
}

func TestControlsAlwaysVisibleWhenPaused(t *testing.T) {
	media := &fakeMedia{}
	s := NewSession(media, nil)
	s.hideDelay = 10 * time.Millisecond
	defer s.Close()

	s.TogglePlay()
	s.TogglePlay() // 暂停

	time.Sleep(30 * time.Millisecond)
	require.True(t, s.ControlsVisible())
}

func TestOnEndedStopsPlayback(t *testing.T) {
	media := &fakeMedia{duration: 120}
	s := NewSession(media, nil)
	defer s.Close()

	s.OnLoadedMetadata()
	require.Equal(t, 120.0, s.Duration())

	s.TogglePlay()
	s.OnEnded()
	require.False(t, s.Playing())
	require.True(t, s.ControlsVisible())
}

func TestFullscreenMirrorsEnvironment(t *testing.T) {
	media := &fakeMedia{}
	s := NewSession(media, nil)
	defer s.Close()

	s.ToggleFullscreen()
	require.True(t, media.fullscreen)
	// 实际状态等回调确认
	require.False(t, s.Fullscreen())

	s.OnFullscreenChange(true)
	require.True(t, s.Fullscreen())
}
