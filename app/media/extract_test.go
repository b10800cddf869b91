package media

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"video-vault/app/config"
	"video-vault/app/logger"

	"github.com/stretchr/testify/require"
)

func testExtractor() *Extractor {
	return NewExtractor(logger.New(config.LogConfig{Level: "error", Format: "text", Output: "stdout"}))
}

func writeTempFile(t *testing.T, name string, data []byte) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

// buildMP4 构造只含 ftyp 和 moov/mvhd 的最小 MP4
func buildMP4(timescale, duration uint32) []byte {
	var buf bytes.Buffer

	// ftyp box
	binary.Write(&buf, binary.BigEndian, uint32(16))
	buf.WriteString("ftyp")
	buf.WriteString("isom")
	binary.Write(&buf, binary.BigEndian, uint32(0))

	// mvhd v0: version+flags(4) + ctime(4) + mtime(4) + timescale(4) + duration(4)
	var mvhd bytes.Buffer
	binary.Write(&mvhd, binary.BigEndian, uint32(28))
	mvhd.WriteString("mvhd")
	binary.Write(&mvhd, binary.BigEndian, uint32(0)) // version + flags
	binary.Write(&mvhd, binary.BigEndian, uint32(0)) // ctime
	binary.Write(&mvhd, binary.BigEndian, uint32(0)) // mtime
	binary.Write(&mvhd, binary.BigEndian, timescale)
	binary.Write(&mvhd, binary.BigEndian, duration)

	// moov box 包住 mvhd
	binary.Write(&buf, binary.BigEndian, uint32(8+mvhd.Len()))
	buf.WriteString("moov")
	buf.Write(mvhd.Bytes())

	return buf.Bytes()
}

func TestMP4DurationProbe(t *testing.T) {
	data := buildMP4(1000, 90500)
	duration, err := mp4Duration(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, 90, duration)
}

func TestProbeCorruptVideoReturnsZero(t *testing.T) {
	f := writeTempFile(t, "broken.mp4", []byte("这不是一个视频文件"))
	require.Equal(t, 0, probeDuration(f, 27))
}

func TestExtractVideoUsesPlaceholder(t *testing.T) {
	data := buildMP4(1, 42)
	f := writeTempFile(t, "clip.mp4", data)

	result := testExtractor().Extract("clip.mp4", "video/mp4", f, int64(len(data)))
	require.Equal(t, 42, result.Duration)
	require.True(t, strings.HasPrefix(result.Thumbnail, thumbnailDataURLPrefix))

	// 文件指针要回到起点，后续上传要重读
	offset, err := f.Seek(0, 1)
	require.NoError(t, err)
	require.Equal(t, int64(0), offset)
}

func TestExtractImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 600, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 600; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	f := writeTempFile(t, "photo.png", buf.Bytes())
	result := testExtractor().Extract("photo.png", "image/png", f, int64(buf.Len()))

	require.True(t, strings.HasPrefix(result.Thumbnail, thumbnailDataURLPrefix))
	require.Zero(t, result.Duration)
}

func TestExtractOtherTypeIsEmpty(t *testing.T) {
	f := writeTempFile(t, "notes.txt", []byte("纯文本"))
	result := testExtractor().Extract("notes.txt", "application/octet-stream", f, 9)
	require.Empty(t, result.Thumbnail)
	require.Zero(t, result.Duration)
}

func TestDecodeDataURL(t *testing.T) {
	raw, ok := DecodeDataURL("data:image/jpeg;base64,aGVsbG8=")
	require.True(t, ok)
	require.Equal(t, []byte("hello"), raw)

	_, ok = DecodeDataURL("不是 data URL")
	require.False(t, ok)
}

func TestFormatDuration(t *testing.T) {
	require.Equal(t, "0:42", formatDuration(42))
	require.Equal(t, "2:05", formatDuration(125))
	require.Equal(t, "1:01:05", formatDuration(3665))
}
