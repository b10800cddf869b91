package subtitle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSRT(t *testing.T) {
	content := "1\n00:00:01,000 --> 00:00:03,000\nHello\n\n2\n00:00:04,000 --> 00:00:06,000\nWorld\n"

	cues := Parse(content)
	require.Len(t, cues, 2)
	require.Equal(t, Cue{Start: 1, End: 3, Text: "Hello"}, cues[0])
	require.Equal(t, Cue{Start: 4, End: 6, Text: "World"}, cues[1])
}

func TestParseWebVTT(t *testing.T) {
	content := "WEBVTT\n\n00:00:01.500 --> 00:00:03.250\n你好\n世界\n"

	cues := Parse(content)
	require.Len(t, cues, 1)
	require.Equal(t, 1.5, cues[0].Start)
	require.Equal(t, 3.25, cues[0].End)
	require.Equal(t, "你好\n世界", cues[0].Text)
}

func TestParseShortTimestamp(t *testing.T) {
	content := "1\n01:30,000 --> 01:45,500\n短时间轴\n"

	cues := Parse(content)
	require.Len(t, cues, 1)
	require.Equal(t, 90.0, cues[0].Start)
	require.Equal(t, 105.5, cues[0].End)
}

func TestParseMultilineText(t *testing.T) {
	content := "1\n00:00:01,000 --> 00:00:03,000\n第一行\n第二行\n第三行\n"

	cues := Parse(content)
	require.Len(t, cues, 1)
	require.Equal(t, "第一行\n第二行\n第三行", cues[0].Text)
}

func TestParseDiscardsEmptyCues(t *testing.T) {
	// 没有文本的条目应该被丢弃
	content := "1\n00:00:01,000 --> 00:00:03,000\n\n2\n00:00:04,000 --> 00:00:06,000\n有文本\n"

	cues := Parse(content)
	require.Len(t, cues, 1)
	require.Equal(t, "有文本", cues[0].Text)
}

func TestParseKeepsFileOrder(t *testing.T) {
	// 时间轴乱序的文件不会被重排
	content := "1\n00:00:10,000 --> 00:00:12,000\n后面\n\n2\n00:00:01,000 --> 00:00:03,000\n前面\n"

	cues := Parse(content)
	require.Len(t, cues, 2)
	require.Equal(t, "后面", cues[0].Text)
	require.Equal(t, "前面", cues[1].Text)
}

func TestParseCRLFAndDotSeparator(t *testing.T) {
	content := "1\r\n00:00:01.000 --> 00:00:03.000\r\n换行测试\r\n"

	cues := Parse(content)
	require.Len(t, cues, 1)
	require.Equal(t, "换行测试", cues[0].Text)
}

func TestParseGarbageNeverFails(t *testing.T) {
	require.Empty(t, Parse(""))
	require.Empty(t, Parse("这不是字幕文件"))
	require.Empty(t, Parse("12:34 -> 56:78\n断裂的箭头"))
}

func TestParseSkipsStraySequenceNumbers(t *testing.T) {
	// 游离的序号行不应该变成字幕文本
	content := "99\n\n1\n00:00:01,000 --> 00:00:02,000\n正文\n"

	cues := Parse(content)
	require.Len(t, cues, 1)
	require.Equal(t, "正文", cues[0].Text)
}

func TestStyleTextShadow(t *testing.T) {
	style := DefaultStyleConfig()
	require.Empty(t, style.TextShadow())

	style.TextOutline = true
	style.OutlineWidth = 2
	style.OutlineColor = "#000000"
	shadow := style.TextShadow()
	require.Contains(t, shadow, "-2px -2px 0 #000000")
	require.Contains(t, shadow, "2px 2px 0 #000000")
}
