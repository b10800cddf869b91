package pathhelper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitFolderPath(t *testing.T) {
	require.Nil(t, SplitFolderPath(""))
	require.Equal(t, []string{"a", "b"}, SplitFolderPath("a/b"))
	require.Equal(t, []string{"a", "b"}, SplitFolderPath("/a//b/"))
	require.Equal(t, 2, PathDepth("a/b"))
}

func TestFileExtension(t *testing.T) {
	require.Equal(t, "mp4", FileExtension("Movie.MP4"))
	require.Equal(t, "", FileExtension("noext"))
	require.Equal(t, "", FileExtension("trailing."))
	require.Equal(t, "Movie", TrimExtension("Movie.mp4"))
}

func TestFileTypeOf(t *testing.T) {
	require.Equal(t, FileTypeVideo, FileTypeOf("video/mp4"))
	require.Equal(t, FileTypeImage, FileTypeOf("image/png"))
	require.Equal(t, FileTypeDocument, FileTypeOf("application/pdf"))
	require.Equal(t, FileTypeOther, FileTypeOf("application/zip"))
}

func TestVideoMimeByExtension(t *testing.T) {
	require.Equal(t, "video/x-matroska", VideoMimeByExtension("MKV"))
	require.Equal(t, "application/vnd.apple.mpegurl", VideoMimeByExtension("m3u8"))
	require.Equal(t, "", VideoMimeByExtension("txt"))
}

func TestFilenameFromURL(t *testing.T) {
	require.Equal(t, "clip.mp4", FilenameFromURL("https://cdn.example.com/videos/clip.mp4?sig=abc"))
	require.Equal(t, "中文 名.mp4", FilenameFromURL("https://cdn.example.com/%E4%B8%AD%E6%96%87%20%E5%90%8D.mp4"))
	require.Equal(t, "", FilenameFromURL("https://cdn.example.com/dir/"))
}

func TestFormatFileSize(t *testing.T) {
	require.Equal(t, "0 Bytes", FormatFileSize(0))
	require.Equal(t, "512 Bytes", FormatFileSize(512))
	require.Equal(t, "1 KB", FormatFileSize(1024))
	require.Equal(t, "1.50 MB", FormatFileSize(1572864))
}
