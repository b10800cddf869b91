package uploader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fileItem(name, folderPath, status string, progress int) *Item {
	relative := name
	if folderPath != "" {
		relative = folderPath + "/" + name
	}
	return &Item{
		ID:           name,
		FileName:     name,
		RelativePath: relative,
		FolderPath:   folderPath,
		Status:       status,
		Progress:     progress,
	}
}

func TestBuildTreeDedupesFolders(t *testing.T) {
	items := []*Item{
		fileItem("a.mp4", "电影/动作", StatusPending, 0),
		fileItem("b.mp4", "电影/动作", StatusPending, 0),
		fileItem("c.mp4", "电影", StatusPending, 0),
	}

	roots := BuildTree(items)
	require.Len(t, roots, 1)

	movies := roots[0]
	require.Equal(t, "电影", movies.Name)
	require.Equal(t, NodeFolder, movies.Type)
	// 动作 文件夹一个，加上直接挂在 电影 下的 c.mp4
	require.Len(t, movies.Children, 2)

	action := movies.Children[0]
	require.Equal(t, "动作", action.Name)
	require.Equal(t, "电影/动作", action.Path)
	require.Len(t, action.Children, 2)
}

func TestBuildTreeRootFiles(t *testing.T) {
	items := []*Item{
		fileItem("solo.mp4", "", StatusComplete, 100),
	}

	roots := BuildTree(items)
	require.Len(t, roots, 1)
	require.Equal(t, NodeFile, roots[0].Type)
	require.Equal(t, StatusComplete, roots[0].Status)
	require.Equal(t, 100, roots[0].Progress)
}

func TestFolderStatusAllSame(t *testing.T) {
	for _, status := range []string{StatusComplete, StatusPending, StatusError} {
		items := []*Item{
			fileItem("a.mp4", "dir", status, 0),
			fileItem("b.mp4", "dir", status, 0),
		}
		roots := BuildTree(items)
		require.Equal(t, status, roots[0].Status, "全部 %s 时文件夹应该是 %s", status, status)
	}
}

func TestFolderStatusMixedErrorIsPartial(t *testing.T) {
	items := []*Item{
		fileItem("a.mp4", "dir", StatusComplete, 100),
		fileItem("b.mp4", "dir", StatusError, 0),
	}

	roots := BuildTree(items)
	require.Equal(t, StatusPartial, roots[0].Status)
}

func TestFolderStatusUploadingBeatsPaused(t *testing.T) {
	items := []*Item{
		fileItem("a.mp4", "dir", StatusUploading, 50),
		fileItem("b.mp4", "dir", StatusPaused, 30),
	}

	roots := BuildTree(items)
	require.Equal(t, StatusUploading, roots[0].Status)
}

func TestFolderStatusPausedWithPending(t *testing.T) {
	items := []*Item{
		fileItem("a.mp4", "dir", StatusPaused, 30),
		fileItem("b.mp4", "dir", StatusPending, 0),
	}

	roots := BuildTree(items)
	require.Equal(t, StatusPaused, roots[0].Status)
}

func TestFolderStatusCompleteAndPendingIsPartial(t *testing.T) {
	items := []*Item{
		fileItem("a.mp4", "dir", StatusComplete, 100),
		fileItem("b.mp4", "dir", StatusPending, 0),
	}

	roots := BuildTree(items)
	require.Equal(t, StatusPartial, roots[0].Status)
}

func TestFolderProgressIsFlooredMean(t *testing.T) {
	items := []*Item{
		fileItem("a.mp4", "dir", StatusUploading, 50),
		fileItem("b.mp4", "dir", StatusUploading, 51),
		fileItem("c.mp4", "dir", StatusPending, 0),
	}

	roots := BuildTree(items)
	// (50+51+0)/3 = 33.67，向下取整
	require.Equal(t, 33, roots[0].Progress)
}

func TestNestedFolderAggregation(t *testing.T) {
	items := []*Item{
		fileItem("a.mp4", "x/y", StatusComplete, 100),
		fileItem("b.mp4", "x", StatusError, 0),
	}

	roots := BuildTree(items)
	x := roots[0]
	require.Equal(t, StatusPartial, x.Status)
	require.Equal(t, 50, x.Progress)

	// 深层文件夹只看自己的子孙
	y := x.Children[0]
	require.Equal(t, "y", y.Name)
	require.Equal(t, StatusComplete, y.Status)
	require.Equal(t, 100, y.Progress)
}
