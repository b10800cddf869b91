package uploader

import (
	"video-vault/app/utils/pathhelper"
)

// 聚合专用状态：子孙状态不一致且至少有一个出错
const StatusPartial = "partial"

// 树节点类型
const (
	NodeFolder = "folder"
	NodeFile   = "file"
)

// TreeNode 上传队列的目录树节点。
// 文件夹节点的状态和进度由子孙文件聚合得出
type TreeNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Type     string      `json:"type"`
	Status   string      `json:"status"`
	Progress int         `json:"progress"`
	ItemID   string      `json:"item_id,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// BuildTree 把条目列表组装成目录树。
// 同一完整路径的文件夹只出现一次，子节点保持条目加入顺序，
// 文件夹在前、文件在后的排序交给展示层
func BuildTree(items []*Item) []*TreeNode {
	var roots []*TreeNode
	folders := make(map[string]*TreeNode)

	attach := func(parent *TreeNode, node *TreeNode) {
		if parent == nil {
			roots = append(roots, node)
		} else {
			parent.Children = append(parent.Children, node)
		}
	}

	for _, item := range items {
		var parent *TreeNode
		prefix := ""

		for _, segment := range pathhelper.SplitFolderPath(item.FolderPath) {
			if prefix == "" {
				prefix = segment
			} else {
				prefix = prefix + "/" + segment
			}

			folder, ok := folders[prefix]
			if !ok {
				folder = &TreeNode{Name: segment, Path: prefix, Type: NodeFolder}
				folders[prefix] = folder
				attach(parent, folder)
			}
			parent = folder
		}

		attach(parent, &TreeNode{
			Name:     item.FileName,
			Path:     item.RelativePath,
			Type:     NodeFile,
			Status:   item.Status,
			Progress: item.Progress,
			ItemID:   item.ID,
		})
	}

	for _, root := range roots {
		aggregate(root)
	}
	return roots
}

// aggregate 自底向上汇总文件夹的状态和进度
func aggregate(node *TreeNode) (statuses []string, progresses []int) {
	if node.Type == NodeFile {
		return []string{node.Status}, []int{node.Progress}
	}

	for _, child := range node.Children {
		childStatuses, childProgresses := aggregate(child)
		statuses = append(statuses, childStatuses...)
		progresses = append(progresses, childProgresses...)
	}

	node.Status = foldStatuses(statuses)
	node.Progress = meanProgress(progresses)
	return statuses, progresses
}

// foldStatuses 按优先级折叠一组文件状态：
// 全部完成、全部待传、全部失败时取其共同状态；
// 混合状态下失败优先标记为部分失败，其次是传输中、已暂停
func foldStatuses(statuses []string) string {
	if len(statuses) == 0 {
		return StatusPending
	}

	counts := make(map[string]int)
	for _, s := range statuses {
		counts[s]++
	}

	total := len(statuses)
	switch {
	case counts[StatusComplete] == total:
		return StatusComplete
	case counts[StatusPending] == total:
		return StatusPending
	case counts[StatusError] == total:
		return StatusError
	case counts[StatusError] > 0:
		return StatusPartial
	case counts[StatusUploading] > 0:
		return StatusUploading
	case counts[StatusPaused] > 0:
		return StatusPaused
	default:
		return StatusPartial
	}
}

// meanProgress 子孙文件进度的整数均值，向下取整
func meanProgress(progresses []int) int {
	if len(progresses) == 0 {
		return 0
	}

	sum := 0
	for _, p := range progresses {
		sum += p
	}
	return sum / len(progresses)
}
