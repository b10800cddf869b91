package media

import (
	"encoding/binary"
	"io"
	"math"
	"os"
)

// probeDuration 探测视频时长（秒），支持 MP4 家族（mp4/mov/m4v）和
// WebM/Matroska，其它封装格式或损坏的文件返回 0
func probeDuration(f *os.File, size int64) int {
	if isEBML(f) {
		duration, err := webmDuration(f, size)
		if err != nil {
			return 0
		}
		return duration
	}

	duration, err := mp4Duration(f, size)
	if err != nil {
		return 0
	}
	return duration
}

// isEBML 检查文件头是不是 EBML 魔数
func isEBML(r io.ReaderAt) bool {
	magic := make([]byte, 4)
	if _, err := r.ReadAt(magic, 0); err != nil {
		return false
	}
	return magic[0] == 0x1A && magic[1] == 0x45 && magic[2] == 0xDF && magic[3] == 0xA3
}

// mp4Duration 在顶层 box 中找到 moov，再从 mvhd 里取 timescale 和 duration
func mp4Duration(r io.ReaderAt, size int64) (int, error) {
	moovOffset, moovSize, err := findBox(r, 0, size, "moov")
	if err != nil {
		return 0, err
	}

	mvhdOffset, mvhdSize, err := findBox(r, moovOffset, moovOffset+moovSize, "mvhd")
	if err != nil {
		return 0, err
	}

	// 版本字节决定字段宽度：v0 用 32 位时间，v1 用 64 位
	header := make([]byte, 4)
	if _, err := r.ReadAt(header, mvhdOffset); err != nil {
		return 0, err
	}

	switch header[0] {
	case 0:
		// version(1) + flags(3) + ctime(4) + mtime(4) + timescale(4) + duration(4)
		buf := make([]byte, 8)
		if mvhdSize < 20 {
			return 0, io.ErrUnexpectedEOF
		}
		if _, err := r.ReadAt(buf, mvhdOffset+12); err != nil {
			return 0, err
		}
		timescale := binary.BigEndian.Uint32(buf[0:4])
		duration := binary.BigEndian.Uint32(buf[4:8])
		if timescale == 0 {
			return 0, nil
		}
		return int(duration / timescale), nil
	case 1:
		// version(1) + flags(3) + ctime(8) + mtime(8) + timescale(4) + duration(8)
		buf := make([]byte, 12)
		if mvhdSize < 32 {
			return 0, io.ErrUnexpectedEOF
		}
		if _, err := r.ReadAt(buf, mvhdOffset+20); err != nil {
			return 0, err
		}
		timescale := binary.BigEndian.Uint32(buf[0:4])
		duration := binary.BigEndian.Uint64(buf[4:12])
		if timescale == 0 {
			return 0, nil
		}
		return int(duration / uint64(timescale)), nil
	default:
		return 0, io.ErrUnexpectedEOF
	}
}

// EBML 元素 ID
const (
	ebmlIDHeader         = 0x1A45DFA3
	ebmlIDSegment        = 0x18538067
	ebmlIDInfo           = 0x1549A966
	ebmlIDTimestampScale = 0x2AD7B1
	ebmlIDDuration       = 0x4489
)

// webmDuration 从 WebM/Matroska 的 Segment/Info 中取 TimestampScale 和 Duration
func webmDuration(r io.ReaderAt, size int64) (int, error) {
	// 跳过 EBML 头元素
	headerOffset, headerSize, err := findEBML(r, 0, size, ebmlIDHeader)
	if err != nil {
		return 0, err
	}

	segmentOffset, segmentSize, err := findEBML(r, headerOffset+headerSize, size, ebmlIDSegment)
	if err != nil {
		return 0, err
	}
	segmentEnd := segmentOffset + segmentSize
	if segmentEnd > size {
		segmentEnd = size
	}

	infoOffset, infoSize, err := findEBML(r, segmentOffset, segmentEnd, ebmlIDInfo)
	if err != nil {
		return 0, err
	}

	// 默认刻度 1ms
	timestampScale := uint64(1000000)
	durationTicks := float64(0)

	offset := infoOffset
	end := infoOffset + infoSize
	for offset < end {
		id, idLen, err := readEBMLID(r, offset)
		if err != nil {
			return 0, err
		}
		contentSize, sizeLen, unknown, err := readEBMLSize(r, offset+idLen)
		if err != nil || unknown {
			return 0, io.ErrUnexpectedEOF
		}
		contentOffset := offset + idLen + sizeLen

		switch id {
		case ebmlIDTimestampScale:
			if v, err := readEBMLUint(r, contentOffset, contentSize); err == nil && v > 0 {
				timestampScale = v
			}
		case ebmlIDDuration:
			if v, err := readEBMLFloat(r, contentOffset, contentSize); err == nil {
				durationTicks = v
			}
		}

		offset = contentOffset + contentSize
	}

	if durationTicks <= 0 {
		return 0, nil
	}
	return int(durationTicks * float64(timestampScale) / 1e9), nil
}

// findEBML 在 [start, end) 范围内顺序扫描同级元素，返回目标元素的内容偏移和长度
func findEBML(r io.ReaderAt, start, end int64, targetID uint32) (int64, int64, error) {
	offset := start

	for offset < end {
		id, idLen, err := readEBMLID(r, offset)
		if err != nil {
			return 0, 0, err
		}
		contentSize, sizeLen, unknown, err := readEBMLSize(r, offset+idLen)
		if err != nil {
			return 0, 0, err
		}
		contentOffset := offset + idLen + sizeLen
		if unknown {
			// 未知长度的元素（常见于流式 Segment）延伸到范围末尾
			contentSize = end - contentOffset
		}

		if id == targetID {
			return contentOffset, contentSize, nil
		}
		offset = contentOffset + contentSize
	}

	return 0, 0, io.EOF
}

// readEBMLID 读取元素 ID，保留标记位
func readEBMLID(r io.ReaderAt, offset int64) (uint32, int64, error) {
	first := make([]byte, 1)
	if _, err := r.ReadAt(first, offset); err != nil {
		return 0, 0, err
	}

	length := ebmlVintLength(first[0])
	if length == 0 || length > 4 {
		return 0, 0, io.ErrUnexpectedEOF
	}

	buf := make([]byte, length)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return 0, 0, err
	}

	id := uint32(0)
	for _, b := range buf {
		id = id<<8 | uint32(b)
	}
	return id, int64(length), nil
}

// readEBMLSize 读取元素长度，去掉标记位；全 1 表示长度未知
func readEBMLSize(r io.ReaderAt, offset int64) (int64, int64, bool, error) {
	first := make([]byte, 1)
	if _, err := r.ReadAt(first, offset); err != nil {
		return 0, 0, false, err
	}

	length := ebmlVintLength(first[0])
	if length == 0 || length > 8 {
		return 0, 0, false, io.ErrUnexpectedEOF
	}

	buf := make([]byte, length)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return 0, 0, false, err
	}

	value := uint64(buf[0]) & (0xFF >> length)
	allOnes := value == uint64(0xFF>>length)
	for _, b := range buf[1:] {
		value = value<<8 | uint64(b)
		allOnes = allOnes && b == 0xFF
	}
	return int64(value), int64(length), allOnes, nil
}

// ebmlVintLength 由首字节前导零决定变长整数的字节数
func ebmlVintLength(first byte) int {
	for i := 0; i < 8; i++ {
		if first&(0x80>>i) != 0 {
			return i + 1
		}
	}
	return 0
}

func readEBMLUint(r io.ReaderAt, offset, size int64) (uint64, error) {
	if size <= 0 || size > 8 {
		return 0, io.ErrUnexpectedEOF
	}
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return 0, err
	}
	value := uint64(0)
	for _, b := range buf {
		value = value<<8 | uint64(b)
	}
	return value, nil
}

func readEBMLFloat(r io.ReaderAt, offset, size int64) (float64, error) {
	switch size {
	case 4:
		v, err := readEBMLUint(r, offset, size)
		if err != nil {
			return 0, err
		}
		return float64(math.Float32frombits(uint32(v))), nil
	case 8:
		v, err := readEBMLUint(r, offset, size)
		if err != nil {
			return 0, err
		}
		return math.Float64frombits(v), nil
	default:
		return 0, io.ErrUnexpectedEOF
	}
}

// findBox 在 [start, end) 范围内顺序扫描，返回指定 box 的内容偏移和内容长度
func findBox(r io.ReaderAt, start, end int64, boxType string) (int64, int64, error) {
	offset := start
	header := make([]byte, 8)

	for offset+8 <= end {
		if _, err := r.ReadAt(header, offset); err != nil {
			return 0, 0, err
		}

		boxSize := int64(binary.BigEndian.Uint32(header[0:4]))
		name := string(header[4:8])
		headerLen := int64(8)

		if boxSize == 1 {
			// 64 位扩展长度
			large := make([]byte, 8)
			if _, err := r.ReadAt(large, offset+8); err != nil {
				return 0, 0, err
			}
			boxSize = int64(binary.BigEndian.Uint64(large))
			headerLen = 16
		} else if boxSize == 0 {
			// box 延伸到文件尾
			boxSize = end - offset
		}

		if boxSize < headerLen {
			return 0, 0, io.ErrUnexpectedEOF
		}

		if name == boxType {
			return offset + headerLen, boxSize - headerLen, nil
		}

		offset += boxSize
	}

	return 0, 0, io.EOF
}
