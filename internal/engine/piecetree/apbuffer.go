package piecetree

import "sort"

// bufferPosition is a (line_start_index, column) pair inside one
// append-only buffer. It satisfies line_starts[LineIndex]+Column <= len(content)
// and, when not at buffer end, < line_starts[LineIndex+1].
type bufferPosition struct {
	LineIndex int32
	Column    int64
}

// appendOnlyBuffer owns a growing byte sequence plus a parallel ordered
// index of line-start offsets. Once a piece references a region, those
// bytes never change; content only grows by appending.
type appendOnlyBuffer struct {
	content    []byte
	lineStarts []int64 // lineStarts[0] == 0, strictly increasing
}

// newAppendOnlyBuffer returns an empty buffer seeded with the line-start
// entry at offset 0, per the construction invariant.
func newAppendOnlyBuffer() *appendOnlyBuffer {
	return &appendOnlyBuffer{
		content:    nil,
		lineStarts: []int64{0},
	}
}

// length reports the number of bytes currently held.
func (b *appendOnlyBuffer) length() int64 {
	return int64(len(b.content))
}

// endPosition returns the position of the current end of content.
func (b *appendOnlyBuffer) endPosition() bufferPosition {
	lastLine := int32(len(b.lineStarts) - 1)
	return bufferPosition{
		LineIndex: lastLine,
		Column:    int64(len(b.content)) - b.lineStarts[lastLine],
	}
}

// append extends content with data, scanning only the newly added region
// for newline sequences and recording one line_starts entry immediately
// after each. A newline sequence is CR-LF, a lone CR, or a lone LF; each
// contributes exactly one entry regardless of which form it takes.
func (b *appendOnlyBuffer) append(data []byte) {
	if len(data) == 0 {
		return
	}
	start := int64(len(b.content))
	b.content = append(b.content, data...)

	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
			b.lineStarts = append(b.lineStarts, start+int64(i)+1)
		case '\n':
			b.lineStarts = append(b.lineStarts, start+int64(i)+1)
		}
	}
}

// positionToOffset converts a buffer position to an absolute byte offset.
func (b *appendOnlyBuffer) positionToOffset(pos bufferPosition) int64 {
	return b.lineStarts[pos.LineIndex] + pos.Column
}

// offsetToPosition converts an absolute byte offset back to a buffer
// position, binary-searching line_starts restricted to [lo, hi].
func (b *appendOnlyBuffer) offsetToPosition(offset int64, lo, hi int32) bufferPosition {
	starts := b.lineStarts[lo : hi+1]
	// Find the greatest index i such that starts[i] <= offset.
	idx := sort.Search(len(starts), func(i int) bool {
		return starts[i] > offset
	}) - 1
	if idx < 0 {
		idx = 0
	}
	lineIndex := lo + int32(idx)
	return bufferPosition{
		LineIndex: lineIndex,
		Column:    offset - b.lineStarts[lineIndex],
	}
}

// movePositionByOffset converts pos to an offset, adds delta (saturating to
// [0, length]), and converts back to a position.
func (b *appendOnlyBuffer) movePositionByOffset(pos bufferPosition, delta int64) bufferPosition {
	offset := b.positionToOffset(pos) + delta
	if offset < 0 {
		offset = 0
	}
	maxOffset := int64(len(b.content))
	if offset > maxOffset {
		offset = maxOffset
	}
	return b.offsetToPosition(offset, 0, int32(len(b.lineStarts)-1))
}

// lineCountBetween returns the number of line terminators between two line
// indices of this buffer (endLine - startLine): the line_count of a span
// that starts on line startLine and ends on line endLine.
func (b *appendOnlyBuffer) lineCountBetween(startLine, endLine int32) int32 {
	return endLine - startLine
}

// byteAt returns the byte at an absolute offset within content.
func (b *appendOnlyBuffer) byteAt(offset int64) byte {
	return b.content[offset]
}

// slice returns a view of content in [start, end).
func (b *appendOnlyBuffer) slice(start, end int64) []byte {
	return b.content[start:end]
}
