package buffer

import (
	"unicode/utf8"

	"github.com/dshills/keystorm/internal/engine/piecetree"
)

// Snapshot provides a read-only view of a buffer at a specific point in time.
// It is safe for concurrent access and will not change even if the original
// buffer is modified: the snapshot owns a Clone of the buffer's tree, not a
// reference into it.
type Snapshot struct {
	tree       *piecetree.Tree
	revisionID RevisionID
	lineEnding LineEnding
	tabWidth   int
}

// Text returns the full snapshot content as a string.
func (s *Snapshot) Text() string {
	return string(s.tree.Substring(0, s.tree.Length()))
}

// TextRange returns text in the given byte range.
func (s *Snapshot) TextRange(start, end ByteOffset) string {
	return string(s.tree.Substring(start, end-start))
}

// Len returns the total byte length of the snapshot.
func (s *Snapshot) Len() ByteOffset {
	return s.tree.Length()
}

// LineCount returns the number of lines.
func (s *Snapshot) LineCount() uint32 {
	return uint32(s.tree.LineCount())
}

// LineText returns the text of a specific line (without newline).
func (s *Snapshot) LineText(line uint32) string {
	return string(stripLineEnding(s.tree.LineContent(int32(line))))
}

// LineLen returns the length of a specific line in bytes (without newline).
func (s *Snapshot) LineLen(line uint32) int {
	return len(stripLineEnding(s.tree.LineContent(int32(line))))
}

// ByteAt returns the byte at the given offset.
func (s *Snapshot) ByteAt(offset ByteOffset) (byte, bool) {
	chunk := s.tree.Substring(offset, 1)
	if len(chunk) == 0 {
		return 0, false
	}
	return chunk[0], true
}

// RuneAt returns the rune at the given byte offset.
// Returns utf8.RuneError and size 0 if offset is out of range.
func (s *Snapshot) RuneAt(offset ByteOffset) (rune, int) {
	if offset < 0 || offset >= s.tree.Length() {
		return utf8.RuneError, 0
	}
	np := s.tree.NodeAtOffset(offset)
	r := s.tree.DecodeAt(np)
	if r == utf8.RuneError {
		return utf8.RuneError, 0
	}
	return r, utf8.RuneLen(r)
}

// OffsetToPoint converts a byte offset to line/column.
func (s *Snapshot) OffsetToPoint(offset ByteOffset) Point {
	p := s.tree.PositionAt(offset)
	return Point{Line: uint32(p.Row), Column: uint32(p.Column)}
}

// PointToOffset converts line/column to byte offset.
func (s *Snapshot) PointToOffset(point Point) ByteOffset {
	return s.tree.OffsetAt(int32(point.Line), int64(point.Column))
}

// OffsetToPointUTF16 converts a byte offset to UTF-16 line/column.
func (s *Snapshot) OffsetToPointUTF16(offset ByteOffset) PointUTF16 {
	point := s.tree.PositionAt(offset)
	lineStart := s.tree.OffsetAt(point.Row, 0)
	lineText := s.tree.Substring(lineStart, offset-lineStart)

	utf16Col := utf16ColumnFromString(string(lineText))

	return PointUTF16{Line: uint32(point.Row), Column: utf16Col}
}

// PointUTF16ToOffset converts UTF-16 line/column to byte offset.
func (s *Snapshot) PointUTF16ToOffset(point PointUTF16) ByteOffset {
	lineStart := s.tree.OffsetAt(int32(point.Line), 0)
	lineText := stripLineEnding(s.tree.LineContent(int32(point.Line)))

	byteCol := byteOffsetFromUTF16Column(string(lineText), point.Column)

	return lineStart + ByteOffset(byteCol)
}

// LineStartOffset returns the byte offset of the start of a line.
func (s *Snapshot) LineStartOffset(line uint32) ByteOffset {
	return s.tree.OffsetAt(int32(line), 0)
}

// LineEndOffset returns the byte offset of the end of a line (before newline).
func (s *Snapshot) LineEndOffset(line uint32) ByteOffset {
	start := s.tree.OffsetAt(int32(line), 0)
	return start + ByteOffset(len(stripLineEnding(s.tree.LineContent(int32(line)))))
}

// RevisionID returns the revision ID of this snapshot.
func (s *Snapshot) RevisionID() RevisionID {
	return s.revisionID
}

// IsEmpty returns true if the snapshot is empty.
func (s *Snapshot) IsEmpty() bool {
	return s.tree.IsEmpty()
}

// LineEnding returns the snapshot's line ending style.
func (s *Snapshot) LineEnding() LineEnding {
	return s.lineEnding
}

// TabWidth returns the snapshot's tab width.
func (s *Snapshot) TabWidth() int {
	return s.tabWidth
}
