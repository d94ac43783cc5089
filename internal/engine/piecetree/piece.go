package piecetree

// piece is an immutable view of a contiguous span of one append-only
// buffer. It is stored by value in tree nodes; splitting a piece produces
// two new pieces, never a mutation of the original.
type piece struct {
	bufferIndex int
	start       bufferPosition
	end         bufferPosition
	byteLength  int64
	lineCount   int32
}

// makePiece builds a piece from a buffer's start/end positions, deriving
// byteLength and lineCount so both always agree with what would be
// recomputed from the buffer's line_starts.
func makePiece(bufferIndex int, buf *appendOnlyBuffer, start, end bufferPosition) piece {
	return piece{
		bufferIndex: bufferIndex,
		start:       start,
		end:         end,
		byteLength:  buf.positionToOffset(end) - buf.positionToOffset(start),
		lineCount:   end.LineIndex - start.LineIndex,
	}
}

// isEmpty reports whether the piece covers zero bytes.
func (p piece) isEmpty() bool {
	return p.byteLength == 0
}
