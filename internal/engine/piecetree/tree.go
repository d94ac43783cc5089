// Package piecetree implements a self-balancing search tree over immutable
// slices of append-only byte buffers: the piece-table text buffer at the
// core of the editor.
//
// # Key Features
//
//   - Logarithmic-time insert, erase, and positional queries (byte offset
//     and line/column).
//   - Original content is never mutated; edits append to a "change buffer"
//     and splice new pieces into the tree.
//   - Snapshot/Restore captures and rebuilds the tree's piece sequence for
//     undo-by-restore workflows.
//
// # Basic Usage
//
//	t := piecetree.New()
//	t.Insert(0, []byte("Hello, World!"))
//	t.Substring(0, t.Length())
//
// # Thread Safety
//
// A Tree is not safe for concurrent use. Callers that need thread safety
// wrap it (see internal/engine/buffer).
package piecetree

import (
	"io"

	"github.com/spf13/afero"
)

// Point is a (row, column) position in the document, both zero-based. The
// column is a byte offset from the start of the row.
type Point struct {
	Row    int32
	Column int64
}

// NodePosition is a cursor into the tree at byte granularity: the node
// whose piece covers the target byte, the document offset of that piece's
// first byte, and the offset within the piece. It is opaque outside this
// package; obtain one via NodeAtOffset or NodeAtPosition and pass it back
// into the accessor operations in unicode.go.
type NodePosition struct {
	node              *node
	nodeStartOffset   int64
	offsetWithinPiece int64
}

// IsValid reports whether np refers to a real node rather than the
// sentinel (e.g. because the tree was empty when it was obtained).
func (np NodePosition) IsValid() bool {
	return np.node != nil && np.node != sentinel
}

// Offset returns the absolute document byte offset the position refers to.
func (np NodePosition) Offset() int64 {
	if !np.IsValid() {
		return 0
	}
	return np.nodeStartOffset + np.offsetWithinPiece
}

// Tree is a piece-tree text buffer: an augmented red-black tree of pieces
// over a list of append-only buffers. The tree owns its nodes and buffers
// exclusively; it is not safe for concurrent use.
type Tree struct {
	root *node

	buffers              []*appendOnlyBuffer
	changeBufferIndex    int
	bufferThreshold      int64
	forceNewChangeBuffer bool

	length    int64
	lineCount int32 // total newline sequences; document line count is lineCount+1

	pendingInitialText []byte
}

// New builds an empty tree. Buffer 0 is seeded as an empty append-only
// buffer and designated the initial change buffer.
func New(opts ...Option) *Tree {
	t := &Tree{
		root:              sentinel,
		buffers:           []*appendOnlyBuffer{newAppendOnlyBuffer()},
		changeBufferIndex: 0,
		bufferThreshold:   defaultThresholdBytes,
	}
	for _, opt := range opts {
		opt(t)
	}
	if len(t.pendingInitialText) > 0 {
		text := t.pendingInitialText
		t.pendingInitialText = nil
		_ = t.Insert(0, text)
	}
	return t
}

// Length returns the document's total byte count.
func (t *Tree) Length() int64 { return t.length }

// LineCount returns the document's line count: 1 + total newline sequences.
func (t *Tree) LineCount() int32 { return t.lineCount + 1 }

// IsEmpty reports whether the document holds zero bytes.
func (t *Tree) IsEmpty() bool { return t.length == 0 }

// recomputeTotals refreshes the cached length/lineCount from the tree's
// root sums. Cheap: subtreeBytes/subtreeLines only walk the root's
// right-child chain, which is O(log n) in a balanced tree.
func (t *Tree) recomputeTotals() {
	t.length = subtreeBytes(t.root)
	t.lineCount = subtreeLines(t.root)
}

// buildPieces splits data into one or more pieces, each backed by a region
// of the change buffer (rotating to a fresh buffer whenever the current
// one would exceed the threshold).
func (t *Tree) buildPieces(data []byte) []piece {
	var pieces []piece
	remaining := data
	for len(remaining) > 0 {
		buf := t.buffers[t.changeBufferIndex]
		room := t.bufferThreshold - buf.length()
		if room <= 0 || t.forceNewChangeBuffer {
			t.buffers = append(t.buffers, newAppendOnlyBuffer())
			t.changeBufferIndex = len(t.buffers) - 1
			buf = t.buffers[t.changeBufferIndex]
			room = t.bufferThreshold
			t.forceNewChangeBuffer = false
		}
		n := int64(len(remaining))
		if n > room {
			n = room
		}
		chunk := remaining[:n]
		remaining = remaining[n:]

		start := buf.endPosition()
		buf.append(chunk)
		end := buf.endPosition()
		pieces = append(pieces, makePiece(t.changeBufferIndex, buf, start, end))
	}
	return pieces
}

// resizeNodePiece replaces n's piece with newPiece and corrects the
// augmented sums along n's ancestor chain for the delta. Tree shape is
// unchanged, so no rotation is required.
func resizeNodePiece(root **node, n *node, newPiece piece) {
	deltaBytes := newPiece.byteLength - n.piece.byteLength
	deltaLines := newPiece.lineCount - n.piece.lineCount
	n.piece = newPiece
	if deltaBytes != 0 || deltaLines != 0 {
		updateMetadata(root, n, deltaBytes, deltaLines)
	}
}

func (t *Tree) installChainEmpty(pieces []piece) {
	var prev *node
	for i, p := range pieces {
		if i == 0 {
			prev = insertLeaf(&t.root, sentinel, p, true)
		} else {
			prev = insertLeaf(&t.root, prev, p, false)
		}
	}
}

// installChainBefore inserts pieces, in order, immediately before where.
func (t *Tree) installChainBefore(where *node, pieces []piece) {
	prev := where
	for i := len(pieces) - 1; i >= 0; i-- {
		prev = insertLeaf(&t.root, prev, pieces[i], true)
	}
}

// installChainAfter inserts pieces, in order, immediately after where.
func (t *Tree) installChainAfter(where *node, pieces []piece) {
	prev := where
	for _, p := range pieces {
		prev = insertLeaf(&t.root, prev, p, false)
	}
}

// tryRightEdgeExtend attempts the right-edge-extension fast path: if n's
// piece ends exactly at the change buffer's current end (the stricter,
// single-writer reading of the invariant — see DESIGN.md), the new bytes
// are appended to that buffer and n's piece is widened in place instead of
// allocating a new node.
func (t *Tree) tryRightEdgeExtend(n *node, text []byte) bool {
	if t.forceNewChangeBuffer {
		return false
	}
	if n.piece.bufferIndex != t.changeBufferIndex {
		return false
	}
	buf := t.buffers[t.changeBufferIndex]
	if n.piece.end != buf.endPosition() {
		return false
	}
	if buf.length()+int64(len(text)) > t.bufferThreshold {
		return false
	}
	buf.append(text)
	end := buf.endPosition()
	newPiece := makePiece(n.piece.bufferIndex, buf, n.piece.start, end)
	resizeNodePiece(&t.root, n, newPiece)
	return true
}

// Insert splices text into the document at offset. An empty text is a
// no-op. offset must be in [0, Length()].
func (t *Tree) Insert(offset int64, text []byte) error {
	if len(text) == 0 {
		return nil
	}
	if offset < 0 || offset > t.length {
		return ErrOutOfBounds
	}

	if t.root == sentinel {
		pieces := t.buildPieces(text)
		t.installChainEmpty(pieces)
		t.recomputeTotals()
		return nil
	}

	np := t.nodeAtOffset(offset)
	if !np.IsValid() {
		return ErrFailedInsertion
	}
	n := np.node

	switch {
	case np.offsetWithinPiece == 0:
		pieces := t.buildPieces(text)
		t.installChainBefore(n, pieces)

	case np.offsetWithinPiece >= n.piece.byteLength:
		if !t.tryRightEdgeExtend(n, text) {
			pieces := t.buildPieces(text)
			t.installChainAfter(n, pieces)
		}

	default:
		buf := t.buffers[n.piece.bufferIndex]
		splitPos := buf.movePositionByOffset(n.piece.start, np.offsetWithinPiece)
		leftPiece := makePiece(n.piece.bufferIndex, buf, n.piece.start, splitPos)
		rightPiece := makePiece(n.piece.bufferIndex, buf, splitPos, n.piece.end)

		resizeNodePiece(&t.root, n, leftPiece)

		pieces := t.buildPieces(text)
		prev := n
		for _, p := range pieces {
			prev = insertLeaf(&t.root, prev, p, false)
		}
		insertLeaf(&t.root, prev, rightPiece, false)
	}

	t.recomputeTotals()
	return nil
}

// shrinkRightEdge keeps only the prefix [0, np.offsetWithinPiece) of np's
// piece, removing the node entirely if that prefix is empty.
func (t *Tree) shrinkRightEdge(np NodePosition) {
	n := np.node
	if np.offsetWithinPiece == 0 {
		deleteNode(&t.root, n)
		return
	}
	if np.offsetWithinPiece >= n.piece.byteLength {
		return
	}
	buf := t.buffers[n.piece.bufferIndex]
	newEnd := buf.movePositionByOffset(n.piece.start, np.offsetWithinPiece)
	newPiece := makePiece(n.piece.bufferIndex, buf, n.piece.start, newEnd)
	resizeNodePiece(&t.root, n, newPiece)
}

// shrinkLeftEdge keeps only the suffix [np.offsetWithinPiece, byteLength)
// of np's piece, removing the node entirely if that suffix is empty.
func (t *Tree) shrinkLeftEdge(np NodePosition) {
	n := np.node
	if np.offsetWithinPiece <= 0 {
		return
	}
	if np.offsetWithinPiece >= n.piece.byteLength {
		deleteNode(&t.root, n)
		return
	}
	buf := t.buffers[n.piece.bufferIndex]
	newStart := buf.movePositionByOffset(n.piece.start, np.offsetWithinPiece)
	newPiece := makePiece(n.piece.bufferIndex, buf, newStart, n.piece.end)
	resizeNodePiece(&t.root, n, newPiece)
}

// eraseWithinNode handles an erase range fully contained in one piece:
// full removal, a one-sided shrink, or an interior split.
func (t *Tree) eraseWithinNode(startNP, endNP NodePosition) {
	n := startNP.node
	s := startNP.offsetWithinPiece
	e := endNP.offsetWithinPiece
	buf := t.buffers[n.piece.bufferIndex]

	switch {
	case s == 0 && e == n.piece.byteLength:
		deleteNode(&t.root, n)
	case s == 0:
		newStart := buf.movePositionByOffset(n.piece.start, e)
		newPiece := makePiece(n.piece.bufferIndex, buf, newStart, n.piece.end)
		resizeNodePiece(&t.root, n, newPiece)
	case e == n.piece.byteLength:
		newEnd := buf.movePositionByOffset(n.piece.start, s)
		newPiece := makePiece(n.piece.bufferIndex, buf, n.piece.start, newEnd)
		resizeNodePiece(&t.root, n, newPiece)
	default:
		splitAtS := buf.movePositionByOffset(n.piece.start, s)
		splitAtE := buf.movePositionByOffset(n.piece.start, e)
		leftPiece := makePiece(n.piece.bufferIndex, buf, n.piece.start, splitAtS)
		rightPiece := makePiece(n.piece.bufferIndex, buf, splitAtE, n.piece.end)
		resizeNodePiece(&t.root, n, leftPiece)
		insertLeaf(&t.root, n, rightPiece, false)
	}
}

// Erase removes the byte range [start, end) from the document. A zero-
// length range is a no-op.
func (t *Tree) Erase(start, end int64) error {
	if start < 0 || end > t.length || start > end {
		return ErrOutOfBounds
	}
	if start == end {
		return nil
	}

	startNP := t.nodeAtOffset(start)
	endNP := t.nodeAtOffset(end)
	if !startNP.IsValid() {
		return ErrFailedErasure
	}

	if startNP.node == endNP.node {
		t.eraseWithinNode(startNP, endNP)
		t.recomputeTotals()
		return nil
	}

	cur := next(startNP.node)
	for cur != sentinel && cur != endNP.node {
		toRemove := cur
		cur = next(cur)
		deleteNode(&t.root, toRemove)
	}

	t.shrinkRightEdge(startNP)
	if endNP.IsValid() {
		t.shrinkLeftEdge(endNP)
	}

	t.recomputeTotals()
	return nil
}

// nodeAtOffset locates the node whose piece covers offset, descending via
// cached left-subtree byte sums. An offset exactly on a boundary between two
// pieces resolves to whichever of the two sits higher in the tree: the start
// of the right-hand piece or the end of the left-hand piece.
func (t *Tree) nodeAtOffset(offset int64) NodePosition {
	if offset < 0 {
		offset = 0
	}
	if offset > t.length {
		offset = t.length
	}
	x := t.root
	remaining := offset
	nodeStart := int64(0)
	for x != sentinel {
		if remaining < x.leftBytes {
			x = x.left
			continue
		}
		if remaining <= x.leftBytes+x.piece.byteLength {
			return NodePosition{node: x, nodeStartOffset: nodeStart + x.leftBytes, offsetWithinPiece: remaining - x.leftBytes}
		}
		remaining -= x.leftBytes + x.piece.byteLength
		nodeStart += x.leftBytes + x.piece.byteLength
		x = x.right
	}
	return NodePosition{node: sentinel}
}

// NodeAtOffset is the exported form of nodeAtOffset.
func (t *Tree) NodeAtOffset(offset int64) NodePosition {
	return t.nodeAtOffset(offset)
}

// locateRow descends via cached left-subtree line sums to the node whose
// piece contains row, returning that node, the document byte offset of its
// first byte, and the document row index of its first line.
//
// Row 0 has no preceding newline to count, so it always begins at the very
// first byte of the document regardless of which piece holds the first
// newline; it resolves directly to the leftmost piece rather than running
// the newline-counting descent below. Row > 0 is found by locating the
// piece containing the row-th newline, which newline-counting order
// statistics resolve unambiguously since newlines are discrete items.
func (t *Tree) locateRow(row int32) (n *node, nodeStart int64, rowStart int32) {
	if row <= 0 {
		return leftmost(t.root), 0, 0
	}
	x := t.root
	remaining := row
	for x != sentinel {
		if remaining <= x.leftLines {
			x = x.left
			continue
		}
		if remaining <= x.leftLines+x.piece.lineCount {
			return x, nodeStart + x.leftBytes, rowStart + x.leftLines
		}
		remaining -= x.leftLines + x.piece.lineCount
		nodeStart += x.leftBytes + x.piece.byteLength
		rowStart += x.leftLines + x.piece.lineCount
		x = x.right
	}
	return sentinel, 0, 0
}

// OffsetAt computes the document byte offset of (row, col): it descends to
// the piece containing row, finds that row's start within the piece's
// buffer, and adds col. When col runs past the piece's part of a row that
// continues into the following pieces, the offset is resolved across those
// pieces via NodeAtPosition; otherwise col is clamped to the row's length
// (terminator included).
func (t *Tree) OffsetAt(row int32, col int64) int64 {
	if row < 0 {
		row = 0
	}
	maxRow := t.LineCount() - 1
	if row > maxRow {
		return t.length
	}
	n, nodeStart, rowStart := t.locateRow(row)
	if n == sentinel {
		return t.length
	}

	buf := t.buffers[n.piece.bufferIndex]
	rowWithinPiece := row - rowStart
	lineIdx := n.piece.start.LineIndex + rowWithinPiece
	rowStartOffsetInBuffer := buf.lineStarts[lineIdx]
	pieceStartOffsetInBuffer := buf.positionToOffset(n.piece.start)
	if rowWithinPiece == 0 {
		rowStartOffsetInBuffer = pieceStartOffsetInBuffer
	}
	withinPieceOffset := rowStartOffsetInBuffer - pieceStartOffsetInBuffer

	var rowByteLenInPiece int64
	if lineIdx < n.piece.end.LineIndex {
		rowByteLenInPiece = buf.lineStarts[lineIdx+1] - rowStartOffsetInBuffer
	} else {
		rowByteLenInPiece = buf.positionToOffset(n.piece.end) - rowStartOffsetInBuffer
	}
	if col < 0 {
		col = 0
	}
	if col > rowByteLenInPiece && lineIdx >= n.piece.end.LineIndex {
		return t.NodeAtPosition(row, col).Offset()
	}
	if col > rowByteLenInPiece {
		col = rowByteLenInPiece
	}
	return nodeStart + withinPieceOffset + col
}

// PositionAt computes the (row, col) of an absolute byte offset.
func (t *Tree) PositionAt(offset int64) Point {
	if offset < 0 {
		offset = 0
	}
	if offset > t.length {
		offset = t.length
	}
	np := t.nodeAtOffset(offset)
	if !np.IsValid() {
		return Point{Row: 0, Column: 0}
	}
	n := np.node
	buf := t.buffers[n.piece.bufferIndex]
	pieceStartOffsetInBuffer := buf.positionToOffset(n.piece.start)
	absoluteBufOffset := pieceStartOffsetInBuffer + np.offsetWithinPiece

	startLine := n.piece.start.LineIndex
	endPos := buf.offsetToPosition(absoluteBufOffset, startLine, int32(len(buf.lineStarts)-1))
	linesPrecedingInPiece := endPos.LineIndex - startLine

	row := lineOffsetFromStart(t.root, n) + linesPrecedingInPiece
	col := offset - t.OffsetAt(row, 0)
	return Point{Row: row, Column: col}
}

// NodeAtPosition locates the node holding (row, col), walking forward
// across piece boundaries when col runs past the current piece's portion
// of the row and the row continues (no newline yet seen) into the next
// piece. It never advances past the document end; a row past the last
// line, or a tree with no content, clamps to the document end.
func (t *Tree) NodeAtPosition(row int32, col int64) NodePosition {
	if row < 0 {
		row = 0
	}
	if col < 0 {
		col = 0
	}
	maxRow := t.LineCount() - 1
	if row > maxRow {
		return t.nodeAtOffset(t.length)
	}

	n, nodeStart, rowStart := t.locateRow(row)
	if n == sentinel {
		return t.nodeAtOffset(t.length)
	}

	buf := t.buffers[n.piece.bufferIndex]
	rowWithinPiece := row - rowStart
	lineIdx := n.piece.start.LineIndex + rowWithinPiece
	rowStartOffsetInBuffer := buf.lineStarts[lineIdx]
	pieceStartOffsetInBuffer := buf.positionToOffset(n.piece.start)
	if rowWithinPiece == 0 {
		rowStartOffsetInBuffer = pieceStartOffsetInBuffer
	}
	withinPieceOffset := rowStartOffsetInBuffer - pieceStartOffsetInBuffer

	var rowByteLenInPiece int64
	rowEndsWithinPiece := lineIdx < n.piece.end.LineIndex
	if rowEndsWithinPiece {
		rowByteLenInPiece = buf.lineStarts[lineIdx+1] - rowStartOffsetInBuffer
	} else {
		rowByteLenInPiece = buf.positionToOffset(n.piece.end) - rowStartOffsetInBuffer
	}

	if rowEndsWithinPiece || col <= rowByteLenInPiece {
		if col > rowByteLenInPiece {
			col = rowByteLenInPiece
		}
		return NodePosition{node: n, nodeStartOffset: nodeStart, offsetWithinPiece: withinPieceOffset + col}
	}

	remainingCol := col - rowByteLenInPiece
	curStart := nodeStart + n.piece.byteLength
	cur := next(n)
	for cur != sentinel {
		curBuf := t.buffers[cur.piece.bufferIndex]
		curPieceStartOffsetInBuffer := curBuf.positionToOffset(cur.piece.start)

		var available int64
		rowEndsHere := cur.piece.lineCount > 0
		if rowEndsHere {
			firstLineEndOffsetInBuffer := curBuf.lineStarts[cur.piece.start.LineIndex+1]
			available = firstLineEndOffsetInBuffer - curPieceStartOffsetInBuffer
		} else {
			available = cur.piece.byteLength
		}

		if remainingCol <= available {
			return NodePosition{node: cur, nodeStartOffset: curStart, offsetWithinPiece: remainingCol}
		}
		if rowEndsHere {
			return NodePosition{node: cur, nodeStartOffset: curStart, offsetWithinPiece: available}
		}
		remainingCol -= available
		curStart += cur.piece.byteLength
		cur = next(cur)
	}
	return t.nodeAtOffset(t.length)
}

// readRange copies bytes from startNP (inclusive) to endNP (exclusive),
// concatenating full intermediate pieces and the partial slices at the
// endpoints. This is the cross-piece read primitive every byte-range
// accessor (Substring, LineContent, the Unicode decoders) builds on.
func (t *Tree) readRange(startNP, endNP NodePosition) []byte {
	if !startNP.IsValid() {
		return nil
	}
	var out []byte
	n := startNP.node
	startOff := startNP.offsetWithinPiece
	for n != sentinel {
		buf := t.buffers[n.piece.bufferIndex]
		pieceStartOffsetInBuffer := buf.positionToOffset(n.piece.start)
		endOff := n.piece.byteLength
		if n == endNP.node {
			endOff = endNP.offsetWithinPiece
		}
		if startOff < endOff {
			out = append(out, buf.slice(pieceStartOffsetInBuffer+startOff, pieceStartOffsetInBuffer+endOff)...)
		}
		if n == endNP.node {
			break
		}
		n = next(n)
		startOff = 0
	}
	return out
}

// Substring returns the length bytes starting at offset, clamped to the
// document's extent.
func (t *Tree) Substring(offset, length int64) []byte {
	if length <= 0 || offset < 0 || offset > t.length {
		return nil
	}
	if offset+length > t.length {
		length = t.length - offset
	}
	startNP := t.nodeAtOffset(offset)
	endNP := t.nodeAtOffset(offset + length)
	return t.readRange(startNP, endNP)
}

// LineContent returns row's bytes, including its line terminator if one
// exists (the last row of the document has none).
func (t *Tree) LineContent(row int32) []byte {
	if row < 0 {
		row = 0
	}
	total := t.LineCount()
	if row >= total {
		return nil
	}
	start := t.OffsetAt(row, 0)
	var end int64
	if row+1 < total {
		end = t.OffsetAt(row+1, 0)
	} else {
		end = t.length
	}
	return t.Substring(start, end-start)
}

// Snapshot is an opaque, ordered copy of every piece in the tree, taken by
// in-order traversal. It borrows no buffer bytes; it is only meaningful
// while the tree that produced it, or a tree sharing its buffers, is
// still alive.
type Snapshot struct {
	pieces []piece
}

// Snapshot captures the current piece sequence.
func (t *Tree) Snapshot() Snapshot {
	pieces := make([]piece, 0, 64)
	for n := leftmost(t.root); n != sentinel; n = next(n) {
		pieces = append(pieces, n.piece)
	}
	return Snapshot{pieces: pieces}
}

// Restore discards the current tree shape and rebuilds it by repeated
// right-insertion of the snapshot's pieces. Buffers are untouched: the
// snapshot's pieces still reference bytes this tree already owns.
func (t *Tree) Restore(s Snapshot) {
	t.root = sentinel
	prev := sentinel
	for _, p := range s.pieces {
		prev = insertLeaf(&t.root, prev, p, false)
	}
	t.recomputeTotals()
}

// Clone returns an independent tree: every buffer's bytes are copied and a
// fresh tree structure is rebuilt over the copies. Unlike Snapshot/Restore,
// which still read through to this tree's live, growing buffers, a Clone
// shares no mutable state with t and stays valid no matter what t does
// afterward — the primitive a concurrent-safe read-only view is built on.
func (t *Tree) Clone() *Tree {
	newBuffers := make([]*appendOnlyBuffer, len(t.buffers))
	for i, buf := range t.buffers {
		newBuffers[i] = &appendOnlyBuffer{
			content:    append([]byte(nil), buf.content...),
			lineStarts: append([]int64(nil), buf.lineStarts...),
		}
	}
	clone := &Tree{
		root:                 sentinel,
		buffers:              newBuffers,
		changeBufferIndex:    t.changeBufferIndex,
		bufferThreshold:      t.bufferThreshold,
		forceNewChangeBuffer: t.forceNewChangeBuffer,
	}
	prev := sentinel
	for n := leftmost(t.root); n != sentinel; n = next(n) {
		prev = insertLeaf(&clone.root, prev, n.piece, false)
	}
	clone.recomputeTotals()
	return clone
}

// LoadFile builds a fresh Tree by reading path in bufferThreshold-sized
// chunks, each becoming its own buffer and a single piece right-inserted
// at the current end. The final chunk may be shorter than the threshold.
func LoadFile(fsys afero.Fs, path string, opts ...Option) (*Tree, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, ErrUnableToOpenFile
	}
	defer f.Close()

	t := New(opts...)
	chunk := make([]byte, t.bufferThreshold)
	prev := sentinel
	loadedAny := false
	for {
		n, readErr := io.ReadFull(f, chunk)
		if n > 0 {
			loadedAny = true
			chunkBuf := newAppendOnlyBuffer()
			start := chunkBuf.endPosition()
			data := make([]byte, n)
			copy(data, chunk[:n])
			chunkBuf.append(data)
			end := chunkBuf.endPosition()
			t.buffers = append(t.buffers, chunkBuf)
			idx := len(t.buffers) - 1
			prev = insertLeaf(&t.root, prev, makePiece(idx, chunkBuf, start, end), false)
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return nil, ErrFailedFileRead
		}
	}
	if loadedAny {
		t.dropUnusedSeedBuffer()
	}
	t.recomputeTotals()
	return t, nil
}

// dropUnusedSeedBuffer removes the empty change buffer New seeded at index
// 0 once a load has populated the tree from file chunks instead. It
// renumbers every existing piece's bufferIndex to account for the removed
// slot, then marks the change buffer as closed so the next edit allocates
// a genuinely new buffer instead of writing into a load buffer that
// happens to still have room below the threshold.
func (t *Tree) dropUnusedSeedBuffer() {
	if t.buffers[0].length() != 0 {
		return
	}
	t.buffers = append(t.buffers[:0], t.buffers[1:]...)
	for n := leftmost(t.root); n != sentinel; n = next(n) {
		p := n.piece
		p.bufferIndex--
		resizeNodePiece(&t.root, n, p)
	}
	t.changeBufferIndex = len(t.buffers) - 1
	t.forceNewChangeBuffer = true
}

// SaveFile writes the document's bytes to path via an in-order traversal
// of the tree's pieces, truncating any existing file at that path.
func (t *Tree) SaveFile(fsys afero.Fs, path string) error {
	f, err := fsys.Create(path)
	if err != nil {
		return ErrUnableToCreateFile
	}
	defer f.Close()

	for n := leftmost(t.root); n != sentinel; n = next(n) {
		buf := t.buffers[n.piece.bufferIndex]
		start := buf.positionToOffset(n.piece.start)
		end := buf.positionToOffset(n.piece.end)
		if _, err := f.Write(buf.slice(start, end)); err != nil {
			return ErrFailedFileWrite
		}
	}
	return nil
}
