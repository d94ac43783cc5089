package piecetree

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
)

// walkCheckSums verifies that every node's cached leftBytes/leftLines
// equal the sums actually held by its left subtree.
func walkCheckSums(t *testing.T, n *node) {
	t.Helper()
	if n == sentinel {
		return
	}
	if got, want := n.leftBytes, subtreeBytes(n.left); got != want {
		t.Errorf("node leftBytes = %d, want %d", got, want)
	}
	if got, want := n.leftLines, subtreeLines(n.left); got != want {
		t.Errorf("node leftLines = %d, want %d", got, want)
	}
	walkCheckSums(t, n.left)
	walkCheckSums(t, n.right)
}

// walkCheckRB verifies the red-black invariants: root is black, no red
// node has a red child, and every root-to-leaf path has equal black
// height.
func walkCheckRB(t *testing.T, root *node) {
	t.Helper()
	if root.color != black {
		t.Errorf("root color = %v, want black", root.color)
	}
	var blackHeight = -1
	var walk func(n *node, redParent bool, bh int)
	walk = func(n *node, redParent bool, bh int) {
		if n == sentinel {
			if blackHeight == -1 {
				blackHeight = bh
			} else if bh != blackHeight {
				t.Errorf("unequal black height: got %d, want %d", bh, blackHeight)
			}
			return
		}
		if redParent && n.color == red {
			t.Errorf("red node has red child")
		}
		nextBH := bh
		if n.color == black {
			nextBH++
		}
		walk(n.left, n.color == red, nextBH)
		walk(n.right, n.color == red, nextBH)
	}
	walk(root, false, 0)
}

func checkInvariants(t *testing.T, tr *Tree) {
	t.Helper()
	if tr.root == sentinel {
		return
	}
	walkCheckSums(t, tr.root)
	walkCheckRB(t, tr.root)

	var sumBytes int64
	var sumLines int32
	for n := leftmost(tr.root); n != sentinel; n = next(n) {
		sumBytes += n.piece.byteLength
		sumLines += n.piece.lineCount
	}
	if sumBytes != tr.length {
		t.Errorf("sum of piece byteLength = %d, want tr.length = %d", sumBytes, tr.length)
	}
	if sumLines+1 != tr.LineCount() {
		t.Errorf("1+sum of piece lineCount = %d, want tr.LineCount() = %d", sumLines+1, tr.LineCount())
	}
}

func TestScenario1_BasicInsert(t *testing.T) {
	tr := New()
	if err := tr.Insert(0, []byte("Hello, World!")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	checkInvariants(t, tr)

	if got := tr.Length(); got != 13 {
		t.Errorf("Length() = %d, want 13", got)
	}
	if got := tr.LineCount(); got != 1 {
		t.Errorf("LineCount() = %d, want 1", got)
	}
	if got := string(tr.Substring(0, 13)); got != "Hello, World!" {
		t.Errorf("Substring(0,13) = %q", got)
	}
	if got := tr.PositionAt(7); got != (Point{Row: 0, Column: 7}) {
		t.Errorf("PositionAt(7) = %+v, want {0 7}", got)
	}
}

func TestScenario2_InsertNewline(t *testing.T) {
	tr := New()
	_ = tr.Insert(0, []byte("Hello, World!"))
	if err := tr.Insert(5, []byte("\n")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	checkInvariants(t, tr)

	if got := tr.Length(); got != 14 {
		t.Errorf("Length() = %d, want 14", got)
	}
	if got := tr.LineCount(); got != 2 {
		t.Errorf("LineCount() = %d, want 2", got)
	}
	if got := string(tr.LineContent(0)); got != "Hello\n" {
		t.Errorf("LineContent(0) = %q, want %q", got, "Hello\n")
	}
	if got := string(tr.LineContent(1)); got != ", World!" {
		t.Errorf("LineContent(1) = %q, want %q", got, ", World!")
	}
}

func TestScenario3_LoadLargeFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	var content bytes.Buffer
	for i := 0; i < 2000; i++ {
		content.WriteString("abc\n")
	}
	if err := afero.WriteFile(fs, "doc.txt", content.Bytes(), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	tr, err := LoadFile(fs, "doc.txt", WithBufferThreshold(8192))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	checkInvariants(t, tr)

	if got := tr.LineCount(); got != 2001 {
		t.Errorf("LineCount() = %d, want 2001", got)
	}
	if got := string(tr.LineContent(1999)); got != "abc\n" {
		t.Errorf("LineContent(1999) = %q", got)
	}
	if got := string(tr.Substring(0, 4)); got != "abc\n" {
		t.Errorf("Substring(0,4) = %q", got)
	}

	if err := tr.SaveFile(fs, "out.txt"); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	saved, err := afero.ReadFile(fs, "out.txt")
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if !bytes.Equal(saved, content.Bytes()) {
		t.Errorf("round-tripped file content does not match original")
	}
}

func TestScenario4_InsertAfterLoadKeepsLoadBufferIntact(t *testing.T) {
	fs := afero.NewMemMapFs()
	original := bytes.Repeat([]byte("y"), 70*1024)
	if err := afero.WriteFile(fs, "big.txt", original, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	tr, err := LoadFile(fs, "big.txt")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	loadBufferCount := len(tr.buffers)

	if err := tr.Insert(0, []byte("x")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	checkInvariants(t, tr)

	if len(tr.buffers) <= loadBufferCount {
		t.Errorf("expected a new change buffer to be created, buffers = %d (was %d)", len(tr.buffers), loadBufferCount)
	}

	got := tr.Substring(0, tr.Length())
	want := append([]byte("x"), original...)
	if !bytes.Equal(got, want) {
		t.Errorf("document mismatch after prepend")
	}
}

func TestScenario5_EraseAcrossCRLF(t *testing.T) {
	tr := New()
	_ = tr.Insert(0, []byte("ab\r\ncd"))
	if err := tr.Erase(2, 4); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	checkInvariants(t, tr)
	if got := string(tr.Substring(0, tr.Length())); got != "abcd" {
		t.Errorf("result = %q, want %q", got, "abcd")
	}
	if got := tr.LineCount(); got != 1 {
		t.Errorf("LineCount() = %d, want 1", got)
	}

	tr2 := New()
	_ = tr2.Insert(0, []byte("ab\r\ncd"))
	if err := tr2.Erase(1, 3); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	checkInvariants(t, tr2)
	if got := string(tr2.Substring(0, tr2.Length())); got != "a\ncd" {
		t.Errorf("result = %q, want %q", got, "a\ncd")
	}
	if got := tr2.LineCount(); got != 2 {
		t.Errorf("LineCount() = %d, want 2", got)
	}
}

func TestScenario6_WideCodepoint(t *testing.T) {
	tr := New()
	if err := tr.Insert(0, []byte("\U0001F600")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	checkInvariants(t, tr)

	if got := tr.Length(); got != 4 {
		t.Errorf("Length() = %d, want 4", got)
	}
	if got := tr.LineCount(); got != 1 {
		t.Errorf("LineCount() = %d, want 1", got)
	}
	np := tr.NodeAtOffset(0)
	if got := tr.CharacterLengthAt(np); got != 4 {
		t.Errorf("CharacterLengthAt = %d, want 4", got)
	}
	if got := tr.RenderColumnFromByteColumn(0, 4, 4); got != 2 {
		t.Errorf("RenderColumnFromByteColumn = %d, want 2", got)
	}
}

func TestInsertEraseInverse(t *testing.T) {
	tr := New()
	original := []byte("The quick brown fox jumps over the lazy dog.\nSecond line here.\n")
	_ = tr.Insert(0, original)
	checkInvariants(t, tr)

	insertion := []byte("INSERTED-TEXT")
	const at = 10
	if err := tr.Insert(at, insertion); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	checkInvariants(t, tr)

	if err := tr.Erase(at, at+int64(len(insertion))); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	checkInvariants(t, tr)

	if got := tr.Substring(0, tr.Length()); !bytes.Equal(got, original) {
		t.Errorf("insert-erase inverse failed: got %q, want %q", got, original)
	}
}

func TestOffsetPositionRoundTrip(t *testing.T) {
	tr := New()
	_ = tr.Insert(0, []byte("line one\nline two\nline three"))
	checkInvariants(t, tr)

	for k := int64(0); k <= tr.Length(); k++ {
		p := tr.PositionAt(k)
		if got := tr.OffsetAt(p.Row, p.Column); got != k {
			t.Errorf("OffsetAt(PositionAt(%d)) = %d, want %d", k, got, k)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	tr := New()
	_ = tr.Insert(0, []byte("alpha\nbeta\ngamma"))
	_ = tr.Insert(5, []byte(" MIDDLE"))
	checkInvariants(t, tr)

	snap := tr.Snapshot()
	before := string(tr.Substring(0, tr.Length()))
	beforeLines := tr.LineCount()

	tr.Restore(snap)
	checkInvariants(t, tr)

	if got := string(tr.Substring(0, tr.Length())); got != before {
		t.Errorf("after restore, content = %q, want %q", got, before)
	}
	if got := tr.LineCount(); got != beforeLines {
		t.Errorf("after restore, LineCount() = %d, want %d", got, beforeLines)
	}
}

func TestInsertEmptyStringIsNoop(t *testing.T) {
	tr := New()
	_ = tr.Insert(0, []byte("hello"))
	before := tr.Length()
	if err := tr.Insert(2, nil); err != nil {
		t.Fatalf("Insert(empty): %v", err)
	}
	if tr.Length() != before {
		t.Errorf("Length() changed on empty insert: %d -> %d", before, tr.Length())
	}
}

func TestInsertOutOfBounds(t *testing.T) {
	tr := New()
	_ = tr.Insert(0, []byte("hello"))
	if err := tr.Insert(-1, []byte("x")); err != ErrOutOfBounds {
		t.Errorf("Insert(-1, ...) error = %v, want ErrOutOfBounds", err)
	}
	if err := tr.Insert(100, []byte("x")); err != ErrOutOfBounds {
		t.Errorf("Insert(100, ...) error = %v, want ErrOutOfBounds", err)
	}
}

func TestCloneIsIndependentOfSource(t *testing.T) {
	tr := New()
	_ = tr.Insert(0, []byte("alpha\nbeta"))
	checkInvariants(t, tr)

	clone := tr.Clone()
	checkInvariants(t, clone)

	if err := tr.Insert(tr.Length(), []byte("\ngamma")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tr.Erase(0, 5); err != nil {
		t.Fatalf("Erase: %v", err)
	}

	if got, want := string(clone.Substring(0, clone.Length())), "alpha\nbeta"; got != want {
		t.Errorf("clone content changed after source mutation: got %q, want %q", got, want)
	}
	if got, want := string(tr.Substring(0, tr.Length())), "\nbeta\ngamma"; got != want {
		t.Errorf("source content = %q, want %q", got, want)
	}
}

func TestBufferSwapAcrossManyInserts(t *testing.T) {
	tr := New(WithBufferThreshold(1024))
	var want bytes.Buffer
	for i := 0; i < 200; i++ {
		chunk := bytes.Repeat([]byte{byte('a' + i%26)}, 37)
		want.Write(chunk)
		if err := tr.Insert(tr.Length(), chunk); err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
	}
	checkInvariants(t, tr)
	if len(tr.buffers) < 2 {
		t.Errorf("expected multiple buffers after exceeding threshold, got %d", len(tr.buffers))
	}
	if got := tr.Substring(0, tr.Length()); !bytes.Equal(got, want.Bytes()) {
		t.Errorf("accumulated content mismatch after buffer swaps")
	}
}
