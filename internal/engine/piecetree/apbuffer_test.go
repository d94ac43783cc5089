package piecetree

import (
	"bytes"
	"testing"
)

func TestAppendOnlyBufferLineStarts(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []int64
	}{
		{"empty", "", []int64{0}},
		{"no newline", "hello", []int64{0}},
		{"lf", "a\nb\nc", []int64{0, 2, 4}},
		{"crlf", "a\r\nb\r\nc", []int64{0, 3, 6}},
		{"lone cr", "a\rb\rc", []int64{0, 2, 4}},
		{"mixed", "a\nb\r\nc\rd", []int64{0, 2, 5, 7}},
		{"trailing newline", "abc\n", []int64{0, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newAppendOnlyBuffer()
			b.append([]byte(tt.data))
			if !int64SliceEqual(b.lineStarts, tt.want) {
				t.Errorf("lineStarts = %v, want %v", b.lineStarts, tt.want)
			}
		})
	}
}

func int64SliceEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAppendOnlyBufferPositionOffsetRoundTrip(t *testing.T) {
	b := newAppendOnlyBuffer()
	b.append([]byte("abc\ndef\nghi"))

	for offset := int64(0); offset <= b.length(); offset++ {
		pos := b.offsetToPosition(offset, 0, int32(len(b.lineStarts)-1))
		if got := b.positionToOffset(pos); got != offset {
			t.Errorf("positionToOffset(offsetToPosition(%d)) = %d", offset, got)
		}
	}
}

func TestAppendOnlyBufferSplitAcrossAppends(t *testing.T) {
	b := newAppendOnlyBuffer()
	b.append([]byte("first\n"))
	b.append([]byte("second\n"))

	if got, want := b.content, []byte("first\nsecond\n"); !bytes.Equal(got, want) {
		t.Errorf("content = %q, want %q", got, want)
	}
	if got, want := b.lineStarts, []int64{0, 6, 13}; !int64SliceEqual(got, want) {
		t.Errorf("lineStarts = %v, want %v", got, want)
	}
}

func TestAppendOnlyBufferCRLFSplitAcrossAppends(t *testing.T) {
	b := newAppendOnlyBuffer()
	b.append([]byte("a\r"))
	b.append([]byte("\nb"))

	// CR and LF appended in separate calls must not be fused into a single
	// CR-LF line terminator: each append only scans its own new bytes.
	if got, want := b.lineStarts, []int64{0, 2, 3}; !int64SliceEqual(got, want) {
		t.Errorf("lineStarts = %v, want %v", got, want)
	}
}
