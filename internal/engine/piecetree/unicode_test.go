package piecetree

import "testing"

func TestLookupCodepointWidth(t *testing.T) {
	tests := []struct {
		name string
		r    rune
		want int
	}{
		{"ascii letter", 'a', 1},
		{"wide emoji", '\U0001F600', 2},
		{"cjk ideograph", '中', 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LookupCodepoint(tt.r).Width; got != tt.want {
				t.Errorf("LookupCodepoint(%q).Width = %d, want %d", tt.r, got, tt.want)
			}
		})
	}
}

func TestLookupCodepointCaseMapping(t *testing.T) {
	p := LookupCodepoint('a')
	if p.Upper != 'A' {
		t.Errorf("Upper('a') = %q, want 'A'", p.Upper)
	}
	p = LookupCodepoint('Z')
	if p.Lower != 'z' {
		t.Errorf("Lower('Z') = %q, want 'z'", p.Lower)
	}
}

func TestDecodeAtCrossPieceBoundary(t *testing.T) {
	tr := New(WithBufferThreshold(1024))
	_ = tr.Insert(0, []byte("ab"))
	// Split the piece right before the wide codepoint by inserting into the
	// interior, forcing the emoji's bytes to live in a distinct piece.
	_ = tr.Insert(1, []byte("\U0001F600"))
	checkInvariants(t, tr)

	np := tr.NodeAtOffset(1)
	if got := tr.DecodeAt(np); got != '\U0001F600' {
		t.Errorf("DecodeAt = %q, want emoji", got)
	}
	if got := tr.CharacterLengthAt(np); got != 4 {
		t.Errorf("CharacterLengthAt = %d, want 4", got)
	}
}

func TestMoveByCharacterSkipsCRLFAsOneUnit(t *testing.T) {
	tr := New()
	_ = tr.Insert(0, []byte("a\r\nb"))
	checkInvariants(t, tr)

	np := tr.NodeAtOffset(1) // sits right before CR
	fwd := tr.MoveByCharacter(np, true)
	if got := fwd.Offset(); got != 3 {
		t.Errorf("MoveByCharacter(forward) offset = %d, want 3 (skip CR+LF as one unit)", got)
	}

	back := tr.MoveByCharacter(fwd, false)
	if got := back.Offset(); got != 1 {
		t.Errorf("MoveByCharacter(backward) offset = %d, want 1", got)
	}
}

func TestRenderByteColumnRoundTripWithTabs(t *testing.T) {
	tr := New()
	_ = tr.Insert(0, []byte("a\tbc"))
	checkInvariants(t, tr)

	const tabWidth = 4
	for byteCol := int64(0); byteCol <= 4; byteCol++ {
		renderCol := tr.RenderColumnFromByteColumn(0, byteCol, tabWidth)
		gotByteCol := tr.ByteColumnFromRenderColumn(0, renderCol, tabWidth)
		if gotByteCol > byteCol {
			t.Errorf("ByteColumnFromRenderColumn(RenderColumnFromByteColumn(%d)) = %d, overshoots", byteCol, gotByteCol)
		}
	}
}
