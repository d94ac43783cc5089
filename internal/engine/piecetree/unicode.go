package piecetree

import (
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

// CodepointProperties is the contract of the "codepoint property provider"
// collaborator: given a codepoint, its display width, case mappings, and
// printability. Backed by the compiled Unicode tables in the standard
// library's unicode package plus golang.org/x/text for East-Asian width
// and locale-robust case folding, and github.com/rivo/uniseg for grapheme-
// aware display width.
type CodepointProperties struct {
	Width     int
	Printable bool
	Upper     rune
	Lower     rune
}

var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
)

// LookupCodepoint returns the properties of r, or a default/unassigned
// value for inputs outside [0, 0x10FFFF].
func LookupCodepoint(r rune) CodepointProperties {
	if r < 0 || r > 0x10FFFF {
		return CodepointProperties{}
	}
	w := uniseg.StringWidth(string(r))
	if kind := width.LookupRune(r).Kind(); kind == width.EastAsianWide || kind == width.EastAsianFullwidth {
		if w < 2 {
			w = 2
		}
	}
	return CodepointProperties{
		Width:     w,
		Printable: unicode.IsPrint(r),
		Upper:     firstRune(upperCaser.String(string(r)), r),
		Lower:     firstRune(lowerCaser.String(string(r)), r),
	}
}

func firstRune(s string, fallback rune) rune {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return fallback
	}
	return r
}

// InvalidRune is returned by DecodeAt when the bytes at a position do not
// form a valid UTF-8 scalar.
const InvalidRune = utf8.RuneError

// DecodeAt reads up to four bytes starting at np, pulling from subsequent
// pieces via readRange when the current piece has fewer than four bytes
// remaining, and decodes a single UTF-8 scalar.
func (t *Tree) DecodeAt(np NodePosition) rune {
	if !np.IsValid() {
		return InvalidRune
	}
	offset := np.Offset()
	end := offset + 4
	if end > t.length {
		end = t.length
	}
	if end <= offset {
		return InvalidRune
	}
	buf := t.readRange(np, t.nodeAtOffset(end))
	r, size := utf8.DecodeRune(buf)
	if r == utf8.RuneError && size <= 1 {
		return InvalidRune
	}
	return r
}

// CharacterLengthAt returns the byte length of the "character" starting at
// np: 2 for a CR-LF pair, 1 for a lone CR or LF, otherwise the UTF-8
// length of the decoded codepoint.
func (t *Tree) CharacterLengthAt(np NodePosition) int {
	if !np.IsValid() {
		return 0
	}
	offset := np.Offset()
	if offset >= t.length {
		return 0
	}
	two := t.Substring(offset, 2)
	if len(two) >= 1 {
		switch two[0] {
		case '\r':
			if len(two) >= 2 && two[1] == '\n' {
				return 2
			}
			return 1
		case '\n':
			return 1
		}
	}
	end := offset + 4
	if end > t.length {
		end = t.length
	}
	buf := t.readRange(np, t.nodeAtOffset(end))
	_, size := utf8.DecodeRune(buf)
	if size == 0 {
		return 1
	}
	return size
}

// widthOf returns the render-width contribution of the codepoint r,
// treating tabs specially (caller expands them) and non-printable
// codepoints as a single rendered space, matching release semantics.
func widthOf(r rune) int64 {
	if !unicode.IsPrint(r) {
		return 1
	}
	return int64(LookupCodepoint(r).Width)
}

// RenderColumnFromByteColumn accumulates display widths of the codepoints
// in row up to byteCol, expanding tabs to the next multiple of tabWidth.
func (t *Tree) RenderColumnFromByteColumn(row int32, byteCol int64, tabWidth int) int64 {
	if tabWidth <= 0 {
		tabWidth = 1
	}
	line := t.LineContent(row)
	if byteCol > int64(len(line)) {
		byteCol = int64(len(line))
	}
	var renderCol int64
	i := int64(0)
	for i < byteCol {
		r, size := utf8.DecodeRune(line[i:])
		if size == 0 {
			size = 1
		}
		if r == '\t' {
			renderCol = (renderCol/int64(tabWidth) + 1) * int64(tabWidth)
		} else {
			renderCol += widthOf(r)
		}
		i += int64(size)
	}
	return renderCol
}

// ByteColumnFromRenderColumn is the inverse of RenderColumnFromByteColumn:
// the largest byte column whose accumulated render width does not exceed
// targetRenderCol.
func (t *Tree) ByteColumnFromRenderColumn(row int32, targetRenderCol int64, tabWidth int) int64 {
	if tabWidth <= 0 {
		tabWidth = 1
	}
	line := t.LineContent(row)
	var renderCol int64
	i := int64(0)
	for i < int64(len(line)) {
		r, size := utf8.DecodeRune(line[i:])
		if size == 0 {
			size = 1
		}
		var w int64
		if r == '\t' {
			next := (renderCol/int64(tabWidth) + 1) * int64(tabWidth)
			w = next - renderCol
		} else {
			w = widthOf(r)
		}
		if renderCol+w > targetRenderCol {
			return i
		}
		renderCol += w
		i += int64(size)
	}
	return i
}

// MoveByCharacter returns the node position one character before or after
// np, treating a CR-LF pair as one character and never landing on a UTF-8
// continuation byte.
func (t *Tree) MoveByCharacter(np NodePosition, forward bool) NodePosition {
	if !np.IsValid() {
		if forward {
			return t.nodeAtOffset(0)
		}
		return t.nodeAtOffset(t.length)
	}
	offset := np.Offset()

	if forward {
		if offset >= t.length {
			return np
		}
		n := t.CharacterLengthAt(np)
		if n <= 0 {
			n = 1
		}
		return t.nodeAtOffset(offset + int64(n))
	}

	if offset <= 0 {
		return t.nodeAtOffset(0)
	}
	if offset >= 2 {
		two := t.Substring(offset-2, 2)
		if len(two) == 2 && two[0] == '\r' && two[1] == '\n' {
			return t.nodeAtOffset(offset - 2)
		}
	}
	one := t.Substring(offset-1, 1)
	if len(one) == 1 && (one[0] == '\r' || one[0] == '\n') {
		return t.nodeAtOffset(offset - 1)
	}
	cand := offset - 1
	for cand > 0 {
		b := t.Substring(cand, 1)
		if len(b) == 0 || b[0]&0xC0 != 0x80 {
			break
		}
		cand--
	}
	return t.nodeAtOffset(cand)
}
