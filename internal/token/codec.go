package token

import (
	"fmt"
	"strings"
)

// The codec turns a token list into one printable, newline-free line and
// back. Every encoding unit is self-terminating so no separators are
// needed: character units are a category marker plus the character, units
// for characters below 0x20 are caret-escaped, control sequence names end
// at an unescaped space.
//
// Control sequence names may themselves contain bytes below 33 (including
// space). Each such byte is written as a space followed by the byte
// shifted up by 0x40, and one '*' is prefixed to the whole unit per
// escaped byte so the decoder knows how many embedded spaces belong to
// the name rather than terminate it.

const caretShift = 0x40

// Encode serializes a token list to a single line. It fails only when a
// character token carries a catcode that cannot belong to a token.
func Encode(list TokenList) (string, error) {
	var b strings.Builder
	for _, t := range list {
		switch t.Kind {
		case KindFrozenRelax:
			b.WriteByte('R')
		case KindControlSequence:
			encodeName(&b, t.Name)
		case KindCharacter:
			if !t.Cat.ForToken() || t.Char < 0 {
				return "", fmt.Errorf("%w: catcode %d char %q", ErrInvalidToken, t.Cat, t.Char)
			}
			if t.Char < 0x20 {
				b.WriteByte('^')
				b.WriteByte(t.Cat.marker())
				b.WriteRune(t.Char + caretShift)
			} else {
				b.WriteByte(t.Cat.marker())
				b.WriteRune(t.Char)
			}
		default:
			return "", fmt.Errorf("%w: kind %d", ErrInvalidToken, t.Kind)
		}
	}
	return b.String(), nil
}

func encodeName(b *strings.Builder, name string) {
	for _, r := range name {
		if r < 33 {
			b.WriteByte('*')
		}
	}
	b.WriteByte('\\')
	for _, r := range name {
		if r < 33 {
			b.WriteByte(' ')
			b.WriteRune(r + caretShift)
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte(' ')
}

// Decode reverses Encode. Any malformed input fails with one of the
// DecodeError sentinels; valid input round-trips byte-identically.
func Decode(line string) (TokenList, error) {
	rs := []rune(line)
	var out TokenList
	i := 0
	for i < len(rs) {
		switch c := rs[i]; {
		case c == '\\' || c == '*':
			name, next, err := decodeName(rs, i)
			if err != nil {
				return nil, err
			}
			out = append(out, ControlSequence(name))
			i = next
		case c == 'R':
			out = append(out, FrozenRelax())
			i++
		case c == '^':
			if i+2 >= len(rs) {
				return nil, fmt.Errorf("%w: truncated at offset %d", ErrBadEscape, i)
			}
			cat, ok := catcodeFromMarker(rs[i+1])
			if !ok {
				return nil, fmt.Errorf("%w: marker %q", ErrBadEscape, rs[i+1])
			}
			if !cat.ForToken() {
				return nil, fmt.Errorf("%w: catcode %d", ErrUnknownCategory, cat)
			}
			if rs[i+2] < caretShift {
				return nil, fmt.Errorf("%w: shifted char %q", ErrBadEscape, rs[i+2])
			}
			out = append(out, Character(cat, rs[i+2]-caretShift))
			i += 3
		default:
			cat, ok := catcodeFromMarker(c)
			if !ok || !cat.ForToken() {
				return nil, fmt.Errorf("%w: marker %q", ErrUnknownCategory, c)
			}
			if i+1 >= len(rs) {
				return nil, fmt.Errorf("%w: marker %q at end of line", ErrBadEscape, c)
			}
			out = append(out, Character(cat, rs[i+1]))
			i += 2
		}
	}
	return out, nil
}

// decodeName consumes one control sequence unit starting at rs[i] (at the
// first '*' or the backslash) and returns the name plus the offset one
// past the terminating space.
func decodeName(rs []rune, i int) (string, int, error) {
	stars := 0
	for i < len(rs) && rs[i] == '*' {
		stars++
		i++
	}
	if i >= len(rs) || rs[i] != '\\' {
		return "", 0, fmt.Errorf("%w: escape count without name", ErrUnterminatedName)
	}
	pos := i + 1
	var name strings.Builder
	for k := 0; k < stars; k++ {
		sp := indexRune(rs, pos, ' ')
		if sp < 0 || sp+1 >= len(rs) {
			return "", 0, fmt.Errorf("%w: missing escaped byte", ErrUnterminatedName)
		}
		name.WriteString(string(rs[pos:sp]))
		if rs[sp+1] < caretShift {
			return "", 0, fmt.Errorf("%w: shifted char %q", ErrBadEscape, rs[sp+1])
		}
		name.WriteRune(rs[sp+1] - caretShift)
		pos = sp + 2
	}
	sp := indexRune(rs, pos, ' ')
	if sp < 0 {
		return "", 0, ErrUnterminatedName
	}
	name.WriteString(string(rs[pos:sp]))
	return name.String(), sp + 1, nil
}

func indexRune(rs []rune, from int, want rune) int {
	for j := from; j < len(rs); j++ {
		if rs[j] == want {
			return j
		}
	}
	return -1
}

// EncodeBytes serializes for transport to a specific engine variant.
// Unicode engines receive UTF-8; 8-bit engines receive one byte per
// character and token lists with code points above 0xFF are rejected.
func EncodeBytes(list TokenList, unicode bool) ([]byte, error) {
	s, err := Encode(list)
	if err != nil {
		return nil, err
	}
	if unicode {
		return []byte(s), nil
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return nil, fmt.Errorf("%w: U+%04X", ErrNotRepresentable, r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}

// DecodeBytes reverses EncodeBytes under the same engine capability.
func DecodeBytes(data []byte, unicode bool) (TokenList, error) {
	if unicode {
		return Decode(string(data))
	}
	rs := make([]rune, len(data))
	for i, b := range data {
		rs[i] = rune(b)
	}
	return Decode(string(rs))
}
