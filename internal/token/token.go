package token

import "strings"

// Catcode is a TeX-style category code. The numeric values follow the
// classic table so the wire marker is simply the uppercase hex digit.
type Catcode uint8

const (
	CatEscape      Catcode = 0
	CatBeginGroup  Catcode = 1
	CatEndGroup    Catcode = 2
	CatMathToggle  Catcode = 3
	CatAlignment   Catcode = 4
	CatEndOfLine   Catcode = 5
	CatParameter   Catcode = 6
	CatSuperscript Catcode = 7
	CatSubscript   Catcode = 8
	CatIgnored     Catcode = 9
	CatSpace       Catcode = 10
	CatLetter      Catcode = 11
	CatOther       Catcode = 12
	CatActive      Catcode = 13
	CatComment     Catcode = 14
	CatInvalid     Catcode = 15
)

const markerDigits = "0123456789ABCDEF"

// ForToken reports whether a character token may carry this catcode.
// Escape, end-of-line, ignored, comment and invalid characters never
// survive tokenization.
func (c Catcode) ForToken() bool {
	switch c {
	case CatEscape, CatEndOfLine, CatIgnored, CatComment, CatInvalid:
		return false
	}
	return c <= CatActive
}

func (c Catcode) marker() byte {
	return markerDigits[c&0xF]
}

func catcodeFromMarker(r rune) (Catcode, bool) {
	switch {
	case r >= '0' && r <= '9':
		return Catcode(r - '0'), true
	case r >= 'A' && r <= 'F':
		return Catcode(r - 'A' + 10), true
	}
	return 0, false
}

// Kind discriminates the token variants.
type Kind uint8

const (
	KindCharacter Kind = iota
	KindControlSequence
	KindFrozenRelax
)

// Token is one atomic symbolic unit: a character with a category, a named
// control sequence, or the frozen \relax marker. The zero-Name control
// sequence is the null-csname sentinel. Tokens are comparable with ==.
type Token struct {
	Kind Kind
	Cat  Catcode // character tokens only
	Char rune    // character tokens only
	Name string  // control sequence tokens only
}

// Character builds a character token.
func Character(cat Catcode, ch rune) Token {
	return Token{Kind: KindCharacter, Cat: cat, Char: ch}
}

// ControlSequence builds a named control sequence token. An empty name is
// the null-csname sentinel.
func ControlSequence(name string) Token {
	return Token{Kind: KindControlSequence, Name: name}
}

// FrozenRelax returns the protocol-reserved frozen \relax marker.
func FrozenRelax() Token {
	return Token{Kind: KindFrozenRelax}
}

// Letter and friends are shorthands for the common character categories.
func Letter(ch rune) Token { return Character(CatLetter, ch) }

func Other(ch rune) Token { return Character(CatOther, ch) }

func Space() Token { return Character(CatSpace, ' ') }

func BeginGroup() Token { return Character(CatBeginGroup, '{') }

func EndGroup() Token { return Character(CatEndGroup, '}') }

// Active reports whether this token is an active character or an
// assignable single-character control sequence.
func (t Token) Active() bool {
	return t.Kind == KindCharacter && t.Cat == CatActive
}

// String renders the token readably: control sequences with a backslash
// and trailing space, characters verbatim. Not a serialization; use the
// codec for the wire.
func (t Token) String() string {
	switch t.Kind {
	case KindFrozenRelax:
		return `\relax `
	case KindControlSequence:
		return `\` + t.Name + " "
	default:
		return string(t.Char)
	}
}

// TokenList is an ordered token sequence. Order is significant and is
// preserved exactly through encode/decode.
type TokenList []Token

// String concatenates the readable forms of all tokens.
func (l TokenList) String() string {
	var b strings.Builder
	for _, t := range l {
		b.WriteString(t.String())
	}
	return b.String()
}

// Equal reports element-wise equality.
func (l TokenList) Equal(other TokenList) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// CatcodeTable assigns category codes to character codes during
// approximate tokenization. Characters absent from the table are CatOther.
type CatcodeTable map[rune]Catcode

func (tbl CatcodeTable) get(r rune) Catcode {
	if c, ok := tbl[r]; ok {
		return c
	}
	return CatOther
}

// DocumentCatcodes returns the catcode assignments of a normal document.
func DocumentCatcodes() CatcodeTable {
	tbl := CatcodeTable{
		'{':  CatBeginGroup,
		'}':  CatEndGroup,
		'$':  CatMathToggle,
		'&':  CatAlignment,
		'#':  CatParameter,
		'^':  CatSuperscript,
		'_':  CatSubscript,
		' ':  CatSpace,
		'~':  CatActive,
		'\\': CatEscape,
		'%':  CatComment,
	}
	for r := 'a'; r <= 'z'; r++ {
		tbl[r] = CatLetter
	}
	for r := 'A'; r <= 'Z'; r++ {
		tbl[r] = CatLetter
	}
	return tbl
}

// ModuleCatcodes returns the expl3-style assignments: underscore and colon
// are letters, space is ignored, tilde is a space.
func ModuleCatcodes() CatcodeTable {
	tbl := DocumentCatcodes()
	tbl['_'] = CatLetter
	tbl[':'] = CatLetter
	tbl[' '] = CatIgnored
	tbl['~'] = CatSpace
	return tbl
}

// Tokenize is an approximate tokenizer: it converts a string to a token
// list under the given catcode table. Multiple spaces collapse to one,
// letters after an escape character form a control sequence name, ignored
// characters disappear. It deliberately stays simpler than a real
// macro-expansion tokenizer; it exists so handlers and tests can build
// token lists without spelling every token out.
func Tokenize(s string, tbl CatcodeTable) TokenList {
	var out TokenList
	rs := []rune(s)
	i := 0
	skipSpaces := func() {
		if sp := tbl.get(' '); sp != CatSpace && sp != CatIgnored {
			return
		}
		for i < len(rs) && rs[i] == ' ' {
			i++
		}
	}
	for i < len(rs) {
		ch := rs[i]
		i++
		cat := tbl.get(ch)
		switch {
		case cat == CatSpace:
			out = append(out, Space())
			skipSpaces()
		case cat == CatIgnored:
		case cat.ForToken():
			out = append(out, Character(cat, ch))
		default:
			// escape character starts a control sequence
			if i >= len(rs) {
				out = append(out, ControlSequence(""))
				break
			}
			if tbl.get(rs[i]) != CatLetter {
				out = append(out, ControlSequence(string(rs[i])))
				i++
				break
			}
			start := i
			for i < len(rs) && tbl.get(rs[i]) == CatLetter {
				i++
			}
			out = append(out, ControlSequence(string(rs[start:i])))
			skipSpaces()
		}
	}
	return out
}
