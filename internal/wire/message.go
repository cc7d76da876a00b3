package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/texlink/internal/token"
)

// Line kinds. The first byte of every single-line protocol message, in
// both directions.
const (
	KindInvoke byte = 'i'
	KindReturn byte = 'r'
	KindError  byte = 'e'
)

// InvokeLine builds the header line of an invoke message.
func InvokeLine(name string) string {
	return string(KindInvoke) + name
}

// ReturnLine builds a return message line carrying an optional value.
func ReturnLine(value string) string {
	return string(KindReturn) + value
}

// ErrorLine builds the header line of a remote-failure message; the full
// trace follows as a block.
func ErrorLine(summary string) string {
	return string(KindError) + summary
}

// Argument is one handler argument serialized after an invoke line.
// The concrete types mirror the payload shapes the protocol knows how to
// hand to a handler on the far side: a verbatim line, an integer, a
// delimiter-framed block, or an encoded token list.
type Argument interface {
	appendWire(b *strings.Builder, unicode bool) error
}

// LineArg is a single verbatim line. It must not contain a newline.
type LineArg string

func (a LineArg) appendWire(b *strings.Builder, _ bool) error {
	if strings.ContainsAny(string(a), "\r\n") {
		return fmt.Errorf("%w: line argument with line break", ErrInvalidArgument)
	}
	b.WriteString(string(a))
	b.WriteByte('\n')
	return nil
}

// IntArg is an integer sent as its decimal text on one line.
type IntArg int

func (a IntArg) appendWire(b *strings.Builder, _ bool) error {
	b.WriteString(strconv.Itoa(int(a)))
	b.WriteByte('\n')
	return nil
}

// BlockArg is a multi-line payload sent with block framing.
type BlockArg []string

func (a BlockArg) appendWire(b *strings.Builder, _ bool) error {
	delim := PickDelimiter(a)
	b.WriteString(delim)
	b.WriteByte('\n')
	for _, line := range a {
		if strings.ContainsAny(line, "\r\n") {
			return fmt.Errorf("%w: block line with line break", ErrInvalidArgument)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(delim)
	b.WriteByte('\n')
	return nil
}

// TokenListArg is a token list sent as one encoded line. A trailing dot
// terminates the list for the receiving decoder.
type TokenListArg token.TokenList

func (a TokenListArg) appendWire(b *strings.Builder, unicode bool) error {
	data, err := token.EncodeBytes(token.TokenList(a), unicode)
	if err != nil {
		return err
	}
	b.Write(data)
	b.WriteString(".\n")
	return nil
}

// ReadTokenListLine strips the terminating dot and decodes the line.
func ReadTokenListLine(line string, unicode bool) (token.TokenList, error) {
	body, ok := strings.CutSuffix(line, ".")
	if !ok {
		return nil, fmt.Errorf("%w: token list line without terminator", ErrUnexpectedMessage)
	}
	return token.DecodeBytes([]byte(body), unicode)
}

// InvokeMessage assembles a complete invoke message: the invoke line
// followed by every argument, ready for a single write.
func InvokeMessage(name string, unicode bool, args ...Argument) ([]byte, error) {
	var b strings.Builder
	b.WriteString(InvokeLine(name))
	b.WriteByte('\n')
	for _, arg := range args {
		if err := arg.appendWire(&b, unicode); err != nil {
			return nil, err
		}
	}
	return []byte(b.String()), nil
}
