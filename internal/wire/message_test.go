package wire

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/texlink/internal/testutil/testlog"
	"github.com/danmuck/texlink/internal/token"
)

func TestInvokeMessageShape(t *testing.T) {
	testlog.Start(t)
	msg, err := InvokeMessage("compute", true, LineArg("21*2"), IntArg(7))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	want := "icompute\n21*2\n7\n"
	if string(msg) != want {
		t.Fatalf("expected %q, got %q", want, msg)
	}
}

func TestLineArgRejectsLineBreaks(t *testing.T) {
	testlog.Start(t)
	_, err := InvokeMessage("echo", true, LineArg("two\nlines"))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	_, err = InvokeMessage("echo", true, LineArg("carriage\rreturn"))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestBlockArgFraming(t *testing.T) {
	testlog.Start(t)
	payload := []string{"alpha", "beta  ", ""}
	msg, err := InvokeMessage("log", true, BlockArg(payload))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(msg), "\n"), "\n")
	// invoke line, delimiter, payload, delimiter
	if len(lines) != len(payload)+3 {
		t.Fatalf("expected %d lines, got %d: %q", len(payload)+3, len(lines), lines)
	}
	if lines[0] != "ilog" {
		t.Fatalf("expected invoke line, got %q", lines[0])
	}
	delim := lines[1]
	if lines[len(lines)-1] != delim {
		t.Fatalf("block not terminated by its delimiter: %q", lines)
	}
	for i, want := range payload {
		if lines[2+i] != want {
			t.Fatalf("payload line %d: expected %q, got %q", i, want, lines[2+i])
		}
	}
}

func TestBlockArgRejectsLineBreaks(t *testing.T) {
	testlog.Start(t)
	_, err := InvokeMessage("log", true, BlockArg([]string{"bad\nline"}))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestTokenListArgRoundTrip(t *testing.T) {
	testlog.Start(t)
	list := token.Tokenize(`\def\a{b}`, token.DocumentCatcodes())
	msg, err := InvokeMessage("expand", true, TokenListArg(list))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(msg), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lines)
	}
	back, err := ReadTokenListLine(lines[1], true)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !back.Equal(list) {
		t.Fatalf("token list did not survive the trip: %v != %v", back, list)
	}
}

func TestReadTokenListLineRequiresTerminator(t *testing.T) {
	testlog.Start(t)
	_, err := ReadTokenListLine("Ba", true)
	if !errors.Is(err, ErrUnexpectedMessage) {
		t.Fatalf("expected ErrUnexpectedMessage, got %v", err)
	}
}

func TestKindLines(t *testing.T) {
	testlog.Start(t)
	if got := InvokeLine("double"); got != "idouble" {
		t.Fatalf("invoke line: %q", got)
	}
	if got := ReturnLine("42"); got != "r42" {
		t.Fatalf("return line: %q", got)
	}
	if got := ReturnLine(""); got != "r" {
		t.Fatalf("empty return line: %q", got)
	}
	if got := ErrorLine("handler panicked"); got != "ehandler panicked" {
		t.Fatalf("error line: %q", got)
	}
}
