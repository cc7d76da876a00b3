package wire

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/texlink/internal/testutil/testlog"
)

func TestChannelReadWrite(t *testing.T) {
	testlog.Start(t)
	left, right := Pipe()
	defer left.Close()
	defer right.Close()

	if err := right.WriteMessage("hello"); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := left.ReadLine()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "hello" {
		t.Fatalf("expected %q, got %q", "hello", line)
	}

	// a multi-line message arrives as individual lines, in order
	if err := left.WriteMessage("one", "two  ", ""); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, want := range []string{"one", "two  ", ""} {
		got, err := right.ReadLine()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestChannelReadTimeout(t *testing.T) {
	testlog.Start(t)
	left, right := Pipe(WithReadTimeout(50 * time.Millisecond))
	defer left.Close()
	defer right.Close()

	_, err := left.ReadLine()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !left.Broken() {
		t.Fatal("channel must be unusable after a timeout")
	}
	if err := left.WriteMessage("too late"); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed on write after timeout, got %v", err)
	}
	if _, err := left.ReadLine(); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed on read after timeout, got %v", err)
	}
}

func TestChannelPeerClose(t *testing.T) {
	testlog.Start(t)
	left, right := Pipe()
	defer left.Close()

	if err := right.WriteMessage("last words"); err != nil {
		t.Fatalf("write: %v", err)
	}
	right.Close()

	line, err := left.ReadLine()
	if err != nil {
		t.Fatalf("read buffered line: %v", err)
	}
	if line != "last words" {
		t.Fatalf("expected %q, got %q", "last words", line)
	}
	if _, err := left.ReadLine(); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("expected ErrChannelClosed, got %v", err)
	}
}

func TestBlockRoundTrip(t *testing.T) {
	testlog.Start(t)
	payloads := map[string][]string{
		"empty":           {},
		"single":          {"only line"},
		"trailing spaces": {"keep me   ", "\tindented", ""},
		"decimal lines":   {"123456789", "0", "999999999999"},
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			left, right := Pipe()
			defer left.Close()
			defer right.Close()

			sendErr := make(chan error, 1)
			go func() { sendErr <- right.SendBlock(payload) }()

			got, err := left.ReceiveBlock()
			if err != nil {
				t.Fatalf("receive: %v", err)
			}
			if err := <-sendErr; err != nil {
				t.Fatalf("send: %v", err)
			}
			if len(got) != len(payload) {
				t.Fatalf("expected %d lines, got %d", len(payload), len(got))
			}
			for i := range payload {
				if got[i] != payload[i] {
					t.Fatalf("line %d: expected %q, got %q", i, payload[i], got[i])
				}
			}
		})
	}
}

func TestBlockTruncated(t *testing.T) {
	testlog.Start(t)
	left, right := Pipe()
	defer left.Close()

	if err := right.WriteMessage("424242", "payload without terminator"); err != nil {
		t.Fatalf("write: %v", err)
	}
	right.Close()

	_, err := left.ReceiveBlock()
	if !errors.Is(err, ErrBlockTruncated) {
		t.Fatalf("expected ErrBlockTruncated, got %v", err)
	}
}

func TestPickDelimiterAvoidsPayload(t *testing.T) {
	testlog.Start(t)
	payload := []string{"first", "second", "third"}
	delim := PickDelimiter(payload)
	if delim == "" {
		t.Fatal("empty delimiter")
	}
	for _, line := range payload {
		if line == delim {
			t.Fatalf("delimiter %q collides with payload", delim)
		}
	}
}
