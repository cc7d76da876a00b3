package wire

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/danmuck/texlink/internal/testutil/testlog"
)

func TestBackChannelNetworkRoundTrip(t *testing.T) {
	testlog.Start(t)
	spec, accept, err := ListenBackChannel()
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if len(spec) < 2 || spec[0] != TransportNetwork {
		t.Fatalf("malformed transport spec %q", spec)
	}

	accepted := make(chan net.Conn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		conn, err := accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- conn
	}()

	w, err := DialBackChannel(spec)
	if err != nil {
		t.Fatalf("dial %q: %v", spec, err)
	}
	defer w.Close()

	var conn net.Conn
	select {
	case conn = <-accepted:
	case err := <-acceptErr:
		t.Fatalf("accept: %v", err)
	}
	defer conn.Close()

	if _, err := w.Write([]byte("across the back channel\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSuffix(line, "\n") != "across the back channel" {
		t.Fatalf("unexpected line %q", line)
	}
}

func TestDialBackChannelRejectsBadSpecs(t *testing.T) {
	testlog.Start(t)
	for _, spec := range []string{"", "zlocalhost", "mnot-a-port", "q1234"} {
		if _, err := DialBackChannel(spec); !errors.Is(err, ErrUnknownTransport) {
			t.Fatalf("spec %q: expected ErrUnknownTransport, got %v", spec, err)
		}
	}
}

func TestDialBackChannelMissingPipe(t *testing.T) {
	testlog.Start(t)
	if _, err := DialBackChannel("u/definitely/not/a/fifo"); err == nil {
		t.Fatal("expected an error for a missing pipe path")
	}
}
