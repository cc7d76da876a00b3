package wire

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
)

// Back-channel transport negotiation. The Process half announces a
// one-line transport spec before the session starts; whoever holds the
// other end parses the spec and connects the outgoing stream accordingly.
//
// Spec forms:
//   - "m<port>"  localhost TCP, the announcer is listening on <port>
//   - "u<path>"  open <path> (a pipe or fifo) for writing

const (
	TransportNetwork byte = 'm'
	TransportPipe    byte = 'u'
)

// ListenBackChannel opens a localhost listener on a free port and returns
// its transport spec plus an accept function for the single peer
// connection.
func ListenBackChannel() (string, func() (net.Conn, error), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("wire: listen back channel: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	spec := string(TransportNetwork) + strconv.Itoa(port)
	accept := func() (net.Conn, error) {
		defer ln.Close()
		return ln.Accept()
	}
	return spec, accept, nil
}

// DialBackChannel connects the outgoing stream described by a transport
// spec line.
func DialBackChannel(spec string) (io.WriteCloser, error) {
	if spec == "" {
		return nil, fmt.Errorf("%w: empty spec", ErrUnknownTransport)
	}
	body := spec[1:]
	switch spec[0] {
	case TransportNetwork:
		port, err := strconv.Atoi(strings.TrimSpace(body))
		if err != nil {
			return nil, fmt.Errorf("%w: bad port %q", ErrUnknownTransport, body)
		}
		conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			return nil, fmt.Errorf("wire: dial back channel: %w", err)
		}
		return conn, nil
	case TransportPipe:
		f, err := os.OpenFile(strings.TrimSpace(body), os.O_WRONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("wire: open back channel pipe: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, spec[0])
	}
}

// Pipe returns two in-memory channels connected back to back, one per
// peer. Used for in-process peers and tests.
func Pipe(opts ...Option) (*Channel, *Channel) {
	ar, aw := io.Pipe()
	br, bw := io.Pipe()
	left := NewChannel(ar, bw, append([]Option{WithCloser(ar), WithCloser(bw)}, opts...)...)
	right := NewChannel(br, aw, WithCloser(br), WithCloser(aw))
	return left, right
}
