package wire

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Channel is one side's view of the two one-directional byte streams:
// it reads lines the peer produces and writes lines for the peer to read.
// A background goroutine pumps incoming lines into a buffered queue so a
// read deadline can be applied without platform-specific descriptor
// tricks; the protocol itself stays strictly turn-based.
type Channel struct {
	w       io.Writer
	lines   chan readResult
	timeout time.Duration
	broken  atomic.Bool
	closers []io.Closer
	log     zerolog.Logger
}

type readResult struct {
	line string
	err  error
}

// Option configures a Channel.
type Option func(*Channel)

// WithReadTimeout bounds every blocking read. Zero means unbounded, which
// is the engine-side arrangement (its read primitive cannot time out).
func WithReadTimeout(d time.Duration) Option {
	return func(c *Channel) { c.timeout = d }
}

// WithCloser attaches an underlying resource closed with the channel.
func WithCloser(cl io.Closer) Option {
	return func(c *Channel) { c.closers = append(c.closers, cl) }
}

// NewChannel wraps the incoming stream r and the outgoing stream w.
func NewChannel(r io.Reader, w io.Writer, opts ...Option) *Channel {
	c := &Channel{
		w:     w,
		lines: make(chan readResult, 1),
		log:   log.With().Str("component", "wire.channel").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.pump(r)
	return c
}

func (c *Channel) pump(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if line != "" {
				// final unterminated fragment still counts as a line
				c.lines <- readResult{line: strings.TrimSuffix(line, "\n")}
			}
			c.lines <- readResult{err: ErrChannelClosed}
			return
		}
		c.lines <- readResult{line: strings.TrimSuffix(line, "\n")}
	}
}

// ReadLine blocks for the next line from the peer, without its
// terminating newline. It fails with ErrTimeout when the configured bound
// elapses and with ErrChannelClosed at end of stream; both mark the
// channel unusable.
func (c *Channel) ReadLine() (string, error) {
	if c.broken.Load() {
		return "", ErrChannelClosed
	}
	if c.timeout <= 0 {
		res := <-c.lines
		return c.finishRead(res)
	}
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case res := <-c.lines:
		return c.finishRead(res)
	case <-timer.C:
		c.broken.Store(true)
		c.log.Error().Dur("timeout", c.timeout).Msg("peer read timed out")
		return "", fmt.Errorf("%w after %v", ErrTimeout, c.timeout)
	}
}

func (c *Channel) finishRead(res readResult) (string, error) {
	if res.err != nil {
		c.broken.Store(true)
		return "", res.err
	}
	c.log.Trace().Str("dir", "recv").Str("line", shorten(res.line)).Send()
	return res.line, nil
}

// WriteMessage sends one protocol message: each element becomes one
// newline-terminated line, written to the peer in a single write.
func (c *Channel) WriteMessage(lines ...string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return c.WriteRaw([]byte(b.String()))
}

// WriteRaw sends pre-assembled, newline-terminated message bytes.
func (c *Channel) WriteRaw(data []byte) error {
	if c.broken.Load() {
		return ErrChannelClosed
	}
	if _, err := c.w.Write(data); err != nil {
		c.broken.Store(true)
		return fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	c.log.Trace().Str("dir", "send").Str("data", shorten(string(data))).Send()
	return nil
}

// Broken reports whether the channel has been torn down (timeout, peer
// close or explicit Close). A broken channel refuses further IO.
func (c *Channel) Broken() bool {
	return c.broken.Load()
}

// Close marks the channel unusable and closes any attached resources.
func (c *Channel) Close() error {
	c.broken.Store(true)
	var first error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func shorten(s string) string {
	s = strings.TrimSuffix(s, "\n")
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
