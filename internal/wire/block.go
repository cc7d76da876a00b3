package wire

import (
	"errors"
	"math/rand"
	"strconv"
)

// Block transfer: a multi-line opaque payload framed by a delimiter line
// sent before and after it. The delimiter is a random decimal string
// re-rolled until it matches no payload line, so the payload needs no
// escaping and trailing whitespace survives byte-for-byte.

// PickDelimiter returns a delimiter line that does not occur verbatim in
// the payload.
func PickDelimiter(lines []string) string {
	for {
		delim := strconv.FormatInt(rand.Int63n(1_000_000_000_000), 10)
		if !containsLine(lines, delim) {
			return delim
		}
	}
}

func containsLine(lines []string, want string) bool {
	for _, line := range lines {
		if line == want {
			return true
		}
	}
	return false
}

// SendBlock frames the payload with a per-call delimiter and writes the
// whole block as one message.
func (c *Channel) SendBlock(lines []string) error {
	delim := PickDelimiter(lines)
	msg := make([]string, 0, len(lines)+2)
	msg = append(msg, delim)
	msg = append(msg, lines...)
	msg = append(msg, delim)
	return c.WriteMessage(msg...)
}

// ReceiveBlock reads the delimiter line, then accumulates payload lines
// until a line identical to the delimiter arrives. The terminator is
// discarded. A channel that closes or times out before the terminator
// fails with ErrBlockTruncated.
func (c *Channel) ReceiveBlock() ([]string, error) {
	delim, err := c.ReadLine()
	if err != nil {
		return nil, blockErr(err)
	}
	lines := []string{}
	for {
		line, err := c.ReadLine()
		if err != nil {
			return nil, blockErr(err)
		}
		if line == delim {
			return lines, nil
		}
		lines = append(lines, line)
	}
}

func blockErr(err error) error {
	if errors.Is(err, ErrChannelClosed) {
		return ErrBlockTruncated
	}
	return err
}
