package process

import (
	"fmt"
	"strings"
)

// RemoteError is the distinguished remote-failure value: the peer's
// handler body failed. It travels up through every enclosing InvokeRemote
// as an ordinary error result, carrying the originating handler and the
// peer-side trace, and ends the session (cross-level recovery is not
// part of the protocol).
type RemoteError struct {
	Handler string
	Summary string
	Trace   []string
}

func (e *RemoteError) Error() string {
	if e.Handler == "" {
		return fmt.Sprintf("remote failure: %s", e.Summary)
	}
	return fmt.Sprintf("remote failure in %q: %s", e.Handler, e.Summary)
}

// FullTrace returns the peer-side trace as one block of text.
func (e *RemoteError) FullTrace() string {
	return strings.Join(e.Trace, "\n")
}
