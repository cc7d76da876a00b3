package session

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/texlink/internal/wire"
)

// Status tracks which side of the conversation holds the turn.
//
//   - waiting: the peer engine is waiting for this side to write
//   - running: the peer engine is running and this side must read
//   - errored: the session is desynchronized or failed; no further IO
//   - exited: the peer ended the session cleanly
type Status uint8

const (
	StatusWaiting Status = iota
	StatusRunning
	StatusErrored
	StatusExited
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusRunning:
		return "running"
	case StatusErrored:
		return "errored"
	case StatusExited:
		return "exited"
	}
	return "unknown"
}

// Session is the single explicit holder of handshake and channel state.
// Every dispatcher operation takes the session it acts on; there is no
// process-wide implicit state. The session is owned by exactly one
// logical thread of control.
type Session struct {
	ch     *wire.Channel
	info   EngineInfo
	extra  string
	status Status
	Log    zerolog.Logger
}

// Open performs the Process-side half of the handshake: it reads exactly
// one identity line before any call frame may exist. The first byte must
// be a known engine mark; anything else fails with ErrHandshakeExpected.
// The rest of the line is the trailing content of the prior handshake
// line, kept for the bootstrap layer.
func Open(ch *wire.Channel) (*Session, error) {
	line, err := ch.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("read identity line: %w", err)
	}
	if line == "" {
		return nil, fmt.Errorf("%w: empty identity line", wire.ErrHandshakeExpected)
	}
	info, ok := LookupMark(line[0])
	if !ok {
		return nil, fmt.Errorf("%w: unknown engine mark %q", wire.ErrHandshakeExpected, line[0])
	}
	s := &Session{
		ch:     ch,
		info:   info,
		extra:  line[1:],
		status: StatusWaiting,
		Log:    log.With().Str("component", "session").Str("engine", info.Name).Logger(),
	}
	s.Log.Debug().Bool("unicode", info.Unicode).Msg("session open")
	return s, nil
}

// Announce performs the Engine-side half of the handshake: it writes the
// identity line (mark plus trailing content) and returns a session in
// running state, since the engine immediately goes back to executing its
// own input until told to listen.
func Announce(ch *wire.Channel, mark byte, extra string) (*Session, error) {
	info, ok := LookupMark(mark)
	if !ok {
		return nil, fmt.Errorf("%w: unknown engine mark %q", wire.ErrHandshakeExpected, mark)
	}
	if err := ch.WriteMessage(string(mark) + extra); err != nil {
		return nil, fmt.Errorf("write identity line: %w", err)
	}
	return &Session{
		ch:     ch,
		info:   info,
		extra:  extra,
		status: StatusRunning,
		Log:    log.With().Str("component", "session").Str("engine", info.Name).Str("side", "engine").Logger(),
	}, nil
}

// Channel returns the session's channel pair.
func (s *Session) Channel() *wire.Channel { return s.ch }

// Engine returns the peer engine's capability profile.
func (s *Session) Engine() EngineInfo { return s.info }

// Unicode reports whether token lists may use the extended character set.
func (s *Session) Unicode() bool { return s.info.Unicode }

// HandshakeExtra returns the trailing content of the identity line.
func (s *Session) HandshakeExtra() string { return s.extra }

// Status returns the current session status.
func (s *Session) Status() Status { return s.status }

// SetStatus transitions the status machine. Dispatchers own the legal
// transitions; the session only refuses to leave a terminal state.
func (s *Session) SetStatus(st Status) {
	if s.status == StatusErrored || s.status == StatusExited {
		return
	}
	s.status = st
}

// Fail marks the session desynchronized. All further operations on
// either dispatcher fail fast.
func (s *Session) Fail() {
	if s.status != StatusErrored {
		s.Log.Error().Str("was", s.status.String()).Msg("session failed")
	}
	s.status = StatusErrored
}

// Usable reports whether protocol operations may still run.
func (s *Session) Usable() bool {
	return s.status == StatusWaiting || s.status == StatusRunning
}

// Close tears the session down. Idempotent.
func (s *Session) Close() error {
	if s.status != StatusErrored {
		s.status = StatusExited
	}
	return s.ch.Close()
}
