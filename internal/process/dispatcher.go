package process

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/texlink/internal/observability"
	"github.com/danmuck/texlink/internal/session"
	"github.com/danmuck/texlink/internal/token"
	"github.com/danmuck/texlink/internal/wire"
)

// Handler is one Process-side behavior the engine may trigger. It reads
// its own arguments through the dispatcher per its contract and may issue
// nested InvokeRemote calls before finishing. A handler that finishes
// without calling ReturnToCaller gets an automatic empty return; a
// non-nil error becomes a remote-failure message and ends the session.
type Handler func(d *Dispatcher) error

type direction uint8

const (
	outbound direction = iota // we asked the engine to execute
	inbound                   // the engine asked us to execute
)

type callFrame struct {
	name string
	dir  direction
}

// Dispatcher is the Process-side call state machine. It owns the frame
// stack exclusively; handlers run synchronously on the invoking
// goroutine, so there is never concurrent handler execution.
type Dispatcher struct {
	sess     *session.Session
	handlers map[string]Handler
	frames   []callFrame
	log      zerolog.Logger
}

// New builds a dispatcher over an open session with the fixed startup
// handler table.
func New(sess *session.Session, table map[string]Handler) *Dispatcher {
	handlers := make(map[string]Handler, len(table))
	for name, h := range table {
		handlers[name] = h
	}
	return &Dispatcher{
		sess:     sess,
		handlers: handlers,
		log:      sess.Log.With().Str("component", "process.dispatcher").Logger(),
	}
}

// Register adds a convenience binding. Handlers may register bindings for
// themselves mid-session; the core table is fixed at startup.
func (d *Dispatcher) Register(name string, h Handler) {
	d.handlers[name] = h
}

// Session returns the session this dispatcher acts on.
func (d *Dispatcher) Session() *session.Session { return d.sess }

// FrameDepth returns the number of in-flight call frames.
func (d *Dispatcher) FrameDepth() int { return len(d.frames) }

// Bootstrap sends the engine-side bootstrap payload as a block, right
// after the handshake and before the first call frame. Afterwards the
// engine holds the turn.
func (d *Dispatcher) Bootstrap(lines []string) error {
	if d.sess.Status() != session.StatusWaiting {
		return fmt.Errorf("%w: bootstrap in status %s", wire.ErrUnexpectedMessage, d.sess.Status())
	}
	if err := d.sess.Channel().SendBlock(lines); err != nil {
		d.sess.Fail()
		return err
	}
	d.sess.SetStatus(session.StatusRunning)
	return nil
}

// Run is the top-level receive loop: it services engine-triggered calls
// until the engine ends the session with a final return. Returns nil on
// clean end of session.
func (d *Dispatcher) Run() error {
	if d.sess.Status() != session.StatusRunning {
		return fmt.Errorf("%w: run in status %s", wire.ErrUnexpectedMessage, d.sess.Status())
	}
	_, err := d.receive(true)
	return err
}

// InvokeRemote asks the engine to execute a named handler and blocks
// until its matching return arrives. Nested invoke requests from the
// engine are serviced synchronously in between, which is what allows
// unbounded mutual nesting over a strictly turn-based channel.
func (d *Dispatcher) InvokeRemote(name string, args ...wire.Argument) (string, error) {
	if !d.sess.Usable() {
		return "", fmt.Errorf("invoke %q: session %s", name, d.sess.Status())
	}
	if d.sess.Status() != session.StatusWaiting {
		return "", fmt.Errorf("%w: invoke %q while engine holds the turn", wire.ErrUnexpectedMessage, name)
	}
	msg, err := wire.InvokeMessage(name, d.sess.Unicode(), args...)
	if err != nil {
		return "", fmt.Errorf("invoke %q: %w", name, err)
	}
	d.frames = append(d.frames, callFrame{name: name, dir: outbound})
	started := time.Now()
	if err := d.sess.Channel().WriteRaw(msg); err != nil {
		d.sess.Fail()
		return "", fmt.Errorf("invoke %q: %w", name, err)
	}
	d.sess.SetStatus(session.StatusRunning)
	d.log.Debug().Str("handler", name).Int("depth", len(d.frames)).Msg("invoke remote")
	value, err := d.receive(false)
	observability.RecordCall("process", name, time.Since(started), err == nil)
	if err != nil {
		return "", fmt.Errorf("invoke %q: %w", name, err)
	}
	return value, nil
}

// ReturnToCaller completes the currently executing inbound call exactly
// once. Calling it with no open inbound frame, or twice for the same
// frame, fails with ErrNoOpenFrame.
func (d *Dispatcher) ReturnToCaller(value string) error {
	top := len(d.frames) - 1
	if top < 0 || d.frames[top].dir != inbound {
		return wire.ErrNoOpenFrame
	}
	frame := d.frames[top]
	d.frames = d.frames[:top]
	if err := d.sess.Channel().WriteMessage(wire.ReturnLine(value)); err != nil {
		d.sess.Fail()
		return err
	}
	d.sess.SetStatus(session.StatusRunning)
	d.log.Debug().Str("handler", frame.name).Int("depth", len(d.frames)).Msg("return to caller")
	return nil
}

// receive is the reentrant read loop shared by Run and InvokeRemote.
// When topLevel, a return line means the engine ended the session;
// otherwise it completes the top outbound frame.
func (d *Dispatcher) receive(topLevel bool) (string, error) {
	for {
		line, err := d.sess.Channel().ReadLine()
		if err != nil {
			d.sess.Fail()
			return "", err
		}
		if line == "" {
			d.sess.Fail()
			return "", fmt.Errorf("%w: empty line", wire.ErrUnexpectedMessage)
		}
		switch line[0] {
		case wire.KindInvoke:
			if err := d.runLocal(line[1:]); err != nil {
				return "", err
			}
		case wire.KindReturn:
			if topLevel {
				if len(d.frames) != 0 {
					d.sess.Fail()
					return "", fmt.Errorf("%w: session end with %d open frames", wire.ErrUnexpectedMessage, len(d.frames))
				}
				d.sess.SetStatus(session.StatusExited)
				d.log.Debug().Msg("session ended by engine")
				return line[1:], nil
			}
			top := len(d.frames) - 1
			if top < 0 || d.frames[top].dir != outbound {
				d.sess.Fail()
				return "", fmt.Errorf("%w: return with no outbound frame", wire.ErrUnexpectedMessage)
			}
			d.frames = d.frames[:top]
			d.sess.SetStatus(session.StatusWaiting)
			return line[1:], nil
		case wire.KindError:
			remote := &RemoteError{Summary: line[1:]}
			if top := len(d.frames) - 1; top >= 0 {
				remote.Handler = d.frames[top].name
			}
			if trace, err := d.sess.Channel().ReceiveBlock(); err == nil {
				remote.Trace = trace
			}
			d.sess.Fail()
			return "", remote
		default:
			d.sess.Fail()
			return "", fmt.Errorf("%w: %q", wire.ErrUnexpectedMessage, line)
		}
	}
}

// runLocal executes one engine-triggered handler synchronously.
func (d *Dispatcher) runLocal(name string) error {
	h, ok := d.handlers[name]
	if !ok {
		err := fmt.Errorf("%w: %q", wire.ErrUnknownHandler, name)
		d.failRemote(name, err)
		return err
	}
	d.frames = append(d.frames, callFrame{name: name, dir: inbound})
	d.sess.SetStatus(session.StatusWaiting)
	d.log.Debug().Str("handler", name).Int("depth", len(d.frames)).Msg("engine-triggered call")

	if err := h(d); err != nil {
		d.failRemote(name, err)
		return fmt.Errorf("handler %q: %w", name, err)
	}
	// automatic empty return when the handler body did not return
	if top := len(d.frames) - 1; top >= 0 && d.frames[top].dir == inbound {
		if err := d.ReturnToCaller(""); err != nil && !errors.Is(err, wire.ErrNoOpenFrame) {
			return err
		}
	}
	return nil
}

// failRemote reports a local handler failure to the engine as the
// distinguished remote-failure message and ends the session.
func (d *Dispatcher) failRemote(name string, cause error) {
	summary := fmt.Sprintf("handler %q: %v", name, cause)
	d.log.Error().Str("handler", name).Err(cause).Msg("handler failed")
	observability.RecordRemoteFailure("process", name)
	if !d.sess.Channel().Broken() {
		_ = d.sess.Channel().WriteMessage(wire.ErrorLine(summary))
		_ = d.sess.Channel().SendBlock([]string{summary})
	}
	d.sess.Fail()
}

// Argument readers for handler bodies. The engine writes a handler's
// arguments immediately after the invoke line, so these simply consume
// the channel in contract order.

// ReadLineArg reads one verbatim line argument.
func (d *Dispatcher) ReadLineArg() (string, error) {
	return d.sess.Channel().ReadLine()
}

// ReadBlockArg reads one delimiter-framed block argument.
func (d *Dispatcher) ReadBlockArg() ([]string, error) {
	return d.sess.Channel().ReceiveBlock()
}

// ReadTokenListArg reads one encoded token-list argument.
func (d *Dispatcher) ReadTokenListArg() (token.TokenList, error) {
	line, err := d.sess.Channel().ReadLine()
	if err != nil {
		return nil, err
	}
	return wire.ReadTokenListLine(line, d.sess.Unicode())
}
