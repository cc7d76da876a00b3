package engine

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

// Handler is one Engine-side behavior the Process may trigger. The body
// is plain engine-side code: it reads its arguments through the
// dispatcher, may call InvokeProcess any number of times, and either
// calls Return once or finishes and gets an automatic empty return.
type Handler func(d *Dispatcher) error

type callFrame struct {
	name    string
	inbound bool // true when the Process asked us to execute
}

// Dispatcher is the Engine-side call state machine.
type Dispatcher struct {
	sess     *session.Session
	handlers map[string]Handler
	frames   []callFrame
	exiting  bool
	log      zerolog.Logger
}

// New builds a dispatcher over an announced session with the fixed
// startup handler table.
func New(sess *session.Session, table map[string]Handler) *Dispatcher {
	handlers := make(map[string]Handler, len(table))
	for name, h := range table {
		handlers[name] = h
	}
	return &Dispatcher{
		sess:     sess,
		handlers: handlers,
		log:      sess.Log.With().Str("component", "engine.dispatcher").Logger(),
	}
}

// Register adds a handler binding.
func (d *Dispatcher) Register(name string, h Handler) {
	d.handlers[name] = h
}

// Session returns the session this dispatcher acts on.
func (d *Dispatcher) Session() *session.Session { return d.sess }

// FrameDepth returns the number of in-flight call frames.
func (d *Dispatcher) FrameDepth() int { return len(d.frames) }

// ReadBootstrap consumes the bootstrap block the Process sends right
// after the handshake.
func (d *Dispatcher) ReadBootstrap() ([]string, error) {
	return d.sess.Channel().ReceiveBlock()
}

// RunOneTriggeredCall reads exactly one line, which must be an invoke
// trigger, and executes the named handler to completion (including any
// nested calls it issues). This is the engine's only way of reacting to
// the Process.
func (d *Dispatcher) RunOneTriggeredCall() error {
	if !d.sess.Usable() {
		return fmt.Errorf("triggered call: session %s", d.sess.Status())
	}
	line, err := d.sess.Channel().ReadLine()
	if err != nil {
		d.sess.Fail()
		return err
	}
	if len(line) == 0 || line[0] != wire.KindInvoke {
		d.sess.Fail()
		return fmt.Errorf("%w: expected invoke trigger, got %q", wire.ErrUnexpectedMessage, line)
	}
	return d.runTriggered(line[1:])
}

// ListenLoop services triggered calls until a handler ends the session,
// the Process closes the channel, or an error desynchronizes the
// protocol.
func (d *Dispatcher) ListenLoop() error {
	for !d.exiting {
		if err := d.RunOneTriggeredCall(); err != nil {
			if d.exiting && errors.Is(err, wire.ErrChannelClosed) {
				return nil
			}
			if errors.Is(err, wire.ErrChannelClosed) && d.sess.Status() == session.StatusExited {
				return nil
			}
			return err
		}
	}
	return nil
}

// EndSession marks the session finished. When called inside a handler
// the automatic return still runs; the listen loop stops afterwards.
func (d *Dispatcher) EndSession() {
	d.exiting = true
}

// Finish sends the end-of-session return to the Process outside any call
// frame and closes this side down. The engine-side program calls it at
// its own end of input.
func (d *Dispatcher) Finish() error {
	if len(d.frames) != 0 {
		return fmt.Errorf("%w: finish with %d open frames", wire.ErrUnexpectedMessage, len(d.frames))
	}
	d.exiting = true
	if err := d.sess.Channel().WriteMessage(wire.ReturnLine("")); err != nil {
		d.sess.Fail()
		return err
	}
	d.sess.SetStatus(session.StatusExited)
	return nil
}

// InvokeProcess asks the Process to execute a named handler and blocks
// until its matching return, servicing nested triggers in between.
func (d *Dispatcher) InvokeProcess(name string, args ...wire.Argument) (string, error) {
	if !d.sess.Usable() {
		return "", fmt.Errorf("invoke %q: session %s", name, d.sess.Status())
	}
	msg, err := wire.InvokeMessage(name, d.sess.Unicode(), args...)
	if err != nil {
		return "", fmt.Errorf("invoke %q: %w", name, err)
	}
	d.frames = append(d.frames, callFrame{name: name})
	started := time.Now()
	if err := d.sess.Channel().WriteRaw(msg); err != nil {
		d.sess.Fail()
		return "", fmt.Errorf("invoke %q: %w", name, err)
	}
	d.log.Debug().Str("handler", name).Int("depth", len(d.frames)).Msg("invoke process")
	value, err := d.await(name)
	observability.RecordCall("engine", name, time.Since(started), err == nil)
	return value, err
}

// await blocks on the reply for one outbound call, servicing nested
// triggers in between.
func (d *Dispatcher) await(name string) (string, error) {
	for {
		line, err := d.sess.Channel().ReadLine()
		if err != nil {
			d.sess.Fail()
			return "", fmt.Errorf("invoke %q: %w", name, err)
		}
		if line == "" {
			d.sess.Fail()
			return "", fmt.Errorf("%w: empty line", wire.ErrUnexpectedMessage)
		}
		switch line[0] {
		case wire.KindInvoke:
			if err := d.runTriggered(line[1:]); err != nil {
				return "", err
			}
		case wire.KindReturn:
			top := len(d.frames) - 1
			if top < 0 || d.frames[top].inbound {
				d.sess.Fail()
				return "", fmt.Errorf("%w: return with no outbound frame", wire.ErrUnexpectedMessage)
			}
			d.frames = d.frames[:top]
			return line[1:], nil
		case wire.KindError:
			summary := line[1:]
			if trace, err := d.sess.Channel().ReceiveBlock(); err == nil && len(trace) > 0 {
				d.log.Error().Strs("trace", trace).Msg("process-side failure")
			}
			d.sess.Fail()
			return "", fmt.Errorf("invoke %q: remote failure: %s", name, summary)
		default:
			d.sess.Fail()
			return "", fmt.Errorf("%w: %q", wire.ErrUnexpectedMessage, line)
		}
	}
}

// Return completes the currently executing triggered call exactly once.
func (d *Dispatcher) Return(value string) error {
	top := len(d.frames) - 1
	if top < 0 || !d.frames[top].inbound {
		return wire.ErrNoOpenFrame
	}
	frame := d.frames[top]
	d.frames = d.frames[:top]
	if err := d.sess.Channel().WriteMessage(wire.ReturnLine(value)); err != nil {
		d.sess.Fail()
		return err
	}
	d.log.Debug().Str("handler", frame.name).Int("depth", len(d.frames)).Msg("return")
	return nil
}

func (d *Dispatcher) runTriggered(name string) error {
	h, ok := d.handlers[name]
	if !ok {
		d.fatal(name, wire.ErrUnknownHandler)
		return fmt.Errorf("%w: %q", wire.ErrUnknownHandler, name)
	}
	d.frames = append(d.frames, callFrame{name: name, inbound: true})
	d.log.Debug().Str("handler", name).Int("depth", len(d.frames)).Msg("triggered call")

	if err := h(d); err != nil {
		d.fatal(name, err)
		return fmt.Errorf("handler %q: %w", name, err)
	}
	if top := len(d.frames) - 1; top >= 0 && d.frames[top].inbound {
		if err := d.Return(""); err != nil && !errors.Is(err, wire.ErrNoOpenFrame) {
			return err
		}
	}
	return nil
}

// fatal reports an engine-side fatal error to the Process. Engine errors
// are fatal to the whole session, mirroring a macro engine aborting on an
// undefined control sequence.
func (d *Dispatcher) fatal(name string, cause error) {
	summary := fmt.Sprintf("handler %q: %v", name, cause)
	d.log.Error().Str("handler", name).Err(cause).Msg("engine-side failure")
	observability.RecordRemoteFailure("engine", name)
	if !d.sess.Channel().Broken() {
		_ = d.sess.Channel().WriteMessage(wire.ErrorLine(summary))
		_ = d.sess.Channel().SendBlock([]string{summary})
	}
	d.sess.Fail()
}

// Argument readers for handler bodies, consumed in contract order.

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
