package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/texlink/internal/session"
	"github.com/danmuck/texlink/internal/testutil/testlog"
	"github.com/danmuck/texlink/internal/token"
	"github.com/danmuck/texlink/internal/wire"
)

// announce sets up the engine side of a pipe pair and drains the identity
// line on the raw peer channel.
func announce(t *testing.T, mark byte, table map[string]Handler) (*Dispatcher, *wire.Channel) {
	t.Helper()
	peerCh, engCh := wire.Pipe()
	t.Cleanup(func() {
		peerCh.Close()
		engCh.Close()
	})

	sess, err := session.Announce(engCh, mark, "")
	if err != nil {
		t.Fatalf("announce: %v", err)
	}
	line, err := peerCh.ReadLine()
	if err != nil {
		t.Fatalf("read identity line: %v", err)
	}
	if line != string(mark) {
		t.Fatalf("expected identity line %q, got %q", string(mark), line)
	}
	return New(sess, table), peerCh
}

func TestReadBootstrap(t *testing.T) {
	testlog.Start(t)
	d, peer := announce(t, 'p', nil)

	if err := peer.SendBlock([]string{"first", "second"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	lines, err := d.ReadBootstrap()
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if len(lines) != 2 || lines[0] != "first" || lines[1] != "second" {
		t.Fatalf("bootstrap payload lost: %v", lines)
	}
}

func TestTriggeredCallWithArguments(t *testing.T) {
	testlog.Start(t)
	var gotBlock []string
	var gotList token.TokenList
	dump := func(d *Dispatcher) error {
		block, err := d.ReadBlockArg()
		if err != nil {
			return err
		}
		gotBlock = block
		list, err := d.ReadTokenListArg()
		if err != nil {
			return err
		}
		gotList = list
		return d.Return(strings.Join(block, ","))
	}
	d, peer := announce(t, 'x', map[string]Handler{"dump": dump})

	list := token.Tokenize(`\relax x`, token.DocumentCatcodes())
	msg, err := wire.InvokeMessage("dump", true,
		wire.BlockArg([]string{"alpha", "beta"}),
		wire.TokenListArg(list),
	)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if err := peer.WriteRaw(msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := d.RunOneTriggeredCall(); err != nil {
		t.Fatalf("triggered call: %v", err)
	}
	reply, err := peer.ReadLine()
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if reply != "ralpha,beta" {
		t.Fatalf("expected %q, got %q", "ralpha,beta", reply)
	}
	if len(gotBlock) != 2 {
		t.Fatalf("block argument lost: %v", gotBlock)
	}
	if !gotList.Equal(list) {
		t.Fatalf("token list argument lost: %v != %v", gotList, list)
	}
	if d.FrameDepth() != 0 {
		t.Fatalf("expected empty frame stack, got depth %d", d.FrameDepth())
	}
}

func TestRunOneTriggeredCallRejectsReturnLine(t *testing.T) {
	testlog.Start(t)
	d, peer := announce(t, 'p', nil)

	if err := peer.WriteMessage("rorphan value"); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := d.RunOneTriggeredCall()
	if !errors.Is(err, wire.ErrUnexpectedMessage) {
		t.Fatalf("expected ErrUnexpectedMessage, got %v", err)
	}
	if d.Session().Status() != session.StatusErrored {
		t.Fatalf("expected errored session, got %v", d.Session().Status())
	}
}

func TestUnknownTriggerIsFatal(t *testing.T) {
	testlog.Start(t)
	d, peer := announce(t, 'p', nil)

	if err := peer.WriteMessage(wire.InvokeLine("ghost")); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := d.RunOneTriggeredCall()
	if !errors.Is(err, wire.ErrUnknownHandler) {
		t.Fatalf("expected ErrUnknownHandler, got %v", err)
	}

	line, err := peer.ReadLine()
	if err != nil {
		t.Fatalf("read failure line: %v", err)
	}
	if len(line) == 0 || line[0] != wire.KindError {
		t.Fatalf("expected a remote-failure line, got %q", line)
	}
	trace, err := peer.ReceiveBlock()
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	if len(trace) == 0 {
		t.Fatal("expected a non-empty trace block")
	}
}

func TestReturnOutsideFrame(t *testing.T) {
	testlog.Start(t)
	d, _ := announce(t, 'p', nil)
	if err := d.Return("orphan"); !errors.Is(err, wire.ErrNoOpenFrame) {
		t.Fatalf("expected ErrNoOpenFrame, got %v", err)
	}
}

func TestFinish(t *testing.T) {
	testlog.Start(t)
	d, peer := announce(t, 'p', nil)

	if err := d.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	line, err := peer.ReadLine()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "r" {
		t.Fatalf("expected the bare end-of-session return, got %q", line)
	}
	if d.Session().Status() != session.StatusExited {
		t.Fatalf("expected exited session, got %v", d.Session().Status())
	}
}

func TestEightBitSessionRejectsWideTokens(t *testing.T) {
	testlog.Start(t)
	d, _ := announce(t, 'p', nil)

	_, err := d.InvokeProcess("expand", wire.TokenListArg(token.TokenList{token.Letter('ℝ')}))
	if !errors.Is(err, token.ErrNotRepresentable) {
		t.Fatalf("expected ErrNotRepresentable, got %v", err)
	}
}
