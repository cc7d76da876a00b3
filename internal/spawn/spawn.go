// Package spawn launches a peer program and attaches its standard streams
// as a protocol channel.
//
// Ownership boundary: spawn owns the child process lifecycle (start, wait,
// kill) and the pipe plumbing into a wire.Channel. It knows nothing about
// the messages that flow through the channel.
package spawn

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/texlink/internal/wire"
)

// Peer is a spawned child speaking the protocol over its stdin/stdout.
// Its stderr passes through to ours.
type Peer struct {
	cmd *exec.Cmd
	ch  *wire.Channel
}

// Start launches the command and returns once it is running. The returned
// peer's channel reads the child's stdout and writes its stdin.
func Start(name string, args []string, opts ...wire.Option) (*Peer, error) {
	if name == "" {
		return nil, fmt.Errorf("spawn: empty command")
	}
	cmd := exec.Command(name, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("spawn %q: %w", name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("spawn %q: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %q: %w", name, err)
	}
	log.Debug().Str("command", name).Strs("args", args).Int("pid", cmd.Process.Pid).Msg("peer spawned")

	ch := wire.NewChannel(stdout, stdin, append([]wire.Option{wire.WithCloser(stdin)}, opts...)...)
	return &Peer{cmd: cmd, ch: ch}, nil
}

// Channel returns the protocol channel attached to the child.
func (p *Peer) Channel() *wire.Channel { return p.ch }

// Wait closes our end and blocks until the child exits.
func (p *Peer) Wait() error {
	p.ch.Close()
	return p.cmd.Wait()
}

// Kill terminates the child without waiting for a clean protocol end.
func (p *Peer) Kill() error {
	p.ch.Close()
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil {
		return err
	}
	_ = p.cmd.Wait()
	return nil
}
