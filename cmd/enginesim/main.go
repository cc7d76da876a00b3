// enginesim speaks the engine side of the texlink protocol over stdio.
// It stands in for a real macro engine: it announces its mark, consumes
// the bootstrap block, and then either runs a short demo document that
// calls into the Process, or (with -serve) listens for Process-triggered
// calls.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/texlink/internal/engine"
	"github.com/danmuck/texlink/internal/logging"
	"github.com/danmuck/texlink/internal/session"
	"github.com/danmuck/texlink/internal/token"
	"github.com/danmuck/texlink/internal/wire"
)

func main() {
	markFlag := flag.String("mark", "p", "engine mark to announce (p, x or l)")
	serve := flag.Bool("serve", false, "listen for Process-triggered calls instead of running the demo document")
	flag.Parse()

	if err := run(*markFlag, *serve); err != nil {
		fmt.Fprintf(os.Stderr, "enginesim: %v\n", err)
		os.Exit(1)
	}
}

func run(mark string, serve bool) error {
	_ = godotenv.Load()
	logging.ConfigureRuntime()

	if len(mark) != 1 {
		return fmt.Errorf("engine mark must be a single character, got %q", mark)
	}

	ch := wire.NewChannel(os.Stdin, os.Stdout)
	defer ch.Close()

	sess, err := session.Announce(ch, mark[0], "")
	if err != nil {
		return err
	}
	defer sess.Close()

	d := engine.New(sess, simHandlers())

	bootstrap, err := d.ReadBootstrap()
	if err != nil {
		return err
	}
	log.Debug().Int("lines", len(bootstrap)).Msg("bootstrap received")

	if serve {
		return d.ListenLoop()
	}
	return demoDocument(d)
}

// demoDocument is the engine-side "document": a fixed sequence of calls
// into the Process, then a clean end of session.
func demoDocument(d *engine.Dispatcher) error {
	greeting, err := d.InvokeProcess("echo", wire.LineArg("hello from the engine"))
	if err != nil {
		return err
	}
	log.Info().Str("echo", greeting).Msg("process answered")

	product, err := d.InvokeProcess("compute", wire.LineArg("21*2"))
	if err != nil {
		return err
	}
	log.Info().Str("compute", product).Msg("process answered")

	if _, err := d.InvokeProcess("log", wire.BlockArg([]string{
		"demo document starting page 1",
		"compute answered " + product,
	})); err != nil {
		return err
	}

	list := token.Tokenize(`\hello world`, token.DocumentCatcodes())
	rendered, err := d.InvokeProcess("detokenize", wire.TokenListArg(list))
	if err != nil {
		return err
	}
	log.Info().Str("detokenize", rendered).Msg("process answered")

	return d.Finish()
}

// simHandlers is the engine-side handler table for -serve mode.
func simHandlers() map[string]engine.Handler {
	return map[string]engine.Handler{
		"double":   doubleHandler,
		"square":   squareHandler,
		"shutdown": shutdownHandler,
	}
}

// doubleHandler parses one integer line argument and returns twice its
// value.
func doubleHandler(d *engine.Dispatcher) error {
	arg, err := d.ReadLineArg()
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return err
	}
	return d.Return(strconv.Itoa(2 * n))
}

// squareHandler squares its argument by calling back into the Process
// before returning, exercising one level of nesting.
func squareHandler(d *engine.Dispatcher) error {
	arg, err := d.ReadLineArg()
	if err != nil {
		return err
	}
	if _, err := strconv.Atoi(arg); err != nil {
		return err
	}
	value, err := d.InvokeProcess("compute", wire.LineArg(arg+"*"+arg))
	if err != nil {
		return err
	}
	return d.Return(value)
}

func shutdownHandler(d *engine.Dispatcher) error {
	d.EndSession()
	return nil
}
