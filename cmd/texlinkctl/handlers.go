package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/texlink/internal/process"
)

// builtinHandlers is the fixed Process-side handler table: the small set
// of behaviors an engine document may trigger.
func builtinHandlers() map[string]process.Handler {
	return map[string]process.Handler{
		"echo":       echoHandler,
		"compute":    computeHandler,
		"log":        logHandler,
		"detokenize": detokenizeHandler,
	}
}

// echoHandler returns its single line argument unchanged.
func echoHandler(d *process.Dispatcher) error {
	line, err := d.ReadLineArg()
	if err != nil {
		return err
	}
	return d.ReturnToCaller(line)
}

// computeHandler evaluates one integer expression of the form
// "<a>", "<a>+<b>", "<a>-<b>", "<a>*<b>" or "<a>/<b>".
func computeHandler(d *process.Dispatcher) error {
	expr, err := d.ReadLineArg()
	if err != nil {
		return err
	}
	n, err := evalExpr(expr)
	if err != nil {
		return err
	}
	return d.ReturnToCaller(strconv.Itoa(n))
}

// logHandler writes a block argument to the process log.
func logHandler(d *process.Dispatcher) error {
	lines, err := d.ReadBlockArg()
	if err != nil {
		return err
	}
	for _, line := range lines {
		log.Info().Str("engine", line).Msg("engine log")
	}
	return nil
}

// detokenizeHandler renders a token-list argument readably.
func detokenizeHandler(d *process.Dispatcher) error {
	list, err := d.ReadTokenListArg()
	if err != nil {
		return err
	}
	return d.ReturnToCaller(strings.TrimSuffix(list.String(), " "))
}

func evalExpr(expr string) (int, error) {
	expr = strings.TrimSpace(expr)
	for _, op := range []string{"+", "-", "*", "/"} {
		a, b, found := strings.Cut(expr, op)
		if !found || a == "" {
			continue
		}
		lhs, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			continue
		}
		rhs, err := strconv.Atoi(strings.TrimSpace(b))
		if err != nil {
			return 0, fmt.Errorf("bad operand in %q", expr)
		}
		switch op {
		case "+":
			return lhs + rhs, nil
		case "-":
			return lhs - rhs, nil
		case "*":
			return lhs * rhs, nil
		case "/":
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero in %q", expr)
			}
			return lhs / rhs, nil
		}
	}
	n, err := strconv.Atoi(expr)
	if err != nil {
		return 0, fmt.Errorf("bad expression %q", expr)
	}
	return n, nil
}
