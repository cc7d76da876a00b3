package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/texlink/internal/logging"
	"github.com/danmuck/texlink/internal/observability"
	"github.com/danmuck/texlink/internal/process"
	"github.com/danmuck/texlink/internal/session"
	"github.com/danmuck/texlink/internal/spawn"
	"github.com/danmuck/texlink/internal/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "texlinkctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	logging.ConfigureRuntime()

	cfg := DefaultServiceConfig()
	if len(os.Args) > 1 {
		loaded, err := loadServiceConfig(os.Args[1])
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if cfg.MetricsAddr != "" {
		serveMetrics(cfg.MetricsAddr)
	}

	switch cfg.Transport {
	case "spawn":
		return runSpawned(cfg)
	default:
		return runAttached(cfg)
	}
}

// runAttached serves an engine that already holds our stdio: stdin is the
// incoming stream and the outgoing stream is stdout or a dialed back
// channel.
func runAttached(cfg ServiceConfig) error {
	out, err := openBackChannel(cfg)
	if err != nil {
		return err
	}

	ch := wire.NewChannel(os.Stdin, out, wire.WithReadTimeout(cfg.ReadTimeout))
	defer ch.Close()
	return serve(ch, cfg)
}

// runSpawned launches the engine command itself and serves it over the
// child's stdio.
func runSpawned(cfg ServiceConfig) error {
	peer, err := spawn.Start(cfg.EngineCommand[0], cfg.EngineCommand[1:], wire.WithReadTimeout(cfg.ReadTimeout))
	if err != nil {
		return err
	}
	serveErr := serve(peer.Channel(), cfg)
	if err := peer.Wait(); err != nil && serveErr == nil {
		return fmt.Errorf("engine exited: %w", err)
	}
	return serveErr
}

func serve(ch *wire.Channel, cfg ServiceConfig) error {
	sess, err := session.Open(ch)
	if err != nil {
		return err
	}
	defer sess.Close()

	d := process.New(sess, builtinHandlers())
	if err := d.Bootstrap(cfg.Bootstrap); err != nil {
		return err
	}

	log.Info().Str("engine", sess.Engine().Name).Msg("serving engine-triggered calls")
	return d.Run()
}

func openBackChannel(cfg ServiceConfig) (io.Writer, error) {
	switch cfg.Transport {
	case "spec":
		return wire.DialBackChannel(cfg.BackChannelSpec)
	default:
		return os.Stdout, nil
	}
}

func serveMetrics(addr string) {
	observability.RegisterMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("metrics listener failed")
		}
	}()
}
