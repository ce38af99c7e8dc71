// Command kvs-server runs the TCP key-value server: it binds addr, opens
// (or creates) a log-structured store under the current directory's
// storage subdirectory, and dispatches requests onto a fixed-size worker
// pool until interrupted.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/epokhe/kvs/internal/enginefile"
	"github.com/epokhe/kvs/internal/engine"
	"github.com/epokhe/kvs/internal/pool"
	"github.com/epokhe/kvs/internal/server"
)

const defaultEngineName = "kvs"

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  kvs-server [--addr IP:PORT] [--engine kvs]\n")
	os.Exit(1)
}

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:4000", "listening address (IP:PORT)")
		engineName = flag.String("engine", "", "storage engine (defaults to the one already in use, or kvs on a fresh directory)")
	)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 0 {
		usage()
	}

	log := mustLogger()
	defer log.Sync()

	if err := run(log, *addr, *engineName); err != nil {
		log.Errorw("server exited with error", "err", err)
		os.Exit(1)
	}
}

func mustLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		// zap itself failed to construct; nothing to log with, so fall
		// back to stderr directly.
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	return logger.Sugar()
}

func run(log *zap.SugaredLogger, addr, requestedEngine string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	resolvedEngine, err := enginefile.Resolve(cwd, requestedEngine, defaultEngineName)
	if err != nil {
		return err
	}
	if resolvedEngine != defaultEngineName {
		return fmt.Errorf("unsupported storage engine %q: only %q is built in", resolvedEngine, defaultEngineName)
	}

	log.Infow("starting kvs-server", "addr", addr, "engine", resolvedEngine)

	dataDir := filepath.Join(cwd, "storage")
	eng, err := engine.Open(dataDir, engine.WithLogger(log))
	if err != nil {
		return fmt.Errorf("open engine at %q: %w", dataDir, err)
	}
	defer eng.Close()

	workers, err := pool.New(runtime.NumCPU(), pool.WithLogger(log))
	if err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	defer workers.Close()

	srv := server.New(eng, workers, server.WithLogger(log))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	startErr := make(chan error, 1)
	go func() { startErr <- srv.Start(addr) }()

	select {
	case sig := <-sigCh:
		log.Infow("received signal, shutting down", "signal", sig.String())
		srv.Shutdown()
		return <-startErr
	case err := <-startErr:
		return err
	}
}
