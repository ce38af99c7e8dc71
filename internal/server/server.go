// Package server implements the TCP request server: an accept loop that
// dispatches decoded requests onto a worker pool against a shared engine
// handle, with cooperative shutdown.
package server

import (
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/epokhe/kvs/internal/engine"
	"github.com/epokhe/kvs/internal/pool"
)

// acceptPollInterval bounds how long a single accept attempt blocks before
// the loop re-checks the shutdown channel. There is no event-driven wakeup
// for "a shutdown was requested" in net.Listener, so this is the same
// sleep-poll wart the source acknowledges, expressed with SetDeadline
// instead of a non-blocking socket and an explicit sleep.
const acceptPollInterval = 100 * time.Millisecond

// Server binds a listening socket and dispatches one handler job per
// accepted connection onto a worker pool, sharing one engine handle across
// every handler.
type Server struct {
	eng      *engine.Engine
	pool     *pool.Pool
	shutdown chan struct{}
	log      *zap.SugaredLogger
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger overrides the server's logger. Defaults to a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Server) { s.log = log }
}

// New builds a server dispatching onto the given pool against the given
// engine handle. The pool and engine are owned by the caller, which remains
// responsible for closing them after Start returns.
func New(eng *engine.Engine, workers *pool.Pool, opts ...Option) *Server {
	s := &Server{
		eng:      eng,
		pool:     workers,
		shutdown: make(chan struct{}, 1),
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds addr and runs the accept loop until Shutdown is called or an
// unrecoverable error occurs. A bind failure is returned directly; it is
// fatal from the caller's point of view, same as a failed listen in any
// other Go TCP server.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	defer listener.Close()

	tcpListener, ok := listener.(*net.TCPListener)
	if !ok {
		return fmt.Errorf("listener for %s is not a TCP listener", addr)
	}

	s.log.Infow("server listening", "addr", addr)

	for {
		select {
		case <-s.shutdown:
			s.log.Infow("shutdown requested, exiting accept loop")
			return nil
		default:
		}

		if err := tcpListener.SetDeadline(time.Now().Add(acceptPollInterval)); err != nil {
			return fmt.Errorf("set accept deadline: %w", err)
		}

		conn, err := tcpListener.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue // poll interval elapsed with no connection; check shutdown again
			}
			s.log.Errorw("accept failed", "err", err)
			continue
		}

		eng := s.eng // the handle is shared; cloning it is just sharing the pointer
		s.pool.Spawn(func() {
			if err := handleConnection(eng, conn, s.log); err != nil {
				s.log.Errorw("handle connection", "err", err)
			}
		})
	}
}

// Shutdown posts a single shutdown message, observed by the next iteration
// of the accept loop. Safe to call from any goroutine, including one other
// than the one running Start; it does not block and does not cancel
// handlers already dispatched to the pool.
func (s *Server) Shutdown() {
	select {
	case s.shutdown <- struct{}{}:
	default:
		// A shutdown is already pending; posting a second one would block
		// on the one-slot channel, and one is all the accept loop needs.
	}
}
