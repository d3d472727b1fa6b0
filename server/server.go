package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-pluto/imapd/imap"
	"github.com/pkg/errors"
)

// Structs

// Server accepts IMAP clients on a listener and runs
// one engine session per connection.
type Server struct {
	logger log.Logger
	engine *imap.Engine

	lock     sync.Mutex
	listener net.Listener
	closing  bool
	sessions sync.WaitGroup
}

// Functions

// New returns a server running sessions of engine.
func New(logger log.Logger, engine *imap.Engine) *Server {

	return &Server{
		logger: logger,
		engine: engine,
	}
}

// Run loops over incoming connections and dispatches
// each one to its own goroutine. It returns nil once
// the server was closed.
func (s *Server) Run(listener net.Listener) error {

	s.lock.Lock()
	s.listener = listener
	s.lock.Unlock()

	level.Info(s.logger).Log("msg", "accepting IMAP connections", "addr", listener.Addr())

	for {

		conn, err := listener.Accept()
		if err != nil {

			s.lock.Lock()
			closing := s.closing
			s.lock.Unlock()

			if closing {
				return nil
			}

			if nErr, ok := err.(net.Error); ok && nErr.Timeout() {
				level.Warn(s.logger).Log("msg", "temporary error while accepting connection", "err", err)
				time.Sleep(10 * time.Millisecond)
				continue
			}

			return errors.Wrap(err, "accepting incoming connection failed")
		}

		s.sessions.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection wraps conn into a transport and runs
// a session on it until the client is gone.
func (s *Server) handleConnection(conn net.Conn) {

	defer s.sessions.Done()

	session := s.engine.NewSession(imap.NewNetTransport(conn))

	level.Debug(session.Logger()).Log("msg", "client connected")

	session.Serve()

	level.Debug(session.Logger()).Log("msg", "client disconnected", "state", session.State())
}

// Close stops accepting new connections. Running
// sessions are left alone.
func (s *Server) Close() error {

	s.lock.Lock()
	defer s.lock.Unlock()

	s.closing = true

	if s.listener == nil {
		return nil
	}

	return s.listener.Close()
}

// Wait blocks until all sessions finished or ctx is done.
func (s *Server) Wait(ctx context.Context) error {

	done := make(chan struct{})

	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
