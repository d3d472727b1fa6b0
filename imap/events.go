package imap

import (
	"time"

	"github.com/go-kit/kit/log/level"
)

// Functions

// Serve greets the client and runs the session until it
// is torn down. It blocks and is meant to run in its own
// goroutine, one per connection.
func (s *Session) Serve() {

	s.Greet()

	for s.Step() {
	}
}

// Greet sends the greeting and arms the first read.
func (s *Session) Greet() {

	s.engine.Metrics.Sessions.Add(1)

	s.send("%s", s.engine.greeting())
	s.conn.ArmRead(s.readTimeout())
}

// Step waits for the next transport event or worker
// message, runs the matching callback and then the
// write callback. It returns false once the session
// has been torn down.
func (s *Session) Step() bool {

	if s.finished {
		return false
	}

	select {

	case ev := <-s.conn.Events():

		switch ev {
		case EventReadReady:
			s.OnRead()
		case EventTimeout:
			s.OnTimeout()
		}

	case msg := <-s.fromWorker:
		s.onWorker(msg)
	}

	s.OnWrite()

	return !s.finished
}

// readTimeout returns the timeout for the next read
// depending on whether the client has logged in yet.
func (s *Session) readTimeout() time.Duration {

	if s.state == StateNotAuthenticated {
		return s.engine.LoginTimeout
	}

	return s.engine.Timeout
}

// OnRead is the read-ready callback. It reads one line
// or a chunk of literal data, feeds it to the tokenizer
// and dispatches the request once it is complete.
func (s *Session) OnRead() {

	// Disable read events until we are done.
	s.conn.DisarmRead()

	if s.state == StateError {
		level.Debug(s.logger).Log("msg", "session in error state, abort read")
		return
	}

	if s.commandState == CommandDone {
		s.reset()
	}

	var (
		chunk []byte
		err   error
	)

	// Read a line at a time unless a literal is pending,
	// then read the remaining literal size at most.
	if s.literalRemaining <= 0 {
		chunk, err = s.conn.ReadLine()
	} else {

		needed := s.literalRemaining
		if needed > MaxLineSize {
			needed = MaxLineSize
		}

		chunk, err = s.conn.Read(needed)
	}

	if err != nil {
		level.Debug(s.logger).Log("msg", "read failed", "err", err)
		s.SetState(StateError)
		return
	}

	if len(chunk) == 0 {

		if s.literalRemaining > 0 {
			level.Debug(s.logger).Log("msg", "literal incomplete", "need", s.literalRemaining)
		}

		return
	}

	if s.errorCount >= s.engine.MaxFaultyResponses {
		s.send("* BYE [TRY RFC]\r\n")
		s.SetState(StateError)
		return
	}

	if s.idleActive {
		level.Debug(s.logger).Log("msg", "read while in IDLE", "line", string(trimEOL(chunk)))
		s.commandState = CommandPending
		s.pushIdle(IdleMsg{Kind: IdleInput, Line: chunk})
		return
	}

	if !s.tokenize(chunk) {
		s.conn.ArmRead(s.readTimeout())
		return
	}

	if !s.parserState {
		return
	}

	s.handleExit(s.dispatch())
}

// OnWrite is the write-ready callback. It tears down
// finished sessions, decides whether to re-arm the read
// event and flushes pending output.
func (s *Session) OnWrite() {

	if s.finished {
		return
	}

	switch s.state {

	case StateLogout:
		s.conn.DisarmRead()
		s.bailout()
		return

	case StateError:
		s.bailout()
		return
	}

	if s.commandType == CommandIdle {

		if s.commandState == CommandPending && s.idleActive && s.idleLoop < 1 {

			// Only once per IDLE run, right after the
			// continuation went out: wait for DONE without
			// a timeout.
			s.idleLoop++
			s.commandState = CommandContinuing
			s.conn.ArmRead(0)

		} else if s.commandState == CommandDone {
			s.conn.ArmRead(s.readTimeout())
		}

	} else if !s.parserState || s.commandState == CommandDone {
		s.conn.ArmRead(s.readTimeout())
	}

	s.flush()
}

// OnTimeout is invoked when the client stayed silent
// for longer than the current read timeout.
func (s *Session) OnTimeout() {

	level.Info(s.logger).Log("msg", "client timed out", "state", s.state)

	s.send(TimeoutMsg)
	s.SetState(StateError)
}

// handleExit applies the side effects belonging to the
// result a handler returned.
func (s *Session) handleExit(r Result) {

	level.Debug(s.logger).Log(
		"msg", "command returned",
		"command", s.Command(),
		"state", s.state,
		"command_state", s.commandState,
		"result", r,
	)

	switch r {

	case ResultFatal:
		// Fatal error occurred, kick this user. Sessions
		// already in error state said goodbye before.
		if s.state != StateError {
			s.flush()
			s.send(FatalMsg)
		}

		s.SetState(StateError)

	case ResultOK:
		if s.state < StateLogout {

			s.flush()

			if s.commandState == CommandDone {
				s.conn.ArmRead(s.readTimeout())
			}

		} else {
			s.out.Reset()
		}

	case ResultFault:
		// Handler already queued its BAD or NO.
		s.flush()
		s.errorCount++
		s.engine.Metrics.Faults.Add(1)

	case ResultLogout:
		s.flush()
		s.send("* BYE Terminating connection\r\n")
		s.send("%s OK LOGOUT completed\r\n", s.Tag())
	}
}

// bailout tears the session down. A running IDLE worker
// is woken with a synthetic DONE and given a short grace
// period to leave before the transport is closed.
func (s *Session) bailout() {

	if s.engine.NoDaemonize {
		s.engine.Exit(0)
	}

	level.Debug(s.logger).Log("msg", "tearing down session", "state", s.state)

	if s.worker != nil {

		if s.idleActive {
			level.Debug(s.logger).Log("msg", "session is in an IDLE loop, exiting loop")
			s.commandState = CommandPending
			s.pushIdle(IdleMsg{Kind: IdleDone})
		}

		s.awaitWorker()
	}

	s.flush()

	if err := s.conn.Close(); err != nil {
		level.Debug(s.logger).Log("msg", "failed to close connection", "err", err)
	}

	close(s.closed)
	s.finished = true

	s.engine.Metrics.Sessions.Add(-1)
}
