package imap

import (
	"context"
	"time"

	"github.com/go-kit/kit/log/level"
)

// Constants

// pingTimeout bounds the backend liveness check.
const pingTimeout = 5 * time.Second

// Functions

// dispatch runs once tag, command and arguments of a
// request are parsed. It validates the request against
// the command table and invokes the matching handler.
func (s *Session) dispatch() Result {

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	err := s.engine.Backend.Ping(ctx)
	cancel()

	if err != nil {
		level.Error(s.logger).Log("msg", "storage backend unavailable", "err", err)
		s.send(UnavailableMsg)
		s.SetState(StateError)
		return ResultFatal
	}

	// Done already.
	if s.commandState == CommandDone {
		return ResultOK
	}

	s.commandState = CommandDone

	if s.req == nil {
		level.Error(s.logger).Log("msg", "no tag or command")
		return ResultFault
	}

	if s.args == nil {
		s.send("%s BAD invalid argument specified\r\n", s.req.Tag)
		s.errorCount++
		s.engine.Metrics.Faults.Add(1)
		return ResultFault
	}

	ct := LookupCommand(s.req.Command)
	if ct == CommandNone {
		s.send("%s BAD no valid command\r\n", s.req.Tag)
		return ResultFault
	}

	s.errorCount = 0
	s.commandType = ct
	s.commandState = CommandPending

	level.Info(s.logger).Log("msg", "dispatch", "command", ct, "tag", s.req.Tag)

	result := s.engine.Commands.Handler(ct).Handle(s)

	// Handlers running synchronously are finished now.
	if s.worker == nil && s.commandState == CommandPending {
		s.commandState = CommandDone
	}

	return result
}
