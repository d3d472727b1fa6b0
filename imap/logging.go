package imap

import (
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

type loggingHandler struct {
	next   Handler
	logger log.Logger
}

// NewLoggingMiddleware logs every handled command with
// its tag and outcome. Faults and fatal results are
// logged on info and error level, the rest on debug.
func NewLoggingMiddleware(logger log.Logger) Middleware {

	return func(next Handler) Handler {
		return &loggingHandler{next, logger}
	}
}

// Handle wraps the next handler with logging.
func (h *loggingHandler) Handle(s *Session) Result {

	r := h.next.Handle(s)

	logger := log.With(h.logger,
		"session", s.ID(),
		"method", s.CommandType(),
		"tag", s.Tag(),
		"result", r,
	)

	switch r {
	case ResultFatal:
		level.Error(logger).Log("msg", "command failed fatally")
	case ResultFault:
		level.Info(logger).Log("msg", "failed to perform operation correctly")
	default:
		level.Debug(logger).Log()
	}

	return r
}
