package imap

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
)

// Structs

// Metrics holds the instruments the engine reports to.
// Commands carries the labels "command" and "result".
type Metrics struct {
	Commands metrics.Counter
	Faults   metrics.Counter
	Logins   metrics.Counter
	Logouts  metrics.Counter
	Sessions metrics.Gauge
}

type instrumentingHandler struct {
	next    Handler
	metrics Metrics
}

// Functions

// NopMetrics returns instruments that record nothing.
func NopMetrics() Metrics {

	return Metrics{
		Commands: discard.NewCounter(),
		Faults:   discard.NewCounter(),
		Logins:   discard.NewCounter(),
		Logouts:  discard.NewCounter(),
		Sessions: discard.NewGauge(),
	}
}

// NewInstrumentingMiddleware counts every handled command
// by name and result. Successful logins and logouts are
// counted separately.
func NewInstrumentingMiddleware(m Metrics) Middleware {

	return func(next Handler) Handler {
		return &instrumentingHandler{next, m}
	}
}

// Handle wraps the next handler with counting. Commands
// continuing on a worker are counted once it returned.
func (h *instrumentingHandler) Handle(s *Session) Result {

	r := h.next.Handle(s)

	if s.worker != nil {
		s.worker.OnExit(func(final Result) { h.count(s, final) })
		return r
	}

	h.count(s, r)

	return r
}

func (h *instrumentingHandler) count(s *Session, r Result) {

	h.metrics.Commands.With(
		"command", s.CommandType().String(),
		"result", r.String(),
	).Add(1)

	switch s.CommandType() {

	case CommandLogin, CommandAuthenticate:
		if r == ResultOK && s.State() == StateAuthenticated {
			h.metrics.Logins.Add(1)
		}

	case CommandLogout:
		if r == ResultLogout {
			h.metrics.Logouts.Add(1)
		}
	}
}
