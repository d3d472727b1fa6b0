package imap

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
)

// Constants

// Default values applied to an Engine by NewSession
// for every field left at its zero value.
const (
	DefaultMaxFaultyResponses = 5
	DefaultLoginTimeout       = 60 * time.Second
	DefaultTimeout            = 300 * time.Second
	DefaultIdleExitGrace      = 25 * time.Millisecond
	DefaultMaxLiteralSize     = 50 * 1024 * 1024
)

// Version is reported in the default greeting.
const Version = "0.5.0"

// TimeoutMsg is sent right before a connection is
// dropped because the client stayed silent too long.
const TimeoutMsg = "* BYE pluto IMAP4rev1 server signing off due to timeout\r\n"

// UnavailableMsg is sent before a connection is dropped
// because the storage backend failed its liveness check.
const UnavailableMsg = "* BYE [UNAVAILABLE] storage backend unavailable\r\n"

// FatalMsg is sent before a connection is dropped after
// a handler failed fatally.
const FatalMsg = "* BYE [SERVERBUG] internal server error, closing connection\r\n"

// Result codes every handler has to return.
const (
	ResultFatal  Result = -1
	ResultOK     Result = 0
	ResultFault  Result = 1
	ResultLogout Result = 2
)

// Interfaces

// Backend is the storage layer the engine checks for
// liveness before every dispatched command.
type Backend interface {
	Ping(ctx context.Context) error
}

// Handler executes one IMAP command on a session.
type Handler interface {
	Handle(s *Session) Result
}

// Structs

// Result tells the exit handler what to do after a
// handler returned.
type Result int

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(s *Session) Result

// Middleware decorates a Handler, e.g. with logging.
type Middleware func(Handler) Handler

// Engine bundles the process-wide, read-only context
// every session is created from.
type Engine struct {
	Logger   log.Logger
	Metrics  Metrics
	Backend  Backend
	Commands *CommandTable
	Args     ArgBuilder

	// Banner replaces the default greeting text.
	Banner string

	MaxFaultyResponses int
	LoginTimeout       time.Duration
	Timeout            time.Duration
	IdleExitGrace      time.Duration
	MaxLiteralSize     int

	// NoDaemonize makes a teardown exit the whole
	// process, used for single-shot runs.
	NoDaemonize bool
	Exit        func(code int)

	once sync.Once
}

type nopBackend struct{}

// Functions

func (nopBackend) Ping(ctx context.Context) error { return nil }

// Handle calls f(s).
func (f HandlerFunc) Handle(s *Session) Result {
	return f(s)
}

func (r Result) String() string {

	switch r {
	case ResultFatal:
		return "fatal"
	case ResultOK:
		return "ok"
	case ResultFault:
		return "fault"
	case ResultLogout:
		return "logout"
	}

	return fmt.Sprintf("Result(%d)", int(r))
}

// init fills in defaults for everything left unset.
// Only the first call has an effect.
func (e *Engine) init() {
	e.once.Do(e.setDefaults)
}

func (e *Engine) setDefaults() {

	if e.Logger == nil {
		e.Logger = log.NewNopLogger()
	}

	nop := NopMetrics()

	if e.Metrics.Commands == nil {
		e.Metrics.Commands = nop.Commands
	}

	if e.Metrics.Faults == nil {
		e.Metrics.Faults = nop.Faults
	}

	if e.Metrics.Logins == nil {
		e.Metrics.Logins = nop.Logins
	}

	if e.Metrics.Logouts == nil {
		e.Metrics.Logouts = nop.Logouts
	}

	if e.Metrics.Sessions == nil {
		e.Metrics.Sessions = nop.Sessions
	}

	if e.Backend == nil {
		e.Backend = nopBackend{}
	}

	if e.Commands == nil {
		e.Commands = NewCommandTable(nil)
	}

	if e.Args == nil {
		e.Args = IMAPArgs{}
	}

	if e.MaxFaultyResponses <= 0 {
		e.MaxFaultyResponses = DefaultMaxFaultyResponses
	}

	if e.LoginTimeout <= 0 {
		e.LoginTimeout = DefaultLoginTimeout
	}

	if e.Timeout <= 0 {
		e.Timeout = DefaultTimeout
	}

	if e.IdleExitGrace <= 0 {
		e.IdleExitGrace = DefaultIdleExitGrace
	}

	if e.MaxLiteralSize <= 0 {
		e.MaxLiteralSize = DefaultMaxLiteralSize
	}

	if e.Exit == nil {
		e.Exit = os.Exit
	}
}

// greeting returns the untagged OK line sent to new clients.
func (e *Engine) greeting() string {

	if e.Banner != "" {
		return fmt.Sprintf("* OK %s\r\n", e.Banner)
	}

	return fmt.Sprintf("* OK imap 4r1 server (pluto %s)\r\n", Version)
}
