package imap

import (
	"bytes"
	"fmt"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// Constants

// Integer counter for IMAP states. The order matters:
// every state below StateLogout is a live one.
const (
	StateNotAuthenticated State = iota
	StateAuthenticated
	StateSelected
	StateLogout
	StateError
)

// Progress of the command currently in flight.
const (
	CommandPending CommandState = iota
	CommandDone
	CommandContinuing
)

// Variables

// ErrInvalidTransition is returned by SetState when the
// requested state cannot be reached from the current one.
var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[State][]State{
	StateNotAuthenticated: {StateAuthenticated, StateLogout},
	StateAuthenticated:    {StateSelected, StateLogout},
	StateSelected:         {StateSelected, StateAuthenticated, StateLogout},
	StateLogout:           {},
	StateError:            {},
}

// Structs

// State represents the integer value associated with one
// of the IMAP states a connection can be in.
type State int

// CommandState tracks whether the in-flight command has
// completed, is still running or continues to consume input.
type CommandState int

// Session contains everything the engine tracks for
// one client connection. It is owned by the goroutine
// running Serve and must not be touched by any other.
type Session struct {
	engine *Engine
	logger log.Logger
	conn   Transport
	id     string

	state            State
	req              *Request
	commandType      CommandType
	commandState     CommandState
	parserState      bool
	args             []string
	errorCount       int
	literalRemaining int
	idleActive       bool
	idleLoop         int
	out              bytes.Buffer

	// Scratch space of the argument builder.
	partial []string
	literal []byte
	depth   int

	userName string
	mailbox  string
	readOnly bool

	worker     *Worker
	idle       chan IdleMsg
	fromWorker chan workerMsg
	closed     chan struct{}
	finished   bool
}

// Functions

func (st State) String() string {

	switch st {
	case StateNotAuthenticated:
		return "NOT_AUTHENTICATED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateSelected:
		return "SELECTED"
	case StateLogout:
		return "LOGOUT"
	case StateError:
		return "ERROR"
	}

	return fmt.Sprintf("State(%d)", int(st))
}

func (cs CommandState) String() string {

	switch cs {
	case CommandPending:
		return "pending"
	case CommandDone:
		return "done"
	case CommandContinuing:
		return "continuing"
	}

	return fmt.Sprintf("CommandState(%d)", int(cs))
}

// NewSession creates the state container for a freshly
// accepted connection. The session starts out in the
// not authenticated state; Serve sends the greeting.
func (e *Engine) NewSession(conn Transport) *Session {

	e.init()

	id := uuid.NewV4().String()

	return &Session{
		engine:     e,
		logger:     log.With(e.Logger, "session", id, "remote", conn.RemoteAddr()),
		conn:       conn,
		id:         id,
		state:      StateNotAuthenticated,
		fromWorker: make(chan workerMsg),
		closed:     make(chan struct{}),
	}
}

// SetState moves the session into state to. ERROR can be
// entered from everywhere, every other target has to be a
// valid IMAP transition from the current state.
func (s *Session) SetState(to State) error {

	if to == StateError {

		if s.state != StateError {
			level.Debug(s.logger).Log("msg", "entering error state", "from", s.state)
		}

		s.state = StateError
		return nil
	}

	for _, allowed := range transitions[s.state] {

		if allowed == to {
			level.Debug(s.logger).Log("msg", "state transition", "from", s.state, "to", to)
			s.state = to
			return nil
		}
	}

	return errors.Wrapf(ErrInvalidTransition, "%s to %s", s.state, to)
}

// reset clears everything belonging to the previous
// request so the next line starts a new one.
func (s *Session) reset() {

	level.Debug(s.logger).Log("msg", "reset session", "state", s.state)

	s.req = nil
	s.args = nil
	s.commandType = CommandNone
	s.commandState = CommandPending
	s.parserState = false
	s.partial = nil
	s.literal = nil
	s.depth = 0
}

// send writes text straight to the transport. Only the
// goroutine owning the session may call it.
func (s *Session) send(format string, a ...interface{}) {

	if err := s.conn.Write([]byte(fmt.Sprintf(format, a...))); err != nil {
		level.Info(s.logger).Log("msg", "failed to write to client", "err", err)
		s.SetState(StateError)
	}
}

// flush writes the buffered handler output, if any.
func (s *Session) flush() {

	if s.out.Len() == 0 {
		return
	}

	if err := s.conn.Write(s.out.Bytes()); err != nil {
		level.Info(s.logger).Log("msg", "failed to flush output to client", "err", err)
		s.SetState(StateError)
	}

	s.out.Reset()
}

// Printf queues a formatted response. Queued output is
// flushed by the exit handler once the handler returns.
func (s *Session) Printf(format string, a ...interface{}) {
	fmt.Fprintf(&s.out, format, a...)
}

// Tagged queues a tagged status response for the
// current request, e.g. Tagged("OK", "NOOP completed").
func (s *Session) Tagged(status string, format string, a ...interface{}) {
	s.Printf("%s %s %s\r\n", s.Tag(), status, fmt.Sprintf(format, a...))
}

// Untagged queues an untagged response line.
func (s *Session) Untagged(format string, a ...interface{}) {
	s.Printf("* %s\r\n", fmt.Sprintf(format, a...))
}

// ID returns the unique identifier of this session.
func (s *Session) ID() string { return s.id }

// Logger returns the session scoped logger.
func (s *Session) Logger() log.Logger { return s.logger }

// RemoteAddr returns the address of the connected client.
func (s *Session) RemoteAddr() string { return s.conn.RemoteAddr() }

// State returns the current protocol state.
func (s *Session) State() State { return s.state }

// Tag returns the tag of the in-flight request or an
// empty string if none is set.
func (s *Session) Tag() string {

	if s.req == nil {
		return ""
	}

	return s.req.Tag
}

// Command returns the command name exactly as the
// client sent it.
func (s *Session) Command() string {

	if s.req == nil {
		return ""
	}

	return s.req.Command
}

// Args returns the parsed argument list. A nil list
// means the arguments could not be parsed.
func (s *Session) Args() []string { return s.args }

// CommandType returns the resolved table index of the
// dispatched command.
func (s *Session) CommandType() CommandType { return s.commandType }

// CommandState reports whether the current command is done.
func (s *Session) CommandState() CommandState { return s.commandState }

// ErrorCount returns the number of consecutive faults.
func (s *Session) ErrorCount() int { return s.errorCount }

// LiteralRemaining returns how many literal bytes are
// still expected; zero means reads happen by line.
func (s *Session) LiteralRemaining() int { return s.literalRemaining }

// IdleActive reports whether the session is inside IDLE.
func (s *Session) IdleActive() bool { return s.idleActive }

// UserName returns the authenticated user, if any.
func (s *Session) UserName() string { return s.userName }

// Login records the authenticated user and switches to
// the authenticated state. Afterwards the regular read
// timeout applies instead of the login timeout.
func (s *Session) Login(userName string) error {

	if err := s.SetState(StateAuthenticated); err != nil {
		return err
	}

	s.userName = userName
	s.logger = log.With(s.logger, "user", userName)

	return nil
}

// Mailbox returns the selected mailbox and whether it
// was opened read-only.
func (s *Session) Mailbox() (string, bool) { return s.mailbox, s.readOnly }

// Select records name as selected mailbox.
func (s *Session) Select(name string, readOnly bool) error {

	if err := s.SetState(StateSelected); err != nil {
		return err
	}

	s.mailbox = name
	s.readOnly = readOnly

	return nil
}

// Unselect leaves the selected state.
func (s *Session) Unselect() error {

	if err := s.SetState(StateAuthenticated); err != nil {
		return err
	}

	s.mailbox = ""
	s.readOnly = false

	return nil
}
