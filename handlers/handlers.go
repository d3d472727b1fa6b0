package handlers

import (
	"strings"
	"time"

	"github.com/go-pluto/imapd/auth"
	"github.com/go-pluto/imapd/imap"
	"github.com/go-pluto/imapd/mailbox"
)

// Constants

// Capabilities announced in every state. Connections are
// TLS from the first byte, so STARTTLS is not offered.
const Capabilities = "IMAP4rev1 LITERAL+ SASL-IR AUTH=PLAIN IDLE NAMESPACE UNSELECT"

// DefaultIdleInterval is how often IDLE looks for new mail.
const DefaultIdleInterval = 5 * time.Second

// Flags every mailbox supports.
const systemFlags = `\Answered \Flagged \Deleted \Seen \Draft`

// Structs

// Handlers carries what the command handlers need besides
// the session they run on.
type Handlers struct {
	auth         auth.PlainAuthenticator
	store        *mailbox.Store
	separator    string
	idleInterval time.Duration
}

// Functions

// New returns handlers authenticating against authenticator
// and serving mail from store. An empty separator defaults
// to "/", a zero idleInterval to DefaultIdleInterval.
func New(authenticator auth.PlainAuthenticator, store *mailbox.Store, separator string, idleInterval time.Duration) *Handlers {

	if separator == "" {
		separator = "/"
	}

	if idleInterval <= 0 {
		idleInterval = DefaultIdleInterval
	}

	return &Handlers{
		auth:         authenticator,
		store:        store,
		separator:    separator,
		idleInterval: idleInterval,
	}
}

// Table returns the handlers keyed by the command they
// serve, ready to be passed to imap.NewCommandTable.
func (h *Handlers) Table() map[imap.CommandType]imap.Handler {

	return map[imap.CommandType]imap.Handler{
		imap.CommandCapability:   imap.HandlerFunc(h.Capability),
		imap.CommandNoop:         imap.HandlerFunc(h.Noop),
		imap.CommandLogout:       imap.HandlerFunc(h.Logout),
		imap.CommandLogin:        imap.HandlerFunc(h.Login),
		imap.CommandAuthenticate: imap.HandlerFunc(h.Authenticate),
		imap.CommandSelect:       imap.HandlerFunc(h.Select),
		imap.CommandExamine:      imap.HandlerFunc(h.Select),
		imap.CommandCreate:       imap.HandlerFunc(h.Create),
		imap.CommandDelete:       imap.HandlerFunc(h.Delete),
		imap.CommandList:         imap.HandlerFunc(h.List),
		imap.CommandStatus:       imap.HandlerFunc(h.Status),
		imap.CommandAppend:       imap.HandlerFunc(h.Append),
		imap.CommandNamespace:    imap.HandlerFunc(h.Namespace),
		imap.CommandIdle:         imap.HandlerFunc(h.Idle),
		imap.CommandCheck:        imap.HandlerFunc(h.Check),
		imap.CommandClose:        imap.HandlerFunc(h.Close),
		imap.CommandUnselect:     imap.HandlerFunc(h.Close),
	}
}

// name returns the command of s in upper case for use in
// responses.
func name(s *imap.Session) string {
	return strings.ToUpper(s.CommandType().String())
}

// inState answers BAD and returns false unless s is in
// one of states.
func inState(s *imap.Session, states ...imap.State) bool {

	for _, st := range states {

		if s.State() == st {
			return true
		}
	}

	s.Tagged("BAD", "Command %s cannot be executed in this state", name(s))

	return false
}

// argCount answers BAD and returns false unless s carries
// exactly n arguments.
func argCount(s *imap.Session, n int) bool {

	if len(s.Args()) == n {
		return true
	}

	if n == 0 {
		s.Tagged("BAD", "Command %s was sent with extra parameters", name(s))
	} else {
		s.Tagged("BAD", "Command %s was not sent with exactly %d parameters", name(s), n)
	}

	return false
}

// delim returns the hierarchy separator as a rune.
func (h *Handlers) delim() rune {

	for _, r := range h.separator {
		return r
	}

	return 0
}

// quote renders name as an IMAP quoted string.
func quote(name string) string {

	name = strings.ReplaceAll(name, `\`, `\\`)
	name = strings.ReplaceAll(name, `"`, `\"`)

	return `"` + name + `"`
}
