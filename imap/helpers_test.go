package imap_test

import (
	"testing"
	"time"

	"github.com/go-pluto/imapd/imap"
	"github.com/go-pluto/imapd/imap/imaptest"
)

// Structs

type captured struct {
	tag     string
	command string
	args    []string
	state   imap.State
}

// Functions

// newSession builds an engine around handlers and returns
// a greeted session together with its transport.
func newSession(t *testing.T, handlers map[imap.CommandType]imap.Handler) (*imap.Session, *imaptest.Transport) {

	e := &imap.Engine{
		Commands:      imap.NewCommandTable(handlers),
		IdleExitGrace: time.Second,
	}

	return greet(t, e)
}

func greet(t *testing.T, e *imap.Engine) (*imap.Session, *imaptest.Transport) {

	tr := imaptest.NewTransport()
	s := e.NewSession(tr)

	s.Greet()

	if out := tr.Output(); out == "" {
		t.Fatalf("[imap.greet] Expected greeting but received nothing")
	}

	return s, tr
}

// capture returns a handler recording every request
// it sees and answering with a tagged OK.
func capture(into *[]captured) imap.Handler {

	return imap.HandlerFunc(func(s *imap.Session) imap.Result {

		*into = append(*into, captured{
			tag:     s.Tag(),
			command: s.Command(),
			args:    append([]string(nil), s.Args()...),
			state:   s.State(),
		})

		s.Tagged("OK", "%s completed", s.CommandType())

		return imap.ResultOK
	})
}

func noop(s *imap.Session) imap.Result {
	s.Tagged("OK", "NOOP completed")
	return imap.ResultOK
}

func logout(s *imap.Session) imap.Result {

	if err := s.SetState(imap.StateLogout); err != nil {
		return imap.ResultFatal
	}

	return imap.ResultLogout
}

func login(s *imap.Session) imap.Result {

	if err := s.Login(s.Args()[0]); err != nil {
		s.Tagged("BAD", "already logged in")
		return imap.ResultFault
	}

	s.Tagged("OK", "LOGIN completed")

	return imap.ResultOK
}

func newTransport() *imaptest.Transport {
	return imaptest.NewTransport()
}
