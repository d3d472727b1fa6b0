package imap_test

import (
	"testing"

	"github.com/go-pluto/imapd/imap"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// Functions

// TestSetState walks through valid and invalid state
// transitions.
func TestSetState(t *testing.T) {

	s := (&imap.Engine{}).NewSession(newTransport())

	assert.Equal(t, imap.StateNotAuthenticated, s.State())

	err := s.SetState(imap.StateSelected)
	assert.Equal(t, imap.ErrInvalidTransition, errors.Cause(err))
	assert.Equal(t, imap.StateNotAuthenticated, s.State())

	assert.Nil(t, s.Login("alice"))
	assert.Equal(t, imap.StateAuthenticated, s.State())

	assert.Nil(t, s.Select("INBOX", true))
	name, readOnly := s.Mailbox()
	assert.Equal(t, "INBOX", name)
	assert.True(t, readOnly)

	// Selecting again is fine.
	assert.Nil(t, s.Select("Archive", false))

	assert.Nil(t, s.Unselect())
	name, _ = s.Mailbox()
	assert.Equal(t, "", name)

	assert.NotNil(t, s.Login("bob"))
	assert.Equal(t, "alice", s.UserName())

	assert.Nil(t, s.SetState(imap.StateLogout))
	assert.NotNil(t, s.SetState(imap.StateAuthenticated))

	// ERROR is reachable from everywhere.
	assert.Nil(t, s.SetState(imap.StateError))
	assert.Nil(t, s.SetState(imap.StateError))
	assert.Equal(t, imap.StateError, s.State())
}

func TestSessionIDs(t *testing.T) {

	e := &imap.Engine{}

	a := e.NewSession(newTransport())
	b := e.NewSession(newTransport())

	assert.NotEqual(t, "", a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "127.0.0.1:4242", a.RemoteAddr())
}

func TestStrings(t *testing.T) {

	assert.Equal(t, "SELECTED", imap.StateSelected.String())
	assert.Equal(t, "continuing", imap.CommandContinuing.String())
	assert.Equal(t, "logout", imap.ResultLogout.String())
	assert.Equal(t, "Result(7)", imap.Result(7).String())
}
