package handlers

import (
	"strings"

	"encoding/base64"

	"github.com/emersion/go-sasl"
	"github.com/go-kit/kit/log/level"
	"github.com/go-pluto/imapd/imap"
	"github.com/pkg/errors"
)

// Variables

// errAuthzid is returned by the PLAIN mechanism when a
// client asks to act as somebody else.
var errAuthzid = errors.New("authorization identity must match authentication identity")

// Functions

// Login performs the authentication mechanism specified
// as part of the config.
func (h *Handlers) Login(s *imap.Session) imap.Result {

	if !inState(s, imap.StateNotAuthenticated) {
		return imap.ResultFault
	}

	if !argCount(s, 2) {
		return imap.ResultFault
	}

	args := s.Args()

	return h.authenticate(s, args[0], args[1])
}

// Authenticate handles AUTHENTICATE PLAIN with the
// initial response sent along (SASL-IR). The response
// is base64 of authzid NUL authcid NUL password.
func (h *Handlers) Authenticate(s *imap.Session) imap.Result {

	if !inState(s, imap.StateNotAuthenticated) {
		return imap.ResultFault
	}

	args := s.Args()

	if len(args) == 0 || !strings.EqualFold(args[0], "PLAIN") {
		s.Tagged("NO", "Unsupported authentication mechanism")
		return imap.ResultFault
	}

	if len(args) != 2 {
		s.Tagged("BAD", "AUTHENTICATE PLAIN requires an initial response")
		return imap.ResultFault
	}

	// A lone "=" stands for an empty initial response.
	raw := []byte{}

	if args[1] != "=" {

		var err error

		raw, err = base64.StdEncoding.DecodeString(args[1])
		if err != nil {
			s.Tagged("BAD", "Initial response is not valid base64")
			return imap.ResultFault
		}
	}

	var userName, password string

	mech := sasl.NewPlainServer(func(identity string, username string, pw string) error {

		// Acting as a different user is not supported.
		if identity != "" && identity != username {
			return errAuthzid
		}

		userName, password = username, pw

		return nil
	})

	_, done, err := mech.Next(raw)
	if err != nil {

		if errors.Cause(err) == errAuthzid {
			s.Tagged("NO", "Authorization identity must match authentication identity")
			return imap.ResultFault
		}

		s.Tagged("BAD", "Malformed PLAIN initial response")

		return imap.ResultFault
	}

	if !done {
		s.Tagged("BAD", "Malformed PLAIN initial response")
		return imap.ResultFault
	}

	return h.authenticate(s, userName, password)
}

// authenticate checks the credentials, moves s into
// authenticated state and makes sure the INBOX exists.
func (h *Handlers) authenticate(s *imap.Session, userName string, password string) imap.Result {

	_, clientID, err := h.auth.AuthenticatePlain(userName, password, s.RemoteAddr())
	if err != nil {

		// If supplied credentials failed to authenticate client,
		// they are invalid. Return NO statement.
		level.Info(s.Logger()).Log("msg", "authentication failed", "user", userName, "err", err)
		s.Tagged("NO", "Name and / or password wrong")

		return imap.ResultFault
	}

	if err := h.store.EnsureUser(userName); err != nil {
		level.Error(s.Logger()).Log("msg", "failed to prepare maildir of user", "user", userName, "err", err)
		return imap.ResultFatal
	}

	if err := s.Login(userName); err != nil {
		level.Error(s.Logger()).Log("msg", "failed to enter authenticated state", "err", err)
		return imap.ResultFatal
	}

	level.Debug(s.Logger()).Log("msg", "user logged in", "client", clientID)

	s.Tagged("OK", "%s completed", name(s))

	return imap.ResultOK
}
