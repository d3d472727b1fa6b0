package auth

import (
	"github.com/pkg/errors"
)

// Variables

// ErrBadCredentials is returned for unknown users and
// wrong passwords alike.
var ErrBadCredentials = errors.New("username not found or password wrong")

// Interfaces

// PlainAuthenticator defines the methods required to
// perform an IMAP AUTH=PLAIN authentication in order
// to reach authenticated state (also LOGIN).
type PlainAuthenticator interface {

	// AuthenticatePlain will be implemented by each of the
	// authentication methods of type PLAIN to perform the
	// actual part of checking supplied credentials. It
	// returns the user ID and a client identifier built
	// from client address and user name.
	AuthenticatePlain(username string, password string, clientAddr string) (int, string, error)
}
