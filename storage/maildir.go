package storage

import (
	"context"

	"github.com/go-pluto/imapd/mailbox"
)

// Structs

// MaildirBackend checks the local Maildir root that the
// handlers read from and deliver into.
type MaildirBackend struct {
	store *mailbox.Store
}

// Functions

// NewMaildirBackend returns a backend for store.
func NewMaildirBackend(store *mailbox.Store) *MaildirBackend {
	return &MaildirBackend{store: store}
}

// Ping stats the Maildir root.
func (m *MaildirBackend) Ping(ctx context.Context) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	return m.store.Ping()
}

// Close is a no-op, the store holds no open handles.
func (m *MaildirBackend) Close() error {
	return nil
}
