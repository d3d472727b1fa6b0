package main

import (
	"context"
	"testing"
	"time"

	"path/filepath"

	"github.com/go-pluto/imapd/config"
	"github.com/go-pluto/imapd/imap"
	"github.com/go-pluto/imapd/imap/imaptest"
	"github.com/go-pluto/imapd/mailbox"
	"github.com/go-pluto/imapd/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Functions

// TestInitEngine wires an engine from a config and runs
// a CAPABILITY request through it.
func TestInitEngine(t *testing.T) {

	store, err := mailbox.NewStore(filepath.Join(t.TempDir(), "maildirs"))
	require.Nil(t, err)

	conf := &config.Config{
		IMAP: config.IMAP{
			Greeting:           "test server ready",
			HierarchySeparator: "/",
			MaxFaultyResponses: 3,
			LoginTimeout:       config.Duration{Duration: 30 * time.Second},
			Timeout:            config.Duration{Duration: 10 * time.Minute},
		},
	}

	backend, err := storage.New(context.Background(), initLogger("error"), config.Storage{Adapter: "maildir"}, store)
	require.Nil(t, err)

	engine := initEngine(initLogger("error"), conf, NewPlutoMetrics(""), backend, nil, store, false)

	assert.Equal(t, 3, engine.MaxFaultyResponses)
	assert.Equal(t, 30*time.Second, engine.LoginTimeout)
	assert.False(t, engine.NoDaemonize)

	tr := imaptest.NewTransport()
	s := engine.NewSession(tr)

	s.Greet()
	assert.Equal(t, "* OK test server ready\r\n", tr.Output())
	assert.Equal(t, 30*time.Second, tr.Timeout())

	tr.Send("a1 CAPABILITY\r\n")
	s.Step()

	assert.Contains(t, tr.Output(), "a1 OK CAPABILITY completed\r\n")
	assert.Equal(t, imap.StateNotAuthenticated, s.State())
}
