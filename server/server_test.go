package server_test

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"crypto/tls"
	"path/filepath"

	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/go-kit/kit/log"
	"github.com/go-pluto/imapd/auth"
	"github.com/go-pluto/imapd/crypto"
	"github.com/go-pluto/imapd/handlers"
	"github.com/go-pluto/imapd/imap"
	"github.com/go-pluto/imapd/mailbox"
	"github.com/go-pluto/imapd/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Functions

// runServer starts a server with one user "alice" on
// listener and stops it when the test ends.
func runServer(t *testing.T, listener net.Listener) *mailbox.Store {

	dir := t.TempDir()

	usersFile := filepath.Join(dir, "users.txt")
	require.Nil(t, os.WriteFile(usersFile, []byte("alice:secret\n"), 0600))

	authenticator, err := auth.NewFileAuthenticator(usersFile, ":")
	require.Nil(t, err)

	store, err := mailbox.NewStore(filepath.Join(dir, "maildirs"))
	require.Nil(t, err)

	h := handlers.New(authenticator, store, "/", 50*time.Millisecond)

	engine := &imap.Engine{
		Logger:   log.NewNopLogger(),
		Commands: imap.NewCommandTable(h.Table()),
		Timeout:  5 * time.Second,
	}

	srv := server.New(log.NewNopLogger(), engine)

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Run(listener)
	}()

	t.Cleanup(func() {

		srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		assert.Nil(t, srv.Wait(ctx))
		assert.Nil(t, <-errs)
	})

	return store
}

// TestSession runs a complete client session against
// the server over loopback.
func TestSession(t *testing.T) {

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)

	store := runServer(t, listener)

	c, err := imapclient.DialInsecure(listener.Addr().String(), nil)
	if err != nil {
		t.Fatalf("[server.TestSession] Expected nil error dialing server but received: %v", err)
	}
	defer c.Close()

	if err := c.Login("alice", "wrong").Wait(); err == nil {
		t.Fatalf("[server.TestSession] Expected error for wrong password but received nil")
	}

	if err := c.Login("alice", "secret").Wait(); err != nil {
		t.Fatalf("[server.TestSession] Expected nil error logging in but received: %v", err)
	}

	require.Nil(t, c.Create("Archive", nil).Wait())

	mbox, err := c.Select("INBOX", nil).Wait()
	require.Nil(t, err)
	assert.Equal(t, uint32(0), mbox.NumMessages)

	msg := "Subject: Hello\r\n\r\nHello Alice.\r\n"

	appendCmd := c.Append("INBOX", int64(len(msg)), nil)

	_, err = appendCmd.Write([]byte(msg))
	require.Nil(t, err)
	require.Nil(t, appendCmd.Close())

	if _, err := appendCmd.Wait(); err != nil {
		t.Fatalf("[server.TestSession] Expected nil error appending message but received: %v", err)
	}

	mbox, err = c.Select("INBOX", nil).Wait()
	require.Nil(t, err)
	assert.Equal(t, uint32(1), mbox.NumMessages)

	status, err := store.Status("alice", "INBOX")
	require.Nil(t, err)
	assert.Equal(t, 1, status.Messages)

	require.Nil(t, c.Delete("Archive").Wait())

	if err := c.Logout().Wait(); err != nil {
		t.Fatalf("[server.TestSession] Expected nil error logging out but received: %v", err)
	}
}

// TestSessionTLS logs in over a TLS listener built from
// a freshly generated certificate.
func TestSessionTLS(t *testing.T) {

	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")

	require.Nil(t, crypto.GenerateSelfSigned(certPath, keyPath, []string{"127.0.0.1"}, time.Hour))

	serverConf, err := crypto.NewPublicTLSConfig(certPath, keyPath)
	require.Nil(t, err)

	clientConf, err := crypto.NewClientTLSConfig(certPath)
	require.Nil(t, err)
	clientConf.ServerName = "127.0.0.1"

	listener, err := tls.Listen("tcp", "127.0.0.1:0", serverConf)
	require.Nil(t, err)

	runServer(t, listener)

	c, err := imapclient.DialTLS(listener.Addr().String(), &imapclient.Options{TLSConfig: clientConf})
	if err != nil {
		t.Fatalf("[server.TestSessionTLS] Expected nil error dialing server but received: %v", err)
	}
	defer c.Close()

	require.Nil(t, c.Login("alice", "secret").Wait())
	require.Nil(t, c.Logout().Wait())
}
