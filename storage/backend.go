package storage

import (
	"context"
	"crypto/tls"

	"github.com/go-kit/kit/log"
	"github.com/go-pluto/imapd/config"
	"github.com/go-pluto/imapd/crypto"
	"github.com/go-pluto/imapd/mailbox"
	"github.com/pkg/errors"
)

// Interfaces

// Backend is a storage backend the engine can check for
// liveness. It satisfies imap.Backend.
type Backend interface {

	// Ping reports whether the backend is able to serve
	// requests right now.
	Ping(ctx context.Context) error

	// Close releases all resources held by the backend.
	Close() error
}

// Functions

// New opens the backend selected in conf. The maildir
// store is checked by the maildir backend and is always
// needed by the handlers.
func New(ctx context.Context, logger log.Logger, conf config.Storage, store *mailbox.Store) (Backend, error) {

	var (
		b   Backend
		err error
	)

	switch conf.Adapter {

	case "", "maildir":
		b = NewMaildirBackend(store)

	case "postgres":
		p := conf.Postgres
		b, err = NewPostgresBackend(p.IP, p.Port, p.Database, p.User, p.Password, p.SSLMode)

	case "sqlite":
		b, err = NewSQLiteBackend(conf.SQLitePath, 2)

	case "grpc":

		var tlsConfig *tls.Config
		if conf.GRPCUseTLS {

			tlsConfig, err = crypto.NewClientTLSConfig(conf.GRPCRootCertLoc)
			if err != nil {
				return nil, err
			}
		}

		b, err = NewGRPCBackend(ctx, conf.GRPCAddr, tlsConfig)

	default:
		return nil, errors.Errorf("unknown storage adapter '%s'", conf.Adapter)
	}

	if err != nil {
		return nil, err
	}

	if conf.Adapter == "" {
		conf.Adapter = "maildir"
	}

	return NewLoggingBackend(b, log.With(logger, "storage", conf.Adapter)), nil
}
