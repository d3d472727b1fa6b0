package storage

import (
	"context"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/pkg/errors"
)

// Constants

// Tables the SQLite state file is expected to carry.
// They are created on open if missing.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS Mailboxes (
	MailboxID   INTEGER PRIMARY KEY,
	UserName    TEXT NOT NULL,
	Name        TEXT NOT NULL,
	UIDValidity INTEGER NOT NULL,
	UIDNext     INTEGER NOT NULL DEFAULT 1,

	UNIQUE(UserName, Name)
);
`

// Structs

// SQLiteBackend checks a local SQLite state file through
// a pool of connections.
type SQLiteBackend struct {
	pool *sqlitex.Pool
}

// Functions

// NewSQLiteBackend opens path with poolSize connections
// and ensures the schema exists.
func NewSQLiteBackend(path string, poolSize int) (*SQLiteBackend, error) {

	if poolSize <= 0 {
		poolSize = 1
	}

	pool, err := sqlitex.Open(path, 0, poolSize)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database %s", path)
	}

	conn := pool.Get(context.Background())
	if conn == nil {
		pool.Close()
		return nil, errors.New("sqlite pool closed")
	}

	err = sqlitex.ExecScript(conn, sqliteSchema)
	pool.Put(conn)

	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to create sqlite schema")
	}

	return &SQLiteBackend{pool: pool}, nil
}

// Ping takes a connection from the pool and runs a
// trivial query on it.
func (s *SQLiteBackend) Ping(ctx context.Context) error {

	conn := s.pool.Get(ctx)
	if conn == nil {

		if err := ctx.Err(); err != nil {
			return err
		}

		return errors.New("sqlite pool closed")
	}
	defer s.pool.Put(conn)

	return ping(conn)
}

func ping(conn *sqlite.Conn) error {

	one, err := sqlitex.ResultInt64(conn.Prep("SELECT 1;"))
	if err != nil {
		return errors.Wrap(err, "sqlite ping failed")
	}

	if one != 1 {
		return errors.Errorf("sqlite ping returned %d", one)
	}

	return nil
}

// Close closes all pooled connections.
func (s *SQLiteBackend) Close() error {
	return s.pool.Close()
}
