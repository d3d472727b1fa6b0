package storage

import (
	"context"
	"fmt"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	// Register the PostgreSQL dialect with gorm.
	_ "github.com/jinzhu/gorm/dialects/postgres"
)

// Structs

// PostgresBackend checks a PostgreSQL database holding
// mailbox metadata.
type PostgresBackend struct {
	conn *gorm.DB
}

// Functions

// NewPostgresBackend connects to the database described
// by the supplied parameters. An empty sslMode defaults
// to "require".
func NewPostgresBackend(ip string, port uint16, db string, user string, password string, sslMode string) (*PostgresBackend, error) {

	if sslMode == "" {
		sslMode = "require"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		ip, port, db, user, password, sslMode)

	conn, err := gorm.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to storage database")
	}

	return &PostgresBackend{conn: conn}, nil
}

// Ping round-trips to the database server.
func (p *PostgresBackend) Ping(ctx context.Context) error {
	return p.conn.DB().PingContext(ctx)
}

// Close closes the connection pool.
func (p *PostgresBackend) Close() error {
	return p.conn.Close()
}
