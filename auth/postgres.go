package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"crypto/sha512"
	"crypto/tls"
	"encoding/base64"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
)

// Constants

// queryTimeout bounds every user lookup.
const queryTimeout = 10 * time.Second

// Structs

// PostgresAuthenticator carries all relevant information
// needed to allow the PostgreSQL-based authenticator to
// properly authenticate incoming client requests.
type PostgresAuthenticator struct {
	lock sync.Mutex
	Conn *pgx.Conn
}

// Functions

// NewPostgresAuthenticator expects to be supplied with
// PostgreSQL database connection information from the
// config file. It then tries to connect to the database
// and returns an initialized struct above.
func NewPostgresAuthenticator(ctx context.Context, ip string, port uint16, db string, user string, password string, useTLS bool) (*PostgresAuthenticator, error) {

	connConfig, err := pgx.ParseConfig("")
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare PostgreSQL connection config")
	}

	connConfig.Host = ip
	connConfig.Port = port
	connConfig.Database = db
	connConfig.User = user
	connConfig.Password = password
	connConfig.TLSConfig = nil
	connConfig.Fallbacks = nil

	// A nil TLS config disables TLS.
	if useTLS {
		connConfig.TLSConfig = &tls.Config{
			ServerName: ip,
		}
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, errors.Wrap(err, "could not connect to specified PostgreSQL database")
	}

	return &PostgresAuthenticator{
		Conn: conn,
	}, nil
}

// hashPassword returns the representation passwords are
// stored with in the users table.
func hashPassword(password string) string {

	sum := sha512.Sum512([]byte(password))

	return "{SHA512}" + base64.StdEncoding.EncodeToString(sum[:])
}

// AuthenticatePlain is used to perform the actual process
// of looking up if the client supplied user credentials exist
// and match with an user entry in the PostgreSQL database.
func (p *PostgresAuthenticator) AuthenticatePlain(username string, password string, clientAddr string) (int, string, error) {

	var dbUserID int

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	// A single connection serves all sessions.
	p.lock.Lock()
	err := p.Conn.QueryRow(ctx, "SELECT id FROM users WHERE username = $1 AND password = $2", username, hashPassword(password)).Scan(&dbUserID)
	p.lock.Unlock()

	if err != nil {

		if err == pgx.ErrNoRows {
			return -1, "", ErrBadCredentials
		}

		return -1, "", errors.Wrap(err, "error while trying to locate user")
	}

	clientID := fmt.Sprintf("%s:%s", clientAddr, username)

	return dbUserID, clientID, nil
}

// Close terminates the database connection.
func (p *PostgresAuthenticator) Close(ctx context.Context) error {

	p.lock.Lock()
	defer p.lock.Unlock()

	return p.Conn.Close(ctx)
}
