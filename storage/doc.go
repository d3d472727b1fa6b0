/*
Package storage provides the liveness checks the IMAP engine runs against its
storage backend before every command. Backends exist for the local Maildir root,
a PostgreSQL database, a SQLite state file and a remote storage node speaking the
gRPC health protocol.
*/
package storage
