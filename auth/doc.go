/*
Package auth defines potentially multiple mechanisms to determine whether supplied
user credentials via an IMAP session can be found in a defined user information system.
Examples include an authenticator based on a user database in a PostgreSQL database and
a simple lookup function if username and password match.
*/
package auth
