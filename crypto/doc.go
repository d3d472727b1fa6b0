/*
Package crypto provides the TLS configurations for the public IMAP listener and
for connections to a remote storage backend. It can also produce a self-signed
certificate for local setups and tests.
*/
package crypto
