/*
Package handlers implements the IMAP commands this server
actually serves on top of the protocol engine in package imap:
CAPABILITY, NOOP and LOGOUT in any state, LOGIN and AUTHENTICATE
before authentication, SELECT, EXAMINE, CREATE, DELETE, LIST,
STATUS, APPEND, NAMESPACE and IDLE once authenticated, and CHECK,
CLOSE and UNSELECT on a selected mailbox. Every other command of
the dispatch table answers with NO.
*/
package handlers
