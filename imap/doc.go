/*
Package imap implements the protocol engine of the pluto IMAP server: it
turns bytes read from a client connection into tagged requests, dispatches
them to registered command handlers and drives the per-connection state
machine deciding when reads, writes and command execution may happen.

Each connection is represented by a Session owned by exactly one goroutine.
That goroutine runs the read and write callbacks (OnRead, OnWrite) in
response to readiness events delivered by a Transport and is the only one
allowed to write to it. Handlers that need to block, most prominently IDLE,
run on a worker goroutine and route all output back to the owner through a
channel.

Handlers return one of four result codes. ResultOK means communication went
as planned, regardless of whether the command succeeded in IMAP terms.
ResultFault means the client misbehaved and a BAD or NO response was already
queued; these count towards the faulty response threshold after which the
connection is closed. ResultLogout and ResultFatal end the session.

Please refer to https://tools.ietf.org/html/rfc3501#section-3 for full documentation
on the states and https://tools.ietf.org/html/rfc2177 for IDLE.
*/
package imap
