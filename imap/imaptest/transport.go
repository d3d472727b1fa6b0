// Package imaptest provides an in-memory transport to
// drive imap sessions step by step in tests.
package imaptest

import (
	"bytes"
	"sync"
	"time"

	"github.com/go-pluto/imapd/imap"
)

// Structs

// Transport is a scripted imap.Transport. Input is fed
// with Feed, events are raised with Fire and everything
// the session wrote can be inspected with Output.
type Transport struct {
	lock sync.Mutex

	events chan imap.Event
	in     bytes.Buffer
	out    bytes.Buffer

	armed    bool
	armCount int
	timeout  time.Duration
	closed   bool
	err      error
	addr     string
}

// Functions

// NewTransport returns an empty transport.
func NewTransport() *Transport {

	return &Transport{
		events: make(chan imap.Event, 16),
		addr:   "127.0.0.1:4242",
	}
}

// Feed appends client input.
func (t *Transport) Feed(s string) {

	t.lock.Lock()
	defer t.lock.Unlock()

	t.in.WriteString(s)
}

// Fire queues an event for the session to pick up.
func (t *Transport) Fire(ev imap.Event) {
	t.events <- ev
}

// Send feeds s and raises a read event.
func (t *Transport) Send(s string) {
	t.Feed(s)
	t.Fire(imap.EventReadReady)
}

// FailWith makes reads on an empty buffer return err.
func (t *Transport) FailWith(err error) {

	t.lock.Lock()
	defer t.lock.Unlock()

	t.err = err
}

// Output returns and clears everything written so far.
func (t *Transport) Output() string {

	t.lock.Lock()
	defer t.lock.Unlock()

	out := t.out.String()
	t.out.Reset()

	return out
}

// Armed reports whether a read is currently requested.
func (t *Transport) Armed() bool {

	t.lock.Lock()
	defer t.lock.Unlock()

	return t.armed
}

// ArmCount returns how often the transport got armed
// while unarmed.
func (t *Transport) ArmCount() int {

	t.lock.Lock()
	defer t.lock.Unlock()

	return t.armCount
}

// Timeout returns the timeout of the latest arm.
func (t *Transport) Timeout() time.Duration {

	t.lock.Lock()
	defer t.lock.Unlock()

	return t.timeout
}

// Closed reports whether Close was called.
func (t *Transport) Closed() bool {

	t.lock.Lock()
	defer t.lock.Unlock()

	return t.closed
}

// Events implements imap.Transport.
func (t *Transport) Events() <-chan imap.Event {
	return t.events
}

// ArmRead implements imap.Transport.
func (t *Transport) ArmRead(timeout time.Duration) {

	t.lock.Lock()
	defer t.lock.Unlock()

	if t.armed {
		return
	}

	t.armed = true
	t.armCount++
	t.timeout = timeout
}

// DisarmRead implements imap.Transport.
func (t *Transport) DisarmRead() {

	t.lock.Lock()
	defer t.lock.Unlock()

	t.armed = false
}

// ReadLine implements imap.Transport.
func (t *Transport) ReadLine() ([]byte, error) {

	t.lock.Lock()
	defer t.lock.Unlock()

	i := bytes.IndexByte(t.in.Bytes(), '\n')
	if i < 0 {
		return nil, t.err
	}

	line := make([]byte, (i + 1))
	_, _ = t.in.Read(line)

	return line, nil
}

// Read implements imap.Transport.
func (t *Transport) Read(n int) ([]byte, error) {

	t.lock.Lock()
	defer t.lock.Unlock()

	if t.in.Len() == 0 {
		return nil, t.err
	}

	if n > t.in.Len() {
		n = t.in.Len()
	}

	p := make([]byte, n)
	_, _ = t.in.Read(p)

	return p, nil
}

// Write implements imap.Transport.
func (t *Transport) Write(p []byte) error {

	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return imap.ErrTransportClosed
	}

	t.out.Write(p)

	return nil
}

// Close implements imap.Transport.
func (t *Transport) Close() error {

	t.lock.Lock()
	defer t.lock.Unlock()

	t.closed = true

	return nil
}

// RemoteAddr implements imap.Transport.
func (t *Transport) RemoteAddr() string {
	return t.addr
}
