package imap

import (
	"bufio"
	"bytes"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Constants

// MaxLineSize is the largest line the transport buffers
// and the largest literal chunk read at once.
const MaxLineSize = 64 * 1024

// Events a transport reports to its session.
const (
	EventReadReady Event = iota
	EventTimeout
)

// Variables

// ErrLineTooLong is returned by ReadLine if the buffer
// filled up without a line ending in sight.
var ErrLineTooLong = errors.New("line exceeds maximum size")

// ErrTransportClosed is returned when writing to a
// transport that was closed already.
var ErrTransportClosed = errors.New("transport closed")

// Interfaces

// Transport is the byte stream a session runs on. The
// session arms it for reading and receives a readiness
// or timeout event on Events; the read methods then
// return what is already buffered. A nil slice with a
// nil error means no complete data is there yet.
type Transport interface {
	Events() <-chan Event
	ArmRead(timeout time.Duration)
	DisarmRead()
	ReadLine() ([]byte, error)
	Read(n int) ([]byte, error)
	Write(p []byte) error
	Close() error
	RemoteAddr() string
}

// Structs

// Event is what an armed transport reports.
type Event int

// NetTransport implements Transport on a net.Conn. A
// poller goroutine waits for data in the background so
// the session itself never blocks inside a read.
type NetTransport struct {
	conn net.Conn
	br   *bufio.Reader

	events chan Event
	arm    chan armRequest
	done   chan struct{}

	armed bool
	short bool
	err   error

	closeOnce sync.Once
}

type armRequest struct {
	timeout time.Duration
	need    int
}

// Functions

// NewNetTransport wraps conn and starts its poller.
func NewNetTransport(conn net.Conn) *NetTransport {

	t := &NetTransport{
		conn:   conn,
		br:     bufio.NewReaderSize(conn, MaxLineSize),
		events: make(chan Event, 1),
		arm:    make(chan armRequest, 1),
		done:   make(chan struct{}),
	}

	go t.poll()

	return t
}

// poll waits for arm requests and blocks until the
// requested amount of data is buffered, the deadline
// passed or the connection failed.
func (t *NetTransport) poll() {

	for {

		var req armRequest

		select {
		case req = <-t.arm:
		case <-t.done:
			return
		}

		deadline := time.Time{}
		if req.timeout > 0 {
			deadline = time.Now().Add(req.timeout)
		}

		ev := EventReadReady

		if err := t.conn.SetReadDeadline(deadline); err != nil {
			t.err = err
		} else if _, err := t.br.Peek(req.need); err != nil {

			if nErr, ok := err.(net.Error); ok && nErr.Timeout() {
				ev = EventTimeout
			} else if err != bufio.ErrBufferFull {
				t.err = err
			}
		}

		select {
		case t.events <- ev:
		case <-t.done:
			return
		}
	}
}

// Events implements Transport.
func (t *NetTransport) Events() <-chan Event {
	return t.events
}

// ArmRead requests one event once data arrives or the
// timeout passes. A zero timeout waits forever. Arming
// an armed transport has no effect.
func (t *NetTransport) ArmRead(timeout time.Duration) {

	if t.armed {
		return
	}

	t.armed = true

	need := 1
	if t.short {
		need = t.br.Buffered() + 1
	}

	if need > MaxLineSize {
		need = MaxLineSize
	}

	t.arm <- armRequest{
		timeout: timeout,
		need:    need,
	}
}

// DisarmRead marks the transport unarmed. A poll that is
// already running still delivers its event.
func (t *NetTransport) DisarmRead() {
	t.armed = false
}

// ReadLine returns the next buffered line including its
// line ending.
func (t *NetTransport) ReadLine() ([]byte, error) {

	t.short = false

	buffered, _ := t.br.Peek(t.br.Buffered())

	i := bytes.IndexByte(buffered, '\n')
	if i < 0 {

		if len(buffered) >= MaxLineSize {
			return nil, ErrLineTooLong
		}

		if t.err != nil {
			return nil, t.err
		}

		t.short = true

		return nil, nil
	}

	line := make([]byte, (i + 1))
	_, _ = t.br.Read(line)

	return line, nil
}

// Read returns up to n buffered bytes.
func (t *NetTransport) Read(n int) ([]byte, error) {

	t.short = false

	if t.br.Buffered() == 0 {

		if t.err != nil {
			return nil, t.err
		}

		return nil, nil
	}

	if n > t.br.Buffered() {
		n = t.br.Buffered()
	}

	p := make([]byte, n)
	_, _ = t.br.Read(p)

	return p, nil
}

// Write sends p to the client.
func (t *NetTransport) Write(p []byte) error {

	select {
	case <-t.done:
		return ErrTransportClosed
	default:
	}

	if _, err := t.conn.Write(p); err != nil {
		return errors.Wrap(err, "write to client failed")
	}

	return nil
}

// Close stops the poller and closes the connection.
func (t *NetTransport) Close() error {

	err := error(nil)

	t.closeOnce.Do(func() {
		close(t.done)
		err = t.conn.Close()
	})

	return err
}

// RemoteAddr returns the client address.
func (t *NetTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
