package imap

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Structs

// bufferTransport only records what is written to it.
type bufferTransport struct {
	out    bytes.Buffer
	events chan Event
}

// Functions

func (t *bufferTransport) Events() <-chan Event          { return t.events }
func (t *bufferTransport) ArmRead(timeout time.Duration) {}
func (t *bufferTransport) DisarmRead()                   {}
func (t *bufferTransport) ReadLine() ([]byte, error)     { return nil, nil }
func (t *bufferTransport) Read(n int) ([]byte, error)    { return nil, nil }
func (t *bufferTransport) Close() error                  { return nil }
func (t *bufferTransport) RemoteAddr() string            { return "127.0.0.1:4242" }

func (t *bufferTransport) Write(p []byte) error {
	t.out.Write(p)
	return nil
}

// TestDispatchTwice checks that dispatching a request
// whose command is done already does nothing.
func TestDispatchTwice(t *testing.T) {

	calls := 0

	e := &Engine{
		Commands: NewCommandTable(map[CommandType]Handler{
			CommandNoop: HandlerFunc(func(s *Session) Result {
				calls++
				s.Tagged("OK", "NOOP completed")
				return ResultOK
			}),
		}),
	}

	s := e.NewSession(&bufferTransport{events: make(chan Event)})

	s.req = &Request{Tag: "a1", Command: "NOOP"}
	s.args = []string{}
	s.parserState = true

	r1 := s.dispatch()
	out1 := s.out.String()

	r2 := s.dispatch()
	out2 := s.out.String()

	if calls != 1 {
		t.Fatalf("[imap.TestDispatchTwice] Expected handler to run once but it ran %d times", calls)
	}

	assert.Equal(t, ResultOK, r1)
	assert.Equal(t, ResultOK, r2)
	assert.Equal(t, "a1 OK NOOP completed\r\n", out1)
	assert.Equal(t, out1, out2)
	assert.Equal(t, CommandDone, s.commandState)
	assert.Equal(t, CommandNoop, s.commandType)
	assert.Equal(t, 0, s.errorCount)
}
