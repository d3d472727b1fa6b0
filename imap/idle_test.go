package imap_test

import (
	"testing"
	"time"

	"github.com/go-pluto/imapd/imap"
	"github.com/stretchr/testify/assert"
)

// Functions

// idle runs IDLE until the first queued message and
// reports it on seen.
func idle(seen chan<- imap.IdleMsg) imap.Handler {

	return imap.HandlerFunc(func(s *imap.Session) imap.Result {

		tag := s.Tag()

		return s.StartIdle(func(w *imap.Worker) imap.Result {

			msg := <-w.Queue()
			seen <- msg

			if !msg.IsDone() {
				w.Printf("%s BAD expected DONE\r\n", tag)
				return imap.ResultFault
			}

			w.Printf("%s OK IDLE terminated\r\n", tag)

			return imap.ResultOK
		})
	})
}

func TestIdleMsgIsDone(t *testing.T) {

	tests := []struct {
		msg  imap.IdleMsg
		done bool
	}{
		{imap.IdleMsg{Kind: imap.IdleDone}, true},
		{imap.IdleMsg{Kind: imap.IdleInput, Line: []byte("DONE\r\n")}, true},
		{imap.IdleMsg{Kind: imap.IdleInput, Line: []byte("done\n")}, true},
		{imap.IdleMsg{Kind: imap.IdleInput, Line: []byte("a1 NOOP\r\n")}, false},
		{imap.IdleMsg{Kind: imap.IdleInput, Line: []byte("DONEX\r\n")}, false},
	}

	for _, test := range tests {
		assert.Equal(t, test.done, test.msg.IsDone(), "IsDone of %q", test.msg.Line)
	}
}

// TestIdle runs a full IDLE cycle terminated by DONE.
func TestIdle(t *testing.T) {

	seen := make(chan imap.IdleMsg, 1)

	s, tr := newSession(t, map[imap.CommandType]imap.Handler{
		imap.CommandIdle: idle(seen),
		imap.CommandNoop: imap.HandlerFunc(noop),
	})

	tr.Send("a1 IDLE\r\n")
	s.Step()

	assert.Equal(t, "+ idling\r\n", tr.Output())
	assert.True(t, s.IdleActive())
	assert.Equal(t, imap.CommandContinuing, s.CommandState())
	assert.True(t, tr.Armed())
	assert.Equal(t, time.Duration(0), tr.Timeout(), "IDLE waits for input without timeout")

	tr.Send("DONE\r\n")
	s.Step()

	msg := <-seen
	assert.True(t, msg.IsDone())
	assert.Equal(t, imap.IdleInput, msg.Kind)
	assert.False(t, tr.Armed(), "no read while the worker finishes")

	// Worker output, then its completion.
	s.Step()
	assert.Equal(t, "a1 OK IDLE terminated\r\n", tr.Output())

	s.Step()
	assert.False(t, s.IdleActive())
	assert.Equal(t, imap.CommandDone, s.CommandState())
	assert.True(t, tr.Armed())

	tr.Send("a2 NOOP\r\n")
	s.Step()

	assert.Equal(t, "a2 OK NOOP completed\r\n", tr.Output())
}

// TestIdleBadInput checks that anything but DONE ends
// IDLE with a fault.
func TestIdleBadInput(t *testing.T) {

	seen := make(chan imap.IdleMsg, 1)

	s, tr := newSession(t, map[imap.CommandType]imap.Handler{
		imap.CommandIdle: idle(seen),
	})

	tr.Send("a1 IDLE\r\n")
	s.Step()
	tr.Output()

	tr.Send("a2 NOOP\r\n")
	s.Step()

	msg := <-seen
	assert.False(t, msg.IsDone())
	assert.Equal(t, "a2 NOOP\r\n", string(msg.Line))

	s.Step()
	s.Step()

	assert.Equal(t, "a1 BAD expected DONE\r\n", tr.Output())
	assert.Equal(t, 1, s.ErrorCount())
	assert.False(t, s.IdleActive())
	assert.True(t, tr.Armed())
}

// TestIdleTeardown checks that a session dropped while
// idling stops its worker with a synthetic DONE.
func TestIdleTeardown(t *testing.T) {

	seen := make(chan imap.IdleMsg, 1)

	s, tr := newSession(t, map[imap.CommandType]imap.Handler{
		imap.CommandIdle: idle(seen),
	})

	tr.Send("a1 IDLE\r\n")
	s.Step()
	tr.Output()

	tr.Fire(imap.EventTimeout)
	running := s.Step()

	assert.False(t, running)

	select {
	case msg := <-seen:
		assert.Equal(t, imap.IdleDone, msg.Kind)
	case <-time.After(time.Second):
		t.Fatalf("[imap.TestIdleTeardown] Expected worker to receive synthetic DONE")
	}

	// Worker output after teardown is discarded.
	assert.Equal(t, imap.TimeoutMsg, tr.Output())
	assert.True(t, tr.Closed())
}

// TestWorker checks that a handler may complete on a
// worker goroutine.
func TestWorker(t *testing.T) {

	release := make(chan struct{})

	s, tr := newSession(t, map[imap.CommandType]imap.Handler{
		imap.CommandAppend: imap.HandlerFunc(func(s *imap.Session) imap.Result {

			tag := s.Tag()

			s.Go(func(w *imap.Worker) imap.Result {
				<-release
				w.Printf("%s OK APPEND completed\r\n", tag)
				return imap.ResultOK
			})

			return imap.ResultOK
		}),
	})

	tr.Send("a1 APPEND INBOX hello\r\n")
	s.Step()

	assert.Equal(t, imap.CommandPending, s.CommandState())
	assert.False(t, tr.Armed(), "no new request while the worker runs")

	close(release)

	s.Step()
	assert.Equal(t, "a1 OK APPEND completed\r\n", tr.Output())

	s.Step()
	assert.Equal(t, imap.CommandDone, s.CommandState())
	assert.True(t, tr.Armed())
}
