package imap_test

import (
	"testing"

	"github.com/go-pluto/imapd/imap"
	"github.com/stretchr/testify/assert"
)

// Functions

func TestLookupCommand(t *testing.T) {

	tests := []struct {
		name string
		ct   imap.CommandType
	}{
		{"NOOP", imap.CommandNoop},
		{"noop", imap.CommandNoop},
		{"NoOp", imap.CommandNoop},
		{"uid", imap.CommandUID},
		{"GETQUOTAROOT", imap.CommandGetQuotaRoot},
		{"GETQUOTA", imap.CommandGetQuota},
		{"IDLE", imap.CommandIdle},
		{"NOOPX", imap.CommandNone},
		{"NOO", imap.CommandNone},
		{"", imap.CommandNone},
	}

	for _, test := range tests {

		if ct := imap.LookupCommand(test.name); ct != test.ct {
			t.Fatalf("[imap.TestLookupCommand] Expected %q to resolve to %s but received %s", test.name, test.ct, ct)
		}
	}
}

// TestNotImplemented checks the default answer for
// commands without a handler.
func TestNotImplemented(t *testing.T) {

	s, tr := newSession(t, nil)

	tr.Send("a1 GETACL INBOX\r\n")
	s.Step()

	assert.Equal(t, "a1 NO GETACL not implemented\r\n", tr.Output())
	assert.Equal(t, 1, s.ErrorCount())
}

// TestUnknownCommand checks that unknown commands are
// answered with BAD and count as faults.
func TestUnknownCommand(t *testing.T) {

	s, tr := newSession(t, nil)

	tr.Send("a1 FOO bar\r\n")
	s.Step()

	assert.Equal(t, "a1 BAD no valid command\r\n", tr.Output())
	assert.Equal(t, 1, s.ErrorCount())
	assert.Equal(t, imap.CommandNone, s.CommandType())
	assert.True(t, tr.Armed())
}

// TestMiddlewareOrder checks that the first middleware
// supplied is the outermost.
func TestMiddlewareOrder(t *testing.T) {

	var calls []string

	mw := func(name string) imap.Middleware {

		return func(next imap.Handler) imap.Handler {

			return imap.HandlerFunc(func(s *imap.Session) imap.Result {
				calls = append(calls, name)
				return next.Handle(s)
			})
		}
	}

	e := &imap.Engine{
		Commands: imap.NewCommandTable(map[imap.CommandType]imap.Handler{
			imap.CommandNoop: imap.HandlerFunc(func(s *imap.Session) imap.Result {
				calls = append(calls, "handler")
				return noop(s)
			}),
		}, mw("outer"), mw("inner")),
	}

	s, tr := greet(t, e)

	tr.Send("a1 NOOP\r\n")
	s.Step()

	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
	assert.Equal(t, "a1 OK NOOP completed\r\n", tr.Output())
}

func TestCommandTableSentinels(t *testing.T) {

	table := imap.NewCommandTable(nil)

	assert.Nil(t, table.Handler(imap.CommandNone))
	assert.Nil(t, table.Handler(imap.CommandType(-1)))
	assert.NotNil(t, table.Handler(imap.CommandIdle))
	assert.Equal(t, "none", imap.CommandNone.String())
	assert.Equal(t, "idle", imap.CommandIdle.String())
}
