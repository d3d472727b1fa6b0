package imap_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/generic"
	"github.com/go-pluto/imapd/imap"
	"github.com/stretchr/testify/assert"
)

// Structs

// labelCounter remembers the label values of every
// observation.
type labelCounter struct {
	lvs  []string
	seen *[]string
}

// Functions

func (c labelCounter) With(labelValues ...string) metrics.Counter {
	return labelCounter{append(append([]string(nil), c.lvs...), labelValues...), c.seen}
}

func (c labelCounter) Add(delta float64) {
	*c.seen = append(*c.seen, strings.Join(c.lvs, ","))
}

func TestInstrumentingMiddleware(t *testing.T) {

	var seen []string

	m := imap.Metrics{
		Commands: labelCounter{seen: &seen},
		Faults:   generic.NewCounter("faults"),
		Logins:   generic.NewCounter("logins"),
		Logouts:  generic.NewCounter("logouts"),
		Sessions: generic.NewGauge("sessions"),
	}

	e := &imap.Engine{
		Metrics: m,
		Commands: imap.NewCommandTable(map[imap.CommandType]imap.Handler{
			imap.CommandLogin:  imap.HandlerFunc(login),
			imap.CommandLogout: imap.HandlerFunc(logout),
		}, imap.NewInstrumentingMiddleware(m)),
	}

	s, tr := greet(t, e)

	assert.Equal(t, 1.0, m.Sessions.(*generic.Gauge).Value())

	tr.Send("a1 LOGIN alice secret\r\n")
	s.Step()
	tr.Send("a2 NOOP\r\n")
	s.Step()
	tr.Send("a3 LOGOUT\r\n")
	s.Step()

	assert.Equal(t, []string{
		"command,login,result,ok",
		"command,noop,result,fault",
		"command,logout,result,logout",
	}, seen)

	assert.Equal(t, 1.0, m.Logins.(*generic.Counter).Value())
	assert.Equal(t, 1.0, m.Logouts.(*generic.Counter).Value())
	assert.Equal(t, 1.0, m.Faults.(*generic.Counter).Value())
	assert.Equal(t, 0.0, m.Sessions.(*generic.Gauge).Value())
}

func TestLoggingMiddleware(t *testing.T) {

	var buf bytes.Buffer

	e := &imap.Engine{
		Commands: imap.NewCommandTable(nil, imap.NewLoggingMiddleware(log.NewLogfmtLogger(&buf))),
	}

	s, tr := greet(t, e)

	tr.Send("a1 NOOP\r\n")
	s.Step()

	out := buf.String()

	assert.Contains(t, out, "method=noop")
	assert.Contains(t, out, "tag=a1")
	assert.Contains(t, out, "result=fault")
	assert.Contains(t, out, "failed to perform operation correctly")
}

// TestInstrumentingWorker checks that commands running on
// a worker are counted with the result the worker returned.
func TestInstrumentingWorker(t *testing.T) {

	var seen []string

	m := imap.Metrics{
		Commands: labelCounter{seen: &seen},
		Faults:   generic.NewCounter("faults"),
	}

	e := &imap.Engine{
		Metrics: m,
		Commands: imap.NewCommandTable(map[imap.CommandType]imap.Handler{
			imap.CommandAppend: imap.HandlerFunc(func(s *imap.Session) imap.Result {

				tag := s.Tag()

				s.Go(func(w *imap.Worker) imap.Result {
					w.Printf("%s NO [TRYCREATE] APPEND failure, mailbox does not exist\r\n", tag)
					return imap.ResultFault
				})

				return imap.ResultOK
			}),
		}, imap.NewInstrumentingMiddleware(m)),
	}

	s, tr := greet(t, e)

	tr.Send("a1 APPEND Nowhere hello\r\n")
	s.Step()

	if len(seen) != 0 {
		t.Fatalf("[imap.TestInstrumentingWorker] Expected no count before the worker returned but received %v", seen)
	}

	// Output, then completion.
	s.Step()
	s.Step()

	assert.Equal(t, "a1 NO [TRYCREATE] APPEND failure, mailbox does not exist\r\n", tr.Output())
	assert.Equal(t, []string{"command,append,result,fault"}, seen)
	assert.Equal(t, 1.0, m.Faults.(*generic.Counter).Value())
}

// TestFaultCounter checks that every increment of the
// error counter is reported as fault.
func TestFaultCounter(t *testing.T) {

	faults := generic.NewCounter("faults")

	e := &imap.Engine{
		Metrics: imap.Metrics{Faults: faults},
	}

	s, tr := greet(t, e)

	// Tag without command.
	tr.Send("a1\r\n")
	s.Step()

	// Invalid tag.
	tr.Send("a+2 NOOP\r\n")
	s.Step()

	// Malformed arguments count twice.
	tr.Send("a3 LOGIN \"unterminated\r\n")
	s.Step()

	tr.Output()

	assert.Equal(t, 4, s.ErrorCount())
	assert.Equal(t, float64(s.ErrorCount()), faults.Value())
}
