package imap

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-kit/kit/log/level"
)

// Constants

// Kinds of messages travelling through the IDLE queue.
const (
	IdleInput IdleKind = iota
	IdleDone
)

// idleQueueSize bounds the IDLE queue. A worker leaves
// IDLE on the first message, so it never holds more than
// a client line and the synthetic DONE.
const idleQueueSize = 4

// Structs

// IdleKind distinguishes client input from the synthetic
// shutdown signal.
type IdleKind int

// IdleMsg is handed from the session owner to the worker
// running IDLE. Ownership passes to the receiver.
type IdleMsg struct {
	Kind IdleKind
	Line []byte
}

// Worker is the handle a blocking handler runs with.
// Everything it wants to tell the client goes through
// Printf, which forwards to the goroutine owning the
// session.
type Worker struct {
	s     *Session
	queue <-chan IdleMsg
	done  chan struct{}

	// Run on the owning goroutine with the final result.
	exits []func(Result)
}

// workerMsg travels from a worker back to the owner:
// either output to write or the final result.
type workerMsg struct {
	out    []byte
	done   bool
	result Result
}

// Functions

// IsDone reports whether msg ends IDLE: the synthetic
// shutdown or a client line reading DONE.
func (msg IdleMsg) IsDone() bool {

	if msg.Kind == IdleDone {
		return true
	}

	return bytes.EqualFold(bytes.TrimSpace(msg.Line), []byte("DONE"))
}

// Go runs fn on a worker goroutine. The current command
// stays in progress until fn returns; its result is then
// applied by the exit handler on the owning goroutine.
func (s *Session) Go(fn func(w *Worker) Result) {
	s.startWorker(nil, fn)
}

// StartIdle enters IDLE. It queues the continuation
// response and starts fn on a worker. Lines the client
// sends while idling are not tokenized but delivered to
// fn through Worker.Queue.
func (s *Session) StartIdle(fn func(w *Worker) Result) Result {

	s.idleActive = true
	s.idleLoop = 0
	s.idle = make(chan IdleMsg, idleQueueSize)

	s.Printf("+ idling\r\n")
	s.startWorker(s.idle, fn)

	return ResultOK
}

func (s *Session) startWorker(queue <-chan IdleMsg, fn func(w *Worker) Result) {

	w := &Worker{
		s:     s,
		queue: queue,
		done:  make(chan struct{}),
	}

	s.worker = w

	go func() {

		defer close(w.done)

		result := fn(w)

		select {
		case s.fromWorker <- workerMsg{done: true, result: result}:
		case <-s.closed:
		}
	}()
}

// Queue delivers the input read while idling. It is nil
// for workers started with Go.
func (w *Worker) Queue() <-chan IdleMsg {
	return w.queue
}

// Printf sends formatted output to the client. It is
// silently dropped once the session is gone.
func (w *Worker) Printf(format string, a ...interface{}) {

	msg := workerMsg{
		out: []byte(fmt.Sprintf(format, a...)),
	}

	select {
	case w.s.fromWorker <- msg:
	case <-w.s.closed:
	}
}

// OnExit registers fn to be called with the result of the
// worker once it returned.
func (w *Worker) OnExit(fn func(Result)) {
	w.exits = append(w.exits, fn)
}

func (w *Worker) exited(r Result) {

	for _, fn := range w.exits {
		fn(r)
	}
}

// pushIdle hands msg to the IDLE worker without blocking.
func (s *Session) pushIdle(msg IdleMsg) {

	select {
	case s.idle <- msg:
	default:
		level.Warn(s.logger).Log("msg", "IDLE queue full, dropping message")
	}
}

// onWorker applies a message received from a worker on
// the owning goroutine.
func (s *Session) onWorker(msg workerMsg) {

	if !msg.done {

		if s.state < StateLogout {
			s.out.Write(msg.out)
			s.flush()
		}

		return
	}

	s.worker.exited(msg.result)

	s.worker = nil
	s.idleActive = false
	s.idle = nil
	s.commandState = CommandDone

	s.handleExit(msg.result)
}

// awaitWorker waits until the running worker returned or
// the grace period elapsed, discarding whatever it still
// sends.
func (s *Session) awaitWorker() {

	timer := time.NewTimer(s.engine.IdleExitGrace)
	defer timer.Stop()

	for {

		select {
		case <-s.worker.done:
			s.worker = nil
			return
		case msg := <-s.fromWorker:
			if msg.done {
				s.worker.exited(msg.result)
			}
		case <-timer.C:
			level.Warn(s.logger).Log("msg", "worker did not finish in time")
			return
		}
	}
}
