package handlers

import (
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/go-pluto/imapd/imap"
)

// Functions

// Idle keeps the connection open and polls the selected
// mailbox, pushing EXISTS and RECENT whenever the counts
// change, until the client sends DONE.
func (h *Handlers) Idle(s *imap.Session) imap.Result {

	if !inState(s, imap.StateAuthenticated, imap.StateSelected) {
		return imap.ResultFault
	}

	if !argCount(s, 0) {
		return imap.ResultFault
	}

	var (
		tag      = s.Tag()
		user     = s.UserName()
		logger   = s.Logger()
		selected string
		last     = -1
	)

	if s.State() == imap.StateSelected {

		selected, _ = s.Mailbox()

		if status, err := h.store.Status(user, selected); err == nil {
			last = status.Messages
		}
	}

	return s.StartIdle(func(w *imap.Worker) imap.Result {

		ticker := time.NewTicker(h.idleInterval)
		defer ticker.Stop()

		for {

			select {

			case msg := <-w.Queue():

				if !msg.IsDone() {
					w.Printf("%s BAD expected DONE\r\n", tag)
					return imap.ResultFault
				}

				w.Printf("%s OK IDLE terminated\r\n", tag)

				return imap.ResultOK

			case <-ticker.C:

				if selected == "" {
					continue
				}

				status, err := h.store.Status(user, selected)
				if err != nil {
					level.Warn(logger).Log("msg", "failed to poll selected mailbox", "mailbox", selected, "err", err)
					continue
				}

				if status.Messages != last {
					w.Printf("* %d EXISTS\r\n* %d RECENT\r\n", status.Messages, status.Recent)
					last = status.Messages
				}
			}
		}
	})
}
