package handlers

import (
	"github.com/go-kit/kit/log/level"
	"github.com/go-pluto/imapd/imap"
)

// Functions

// Check has nothing to flush as every change goes to
// disk right away.
func (h *Handlers) Check(s *imap.Session) imap.Result {

	if !inState(s, imap.StateSelected) {
		return imap.ResultFault
	}

	if !argCount(s, 0) {
		return imap.ResultFault
	}

	s.Tagged("OK", "CHECK completed")

	return imap.ResultOK
}

// Close leaves the selected mailbox. UNSELECT is served
// by the same handler since no message is ever flagged
// \Deleted that CLOSE would have to expunge.
func (h *Handlers) Close(s *imap.Session) imap.Result {

	if !inState(s, imap.StateSelected) {
		return imap.ResultFault
	}

	if !argCount(s, 0) {
		return imap.ResultFault
	}

	if err := s.Unselect(); err != nil {
		level.Error(s.Logger()).Log("msg", "failed to leave selected state", "err", err)
		return imap.ResultFatal
	}

	s.Tagged("OK", "%s completed", name(s))

	return imap.ResultOK
}
