package handlers

import (
	"github.com/go-kit/kit/log/level"
	"github.com/go-pluto/imapd/imap"
)

// Functions

// Capability handles the IMAP CAPABILITY command.
// It outputs the supported actions in the current state.
func (h *Handlers) Capability(s *imap.Session) imap.Result {

	if !argCount(s, 0) {
		return imap.ResultFault
	}

	s.Untagged("CAPABILITY %s", Capabilities)
	s.Tagged("OK", "CAPABILITY completed")

	return imap.ResultOK
}

// Noop handles the IMAP NOOP command. On a selected
// mailbox it reports the current message counts.
func (h *Handlers) Noop(s *imap.Session) imap.Result {

	if !argCount(s, 0) {
		return imap.ResultFault
	}

	if s.State() == imap.StateSelected {

		name, _ := s.Mailbox()

		status, err := h.store.Status(s.UserName(), name)
		if err != nil {
			level.Warn(s.Logger()).Log("msg", "failed to get status of selected mailbox", "mailbox", name, "err", err)
		} else {
			s.Untagged("%d EXISTS", status.Messages)
			s.Untagged("%d RECENT", status.Recent)
		}
	}

	s.Tagged("OK", "NOOP completed")

	return imap.ResultOK
}

// Logout correctly ends a connection with a client.
// The exit handler writes BYE and the tagged OK.
func (h *Handlers) Logout(s *imap.Session) imap.Result {

	if !argCount(s, 0) {
		return imap.ResultFault
	}

	if err := s.SetState(imap.StateLogout); err != nil {
		level.Error(s.Logger()).Log("msg", "failed to enter logout state", "err", err)
		return imap.ResultFatal
	}

	return imap.ResultLogout
}
