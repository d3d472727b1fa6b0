package handlers

import (
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/go-kit/kit/log/level"
	"github.com/go-pluto/imapd/imap"
	"github.com/go-pluto/imapd/mailbox"
	"github.com/pkg/errors"
)

// Functions

// mailboxFault maps a store error to a tagged response.
// Client mistakes become NO and count as fault, anything
// else is fatal for the session.
func mailboxFault(s *imap.Session, err error) imap.Result {

	switch errors.Cause(err) {

	case mailbox.ErrNotExist:
		s.Tagged("NO", "%s failure, mailbox does not exist", name(s))

	case mailbox.ErrExist:
		s.Tagged("NO", "%s failure, mailbox already exists", name(s))

	case mailbox.ErrInbox:
		s.Tagged("NO", "%s failure, not permitted on INBOX", name(s))

	case mailbox.ErrInvalidName:
		s.Tagged("NO", "%s failure, invalid mailbox name", name(s))

	default:
		level.Error(s.Logger()).Log("msg", "mailbox operation failed", "command", name(s), "err", err)
		return imap.ResultFatal
	}

	return imap.ResultFault
}

// Select opens a mailbox. EXAMINE is served by the same
// handler and opens it read-only.
func (h *Handlers) Select(s *imap.Session) imap.Result {

	if !inState(s, imap.StateAuthenticated, imap.StateSelected) {
		return imap.ResultFault
	}

	if !argCount(s, 1) {
		return imap.ResultFault
	}

	readOnly := s.CommandType() == imap.CommandExamine

	status, err := h.store.Status(s.UserName(), s.Args()[0])
	if err != nil {

		// A failed SELECT leaves no mailbox selected.
		if s.State() == imap.StateSelected {
			s.Unselect()
		}

		return mailboxFault(s, err)
	}

	if err := s.Select(status.Name, readOnly); err != nil {
		level.Error(s.Logger()).Log("msg", "failed to enter selected state", "err", err)
		return imap.ResultFatal
	}

	s.Untagged("FLAGS (%s)", systemFlags)
	s.Untagged("%d EXISTS", status.Messages)
	s.Untagged("%d RECENT", status.Recent)

	if readOnly {
		s.Untagged("OK [PERMANENTFLAGS ()] No permanent flags permitted")
		s.Tagged("OK", "[READ-ONLY] EXAMINE completed")
	} else {
		s.Untagged("OK [PERMANENTFLAGS (%s)] Limited", systemFlags)
		s.Tagged("OK", "[READ-WRITE] SELECT completed")
	}

	return imap.ResultOK
}

// Create attempts to create a mailbox with name
// taken from the arguments.
func (h *Handlers) Create(s *imap.Session) imap.Result {

	if !inState(s, imap.StateAuthenticated, imap.StateSelected) {
		return imap.ResultFault
	}

	if !argCount(s, 1) {
		return imap.ResultFault
	}

	if err := h.store.Create(s.UserName(), s.Args()[0]); err != nil {
		return mailboxFault(s, err)
	}

	s.Tagged("OK", "CREATE completed")

	return imap.ResultOK
}

// Delete removes a mailbox and all mails in it.
func (h *Handlers) Delete(s *imap.Session) imap.Result {

	if !inState(s, imap.StateAuthenticated, imap.StateSelected) {
		return imap.ResultFault
	}

	if !argCount(s, 1) {
		return imap.ResultFault
	}

	target := s.Args()[0]

	if selected, _ := s.Mailbox(); s.State() == imap.StateSelected && strings.EqualFold(selected, target) {
		s.Tagged("NO", "DELETE failure, mailbox is selected")
		return imap.ResultFault
	}

	if err := h.store.Delete(s.UserName(), target); err != nil {
		return mailboxFault(s, err)
	}

	s.Tagged("OK", "DELETE completed")

	return imap.ResultOK
}

// List answers LIST for the flat mailbox namespace.
func (h *Handlers) List(s *imap.Session) imap.Result {

	if !inState(s, imap.StateAuthenticated, imap.StateSelected) {
		return imap.ResultFault
	}

	if !argCount(s, 2) {
		return imap.ResultFault
	}

	reference, pattern := s.Args()[0], s.Args()[1]

	// Empty pattern asks for the hierarchy delimiter.
	if pattern == "" {
		s.Untagged(`LIST (\Noselect) %s ""`, quote(h.separator))
		s.Tagged("OK", "LIST completed")
		return imap.ResultOK
	}

	names, err := h.store.List(s.UserName())
	if err != nil {
		level.Error(s.Logger()).Log("msg", "failed to list mailboxes", "err", err)
		return imap.ResultFatal
	}

	for _, n := range names {

		if matchMailbox(n, h.delim(), reference, pattern) {
			s.Untagged("LIST () %s %s", quote(h.separator), quote(n))
		}
	}

	s.Tagged("OK", "LIST completed")

	return imap.ResultOK
}

// matchMailbox reports whether name is selected by a
// LIST reference and pattern. INBOX is matched
// case-insensitively.
func matchMailbox(name string, delim rune, reference string, pattern string) bool {

	if reference == "" && mailbox.IsInbox(name) && mailbox.IsInbox(pattern) {
		return true
	}

	return imapserver.MatchList(name, delim, reference, pattern)
}

// Status reports MESSAGES and RECENT of a mailbox that
// does not have to be selected.
func (h *Handlers) Status(s *imap.Session) imap.Result {

	if !inState(s, imap.StateAuthenticated, imap.StateSelected) {
		return imap.ResultFault
	}

	args := s.Args()

	if len(args) < 4 || args[1] != "(" || args[len(args)-1] != ")" {
		s.Tagged("BAD", "Command STATUS expects a mailbox and a list of status items")
		return imap.ResultFault
	}

	status, err := h.store.Status(s.UserName(), args[0])
	if err != nil {
		return mailboxFault(s, err)
	}

	items := make([]string, 0, 2)

	for _, item := range args[2:(len(args) - 1)] {

		switch strings.ToUpper(item) {
		case "MESSAGES":
			items = append(items, "MESSAGES", strconv.Itoa(status.Messages))
		case "RECENT":
			items = append(items, "RECENT", strconv.Itoa(status.Recent))
		default:
			s.Tagged("BAD", "Unsupported status item %s", item)
			return imap.ResultFault
		}
	}

	s.Untagged("STATUS %s (%s)", quote(status.Name), strings.Join(items, " "))
	s.Tagged("OK", "STATUS completed")

	return imap.ResultOK
}

// Namespace announces the single personal namespace.
func (h *Handlers) Namespace(s *imap.Session) imap.Result {

	if !inState(s, imap.StateAuthenticated, imap.StateSelected) {
		return imap.ResultFault
	}

	if !argCount(s, 0) {
		return imap.ResultFault
	}

	s.Untagged(`NAMESPACE (("" %s)) NIL NIL`, quote(h.separator))
	s.Tagged("OK", "NAMESPACE completed")

	return imap.ResultOK
}

// Append delivers the message of the last argument into
// the named mailbox. Flags and date are accepted but not
// stored. Delivery runs on a worker as it touches disk.
func (h *Handlers) Append(s *imap.Session) imap.Result {

	if !inState(s, imap.StateAuthenticated, imap.StateSelected) {
		return imap.ResultFault
	}

	args := s.Args()

	if len(args) < 2 {
		s.Tagged("BAD", "Command APPEND expects a mailbox and a message")
		return imap.ResultFault
	}

	var (
		tag    = s.Tag()
		user   = s.UserName()
		target = args[0]
		msg    = []byte(args[len(args)-1])
		logger = s.Logger()
	)

	s.Go(func(w *imap.Worker) imap.Result {

		key, err := h.store.Append(user, target, msg)
		if err != nil {

			switch errors.Cause(err) {
			case mailbox.ErrNotExist, mailbox.ErrInvalidName:
				w.Printf("%s NO [TRYCREATE] APPEND failure, mailbox does not exist\r\n", tag)
				return imap.ResultFault
			}

			level.Error(logger).Log("msg", "failed to deliver appended message", "mailbox", target, "err", err)

			return imap.ResultFatal
		}

		level.Debug(logger).Log("msg", "message appended", "mailbox", target, "key", key, "size", len(msg))

		w.Printf("%s OK APPEND completed\r\n", tag)

		return imap.ResultOK
	})

	return imap.ResultOK
}
