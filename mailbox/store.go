package mailbox

import (
	"os"
	"strings"
	"sync"

	"path/filepath"

	"github.com/pkg/errors"
)

// Constants

// Inbox is the name of every user's primary mailbox.
const Inbox = "INBOX"

// Variables

// Errors returned for client mistakes. Handlers map them
// to tagged NO responses.
var (
	ErrNotExist    = errors.New("mailbox does not exist")
	ErrExist       = errors.New("mailbox already exists")
	ErrInbox       = errors.New("operation not permitted on INBOX")
	ErrInvalidName = errors.New("invalid mailbox name")
)

// Structs

// Store manages the Maildirs of all users below Root.
type Store struct {
	Root string

	lock sync.RWMutex
}

// Status summarizes one mailbox.
type Status struct {
	Name     string
	Messages int
	Recent   int
}

// Functions

// NewStore returns a store rooted at root, creating the
// directory if needed.
func NewStore(root string) (*Store, error) {

	if err := os.MkdirAll(root, (os.ModeDir | CreateMode)); err != nil {
		return nil, errors.Wrapf(err, "failed to create maildir root %s", root)
	}

	return &Store{
		Root: root,
	}, nil
}

// IsInbox reports whether name refers to the INBOX,
// which is matched case-insensitively.
func IsInbox(name string) bool {
	return strings.EqualFold(name, Inbox)
}

// printable reports whether name consists of printable
// US-ASCII only. Names in modified UTF-7 are refused, so
// "&" never reaches the file system either.
func printable(name string) bool {

	for i := 0; i < len(name); i++ {

		if name[i] < 0x20 || name[i] > 0x7e {
			return false
		}
	}

	return true
}

// path resolves name to the Maildir of user.
func (s *Store) path(user string, name string) (dir, error) {

	if user == "" || strings.ContainsAny(user, "/\\") || user == "." || user == ".." {
		return "", errors.Wrapf(ErrInvalidName, "user %q", user)
	}

	if IsInbox(name) {
		return dir(filepath.Join(s.Root, user)), nil
	}

	name = strings.TrimSuffix(name, "/")

	if name == "" || strings.ContainsAny(name, "/\\&") || strings.HasPrefix(name, ".") ||
		name == "tmp" || name == "new" || name == "cur" || !printable(name) {
		return "", errors.Wrapf(ErrInvalidName, "mailbox %q", name)
	}

	return dir(filepath.Join(s.Root, user, name)), nil
}

// EnsureUser creates the INBOX of user if it does not
// exist yet.
func (s *Store) EnsureUser(user string) error {

	s.lock.Lock()
	defer s.lock.Unlock()

	d, err := s.path(user, Inbox)
	if err != nil {
		return err
	}

	if d.check() == nil {
		return nil
	}

	if err := d.create(); err != nil {
		return errors.Wrapf(err, "failed to create INBOX of %s", user)
	}

	return nil
}

// Status counts the messages in a mailbox. Messages in
// new count as recent.
func (s *Store) Status(user string, name string) (Status, error) {

	s.lock.RLock()
	defer s.lock.RUnlock()

	d, err := s.path(user, name)
	if err != nil {
		return Status{}, err
	}

	if d.check() != nil {
		return Status{}, ErrNotExist
	}

	recent, err := d.count("new")
	if err != nil {
		return Status{}, errors.Wrap(err, "failed to count new messages")
	}

	seen, err := d.count("cur")
	if err != nil {
		return Status{}, errors.Wrap(err, "failed to count current messages")
	}

	if IsInbox(name) {
		name = Inbox
	}

	return Status{
		Name:     name,
		Messages: (recent + seen),
		Recent:   recent,
	}, nil
}

// Create adds a new mailbox for user.
func (s *Store) Create(user string, name string) error {

	if IsInbox(name) {
		return ErrInbox
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	d, err := s.path(user, name)
	if err != nil {
		return err
	}

	if _, err := os.Stat(string(d)); err == nil {
		return ErrExist
	}

	if err := d.create(); err != nil {
		os.RemoveAll(string(d))
		return errors.Wrapf(err, "failed to create mailbox %s", name)
	}

	return nil
}

// Delete removes a mailbox with all its messages.
func (s *Store) Delete(user string, name string) error {

	if IsInbox(name) {
		return ErrInbox
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	d, err := s.path(user, name)
	if err != nil {
		return err
	}

	if d.check() != nil {
		return ErrNotExist
	}

	if err := os.RemoveAll(string(d)); err != nil {
		return errors.Wrapf(err, "failed to remove mailbox %s", name)
	}

	return nil
}

// Append delivers msg into a mailbox and returns the
// key of the new message.
func (s *Store) Append(user string, name string, msg []byte) (string, error) {

	s.lock.RLock()
	defer s.lock.RUnlock()

	d, err := s.path(user, name)
	if err != nil {
		return "", err
	}

	if d.check() != nil {
		return "", ErrNotExist
	}

	return d.deliver(msg)
}

// List returns the names of all mailboxes of user,
// INBOX first.
func (s *Store) List(user string) ([]string, error) {

	s.lock.RLock()
	defer s.lock.RUnlock()

	inbox, err := s.path(user, Inbox)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(string(inbox))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read mailboxes of %s", user)
	}

	names := []string{Inbox}

	for _, e := range entries {

		switch e.Name() {
		case "tmp", "new", "cur":
			continue
		}

		if e.IsDir() && dir(filepath.Join(string(inbox), e.Name())).check() == nil {
			names = append(names, e.Name())
		}
	}

	return names, nil
}

// Ping checks that the root directory is reachable.
func (s *Store) Ping() error {

	info, err := os.Stat(s.Root)
	if err != nil {
		return errors.Wrap(err, "maildir root unreachable")
	}

	if !info.IsDir() {
		return errors.Errorf("maildir root %s is not a directory", s.Root)
	}

	return nil
}
