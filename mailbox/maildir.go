package mailbox

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"path/filepath"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// Constants

// CreateMode holds the permissions used when creating
// a Maildir and its subdirectories.
const CreateMode = 0700

// Variables

var deliveries int64

// Structs

// dir is a single Maildir folder on disk.
type dir string

// Functions

// create sets up tmp, new and cur below d. An existing
// d is fine, existing subdirectories are not.
func (d dir) create() error {

	if err := os.Mkdir(string(d), (os.ModeDir | CreateMode)); err != nil && !os.IsExist(err) {
		return err
	}

	for _, sub := range []string{"tmp", "new", "cur"} {

		if err := os.Mkdir(filepath.Join(string(d), sub), (os.ModeDir | CreateMode)); err != nil {
			return err
		}
	}

	return nil
}

// check reports whether d has the Maildir layout.
func (d dir) check() error {

	for _, sub := range []string{"", "tmp", "new", "cur"} {

		info, err := os.Stat(filepath.Join(string(d), sub))
		if err != nil {
			return err
		}

		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", filepath.Join(string(d), sub))
		}
	}

	return nil
}

// count returns the number of messages in sub.
func (d dir) count(sub string) (int, error) {

	f, err := os.Open(filepath.Join(string(d), sub))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	names, err := f.Readdirnames(0)
	if err != nil {
		return 0, err
	}

	n := 0

	for _, name := range names {

		if name[0] != '.' {
			n++
		}
	}

	return n, nil
}

// key builds a unique file name for a new message.
func key() string {

	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}

	return fmt.Sprintf("%d.M%dP%d_%s.%s",
		time.Now().Unix(),
		atomic.AddInt64(&deliveries, 1),
		os.Getpid(),
		uuid.NewV4().String(),
		host,
	)
}

// deliver writes msg to tmp and moves it into new once
// it is completely on disk.
func (d dir) deliver(msg []byte) (string, error) {

	k := key()

	tmpPath := filepath.Join(string(d), "tmp", k)
	newPath := filepath.Join(string(d), "new", k)

	f, err := os.OpenFile(tmpPath, (os.O_CREATE | os.O_EXCL | os.O_WRONLY), 0600)
	if err != nil {
		return "", errors.Wrap(err, "failed to create delivery")
	}

	if _, err := f.Write(msg); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", errors.Wrap(err, "failed to write delivery")
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", errors.Wrap(err, "failed to sync delivery")
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", errors.Wrap(err, "failed to close delivery")
	}

	// Hard-link into new, then drop the tmp reference.
	if err := os.Link(tmpPath, newPath); err != nil {
		os.Remove(tmpPath)
		return "", errors.Wrap(err, "failed to move delivery to new")
	}

	if err := os.Remove(tmpPath); err != nil {
		return "", errors.Wrap(err, "failed to remove tmp reference of delivery")
	}

	return k, nil
}
