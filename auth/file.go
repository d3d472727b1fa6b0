package auth

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Structs

// FileAuthenticator contains file based authentication
// information including the in-memory list of users
// sorted by name.
type FileAuthenticator struct {
	Users []User
}

// User holds name and password from one line from users
// file. Passwords starting with "$2" are bcrypt hashes,
// everything else is compared as plain text.
type User struct {
	ID       int
	Name     string
	Password string
}

// Functions

// NewFileAuthenticator takes in a file name and a separator,
// reads in specified file and parses it line by line as
// username - password elements separated by the separator.
// Empty lines and lines starting with '#' are skipped.
func NewFileAuthenticator(file string, sep string) (*FileAuthenticator, error) {

	users := make([]User, 0, 50)

	handle, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "could not open supplied authentication file")
	}
	defer handle.Close()

	scanner := bufio.NewScanner(handle)

	i := 1
	line := 0

	for scanner.Scan() {

		line++

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		// Split read line based on separator defined in config file.
		userData := strings.SplitN(text, sep, 2)
		if len(userData) != 2 || userData[0] == "" {
			return nil, errors.Errorf("malformed entry in authentication file %s on line %d", file, line)
		}

		users = append(users, User{
			ID:       i,
			Name:     userData[0],
			Password: userData[1],
		})

		i++
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "experienced error while scanning authentication file")
	}

	// Sort users list to search it efficiently later on.
	sort.Slice(users, func(i, j int) bool {
		return users[i].Name < users[j].Name
	})

	return &FileAuthenticator{
		Users: users,
	}, nil
}

// AuthenticatePlain performs the actual authentication
// process by taking supplied credentials and attempting
// to find a matching entry the in-memory list taken from
// the authentication file.
func (f *FileAuthenticator) AuthenticatePlain(username string, password string, clientAddr string) (int, string, error) {

	// Search in user list for user matching supplied name.
	i := sort.Search(len(f.Users), func(i int) bool {
		return f.Users[i].Name >= username
	})

	if !((i < len(f.Users)) && (f.Users[i].Name == username)) {
		return -1, "", ErrBadCredentials
	}

	stored := f.Users[i].Password

	if strings.HasPrefix(stored, "$2") {

		if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)); err != nil {
			return -1, "", ErrBadCredentials
		}

	} else if stored != password {
		return -1, "", ErrBadCredentials
	}

	// Build the deterministic client-specific session identifier.
	clientID := fmt.Sprintf("%s:%s", clientAddr, username)

	return f.Users[i].ID, clientID, nil
}
