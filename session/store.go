package session

import (
	"errors"

	"github.com/learnstream/go-course-client/users"
)

// ErrNoSession is returned by Store.Get when no token is stored.
var ErrNoSession = errors.New("no session")

// Store is the single authoritative owner of the session slot. All
// mutation goes through Set/Clear; components never touch the underlying
// storage directly.
type Store interface {
	// Get returns the current session, or ErrNoSession when the token
	// slot is empty.
	Get() (*Session, error)
	// Set replaces the stored token and cached user profile.
	Set(token string, user *users.User) error
	// Clear empties both slots. Clearing an already-empty store is not an
	// error.
	Clear() error
}
