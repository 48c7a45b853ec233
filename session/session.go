package session

import (
	"github.com/learnstream/go-course-client/users"
)

// Session is the client-side authenticated state: an opaque bearer token
// issued at sign-in plus the cached user profile returned with it.
// The token is never parsed or validated locally; expiry is discovered
// only by a failed authenticated call.
type Session struct {
	Token string      `json:"token"`
	User  *users.User `json:"user,omitempty"`
}
