package users

// User holds the profile fields the backend returns alongside a session
// token. The client caches it verbatim; the backend owns the schema.
type User struct {
	ID        string `json:"id,omitempty"`         // Unique identifier for the user
	Email     string `json:"email,omitempty"`      // User's email address
	FirstName string `json:"first_name,omitempty"` // First name of the user
	LastName  string `json:"last_name,omitempty"`  // Last name of the user
}

// DisplayName returns a printable name, falling back to the email address
// when no name fields are set.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}
