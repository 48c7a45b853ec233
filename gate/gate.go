// Package gate decides whether the current user may see a course's
// protected learning content. The decision combines local session
// presence with a fresh server-confirmed entitlement check; nothing is
// cached between checks.
package gate

import (
	"context"
	"fmt"
	"net/url"

	"github.com/learnstream/go-course-client/api"
	"github.com/learnstream/go-course-client/courses"
	"github.com/learnstream/go-course-client/session"
	"github.com/learnstream/go-course-client/users"
	"github.com/pkg/errors"
)

// State is the gate's position in the access check.
type State string

const (
	StateAnonymous State = "anonymous"
	StateChecking  State = "checking"
	StateGranted   State = "granted"
	StateDenied    State = "denied"
	StateError     State = "error"
)

// Route templates for denial redirects.
const (
	SignUpPath       = "/signup"
	CourseDetailPath = "/courses/%s"
)

// AuthRepo validates the stored token against the backend.
type AuthRepo interface {
	CheckAuth(ctx context.Context) (*users.User, error)
}

// EntitlementRepo fetches the server-confirmed purchase status.
type EntitlementRepo interface {
	PurchaseStatus(ctx context.Context, courseID string) (*courses.PurchaseStatus, error)
}

// Repos holds the backend dependencies of the Gate.
type Repos struct {
	Auth         AuthRepo
	Entitlements EntitlementRepo
}

// Decision is the outcome of one access check. Redirect is set only for
// denials; Err only for StateError.
type Decision struct {
	State    State
	User     *users.User
	Status   *courses.PurchaseStatus
	Redirect string
	Err      error
}

// Gate runs the two-stage access check for protected course content.
type Gate struct {
	repos    Repos
	sessions session.Store
}

func New(repos Repos, sessions session.Store) (*Gate, error) {
	if repos.Auth == nil {
		return nil, errors.New("[gate.New] Auth repo is required")
	}
	if repos.Entitlements == nil {
		return nil, errors.New("[gate.New] Entitlements repo is required")
	}
	if sessions == nil {
		return nil, errors.New("[gate.New] session store is required")
	}
	return &Gate{repos: repos, sessions: sessions}, nil
}

// Check runs the full state machine for one protected-view mount:
// anonymous -> checking -> granted | denied | error. fromPath is the
// originating route, carried on the sign-up redirect so the user returns
// where they started. The auth check is awaited before the entitlement
// call so an invalid session short-circuits the second request.
func (g *Gate) Check(ctx context.Context, courseID, fromPath string) Decision {
	if _, err := g.sessions.Get(); err != nil {
		return Decision{State: StateDenied, Redirect: signUpRedirect(fromPath)}
	}

	user, err := g.repos.Auth.CheckAuth(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			_ = g.sessions.Clear()
			return Decision{State: StateDenied, Redirect: signUpRedirect(fromPath)}
		}
		return Decision{State: StateError, Err: errors.Wrap(err, "[Gate.Check] CheckAuth")}
	}

	status, err := g.repos.Entitlements.PurchaseStatus(ctx, courseID)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			_ = g.sessions.Clear()
			return Decision{State: StateDenied, Redirect: signUpRedirect(fromPath)}
		}
		return Decision{State: StateError, User: user, Err: errors.Wrap(err, "[Gate.Check] PurchaseStatus")}
	}

	if !status.HasPurchased {
		// Unentitled but authenticated: send to the course detail page,
		// not sign-up.
		return Decision{
			State:    StateDenied,
			User:     user,
			Status:   status,
			Redirect: fmt.Sprintf(CourseDetailPath, courseID),
		}
	}

	return Decision{State: StateGranted, User: user, Status: status}
}

func signUpRedirect(fromPath string) string {
	if fromPath == "" {
		return SignUpPath
	}
	return SignUpPath + "?redirect=" + url.QueryEscape(fromPath)
}
