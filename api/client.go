// Package api is the client's single boundary to the backend REST API.
// It attaches the bearer token from the session store to every request,
// always uses credentialed (cookie-carrying) transport, and normalizes
// failures into the taxonomy in api_errors.go. It never mutates the
// session store on failure; callers clear it when they see
// ErrUnauthorized.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/learnstream/go-course-client/checkout"
	"github.com/learnstream/go-course-client/courses"
	"github.com/learnstream/go-course-client/session"
	"github.com/learnstream/go-course-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL    string
	sessions   session.Store
	httpClient *http.Client
	log        zerolog.Logger
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client (primarily for
// testing and custom transports).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithLogger sets the logger used for request failures.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a Client for the backend at baseURL. The session store
// supplies the bearer token on each request and receives the token from
// successful sign-in/sign-up responses.
func New(baseURL string, sessions session.Store, options ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[api.New] baseURL is required")
	}
	if sessions == nil {
		return nil, errors.New("[api.New] session store is required")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "[api.New] cookiejar.New")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessions:   sessions,
		httpClient: &http.Client{Timeout: defaultTimeout, Jar: jar},
		log:        zerolog.Nop(),
	}

	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

type credentialsRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *users.User `json:"user,omitempty"`
}

// SignUp registers a new account and stores the returned session.
func (c *Client) SignUp(ctx context.Context, email, password, firstName, lastName string) (*session.Session, error) {
	return c.authenticate(ctx, "/api/auth/signup", credentialsRequest{
		Email:     email,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
	})
}

// SignIn exchanges credentials for a session token and stores it.
func (c *Client) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	return c.authenticate(ctx, "/api/auth/signin", credentialsRequest{Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, path string, req credentialsRequest) (*session.Session, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.New("[Client.authenticate] backend returned no token")
	}
	if err := c.sessions.Set(resp.Token, resp.User); err != nil {
		return nil, errors.Wrap(err, "[Client.authenticate] sessions.Set")
	}
	return &session.Session{Token: resp.Token, User: resp.User}, nil
}

// SignOut destroys the local session. The token is opaque and stateless
// from the client's point of view; there is nothing to revoke remotely.
func (c *Client) SignOut() error {
	if err := c.sessions.Clear(); err != nil {
		return errors.Wrap(err, "[Client.SignOut] sessions.Clear")
	}
	return nil
}

// CheckAuth asks the backend whether the stored token is still valid and
// returns the authoritative user profile.
func (c *Client) CheckAuth(ctx context.Context) (*users.User, error) {
	var resp struct {
		User *users.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/check", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Courses fetches the full catalog.
func (c *Client) Courses(ctx context.Context) ([]courses.Course, error) {
	var out []courses.Course
	if err := c.do(ctx, http.MethodGet, "/api/courses", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Course fetches one course's metadata.
func (c *Client) Course(ctx context.Context, courseID string) (*courses.Course, error) {
	var out courses.Course
	if err := c.do(ctx, http.MethodGet, "/api/courses/"+courseID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CourseVideos fetches the video list for a course.
func (c *Client) CourseVideos(ctx context.Context, courseID string) ([]courses.Video, error) {
	var out []courses.Video
	if err := c.do(ctx, http.MethodGet, "/api/courses/"+courseID+"/videos", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PurchaseStatus fetches the server-confirmed entitlement for a course.
// Results are never cached; the gate calls this fresh on every mount.
func (c *Client) PurchaseStatus(ctx context.Context, courseID string) (*courses.PurchaseStatus, error) {
	var out courses.PurchaseStatus
	if err := c.do(ctx, http.MethodGet, "/api/courses/"+courseID+"/purchase-status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProgress pushes one playback progress sample.
func (c *Client) UpdateProgress(ctx context.Context, sample courses.ProgressSample) error {
	path := fmt.Sprintf("/api/courses/%s/progress", sample.CourseID)
	return c.do(ctx, http.MethodPost, path, sample, nil)
}

type createOrderRequest struct {
	CourseID string                  `json:"course_id"`
	Billing  checkout.BillingDetails `json:"billing"`
}

// CreateOrder asks the backend to open a payment order for a course.
func (c *Client) CreateOrder(ctx context.Context, courseID string, billing checkout.BillingDetails) (*checkout.Order, error) {
	var out checkout.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", createOrderRequest{CourseID: courseID, Billing: billing}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyPayment submits the payment widget's receipt for server-side
// signature verification.
func (c *Client) VerifyPayment(ctx context.Context, receipt checkout.PaymentReceipt) (*checkout.Verification, error) {
	var out checkout.Verification
	if err := c.do(ctx, http.MethodPost, "/api/orders/verify", receipt, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs one JSON request/response round trip. Non-2xx responses
// become *Error (401 unwraps to ErrUnauthorized); transport failures
// become ErrUnreachable.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "[Client.do] marshal %s %s", method, path)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrapf(err, "[Client.do] new request %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s, err := c.sessions.Get(); err == nil {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("backend unreachable")
		return errors.Wrapf(ErrUnreachable, "%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "[Client.do] read response %s %s", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, raw)}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "[Client.do] decode response %s %s", method, path)
	}
	return nil
}

// errorMessage extracts the backend's {"error": "..."} body, falling back
// to a status-derived message.
func errorMessage(status int, raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.ToLower(http.StatusText(status))
}
