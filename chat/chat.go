// Package chat is the customer-support chat client. Messages travel as
// JSON frames over a websocket authenticated with the same bearer token
// as the REST API.
package chat

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/learnstream/go-course-client/api"
	"github.com/learnstream/go-course-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const closeTimeout = 5 * time.Second

// SenderUser and SenderAgent identify who wrote a message.
const (
	SenderUser  = "user"
	SenderAgent = "agent"
)

// Message is one chat frame.
type Message struct {
	ID     string    `json:"id"`
	Sender string    `json:"sender"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

// Client is a connected support-chat session.
type Client struct {
	conn      *websocket.Conn
	log       zerolog.Logger
	writeLock sync.Mutex
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithLogger sets the logger for connection-level events.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// Dial connects to the support chat endpoint. rawURL may use an http(s)
// or ws(s) scheme; http schemes are rewritten. Chat requires an
// authenticated session; a rejected handshake with a 401 surfaces as
// api.ErrUnauthorized so callers can clear the session and redirect.
func Dial(ctx context.Context, rawURL string, sessions session.Store, options ...ClientOption) (*Client, error) {
	if sessions == nil {
		return nil, errors.New("[chat.Dial] session store is required")
	}
	s, err := sessions.Get()
	if err != nil {
		return nil, errors.Wrap(err, "[chat.Dial] sessions.Get")
	}

	wsURL := rawURL
	switch {
	case strings.HasPrefix(rawURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(rawURL, "https://")
	case strings.HasPrefix(rawURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(rawURL, "http://")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.Token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		unauthorized := false
		if resp != nil {
			unauthorized = resp.StatusCode == http.StatusUnauthorized
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		if unauthorized {
			return nil, errors.Wrap(api.ErrUnauthorized, "[chat.Dial] handshake rejected")
		}
		return nil, errors.Wrapf(api.ErrUnreachable, "[chat.Dial] %v", err)
	}

	c := &Client{conn: conn, log: zerolog.Nop()}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Send writes one user message and returns it with its generated ID.
func (c *Client) Send(body string) (*Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("[Client.Send] empty message")
	}

	msg := &Message{
		ID:     uuid.New().String(),
		Sender: SenderUser,
		Body:   body,
		SentAt: time.Now().UTC(),
	}

	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		return nil, errors.Wrap(err, "[Client.Send] WriteJSON")
	}
	return msg, nil
}

// Receive blocks until the next message arrives or the connection closes.
func (c *Client) Receive() (*Message, error) {
	var msg Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		return nil, errors.Wrap(err, "[Client.Receive] ReadJSON")
	}
	return &msg, nil
}

// Close sends a close frame and tears down the connection.
func (c *Client) Close() error {
	c.writeLock.Lock()
	deadline := time.Now().Add(closeTimeout)
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	c.writeLock.Unlock()
	if err != nil && err != websocket.ErrCloseSent {
		c.log.Debug().Err(err).Msg("close frame not delivered")
	}
	return c.conn.Close()
}
