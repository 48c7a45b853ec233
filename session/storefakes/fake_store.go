package storefakes

import (
	"sync"

	"github.com/learnstream/go-course-client/session"
	"github.com/learnstream/go-course-client/users"
)

var _ session.Store = (*FakeStore)(nil)

// FakeStore is an in-memory session store for tests.
type FakeStore struct {
	current *session.Session
	lock    sync.RWMutex

	SetErr   error // returned from Set when non-nil
	ClearErr error // returned from Clear when non-nil
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (fs *FakeStore) Get() (*session.Session, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	if fs.current == nil {
		return nil, session.ErrNoSession
	}
	copied := *fs.current
	return &copied, nil
}

func (fs *FakeStore) Set(token string, user *users.User) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.SetErr != nil {
		return fs.SetErr
	}
	fs.current = &session.Session{Token: token, User: user}
	return nil
}

func (fs *FakeStore) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if fs.ClearErr != nil {
		return fs.ClearErr
	}
	fs.current = nil
	return nil
}
