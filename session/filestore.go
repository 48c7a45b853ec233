package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/learnstream/go-course-client/users"
	"github.com/pkg/errors"
)

const (
	tokenFileName   = "token"
	profileFileName = "profile.json"
)

// FileStore persists the session in two slots under a data folder: the
// raw token string and the user-profile JSON blob. This mirrors how the
// platform stores them as two independent entries, so a missing or
// unparsable profile does not invalidate the token.
type FileStore struct {
	folder string
	lock   sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the data folder if needed and returns a store
// backed by it.
func NewFileStore(folder string) (*FileStore, error) {
	if strings.TrimSpace(folder) == "" {
		return nil, errors.New("[NewFileStore] folder is required")
	}
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] MkdirAll")
	}
	return &FileStore{folder: folder}, nil
}

func (fs *FileStore) Get() (*Session, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	raw, err := os.ReadFile(filepath.Join(fs.folder, tokenFileName))
	if os.IsNotExist(err) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.Get] ReadFile token")
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return nil, ErrNoSession
	}

	s := &Session{Token: token}

	profile, err := os.ReadFile(filepath.Join(fs.folder, profileFileName))
	if err == nil {
		var u users.User
		if err := json.Unmarshal(profile, &u); err == nil {
			s.User = &u
		}
	}
	return s, nil
}

func (fs *FileStore) Set(token string, user *users.User) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if strings.TrimSpace(token) == "" {
		return errors.New("[FileStore.Set] token is required")
	}
	if err := os.WriteFile(filepath.Join(fs.folder, tokenFileName), []byte(token), 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.Set] WriteFile token")
	}
	if user == nil {
		_ = os.Remove(filepath.Join(fs.folder, profileFileName))
		return nil
	}
	blob, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[FileStore.Set] Marshal profile")
	}
	if err := os.WriteFile(filepath.Join(fs.folder, profileFileName), blob, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.Set] WriteFile profile")
	}
	return nil
}

func (fs *FileStore) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	for _, name := range []string{tokenFileName, profileFileName} {
		if err := os.Remove(filepath.Join(fs.folder, name)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "[FileStore.Clear] Remove %s", name)
		}
	}
	return nil
}
