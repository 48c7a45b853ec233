package session_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/learnstream/go-course-client/session"
	"github.com/learnstream/go-course-client/users"
	"github.com/stretchr/testify/require"
)

func setupFileStore(t *testing.T) (*session.FileStore, string) {
	t.Helper()
	folder := t.TempDir()
	store, err := session.NewFileStore(folder)
	require.NoError(t, err)
	return store, folder
}

func TestFileStore_EmptyStoreHasNoSession(t *testing.T) {
	store, _ := setupFileStore(t)

	_, err := store.Get()
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestFileStore_SetThenGetRoundTrip(t *testing.T) {
	store, _ := setupFileStore(t)

	user := &users.User{ID: "user-1", Email: "john.doe@example.com", FirstName: "John", LastName: "Doe"}
	require.NoError(t, store.Set("opaque-token-123", user))

	s, err := store.Get()
	require.NoError(t, err)
	require.Equal(t, "opaque-token-123", s.Token)
	require.Equal(t, "John Doe", s.User.DisplayName())
}

func TestFileStore_TokenAndProfileAreSeparateSlots(t *testing.T) {
	store, folder := setupFileStore(t)
	require.NoError(t, store.Set("opaque-token-123", &users.User{ID: "user-1"}))

	// A corrupted profile blob must not invalidate the token slot.
	require.NoError(t, os.WriteFile(filepath.Join(folder, "profile.json"), []byte("not json"), 0o600))

	s, err := store.Get()
	require.NoError(t, err)
	require.Equal(t, "opaque-token-123", s.Token)
	require.Nil(t, s.User)
}

func TestFileStore_SetWithoutUserDropsCachedProfile(t *testing.T) {
	store, _ := setupFileStore(t)
	require.NoError(t, store.Set("token-a", &users.User{ID: "user-1"}))
	require.NoError(t, store.Set("token-b", nil))

	s, err := store.Get()
	require.NoError(t, err)
	require.Equal(t, "token-b", s.Token)
	require.Nil(t, s.User)
}

func TestFileStore_ClearEmptiesBothSlots(t *testing.T) {
	store, folder := setupFileStore(t)
	require.NoError(t, store.Set("opaque-token-123", &users.User{ID: "user-1"}))

	require.NoError(t, store.Clear())

	_, err := store.Get()
	require.ErrorIs(t, err, session.ErrNoSession)
	_, err = os.Stat(filepath.Join(folder, "token"))
	require.True(t, os.IsNotExist(err))
}

func TestFileStore_ClearOnEmptyStoreIsNotAnError(t *testing.T) {
	store, _ := setupFileStore(t)
	require.NoError(t, store.Clear())
}

func TestFileStore_EmptyTokenRejected(t *testing.T) {
	store, _ := setupFileStore(t)
	require.Error(t, store.Set("  ", nil))
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	_, folder := setupFileStore(t)

	first, err := session.NewFileStore(folder)
	require.NoError(t, err)
	require.NoError(t, first.Set("opaque-token-123", &users.User{ID: "user-1"}))

	second, err := session.NewFileStore(folder)
	require.NoError(t, err)
	s, err := second.Get()
	require.NoError(t, err)
	require.Equal(t, "opaque-token-123", s.Token)
	require.Equal(t, "user-1", s.User.ID)
}
