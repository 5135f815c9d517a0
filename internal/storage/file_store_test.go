package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "session.json")
	fs, err := NewFileStore(path)
	require.NoError(t, err)
	return fs, path
}

func TestNewFileStore_EmptyPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	fs, _ := newTestFileStore(t)

	v, ok, err := fs.Get(SlotToken)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestFileStore_SetGetRemove(t *testing.T) {
	fs, path := newTestFileStore(t)

	require.NoError(t, fs.Set(map[Slot]string{
		SlotToken:     "tok-123",
		SlotPrincipal: `{"id":1}`,
	}))

	v, ok, err := fs.Get(SlotToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-123", v)

	// A second store on the same file sees the persisted values.
	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, ok, err = reopened.Get(SlotPrincipal)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":1}`, v)

	require.NoError(t, fs.Remove(SlotToken))
	_, ok, err = fs.Get(SlotToken)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, _ = fs.Get(SlotPrincipal)
	assert.True(t, ok, "removing one slot keeps the other")
}

func TestFileStore_CorruptFile(t *testing.T) {
	fs, path := newTestFileStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := fs.Get(SlotToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))

	// Remove always leaves a readable document.
	require.NoError(t, fs.Remove(SlotToken, SlotPrincipal))
	_, ok, err := fs.Get(SlotToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_SetReplacesCorruptFile(t *testing.T) {
	fs, path := newTestFileStore(t)
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	require.NoError(t, fs.Set(map[Slot]string{SlotToken: "fresh"}))
	v, ok, err := fs.Get(SlotToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fresh", v)
}

func TestFileStore_SubscribeNotifiesOnWrites(t *testing.T) {
	fs, _ := newTestFileStore(t)

	var calls int32
	unsubscribe := fs.Subscribe(func() { atomic.AddInt32(&calls, 1) })

	require.NoError(t, fs.Set(map[Slot]string{SlotToken: "a"}))
	require.NoError(t, fs.Remove(SlotToken))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	unsubscribe()
	require.NoError(t, fs.Set(map[Slot]string{SlotToken: "b"}))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFileStore_WatcherDetectsExternalChange(t *testing.T) {
	fs, path := newTestFileStore(t)
	require.NoError(t, fs.Set(map[Slot]string{SlotToken: "mine"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fs.StartWatcher(ctx))

	changed := make(chan struct{}, 4)
	fs.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	// Another process logs out by rewriting the file.
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected watcher notification for external change")
	}

	_, ok, err := fs.Get(SlotToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Contract(t *testing.T) {
	m := NewMemoryStore()

	var calls int32
	m.Subscribe(func() { atomic.AddInt32(&calls, 1) })

	require.NoError(t, m.Set(map[Slot]string{SlotToken: "t", SlotPrincipal: "p"}))
	v, ok, err := m.Get(SlotToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t", v)

	require.NoError(t, m.Remove(SlotToken, SlotPrincipal))
	_, ok, _ = m.Get(SlotPrincipal)
	assert.False(t, ok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
