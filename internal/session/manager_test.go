package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bassista/go_microassur/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuthenticator is a mock implementation of the Authenticator interface
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, creds Credentials) (string, Principal, error) {
	args := m.Called(ctx, creds)
	return args.String(0), args.Get(1).(Principal), args.Error(2)
}

func (m *MockAuthenticator) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func int64Ptr(v int64) *int64 { return &v }

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "exp": exp.Unix()}).SignedString([]byte("test"))
	require.NoError(t, err)
	return tok
}

func storePrincipal(t *testing.T, store storage.Store, token string, p Principal) {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, store.Set(map[storage.Slot]string{storage.SlotToken: token, storage.SlotPrincipal: string(raw)}))
}

func TestHydrate_RestoresStoredSession(t *testing.T) {
	store := storage.NewMemoryStore()
	storePrincipal(t, store, "1|opaque", Principal{ID: 7, Name: "Awa", Email: "awa@example.com", Role: RoleManagement, PartnerID: int64Ptr(3)})

	m := NewManager(store, nil)
	assert.True(t, m.IsLoading())
	m.Hydrate()

	assert.False(t, m.IsLoading())
	p, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, RoleManagement, p.Role)
	assert.True(t, m.CanValidateClaim())
}

func TestHydrate_CorruptValuesClearStorage(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		principal string
	}{
		{"invalid json", "tok", "{not json"},
		{"unknown role", "tok", `{"id":1,"role":"pirate"}`},
		{"missing id", "tok", `{"role":"admin"}`},
		{"token without principal", "tok", ""},
		{"principal without token", "", `{"id":1,"role":"admin"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			values := map[storage.Slot]string{}
			if tt.token != "" {
				values[storage.SlotToken] = tt.token
			}
			if tt.principal != "" {
				values[storage.SlotPrincipal] = tt.principal
			}
			require.NoError(t, store.Set(values))

			m := NewManager(store, nil)
			assert.NotPanics(t, m.Hydrate)

			assert.False(t, m.IsAuthenticated())
			assert.False(t, m.IsLoading())
			_, hasToken, _ := store.Get(storage.SlotToken)
			_, hasPrincipal, _ := store.Get(storage.SlotPrincipal)
			assert.False(t, hasToken)
			assert.False(t, hasPrincipal)
		})
	}
}

func TestHydrate_UnreadableStoreFallsBackToUnauthenticated(t *testing.T) {
	path := t.TempDir() + "/session.json"
	store, err := storage.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	m := NewManager(store, nil)
	m.Hydrate()

	assert.False(t, m.IsAuthenticated())
	_, ok, err := store.Get(storage.SlotToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHydrate_ExpiredTokenIsDiscarded(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := storage.NewMemoryStore()
	storePrincipal(t, store, signedToken(t, now.Add(-time.Minute)), Principal{ID: 1, Role: RoleFieldAgent})

	m := NewManager(store, nil, WithClock(func() time.Time { return now }))
	m.Hydrate()

	assert.False(t, m.IsAuthenticated())
	_, ok, _ := store.Get(storage.SlotToken)
	assert.False(t, ok)
}

func TestHydrate_AdminAffiliationCleared(t *testing.T) {
	store := storage.NewMemoryStore()
	storePrincipal(t, store, "tok", Principal{ID: 1, Role: RoleAdmin, PartnerID: int64Ptr(4)})

	m := NewManager(store, nil)
	m.Hydrate()

	p, ok := m.Current()
	require.True(t, ok)
	assert.Nil(t, p.PartnerID)
}

func TestLogin_PersistsAndNormalizes(t *testing.T) {
	store := storage.NewMemoryStore()
	auth := &MockAuthenticator{}
	creds := Credentials{Email: "root@example.com", Password: "secret"}
	auth.On("Login", mock.Anything, creds).Return("tok-1", Principal{ID: 1, Name: "Root", Role: RoleAdmin, PartnerID: int64Ptr(9)}, nil)

	m := NewManager(store, auth)
	m.Hydrate()

	var changes []Change
	m.OnChange(func(c Change) { changes = append(changes, c) })

	p, err := m.Login(context.Background(), creds)
	require.NoError(t, err)
	assert.Nil(t, p.PartnerID)
	assert.True(t, m.IsAuthenticated())

	token, ok, err := store.Get(storage.SlotToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-1", token)

	raw, ok, err := store.Get(storage.SlotPrincipal)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, raw, `"emf_id":9`)

	require.Len(t, changes, 1)
	assert.Nil(t, changes[0].Previous)
	assert.Equal(t, int64(1), changes[0].Current.ID)
	auth.AssertExpectations(t)
}

func TestLogin_Failures(t *testing.T) {
	creds := Credentials{Email: "a@example.com", Password: "x"}
	tests := []struct {
		name  string
		creds Credentials
		setup func(a *MockAuthenticator)
		want  error
	}{
		{
			name:  "invalid credentials never reach the backend",
			creds: Credentials{Email: "not-an-email"},
			want:  ErrInvalidCredentials,
		},
		{
			name:  "backend rejection",
			creds: creds,
			setup: func(a *MockAuthenticator) {
				a.On("Login", mock.Anything, creds).Return("", Principal{}, errors.New("401"))
			},
		},
		{
			name:  "missing token",
			creds: creds,
			setup: func(a *MockAuthenticator) {
				a.On("Login", mock.Anything, creds).Return("", Principal{ID: 1, Role: RoleAdmin}, nil)
			},
			want: ErrMissingToken,
		},
		{
			name:  "invalid principal",
			creds: creds,
			setup: func(a *MockAuthenticator) {
				a.On("Login", mock.Anything, creds).Return("tok", Principal{ID: 1, Role: "pirate"}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			auth := &MockAuthenticator{}
			if tt.setup != nil {
				tt.setup(auth)
			}
			m := NewManager(store, auth)
			m.Hydrate()

			_, err := m.Login(context.Background(), tt.creds)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.False(t, m.IsAuthenticated())
			_, ok, _ := store.Get(storage.SlotToken)
			assert.False(t, ok)
			auth.AssertExpectations(t)
		})
	}
}

func TestLogout_ClearsEvenWhenRemoteFails(t *testing.T) {
	store := storage.NewMemoryStore()
	storePrincipal(t, store, "tok", Principal{ID: 2, Role: RoleDirection})
	auth := &MockAuthenticator{}
	auth.On("Logout", mock.Anything).Return(errors.New("network down"))

	m := NewManager(store, auth)
	m.Hydrate()

	var ended bool
	m.OnChange(func(c Change) { ended = c.Ended() })

	m.Logout(context.Background())

	assert.False(t, m.IsAuthenticated())
	assert.True(t, ended)
	_, ok, _ := store.Get(storage.SlotToken)
	assert.False(t, ok)
	auth.AssertExpectations(t)
}

func TestLogout_WithoutSessionSkipsRemote(t *testing.T) {
	auth := &MockAuthenticator{}
	m := NewManager(storage.NewMemoryStore(), auth)
	m.Hydrate()

	m.Logout(context.Background())
	auth.AssertNotCalled(t, "Logout", mock.Anything)
}

func TestStorageClearedExternallyEndsSession(t *testing.T) {
	store := storage.NewMemoryStore()
	storePrincipal(t, store, "tok", Principal{ID: 3, Role: RoleAccounting})

	m := NewManager(store, nil)
	m.Hydrate()
	defer m.Close()
	require.True(t, m.IsAuthenticated())

	var changes []Change
	m.OnChange(func(c Change) { changes = append(changes, c) })

	// What the HTTP adapter does on 401/419.
	require.NoError(t, store.Remove(storage.SlotToken, storage.SlotPrincipal))

	assert.False(t, m.IsAuthenticated())
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Ended())
}

func TestCheckExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := storage.NewMemoryStore()
	storePrincipal(t, store, signedToken(t, now.Add(time.Minute)), Principal{ID: 4, Role: RoleReadOnly})

	clock := now
	m := NewManager(store, nil, WithClock(func() time.Time { return clock }))
	m.Hydrate()
	require.True(t, m.IsAuthenticated())
	assert.False(t, m.CheckExpiry())

	clock = now.Add(2 * time.Minute)
	assert.True(t, m.CheckExpiry())
	assert.False(t, m.IsAuthenticated())
}

func TestManagerPredicatesWithoutSession(t *testing.T) {
	m := NewManager(storage.NewMemoryStore(), nil)
	m.Hydrate()

	assert.False(t, m.CanValidateClaim())
	assert.False(t, m.CanPayInstallment())
	assert.False(t, m.CanCloseClaim())
	assert.False(t, m.IsReadOnly())
	assert.False(t, m.HasRole(Roles()...))
	assert.Equal(t, GuardInput{}, m.GuardInput())
}

func TestChange_EndedAndUserChanged(t *testing.T) {
	alice := &Principal{ID: 1, Role: RoleAdmin}
	bob := &Principal{ID: 2, Role: RoleAdmin}
	aliceAgain := &Principal{ID: 1, Role: RoleDirection}

	tests := []struct {
		name        string
		change      Change
		ended       bool
		userChanged bool
	}{
		{"login", Change{Current: alice}, false, false},
		{"logout", Change{Previous: alice}, true, false},
		{"other user", Change{Previous: alice, Current: bob}, false, true},
		{"same user refreshed", Change{Previous: alice, Current: aliceAgain}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ended, tt.change.Ended())
			assert.Equal(t, tt.userChanged, tt.change.UserChanged())
		})
	}
}
