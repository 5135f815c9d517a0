package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bassista/go_microassur/internal/logger"
	"github.com/bassista/go_microassur/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotAuthenticated   = errors.New("session: not authenticated")
	ErrMissingToken       = errors.New("session: login response has no token")
	ErrInvalidCredentials = errors.New("session: invalid credentials")
)

// Authenticator performs the remote half of login and logout.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (token string, principal Principal, err error)
	Logout(ctx context.Context) error
}

// Change is delivered to OnChange listeners. Current is nil when the session ended.
type Change struct {
	Previous *Principal
	Current  *Principal
}

// Ended reports whether the change closed a session.
func (c Change) Ended() bool {
	return c.Previous != nil && c.Current == nil
}

// UserChanged reports whether the session passed from one user to another.
func (c Change) UserChanged() bool {
	return c.Previous != nil && c.Current != nil && c.Previous.ID != c.Current.ID
}

// Manager holds the single console session. State is written only by Login,
// Logout, hydration and changes of the durable storage.
type Manager struct {
	store    storage.Store
	auth     Authenticator
	validate *validator.Validate
	now      func() time.Time

	mu        sync.RWMutex
	loading   bool
	principal *Principal
	token     string

	lmu       sync.Mutex
	nextID    int
	listeners map[int]func(Change)

	unsubscribe func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used to check token expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager returns a manager in the loading state; call Hydrate to leave it.
func NewManager(store storage.Store, auth Authenticator, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		auth:      auth,
		validate:  validator.New(),
		now:       time.Now,
		loading:   true,
		listeners: map[int]func(Change){},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Hydrate restores the session from durable storage and starts following its
// changes. Unreadable, inconsistent or expired values clear storage and leave
// the session unauthenticated.
func (m *Manager) Hydrate() {
	log := logger.WithComponent("session")
	p, token, err := m.readStored()
	if err != nil {
		log.Warnf("discarding stored session: %v", err)
		m.clearStorage()
		p, token = nil, ""
	}

	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
	m.set(p, token)

	if m.unsubscribe == nil {
		m.unsubscribe = m.store.Subscribe(m.onStorageChange)
	}
	if p != nil {
		log.Debugf("session restored for user %d (%s)", p.ID, p.Role)
	}
}

// Close stops following storage changes.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Login authenticates remotely, then persists token and principal.
// On failure the current session is left as it was.
func (m *Manager) Login(ctx context.Context, creds Credentials) (Principal, error) {
	if err := m.validate.Struct(creds); err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	token, p, err := m.auth.Login(ctx, creds)
	if err != nil {
		return Principal{}, err
	}
	if token == "" {
		return Principal{}, ErrMissingToken
	}
	if err := validatePrincipal(m.validate, &p); err != nil {
		return Principal{}, err
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return Principal{}, fmt.Errorf("encode principal: %w", err)
	}
	if err := m.store.Set(map[storage.Slot]string{
		storage.SlotToken:     token,
		storage.SlotPrincipal: string(raw),
	}); err != nil {
		return Principal{}, fmt.Errorf("persist session: %w", err)
	}

	m.set(&p, token)
	logger.WithComponent("session").Infof("user %d logged in as %s", p.ID, p.Role)
	return p, nil
}

// Logout notifies the backend when a session exists, then always clears the
// local session, whatever the remote outcome.
func (m *Manager) Logout(ctx context.Context) {
	log := logger.WithComponent("session")
	if m.IsAuthenticated() && m.auth != nil {
		if err := m.auth.Logout(ctx); err != nil {
			log.Warnf("remote logout failed: %v", err)
		}
	}
	m.clearStorage()
	m.set(nil, "")
	log.Debugf("session cleared")
}

// CheckExpiry ends the session when its token has expired.
func (m *Manager) CheckExpiry() bool {
	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()
	if token == "" || !m.expired(token) {
		return false
	}
	logger.WithComponent("session").Infof("session token expired")
	m.clearStorage()
	m.set(nil, "")
	return true
}

// Current returns a copy of the principal.
func (m *Manager) Current() (Principal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.principal == nil {
		return Principal{}, false
	}
	return *m.principal, true
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.principal != nil
}

func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

func (m *Manager) role() Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.principal == nil {
		return ""
	}
	return m.principal.Role
}

// Can checks capability against the current principal; false without session.
func (m *Manager) Can(capability Capability) bool {
	return Can(m.role(), capability)
}

func (m *Manager) CanValidateClaim() bool  { return m.Can(CapValidateClaim) }
func (m *Manager) CanPayInstallment() bool { return m.Can(CapPayInstallment) }
func (m *Manager) CanCloseClaim() bool     { return m.Can(CapCloseClaim) }
func (m *Manager) IsReadOnly() bool        { return m.Can(CapReadOnly) }

// HasRole reports whether the current principal has one of roles.
func (m *Manager) HasRole(roles ...Role) bool {
	r := m.role()
	return r != "" && HasRole(r, roles...)
}

// GuardInput snapshots the state the route guard decides on.
func (m *Manager) GuardInput() GuardInput {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in := GuardInput{Authenticated: m.principal != nil, Loading: m.loading}
	if m.principal != nil {
		in.Role = m.principal.Role
	}
	return in
}

// OnChange registers fn to run after each session change.
func (m *Manager) OnChange(fn func(Change)) (unsubscribe func()) {
	m.lmu.Lock()
	defer m.lmu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.lmu.Lock()
		defer m.lmu.Unlock()
		delete(m.listeners, id)
	}
}

// onStorageChange follows writes made by the HTTP adapter (401 clearing) or by
// another process sharing the storage file.
func (m *Manager) onStorageChange() {
	if m.IsLoading() {
		return
	}
	p, token, err := m.readStored()
	if err != nil {
		logger.WithComponent("session").Warnf("stored session became unreadable: %v", err)
		m.clearStorage()
		p, token = nil, ""
	}
	m.set(p, token)
}

// readStored returns a nil principal when nothing is stored, and an error when
// the stored values cannot form a valid session.
func (m *Manager) readStored() (*Principal, string, error) {
	token, hasToken, err := m.store.Get(storage.SlotToken)
	if err != nil {
		return nil, "", err
	}
	raw, hasPrincipal, err := m.store.Get(storage.SlotPrincipal)
	if err != nil {
		return nil, "", err
	}
	switch {
	case !hasToken && !hasPrincipal:
		return nil, "", nil
	case !hasToken || token == "":
		return nil, "", errors.New("principal stored without token")
	case !hasPrincipal:
		return nil, "", errors.New("token stored without principal")
	}

	p, err := decodePrincipal(m.validate, []byte(raw))
	if err != nil {
		return nil, "", err
	}
	if m.expired(token) {
		return nil, "", errors.New("stored token has expired")
	}
	return p, token, nil
}

// expired reads the exp claim of JWT tokens without verifying them; the
// backend stays the authority. Opaque tokens never expire locally.
func (m *Manager) expired(token string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !m.now().Before(exp.Time)
}

func (m *Manager) clearStorage() {
	if err := m.store.Remove(storage.SlotToken, storage.SlotPrincipal); err != nil {
		logger.WithComponent("session").Errorf("clear session storage: %v", err)
	}
}

func (m *Manager) set(p *Principal, token string) {
	m.mu.Lock()
	prev := m.principal
	unchanged := m.token == token && ((prev == nil && p == nil) || (prev != nil && p != nil && prev.same(*p)))
	m.principal, m.token = p, token
	m.mu.Unlock()

	if unchanged {
		return
	}
	m.lmu.Lock()
	fns := make([]func(Change), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.lmu.Unlock()

	change := Change{Previous: prev, Current: p}
	for _, fn := range fns {
		fn(change)
	}
}
