// Package session holds the per-process interactive state: whether the PIN
// gate is open, which transaction is being edited, and the active filter.
// Nothing here is persisted; a restart locks the app again.
package session

import (
	"crypto/subtle"
	"errors"
	"sync"

	"github.com/google/uuid"

	"autofint/internal/core"
)

var ErrWrongPIN = errors.New("wrong PIN")

// AppState is the state a client session carries between requests.
type AppState struct {
	Unlocked     bool
	EditingID    int64 // 0 when not editing
	Filter       core.Filter
	SelectedType core.TxType
}

type Manager struct {
	pin string

	mu       sync.RWMutex
	sessions map[string]*AppState
}

// NewManager creates a manager. An empty pin disables the gate: every
// token, including none, is treated as unlocked.
func NewManager(pin string) *Manager {
	return &Manager{pin: pin, sessions: map[string]*AppState{}}
}

// Enabled reports whether a PIN is required.
func (m *Manager) Enabled() bool {
	return m.pin != ""
}

// Login checks pin in constant time and opens a new session.
func (m *Manager) Login(pin string) (string, error) {
	if m.Enabled() && subtle.ConstantTimeCompare([]byte(pin), []byte(m.pin)) != 1 {
		return "", ErrWrongPIN
	}
	token := uuid.NewString()
	m.mu.Lock()
	m.sessions[token] = &AppState{Unlocked: true, SelectedType: core.Expense}
	m.mu.Unlock()
	return token, nil
}

// Logout forgets token. Unknown tokens are ignored.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// Authorized reports whether token belongs to an unlocked session.
func (m *Manager) Authorized(token string) bool {
	if !m.Enabled() {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[token]
	return ok && st.Unlocked
}

// State returns a copy of the session state for token.
func (m *Manager) State(token string) (AppState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[token]
	if !ok {
		return AppState{}, false
	}
	return *st, true
}

// Update applies fn to the session state of token under the lock.
func (m *Manager) Update(token string, fn func(*AppState)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[token]
	if !ok {
		return false
	}
	fn(st)
	return true
}
