// Package identity supplies the bearer token and guest id attached to every store API request.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

// Provider exposes the current shopper identity to the request layer.
type Provider interface {
	Token() string
	GuestID() string
}

// Store is a Provider whose token can change over the life of a session.
type Store interface {
	Provider
	SetToken(token string) error
	ClearToken() error
}

// Key identifies whose cart a request addresses: the user when authenticated, else the guest.
func Key(p Provider, userID string) string {
	if p.Token() != "" && userID != "" {
		return "user:" + userID
	}
	return "guest:" + p.GuestID()
}

// TokenKey identifies the session of a bearer token whose signature could not be checked.
// Only the holder of the exact token reaches it.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "token:" + hex.EncodeToString(sum[:16])
}

// NewGuestID returns a fresh random guest id.
func NewGuestID() string {
	return uuid.NewString()
}

// Static is a fixed identity, typically taken from an incoming request.
type Static struct {
	BearerToken string
	Guest       string
}

func (s Static) Token() string   { return s.BearerToken }
func (s Static) GuestID() string { return s.Guest }

// MemoryStore keeps the identity in memory only.
type MemoryStore struct {
	mu      sync.RWMutex
	token   string
	guestID string
}

// NewMemoryStore returns a store with a freshly generated guest id.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{guestID: NewGuestID()}
}

func (m *MemoryStore) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *MemoryStore) GuestID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.guestID
}

func (m *MemoryStore) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) ClearToken() error {
	return m.SetToken("")
}
