// Package session turns validated credentials into the active working object
// used by the rest of the application, and tracks which session is active.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okatkov/mxkeeper/internal/client/models"
)

// Session is an authenticated connection to one account on one homeserver.
type Session struct {
	ID            string // stable hash of user id + device id
	UserID        string
	DeviceID      string
	HomeServerURL string
	AccessToken   string
	RefreshToken  string
	LoginType     models.LoginType
	CreatedAt     time.Time

	closed atomic.Bool
}

// Close quiesces the session. Idempotent; a closed session keeps its
// credentials but must not start new work.
func (s *Session) Close() {
	s.closed.Store(true)
}

// IsClosed reports whether Close has been called.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Factory constructs sessions from credentials. A pure composition step:
// no retry logic of its own, failures bubble from lower layers.
type Factory interface {
	CreateSession(creds *models.Credentials, cfg models.HomeServerConfig, loginType models.LoginType) (*Session, error)
}

// DefaultFactory is the standard Factory implementation.
type DefaultFactory struct{}

func NewFactory() *DefaultFactory {
	return &DefaultFactory{}
}

func (f *DefaultFactory) CreateSession(creds *models.Credentials, cfg models.HomeServerConfig, loginType models.LoginType) (*Session, error) {
	if creds == nil {
		return nil, fmt.Errorf("credentials are required")
	}
	if creds.AccessToken == "" {
		return nil, fmt.Errorf("credentials carry no access token")
	}
	return &Session{
		ID:            Hash(creds.UserID, creds.DeviceID),
		UserID:        creds.UserID,
		DeviceID:      creds.DeviceID,
		HomeServerURL: cfg.URL,
		AccessToken:   creds.AccessToken,
		RefreshToken:  creds.RefreshToken,
		LoginType:     loginType,
		CreatedAt:     time.Now(),
	}, nil
}

// Hash derives the stable session identifier persisted as the last-active
// marker, so the next app start can reopen the same account.
func Hash(userID, deviceID string) string {
	sum := sha256.Sum256([]byte(userID + "|" + deviceID))
	return hex.EncodeToString(sum[:16])
}

// ActiveHolder keeps the currently active session. At most one session is
// active at a time; installing a new one replaces the previous.
type ActiveHolder struct {
	mu      sync.RWMutex
	current *Session
}

func NewActiveHolder() *ActiveHolder {
	return &ActiveHolder{}
}

// Get returns the active session, or nil when none is installed.
func (h *ActiveHolder) Get() *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Set installs s as the active session.
func (h *ActiveHolder) Set(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = s
}

// Clear removes the active session and returns the one that was installed,
// if any.
func (h *ActiveHolder) Clear() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.current
	h.current = nil
	return prev
}
