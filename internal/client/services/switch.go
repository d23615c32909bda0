package services

import (
	"context"
	"sync"

	"github.com/okatkov/mxkeeper/internal/client/repositories/settings"
	"github.com/okatkov/mxkeeper/internal/client/session"
	"github.com/okatkov/mxkeeper/internal/common"
	"github.com/okatkov/mxkeeper/internal/logging"
)

// AuthStateResetter clears transient authentication state (cached
// registration parameters, half-finished interactive flows) when the active
// account changes.
type AuthStateResetter interface {
	Reset()
}

// AuthStateResetterFunc adapts a plain function to AuthStateResetter.
type AuthStateResetterFunc func()

func (f AuthStateResetterFunc) Reset() { f() }

// SwitchService changes the active account. A switch is all-or-nothing with
// respect to which account is active: the new session is installed, the
// last-active marker persisted and transient auth state reset only after a
// successful re-login; on failure the previous session stays installed and
// the target account is marked invalid for display.
type SwitchService struct {
	accounts  *AccountService
	holder    *session.ActiveHolder
	settings  settings.Repository
	authState AuthStateResetter
	log       logging.Logger

	mu      sync.Mutex
	invalid map[string]struct{}
}

func NewSwitchService(accounts *AccountService, holder *session.ActiveHolder, repo settings.Repository, authState AuthStateResetter, log logging.Logger) *SwitchService {
	return &SwitchService{
		accounts:  accounts,
		holder:    holder,
		settings:  repo,
		authState: authState,
		log:       log.With("service", "switch"),
		invalid:   make(map[string]struct{}),
	}
}

// Switch makes the account with the given user id active. The previous
// session is quiesced first; it is replaced only once the re-login succeeds.
func (s *SwitchService) Switch(ctx context.Context, userID string) (*session.Session, error) {
	if prev := s.holder.Get(); prev != nil {
		prev.Close()
	}

	sess, err := s.accounts.ReLogin(ctx, userID)
	if err != nil {
		if _, ok := common.AsServerError(err); ok {
			s.markInvalid(userID)
		}
		s.log.Warn(ctx, "switch failed", "user_id", userID, "error", err)
		return nil, err
	}

	s.holder.Set(sess)
	s.clearInvalid(userID)
	if s.authState != nil {
		s.authState.Reset()
	}

	if err := s.settings.Set(ctx, settings.KeyLastSessionHash, []byte(sess.ID)); err != nil {
		// the session is already active; losing the marker only costs the
		// auto-reopen on next start
		s.log.Error(ctx, "failed to persist last session marker", "error", err)
	}

	return sess, nil
}

// LastSessionHash returns the persisted marker of the last active session,
// or "" when none was recorded.
func (s *SwitchService) LastSessionHash(ctx context.Context) (string, error) {
	raw, err := s.settings.Get(ctx, settings.KeyLastSessionHash)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// InvalidAccounts lists user ids whose last switch attempt was rejected by
// the homeserver, so the UI can highlight them.
func (s *SwitchService) InvalidAccounts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.invalid))
	for id := range s.invalid {
		out = append(out, id)
	}
	return out
}

// IsInvalid reports whether the account's last switch attempt was rejected.
func (s *SwitchService) IsInvalid(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.invalid[userID]
	return ok
}

func (s *SwitchService) markInvalid(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalid[userID] = struct{}{}
}

func (s *SwitchService) clearInvalid(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.invalid, userID)
}
