package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/okatkov/mxkeeper/internal/client/repositories/settings"
	"github.com/okatkov/mxkeeper/internal/common"
	"github.com/okatkov/mxkeeper/internal/cryptox"
	"github.com/okatkov/mxkeeper/internal/dbx"
	"github.com/okatkov/mxkeeper/internal/logging"
	"github.com/okatkov/mxkeeper/internal/pubsub"
)

// Application password policy.
const (
	passwordMinLength = 4
	passwordMaxLength = 15
	passwordSymbols   = "!@#$%^&*()"
)

const saltSize = 16

// NukeNotification is a record of a past duress-password activation.
// Notification history lives server-side and is not synced by this client,
// so the local list is always empty.
type NukeNotification struct {
	ID     string
	Viewed bool
}

// PasswordService is the local application-password gate. The password never
// leaves the device: only an argon2id verifier and its salt are stored.
// Alongside the first password a random duress ("nuke") password is
// generated; entering it at the gate is reported as
// common.ErrNukePasswordEntered so the caller can wipe local data.
type PasswordService struct {
	db    *sql.DB
	log   logging.Logger
	armed *pubsub.Watchable[bool]
}

func NewPasswordService(db *sql.DB, log logging.Logger) *PasswordService {
	return &PasswordService{
		db:    db,
		log:   log.With("service", "password"),
		armed: pubsub.NewWatchable[bool](),
	}
}

func (s *PasswordService) settingsRepo(db dbx.DBTX) settings.Repository {
	return settings.NewSQLiteRepository(db)
}

// ValidateApplicationPassword checks a candidate against the local policy:
// 4 to 15 characters, at least one digit, one symbol from !@#$%^&*(), one
// lowercase and one uppercase letter. The length rule is checked first;
// among the character classes the first missing one wins, in the order
// digit, symbol, lowercase, uppercase.
func ValidateApplicationPassword(password string) error {
	runes := []rune(password)
	if len(runes) < passwordMinLength || len(runes) > passwordMaxLength {
		return &common.InvalidPasswordError{Reason: common.ReasonWrongLength}
	}

	var hasDigit, hasSymbol, hasUpper, hasLower bool
	for _, r := range runes {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
		if hasDigit && hasSymbol && hasUpper && hasLower {
			return nil
		}
	}

	switch {
	case !hasDigit:
		return &common.InvalidPasswordError{Reason: common.ReasonNoDigit}
	case !hasSymbol:
		return &common.InvalidPasswordError{Reason: common.ReasonNoSymbol}
	case !hasLower:
		return &common.InvalidPasswordError{Reason: common.ReasonNoLowercase}
	default:
		return &common.InvalidPasswordError{Reason: common.ReasonNoUppercase}
	}
}

// SetApplicationPassword validates and arms the gate with the given
// password. On the very first arming a nuke password is generated and
// stored alongside; later re-arms keep the existing one. A candidate equal
// to the current nuke password is rejected.
func (s *PasswordService) SetApplicationPassword(ctx context.Context, password string) error {
	nuke, err := s.nukePassword(ctx)
	if err != nil {
		return err
	}
	if nuke != "" && subtle.ConstantTimeCompare([]byte(password), []byte(nuke)) == 1 {
		return common.ErrNukePasswordEntered
	}
	if err := ValidateApplicationPassword(password); err != nil {
		return err
	}

	salt := common.GenerateRandByteArray(saltSize)
	verifier := cryptox.DeriveVerifier([]byte(password), salt)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.settingsRepo(tx)
		if nuke == "" {
			generated, err := common.GeneratePassword()
			if err != nil {
				return fmt.Errorf("failed to generate nuke password: %w", err)
			}
			if err := repo.Set(ctx, settings.KeyNukePassword, []byte(generated)); err != nil {
				return err
			}
		}
		if err := repo.Set(ctx, settings.KeyAppPasswordSalt, salt); err != nil {
			return err
		}
		return repo.Set(ctx, settings.KeyAppPasswordVerifier, verifier)
	})
	if err != nil {
		return err
	}

	s.armed.Publish(true)
	return nil
}

// CheckIsSet reports whether the gate is armed.
func (s *PasswordService) CheckIsSet(ctx context.Context) (bool, error) {
	verifier, err := s.settingsRepo(s.db).Get(ctx, settings.KeyAppPasswordVerifier)
	if err != nil {
		return false, err
	}
	return verifier != nil, nil
}

// LoginByApplicationPassword checks the candidate against the gate. The nuke
// password is checked before the ordinary one and reported as
// common.ErrNukePasswordEntered; an ordinary mismatch (or an unarmed gate)
// comes back as a 403 *common.ServerError.
func (s *PasswordService) LoginByApplicationPassword(ctx context.Context, password string) (bool, error) {
	nuke, err := s.nukePassword(ctx)
	if err != nil {
		return false, err
	}
	if nuke != "" && subtle.ConstantTimeCompare([]byte(password), []byte(nuke)) == 1 {
		return false, common.ErrNukePasswordEntered
	}

	ok, err := s.matches(ctx, password)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, errIncorrectPassword()
	}
	return true, nil
}

// UpdateApplicationPassword replaces the gate password after verifying the
// current one. The nuke password is untouched; entering it as the current
// password triggers the duress signal like at the gate.
func (s *PasswordService) UpdateApplicationPassword(ctx context.Context, current, next string) error {
	if _, err := s.LoginByApplicationPassword(ctx, current); err != nil {
		return err
	}
	return s.SetApplicationPassword(ctx, next)
}

// DeleteApplicationPassword disarms the gate. The nuke password stays
// stored, so a later re-arm keeps the same duress password.
func (s *PasswordService) DeleteApplicationPassword(ctx context.Context) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.settingsRepo(tx)
		if err := repo.Delete(ctx, settings.KeyAppPasswordVerifier); err != nil {
			return err
		}
		return repo.Delete(ctx, settings.KeyAppPasswordSalt)
	})
	if err != nil {
		return err
	}

	s.armed.Publish(false)
	return nil
}

// GetNukePassword returns the generated duress password so the user can
// write it down. Fails with common.ErrorNotFound before the first arming.
func (s *PasswordService) GetNukePassword(ctx context.Context) (string, error) {
	nuke, err := s.nukePassword(ctx)
	if err != nil {
		return "", err
	}
	if nuke == "" {
		return "", fmt.Errorf("nuke password not generated yet: %w", common.ErrorNotFound)
	}
	return nuke, nil
}

// GetNukePasswordNotifications lists past duress activations. Always empty:
// the upstream notification feed is not synced by this client.
func (s *PasswordService) GetNukePasswordNotifications(ctx context.Context) ([]NukeNotification, error) {
	return []NukeNotification{}, nil
}

// SetNukePasswordNotificationViewed marks a notification as seen. With no
// synced notifications there is nothing to mark.
func (s *PasswordService) SetNukePasswordNotificationViewed(ctx context.Context, id string) (bool, error) {
	return false, nil
}

// WatchArmed reports the gate's armed state: the current value immediately,
// then every change, until ctx is cancelled.
func (s *PasswordService) WatchArmed(ctx context.Context) <-chan bool {
	if _, ok := s.armed.Latest(); !ok {
		set, err := s.CheckIsSet(ctx)
		if err != nil {
			s.log.Error(ctx, "failed to read gate state", "error", err)
		} else {
			s.armed.Publish(set)
		}
	}
	return s.armed.Subscribe(ctx)
}

func (s *PasswordService) nukePassword(ctx context.Context) (string, error) {
	raw, err := s.settingsRepo(s.db).Get(ctx, settings.KeyNukePassword)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *PasswordService) matches(ctx context.Context, password string) (bool, error) {
	repo := s.settingsRepo(s.db)
	verifier, err := repo.Get(ctx, settings.KeyAppPasswordVerifier)
	if err != nil {
		return false, err
	}
	salt, err := repo.Get(ctx, settings.KeyAppPasswordSalt)
	if err != nil {
		return false, err
	}
	if verifier == nil || salt == nil {
		return false, nil
	}
	candidate := cryptox.DeriveVerifier([]byte(password), salt)
	return cryptox.VerifierMatches(verifier, candidate), nil
}

func errIncorrectPassword() error {
	return &common.ServerError{
		Code:       "M_FORBIDDEN",
		Message:    "incorrect password entered",
		HTTPStatus: http.StatusForbidden,
	}
}
