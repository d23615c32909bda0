// Package services implements the application services on top of the
// repositories and the homeserver client: account lifecycle, the
// application-password gate, and active-account switching.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okatkov/mxkeeper/internal/client/client"
	"github.com/okatkov/mxkeeper/internal/client/models"
	"github.com/okatkov/mxkeeper/internal/client/repositories/accounts"
	"github.com/okatkov/mxkeeper/internal/client/session"
	"github.com/okatkov/mxkeeper/internal/common"
	"github.com/okatkov/mxkeeper/internal/logging"
	"github.com/okatkov/mxkeeper/internal/pubsub"
	"golang.org/x/sync/errgroup"
)

// AccountService manages the set of locally known accounts: adding and
// registering accounts, re-establishing sessions for stored ones, and
// aggregating their remote profiles for display.
//
// Failure policy for network-backed operations: a *common.ServerError is
// always returned to the caller unchanged, any other failure degrades the
// result (nil account, placeholder profile) and is logged.
type AccountService struct {
	accounts accounts.Repository
	clients  client.Factory
	sessions session.Factory
	log      logging.Logger
	watch    *pubsub.Watchable[[]models.LocalAccount]
}

func NewAccountService(repo accounts.Repository, clients client.Factory, sessions session.Factory, log logging.Logger) *AccountService {
	return &AccountService{
		accounts: repo,
		clients:  clients,
		sessions: sessions,
		log:      log.With("service", "accounts"),
		watch:    pubsub.NewWatchable[[]models.LocalAccount](),
	}
}

// AddExistingAccount performs a password login against the given homeserver
// and stores the resulting account. Returns (nil, nil) on transport-level
// failures; server-side rejections (wrong password, deactivated account)
// come back as *common.ServerError.
func (s *AccountService) AddExistingAccount(ctx context.Context, homeServerURL, username, password, deviceID string) (*models.LocalAccount, error) {
	c := s.clients(models.HomeServerConfig{URL: homeServerURL})
	creds, err := c.LoginByPassword(ctx, username, password, deviceID)
	if err != nil {
		if _, ok := common.AsServerError(err); ok {
			return nil, err
		}
		s.log.Warn(ctx, "login failed", "user", username, "error", err)
		return nil, nil
	}

	account := &models.LocalAccount{
		UserID:        creds.UserID,
		HomeServerURL: homeServerURL,
		Username:      username,
		Password:      password,
		Token:         creds.AccessToken,
		DeviceID:      creds.DeviceID,
		RefreshToken:  creds.RefreshToken,
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		s.log.Error(ctx, "failed to store account", "user_id", creds.UserID, "error", err)
		return nil, nil
	}

	s.publishAccounts(ctx)
	return account, nil
}

// RegisterNewAccount creates a brand new account on the homeserver and
// stores it locally, marked as not yet synced. Failure semantics match
// AddExistingAccount.
func (s *AccountService) RegisterNewAccount(ctx context.Context, homeServerURL string, params models.RegistrationParams) (*models.LocalAccount, error) {
	c := s.clients(models.HomeServerConfig{URL: homeServerURL})
	creds, err := c.Register(ctx, params)
	if err != nil {
		if _, ok := common.AsServerError(err); ok {
			return nil, err
		}
		s.log.Warn(ctx, "registration failed", "user", params.Username, "error", err)
		return nil, nil
	}

	account := &models.LocalAccount{
		UserID:        creds.UserID,
		HomeServerURL: homeServerURL,
		Username:      params.Username,
		Password:      params.Password,
		Token:         creds.AccessToken,
		DeviceID:      creds.DeviceID,
		RefreshToken:  creds.RefreshToken,
		IsNew:         true,
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		s.log.Error(ctx, "failed to store account", "user_id", creds.UserID, "error", err)
		return nil, nil
	}

	s.publishAccounts(ctx)
	return account, nil
}

// ListLocalAccounts returns all stored accounts in insertion order.
func (s *AccountService) ListLocalAccounts(ctx context.Context) ([]models.LocalAccount, error) {
	return s.accounts.List(ctx)
}

// WatchLocalAccounts returns a channel that yields the current account list
// immediately and again after every change, until ctx is cancelled.
func (s *AccountService) WatchLocalAccounts(ctx context.Context) <-chan []models.LocalAccount {
	if _, ok := s.watch.Latest(); !ok {
		s.publishAccounts(ctx)
	}
	return s.watch.Subscribe(ctx)
}

// ListRemoteProfiles fetches the remote profile of every stored account
// except excludeUserID, concurrently, and returns display items in the
// accounts' stored order. A failed profile fetch degrades that single item
// to the user id's localpart with no avatar; it never fails the whole list.
func (s *AccountService) ListRemoteProfiles(ctx context.Context, excludeUserID string) ([]models.AccountItem, error) {
	all, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}

	selected := make([]models.LocalAccount, 0, len(all))
	for _, a := range all {
		if a.UserID == excludeUserID {
			continue
		}
		selected = append(selected, a)
	}

	items := make([]models.AccountItem, len(selected))
	var g errgroup.Group
	for i, account := range selected {
		g.Go(func() error {
			items[i] = s.fetchAccountItem(ctx, account)
			return nil
		})
	}
	_ = g.Wait()

	return items, nil
}

func (s *AccountService) fetchAccountItem(ctx context.Context, account models.LocalAccount) models.AccountItem {
	item := models.AccountItem{
		UserID:      account.UserID,
		DisplayName: models.LocalPart(account.UserID),
		UnreadCount: account.UnreadCount,
	}

	c := s.clients(models.HomeServerConfig{URL: account.HomeServerURL})
	profile, err := c.GetProfile(ctx, account.UserID)
	if err != nil {
		s.log.Warn(ctx, "profile fetch failed", "user_id", account.UserID, "error", err)
		return item
	}

	if name, ok := profile[client.ProfileDisplayNameKey].(string); ok && name != "" {
		item.DisplayName = name
	}
	if avatar, ok := profile[client.ProfileAvatarURLKey].(string); ok {
		item.AvatarURL = avatar
	}
	return item
}

// ReLogin re-establishes a session for a stored account. A cached token is
// used when present, otherwise the stored password; never both in one call.
// Rotated credentials are persisted back before the session is returned.
func (s *AccountService) ReLogin(ctx context.Context, userID string) (*session.Session, error) {
	account, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(account.HomeServerURL) == "" {
		return nil, fmt.Errorf("account %s has no homeserver url: %w", userID, common.ErrorValidation)
	}

	cfg := models.HomeServerConfig{URL: account.HomeServerURL}
	c := s.clients(cfg)

	var creds *models.Credentials
	loginType := models.LoginTypePassword
	if account.Token != "" {
		loginType = models.LoginTypeToken
		creds, err = c.LoginByToken(ctx, account.Token)
	} else {
		creds, err = c.LoginByPassword(ctx, account.Username, account.Password, account.DeviceID)
	}
	if err != nil {
		return nil, err
	}

	account.Token = creds.AccessToken
	account.DeviceID = creds.DeviceID
	if creds.RefreshToken != "" {
		account.RefreshToken = creds.RefreshToken
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		// the account may have been deleted while we were logging in;
		// never resurrect it from stale data
		s.log.Warn(ctx, "failed to persist rotated credentials", "user_id", userID, "error", err)
	}

	return s.sessions.CreateSession(creds, cfg, loginType)
}

// DeleteAccount removes the stored account.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.accounts.Delete(ctx, userID); err != nil {
		return err
	}
	s.publishAccounts(ctx)
	return nil
}

// ClearAllAccounts removes every stored account.
func (s *AccountService) ClearAllAccounts(ctx context.Context) error {
	if err := s.accounts.Clear(ctx); err != nil {
		return err
	}
	s.publishAccounts(ctx)
	return nil
}

// MarkSynced clears the first-sync flag of an account after its initial
// sync completes.
func (s *AccountService) MarkSynced(ctx context.Context, userID string) error {
	account, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !account.IsNew {
		return nil
	}
	account.IsNew = false
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}
	s.publishAccounts(ctx)
	return nil
}

// GetOrAssignDeviceID returns the account's device id, generating and
// persisting a fresh one unique across all stored accounts when the account
// does not have one yet.
func (s *AccountService) GetOrAssignDeviceID(ctx context.Context, userID string) (string, error) {
	account, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if account.DeviceID != "" {
		return account.DeviceID, nil
	}

	all, err := s.accounts.List(ctx)
	if err != nil {
		return "", err
	}
	used := make(map[string]struct{}, len(all))
	for _, a := range all {
		if a.DeviceID != "" {
			used[a.DeviceID] = struct{}{}
		}
	}

	var deviceID string
	for {
		deviceID = uuid.NewString()
		if _, taken := used[deviceID]; !taken {
			break
		}
	}

	account.DeviceID = deviceID
	if err := s.accounts.Update(ctx, account); err != nil {
		return "", err
	}
	return deviceID, nil
}

func (s *AccountService) publishAccounts(ctx context.Context) {
	list, err := s.accounts.List(ctx)
	if err != nil {
		s.log.Error(ctx, "failed to load accounts for publish", "error", err)
		return
	}
	s.watch.Publish(list)
}
