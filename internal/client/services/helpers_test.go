package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/okatkov/mxkeeper/internal/client/client"
	"github.com/okatkov/mxkeeper/internal/client/models"
	"github.com/okatkov/mxkeeper/internal/client/repositories/accounts"
	"github.com/okatkov/mxkeeper/internal/client/session"
	"github.com/okatkov/mxkeeper/internal/common"
	"github.com/okatkov/mxkeeper/internal/logging"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE accounts (
  user_id         TEXT PRIMARY KEY,
  home_server_url TEXT    NOT NULL DEFAULT '',
  username        TEXT    NOT NULL DEFAULT '',
  password        TEXT    NOT NULL DEFAULT '',
  token           TEXT    NOT NULL DEFAULT '',
  device_id       TEXT    NOT NULL DEFAULT '',
  refresh_token   TEXT    NOT NULL DEFAULT '',
  is_new          INTEGER NOT NULL DEFAULT 0,
  unread_count    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE settings (
  key   TEXT PRIMARY KEY,
  value BLOB
);
`)
	require.NoError(t, err)
	return db
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeAuthClient implements client.AuthClient via function fields; a call
// with no function configured fails the test through an error result.
type fakeAuthClient struct {
	loginByPassword func(ctx context.Context, username, password, deviceID string) (*models.Credentials, error)
	loginByToken    func(ctx context.Context, token string) (*models.Credentials, error)
	register        func(ctx context.Context, params models.RegistrationParams) (*models.Credentials, error)
	getProfile      func(ctx context.Context, userID string) (map[string]any, error)
}

func (f *fakeAuthClient) LoginByPassword(ctx context.Context, username, password, deviceID string) (*models.Credentials, error) {
	if f.loginByPassword == nil {
		return nil, errors.New("unexpected LoginByPassword call")
	}
	return f.loginByPassword(ctx, username, password, deviceID)
}

func (f *fakeAuthClient) LoginByToken(ctx context.Context, token string) (*models.Credentials, error) {
	if f.loginByToken == nil {
		return nil, errors.New("unexpected LoginByToken call")
	}
	return f.loginByToken(ctx, token)
}

func (f *fakeAuthClient) Register(ctx context.Context, params models.RegistrationParams) (*models.Credentials, error) {
	if f.register == nil {
		return nil, errors.New("unexpected Register call")
	}
	return f.register(ctx, params)
}

func (f *fakeAuthClient) GetProfile(ctx context.Context, userID string) (map[string]any, error) {
	if f.getProfile == nil {
		return nil, errors.New("unexpected GetProfile call")
	}
	return f.getProfile(ctx, userID)
}

func staticFactory(c client.AuthClient) client.Factory {
	return func(models.HomeServerConfig) client.AuthClient { return c }
}

func newAccountService(t *testing.T, fake *fakeAuthClient) (*AccountService, accounts.Repository, *sql.DB) {
	t.Helper()
	db := setupDB(t)
	repo := accounts.NewSQLiteRepository(db, common.GenerateRandByteArray(32))
	svc := NewAccountService(repo, staticFactory(fake), session.NewFactory(), testLogger())
	return svc, repo, db
}

func storedAccount(userID string) *models.LocalAccount {
	return &models.LocalAccount{
		UserID:        userID,
		HomeServerURL: "https://example.org",
		Username:      models.LocalPart(userID),
		Password:      "s3cret",
		Token:         "syt_" + models.LocalPart(userID),
		DeviceID:      "DEV_" + models.LocalPart(userID),
	}
}

func forbidden() *common.ServerError {
	return &common.ServerError{Code: "M_FORBIDDEN", Message: "Invalid password", HTTPStatus: 403}
}
