package cli

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/okatkov/mxkeeper/internal/client/client"
	"github.com/okatkov/mxkeeper/internal/client/config"
	"github.com/okatkov/mxkeeper/internal/client/models"
	"github.com/okatkov/mxkeeper/internal/client/repositories/accounts"
	"github.com/okatkov/mxkeeper/internal/client/repositories/settings"
	"github.com/okatkov/mxkeeper/internal/client/services"
	"github.com/okatkov/mxkeeper/internal/client/session"
	"github.com/okatkov/mxkeeper/internal/logging"
)

// fakeAuthClient implements client.AuthClient with canned responses.
type fakeAuthClient struct {
	creds *models.Credentials
	err   error
}

func (f *fakeAuthClient) LoginByPassword(context.Context, string, string, string) (*models.Credentials, error) {
	return f.creds, f.err
}

func (f *fakeAuthClient) LoginByToken(context.Context, string) (*models.Credentials, error) {
	return f.creds, f.err
}

func (f *fakeAuthClient) Register(context.Context, models.RegistrationParams) (*models.Credentials, error) {
	return f.creds, f.err
}

func (f *fakeAuthClient) GetProfile(context.Context, string) (map[string]any, error) {
	return nil, f.err
}

func newTestApp(t *testing.T, fake client.AuthClient) *App {
	t.Helper()
	ctx := context.Background()

	db, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	settingsRepo := settings.NewSQLiteRepository(db)
	sealKey, err := services.EnsureSealKey(ctx, settingsRepo)
	require.NoError(t, err)
	accountsRepo := accounts.NewSQLiteRepository(db, sealKey)

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	factory := func(models.HomeServerConfig) client.AuthClient { return fake }

	holder := session.NewActiveHolder()
	accountSvc := services.NewAccountService(accountsRepo, factory, session.NewFactory(), log)
	passwordSvc := services.NewPasswordService(db, log)
	switchSvc := services.NewSwitchService(accountSvc, holder, settingsRepo, nil, log)

	cfg := &config.Config{}
	cfg.LoadDefaults()

	return &App{
		config:       cfg,
		db:           db,
		accountsRepo: accountsRepo,
		accounts:     accountSvc,
		passwords:    passwordSvc,
		switcher:     switchSvc,
		profiles:     services.NewProfileWatcher(accountSvc, 0, log),
		holder:       holder,
		settings:     settingsRepo,
		log:          log,
		reader:       bufio.NewReader(strings.NewReader("")),
	}
}

// stubPasswords replaces getPassword with a queue of canned entries.
func stubPasswords(t *testing.T, entries ...string) {
	t.Helper()
	orig := getPassword
	t.Cleanup(func() { getPassword = orig })
	i := 0
	getPassword = func(prompt string, w io.Writer) ([]byte, error) {
		if i >= len(entries) {
			return nil, io.EOF
		}
		pw := entries[i]
		i++
		return []byte(pw), nil
	}
}

// stubTextInput replaces getSimpleText with a queue of canned lines.
func stubTextInput(t *testing.T, lines ...string) {
	t.Helper()
	orig := getSimpleText
	t.Cleanup(func() { getSimpleText = orig })
	i := 0
	getSimpleText = func(_ *bufio.Reader, prompt string, _ io.Writer) (string, error) {
		if i >= len(lines) {
			return "", io.EOF
		}
		line := lines[i]
		i++
		return line, nil
	}
}
