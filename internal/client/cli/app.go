package cli

import (
	"bufio"
	"context"
	"database/sql"
	"os"

	"github.com/okatkov/mxkeeper/internal/client/client"
	"github.com/okatkov/mxkeeper/internal/client/config"
	"github.com/okatkov/mxkeeper/internal/client/models"
	"github.com/okatkov/mxkeeper/internal/client/repositories/accounts"
	"github.com/okatkov/mxkeeper/internal/client/repositories/settings"
	"github.com/okatkov/mxkeeper/internal/client/services"
	"github.com/okatkov/mxkeeper/internal/client/session"
	"github.com/okatkov/mxkeeper/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config       *config.Config
	db           *sql.DB
	accountsRepo *accounts.SQLiteRepository
	accounts     *services.AccountService
	passwords    *services.PasswordService
	switcher     *services.SwitchService
	profiles     *services.ProfileWatcher
	holder       *session.ActiveHolder
	settings     settings.Repository
	log          logging.Logger
	reader       *bufio.Reader
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	settingsRepo := settings.NewSQLiteRepository(db)
	sealKey, err := services.EnsureSealKey(ctx, settingsRepo)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	accountsRepo := accounts.NewSQLiteRepository(db, sealKey)

	factory := func(hs models.HomeServerConfig) client.AuthClient {
		if hs.Timeout == 0 {
			hs.Timeout = cfg.RequestTimeout
		}
		return client.NewHTTPClient(hs)
	}

	holder := session.NewActiveHolder()
	accountSvc := services.NewAccountService(accountsRepo, factory, session.NewFactory(), log)
	passwordSvc := services.NewPasswordService(db, log)
	switchSvc := services.NewSwitchService(accountSvc, holder, settingsRepo, nil, log)
	watcher := services.NewProfileWatcher(accountSvc, cfg.ProfileRefreshInterval, log)

	return &App{
		config:       cfg,
		db:           db,
		accountsRepo: accountsRepo,
		accounts:     accountSvc,
		passwords:    passwordSvc,
		switcher:     switchSvc,
		profiles:     watcher,
		holder:       holder,
		settings:     settingsRepo,
		log:          log,
		reader:       bufio.NewReader(os.Stdin),
	}, nil
}

// Run unlocks the gate and drives the REPL until the user exits. The
// database handle is closed on return.
func (a *App) Run(ctx context.Context) error {
	defer a.db.Close()

	if err := a.unlock(ctx); err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.profiles.Run(watchCtx, "")

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
	return nil
}

func (a *App) status() string {
	if s := a.holder.Get(); s != nil {
		return s.UserID
	}
	return "no active account"
}
