package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/okatkov/mxkeeper/internal/client/services"
	"github.com/okatkov/mxkeeper/internal/common"
)

const maxUnlockAttempts = 3

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// unlock gates the application behind the application password when one is
// set. Entering the duress password wipes all local data and lets the
// program continue against an empty store, indistinguishable from a fresh
// install.
func (a *App) unlock(ctx context.Context) error {
	set, err := a.passwords.CheckIsSet(ctx)
	if err != nil {
		return err
	}
	if !set {
		return nil
	}

	for attempt := 1; attempt <= maxUnlockAttempts; attempt++ {
		password, err := getPassword("Enter application password", os.Stdout)
		if err != nil {
			return err
		}

		_, err = a.passwords.LoginByApplicationPassword(ctx, string(password))
		common.WipeByteArray(password)

		if err == nil {
			return nil
		}
		if errors.Is(err, common.ErrNukePasswordEntered) {
			return a.wipe(ctx)
		}
		printlnFn("Incorrect password.")
	}

	return fmt.Errorf("too many failed unlock attempts")
}

// wipe destroys all locally stored data: accounts, sealed secrets, the
// application password and the seal key itself. A fresh seal key is
// generated and the accounts repository rekeyed, so anything stored after
// the wipe stays readable across restarts.
func (a *App) wipe(ctx context.Context) error {
	if err := a.accounts.ClearAllAccounts(ctx); err != nil {
		return err
	}
	if err := a.settings.Clear(ctx); err != nil {
		return err
	}
	key, err := services.EnsureSealKey(ctx, a.settings)
	if err != nil {
		return err
	}
	a.accountsRepo.Rekey(key)
	return nil
}
