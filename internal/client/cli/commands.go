package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/okatkov/mxkeeper/internal/client/models"
	"github.com/okatkov/mxkeeper/internal/client/services"
	"github.com/okatkov/mxkeeper/internal/common"
)

// AddAccount prompts for a homeserver, username and password, logs in and
// stores the resulting account. The password byte slice is wiped before
// returning.
func (a *App) AddAccount(ctx context.Context) error {
	homeServer, username, password, err := a.promptAccountInput()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	account, err := a.accounts.AddExistingAccount(ctx, homeServer, username, string(password), "")
	if err != nil {
		printlnFn(serverErrorText(err))
		return err
	}
	if account == nil {
		printlnFn("Login failed: homeserver unreachable, try again later.")
		return nil
	}

	printlnFn("Account added:", account.UserID)
	return nil
}

// RegisterAccount prompts for a homeserver, username and password and
// registers a brand new account on the homeserver.
func (a *App) RegisterAccount(ctx context.Context) error {
	homeServer, username, password, err := a.promptAccountInput()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	account, err := a.accounts.RegisterNewAccount(ctx, homeServer, models.RegistrationParams{
		Username:                 username,
		Password:                 string(password),
		InitialDeviceDisplayName: "mxkeeper",
	})
	if err != nil {
		printlnFn(serverErrorText(err))
		return err
	}
	if account == nil {
		printlnFn("Registration failed: homeserver unreachable, try again later.")
		return nil
	}

	printlnFn("Account registered:", account.UserID)
	return nil
}

// ListAccounts prints every stored account with its state markers.
func (a *App) ListAccounts(ctx context.Context) error {
	list, err := a.accounts.ListLocalAccounts(ctx)
	if err != nil {
		a.log.Error(ctx, "failed to list accounts", "error", err)
		return err
	}
	if len(list) == 0 {
		printlnFn("No accounts stored.")
		return nil
	}

	active := a.holder.Get()
	for _, acc := range list {
		markers := ""
		if active != nil && active.UserID == acc.UserID {
			markers += " [active]"
		}
		if acc.IsNew {
			markers += " [new]"
		}
		if a.switcher.IsInvalid(acc.UserID) {
			markers += " [invalid]"
		}
		printlnFn(fmt.Sprintf("%s  device=%s%s", acc.UserID, acc.DeviceID, markers))
	}
	return nil
}

// ListProfiles prints the remote profile of every stored account except the
// active one. Unreachable profiles degrade to the user id's localpart.
func (a *App) ListProfiles(ctx context.Context) error {
	exclude := ""
	if active := a.holder.Get(); active != nil {
		exclude = active.UserID
	}

	items, err := a.accounts.ListRemoteProfiles(ctx, exclude)
	if err != nil {
		a.log.Error(ctx, "failed to list profiles", "error", err)
		return err
	}
	if len(items) == 0 {
		printlnFn("No other accounts stored.")
		return nil
	}

	for _, item := range items {
		line := fmt.Sprintf("%s  %s", item.UserID, item.DisplayName)
		if item.AvatarURL != "" {
			line += "  " + item.AvatarURL
		}
		printlnFn(line)
	}
	return nil
}

// SwitchAccount makes the given account active, re-logging in with its
// stored credentials.
func (a *App) SwitchAccount(ctx context.Context, userID string) error {
	sess, err := a.switcher.Switch(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			printlnFn("Unknown account:", userID)
			return err
		}
		printlnFn(serverErrorText(err))
		return err
	}

	printlnFn("Active account:", sess.UserID)
	return nil
}

// DeleteAccount removes a stored account.
func (a *App) DeleteAccount(ctx context.Context, userID string) error {
	if err := a.accounts.DeleteAccount(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			printlnFn("Unknown account:", userID)
		} else {
			a.log.Error(ctx, "failed to delete account", "user_id", userID, "error", err)
		}
		return err
	}

	printlnFn("Deleted", userID)
	return nil
}

// Passwd manages the application password: set, update or delete.
func (a *App) Passwd(ctx context.Context, action string) error {
	switch action {
	case "set":
		return a.passwdSet(ctx)
	case "update":
		return a.passwdUpdate(ctx)
	case "delete":
		if err := a.passwords.DeleteApplicationPassword(ctx); err != nil {
			a.log.Error(ctx, "failed to delete application password", "error", err)
			return err
		}
		printlnFn("Application password removed.")
		return nil
	default:
		printlnFn("Usage: passwd set|update|delete")
		return nil
	}
}

func (a *App) passwdSet(ctx context.Context) error {
	password, err := getPassword("New application password", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.passwords.SetApplicationPassword(ctx, string(password)); err != nil {
		printlnFn(passwordErrorText(err))
		return err
	}

	printlnFn("Application password set.")
	if nuke, err := a.passwords.GetNukePassword(ctx); err == nil {
		printlnFn("Your duress password is:", nuke)
		printlnFn("Entering it at the unlock prompt destroys all local data.")
	}
	return nil
}

func (a *App) passwdUpdate(ctx context.Context) error {
	current, err := getPassword("Current application password", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)

	next, err := getPassword("New application password", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	if err := a.passwords.UpdateApplicationPassword(ctx, string(current), string(next)); err != nil {
		printlnFn(passwordErrorText(err))
		return err
	}

	printlnFn("Application password updated.")
	return nil
}

// ShowNuke prints the duress password so the user can write it down.
func (a *App) ShowNuke(ctx context.Context) error {
	nuke, err := a.passwords.GetNukePassword(ctx)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			printlnFn("No duress password yet: set an application password first.")
			return nil
		}
		return err
	}

	printlnFn("Duress password:", nuke)
	return nil
}

// Connection shows the current connection type, or sets it when an argument
// is given.
func (a *App) Connection(ctx context.Context, args []string) error {
	if len(args) == 0 {
		current, err := services.GetConnectionType(ctx, a.settings)
		if err != nil {
			a.log.Error(ctx, "failed to load connection type", "error", err)
			return err
		}
		printlnFn("Connection type:", current)
		return nil
	}

	if err := services.SetConnectionType(ctx, a.settings, args[0]); err != nil {
		if errors.Is(err, common.ErrorValidation) {
			printlnFn("Usage: conn [direct|onion|i2p]")
			return nil
		}
		a.log.Error(ctx, "failed to store connection type", "error", err)
		return err
	}

	printlnFn("Connection type set to", args[0]+".")
	return nil
}

func (a *App) promptAccountInput() (homeServer string, username string, password []byte, err error) {
	homeServer, err = getSimpleText(a.reader, fmt.Sprintf("Enter homeserver URL (empty for %s)", a.config.HomeServerURL), os.Stdout)
	if err != nil {
		return "", "", nil, err
	}
	if homeServer == "" {
		homeServer = a.config.HomeServerURL
	}

	username, err = getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return "", "", nil, err
	}

	password, err = getPassword("Enter password", os.Stdout)
	if err != nil {
		return "", "", nil, err
	}
	return homeServer, username, password, nil
}

func serverErrorText(err error) string {
	if se, ok := common.AsServerError(err); ok {
		return fmt.Sprintf("Rejected by homeserver: %s (%s)", se.Message, se.Code)
	}
	return "Error: " + err.Error()
}

func passwordErrorText(err error) string {
	if errors.Is(err, common.ErrNukePasswordEntered) {
		return "That password is not allowed."
	}

	var ipe *common.InvalidPasswordError
	if errors.As(err, &ipe) {
		switch ipe.Reason {
		case common.ReasonWrongLength:
			return "Password must be 4 to 15 characters long."
		case common.ReasonNoDigit:
			return "Password must contain a digit."
		case common.ReasonNoSymbol:
			return "Password must contain a symbol (!@#$%^&*())."
		case common.ReasonNoLowercase:
			return "Password must contain a lowercase letter."
		case common.ReasonNoUppercase:
			return "Password must contain an uppercase letter."
		}
	}
	return serverErrorText(err)
}
