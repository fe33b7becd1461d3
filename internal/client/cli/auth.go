package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/imagestudio/internal/client/client"
	"github.com/dmitrijs2005/imagestudio/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username and password and creates the account.
// The password is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, userName, password); err != nil {
		a.printf("Registration failed: %v\n", err)
		return err
	}

	a.printf("Success! You can now log in.\n")
	return nil
}

// Login authenticates online and falls back to the cached login when the
// server is unreachable. The final connectivity state is reflected in the
// app mode:
//   - ModeOnline if online login succeeds,
//   - ModeOffline if offline login succeeds,
//   - ModeDisabled if the server is down and no cached login matches.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	_, err = a.authService.OnlineLogin(ctx, userName, password)
	if err == nil {
		a.printf("Login successful\n")
		a.setMode(ModeOnline)
		return nil
	}

	if !errors.Is(err, client.ErrUnavailable) {
		a.printf("Login unsuccessful: %v\n", err)
		return err
	}

	a.printf("Server unavailable, trying offline login...\n")
	if _, err := a.authService.OfflineLogin(ctx, userName, password); err != nil {
		a.printf("Offline login unsuccessful: %v\n", err)
		a.setMode(ModeDisabled)
		return err
	}

	a.printf("Offline login successful\n")
	a.setMode(ModeOffline)
	return nil
}

// Logout forgets tokens and the cached login. Edits finishing after this
// point are no longer written to history.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		a.printf("Logout failed: %v\n", err)
		return err
	}
	a.printf("Logged out\n")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	id := a.ids.Current()
	if id == nil {
		a.printf("Not logged in\n")
		return nil
	}
	a.printf("%s (%s)\n", id.Name, id.UserID)
	return nil
}
