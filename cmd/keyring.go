package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/sealfile/internal/core"
	"github.com/illarion/sealfile/internal/crypto"
	"github.com/illarion/sealfile/internal/keyring"
)

// KeyringSave saves the password to the OS keyring. The password is checked
// against the first cataloged envelope when there is one.
func KeyringSave(ctx context.Context, app *App) {
	sealer := app.openSealer(core.StrategyAbort)
	defer sealer.Close()

	password, err := core.ReadPassword("Enter password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	// Verify password is correct
	if paths, err := envelopes(ctx, sealer); err == nil && len(paths) > 0 {
		if err := sealer.CheckPassword(ctx, paths[0], password); err != nil {
			HandleError(err)
		}
	}

	// Get catalog ID (create if not exists)
	catalogID, err := sealer.CatalogID(true)
	if err != nil {
		HandleError(err)
	}

	if err := keyring.SavePassword(catalogID, string(password)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save to keyring: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Password saved to keyring")
}

// KeyringDelete removes the password from the OS keyring
func KeyringDelete(_ context.Context, app *App) {
	sealer := app.openSealer(core.StrategyAbort)
	defer sealer.Close()

	catalogID, err := sealer.CatalogID(false)
	if err != nil {
		fmt.Println("No password stored in keyring")
		return
	}

	if err := keyring.DeletePassword(catalogID); err != nil {
		fmt.Println("No password stored in keyring")
		return
	}

	fmt.Println("Password removed from keyring")
}

// KeyringStatus checks if a password is stored in the keyring
func KeyringStatus(_ context.Context, app *App) {
	sealer := app.openSealer(core.StrategyAbort)
	defer sealer.Close()

	catalogID, err := sealer.CatalogID(false)
	if err != nil {
		fmt.Println("Password: not stored")
		return
	}

	if keyring.HasPassword(catalogID) {
		fmt.Println("Password: stored in keyring")
	} else {
		fmt.Println("Password: not stored")
	}
}
