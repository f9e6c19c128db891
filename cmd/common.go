package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/illarion/sealfile/internal/config"
	"github.com/illarion/sealfile/internal/core"
	"github.com/illarion/sealfile/internal/crypto"
	"github.com/illarion/sealfile/internal/keyring"
	"github.com/illarion/sealfile/internal/logger"
	"github.com/illarion/sealfile/internal/security"
)

// App carries the settings shared by every command
type App struct {
	Config *config.Config
	Log    logger.Logger
}

// PasswordSource indicates where a password was obtained from
type PasswordSource int

const (
	SourcePrompt PasswordSource = iota
	SourceEnv
	SourceKeyring
)

// openSealer creates a Sealer rooted at the current directory or exits
func (a *App) openSealer(conflict core.ConflictStrategy) *core.Sealer {
	sealer, err := core.New(".", core.Options{
		Catalog:  a.Config.Catalog,
		Force:    a.Config.Force,
		Remove:   a.Config.Remove,
		Conflict: conflict,
		Logger:   a.Log,
	})
	if err != nil {
		HandleError(err)
	}
	return sealer
}

// catalogID returns the keyring account for the current catalog, or ""
// when the keyring is disabled or there is no catalog yet.
func (a *App) catalogID(sealer *core.Sealer, create bool) string {
	if !a.Config.Keyring {
		return ""
	}
	id, err := sealer.CatalogID(create)
	if err != nil {
		a.Log.Debugf("no catalog id: %v", err)
		return ""
	}
	return id
}

// GetPassword retrieves the password from the environment, the keyring or
// a prompt, in that order. The caller is responsible for calling
// crypto.ClearBytes on the returned password.
func GetPassword(prompt, catalogID string) ([]byte, PasswordSource, error) {
	return GetPasswordWithRetry(prompt, catalogID, nil)
}

// GetPasswordWithRetry is like GetPassword but checks a keyring password
// with verify. A stale keyring password falls back to the prompt.
func GetPasswordWithRetry(prompt, catalogID string, verify func([]byte) error) ([]byte, PasswordSource, error) {
	// Try environment variable first
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, SourceEnv, nil
	}

	if catalogID != "" {
		stored, err := keyring.GetPassword(catalogID)
		if err == nil {
			password := []byte(stored)
			if verify == nil {
				return password, SourceKeyring, nil
			}
			err = verify(password)
			if err == nil {
				return password, SourceKeyring, nil
			}
			crypto.ClearBytes(password)
			if !errors.Is(err, crypto.ErrDecryptionFailed) {
				return nil, SourceKeyring, err
			}
			fmt.Fprintln(os.Stderr, "Keyring password is stale")
		}
	}

	password, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, SourcePrompt, err
	}
	return password, SourcePrompt, nil
}

// GetPasswordForEncrypt is like GetPassword but confirms a prompted password
func GetPasswordForEncrypt(catalogID string) ([]byte, PasswordSource, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, SourceEnv, nil
	}

	if catalogID != "" {
		if stored, err := keyring.GetPassword(catalogID); err == nil {
			return []byte(stored), SourceKeyring, nil
		}
	}

	password, err := core.ReadPasswordConfirm()
	if err != nil {
		return nil, SourcePrompt, err
	}
	return password, SourcePrompt, nil
}

// OfferToSavePassword asks whether to store a prompted password in the
// keyring. It does nothing when stdin is not a terminal.
func OfferToSavePassword(catalogID string, password []byte) {
	if catalogID == "" || !term.IsTerminal(int(os.Stdin.Fd())) {
		return
	}

	fmt.Fprint(os.Stderr, "Save password to keyring? [y/N]: ")
	response, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	response = strings.ToLower(strings.TrimSpace(response))
	if response != "y" && response != "yes" {
		return
	}

	if err := keyring.SavePassword(catalogID, string(password)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save to keyring: %s\n", err)
		return
	}
	fmt.Fprintln(os.Stderr, "Password saved to keyring")
}

// envelopes returns the cataloged envelopes that exist on disk
func envelopes(ctx context.Context, sealer *core.Sealer) ([]string, error) {
	status, err := sealer.Status(ctx)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, file := range status.Files {
		if file.State != core.StateMissing {
			paths = append(paths, file.Envelope)
		}
	}
	return paths, nil
}

// HandleError handles common errors consistently
func HandleError(err error) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("Error:"), err)
	if hint := errorHint(err); hint != "" {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.CyanString("→"), hint)
	}
	os.Exit(1)
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, crypto.ErrDecryptionFailed):
		return "wrong password or corrupted file"
	case errors.Is(err, crypto.ErrMalformedEnvelope):
		return "the file is not a sealfile envelope or is truncated"
	case errors.Is(err, core.ErrIntegrity):
		return "the envelope was modified after it was sealed"
	case errors.Is(err, core.ErrOutputExists):
		return "Use --force to overwrite"
	case errors.Is(err, core.ErrNoCatalog):
		return "Run 'sealfile encrypt <file>' first"
	case errors.Is(err, core.ErrPasswordMismatch):
		return "Try again"
	case errors.Is(err, security.ErrPathEscapes), errors.Is(err, security.ErrAbsolutePath):
		return "Only files inside the current directory can be processed"
	default:
		return ""
	}
}
