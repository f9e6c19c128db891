package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/sealfile/internal/core"
	"github.com/illarion/sealfile/internal/crypto"
)

// Decrypt opens envelopes matching patterns, or every cataloged envelope
// when no patterns are given.
func Decrypt(ctx context.Context, app *App, patterns []string, keepLocal, keepBoth bool) {
	// Validate mutually exclusive flags
	if boolToInt(app.Config.Force)+boolToInt(keepLocal)+boolToInt(keepBoth) > 1 {
		fmt.Fprintf(os.Stderr, "error: --force, --keep-local, and --keep-both are mutually exclusive\n")
		os.Exit(1)
	}

	// Determine conflict strategy
	var strategy core.ConflictStrategy
	switch {
	case app.Config.Force:
		strategy = core.StrategyOverwrite
	case keepLocal:
		strategy = core.StrategyKeepLocal
	case keepBoth:
		strategy = core.StrategyKeepBoth
	default:
		strategy = core.StrategyAbort
	}

	sealer := app.openSealer(strategy)
	defer sealer.Close()

	var paths []string
	var err error
	if len(patterns) > 0 {
		paths, err = sealer.ExpandPatterns(patterns)
	} else {
		paths, err = envelopes(ctx, sealer)
	}
	if err != nil {
		HandleError(err)
	}
	if len(paths) == 0 {
		fmt.Println("No envelopes to decrypt")
		return
	}

	// Get password with retry on stale keyring
	catalogID := app.catalogID(sealer, false)
	password, source, err := GetPasswordWithRetry("Enter password: ", catalogID, func(p []byte) error {
		return sealer.CheckPassword(ctx, paths[0], p)
	})
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	batch := sealer.DecryptFiles(ctx, paths, password, app.Config.Workers)
	decrypted, skipped := 0, 0
	for i, result := range batch.Results {
		if err := batch.Errors[i]; err != nil {
			printBatchError(err)
			continue
		}
		if result.Skipped {
			skipped++
			fmt.Printf("skipped: %s\n", result.Output)
			continue
		}
		decrypted++
		fmt.Printf("decrypted: %s -> %s\n", result.Input, result.Output)
	}

	fmt.Printf("\n")
	if decrypted > 0 {
		fmt.Printf("decrypted: %d files\n", decrypted)
	}
	if skipped > 0 {
		fmt.Printf("skipped: %d files\n", skipped)
	}

	// Offer to save password if it was entered manually and worked
	if source == SourcePrompt && decrypted+skipped > 0 {
		OfferToSavePassword(catalogID, password)
	}

	finishBatch(batch)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
