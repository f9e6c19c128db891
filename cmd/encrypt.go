package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/illarion/sealfile/internal/core"
	"github.com/illarion/sealfile/internal/crypto"
)

// Encrypt seals every file matching patterns into a .enc envelope
func Encrypt(ctx context.Context, app *App, patterns []string) {
	if len(patterns) == 0 {
		fmt.Fprintf(os.Stderr, "Error: encrypt requires at least one file argument\n")
		fmt.Fprintf(os.Stderr, "Usage: sealfile encrypt [-r|--remove] [--force] <file> [file...]\n")
		os.Exit(1)
	}

	sealer := app.openSealer(core.StrategyAbort)
	defer sealer.Close()

	paths, err := sealer.ExpandPatterns(patterns)
	if err != nil {
		HandleError(err)
	}

	password, source, err := GetPasswordForEncrypt(app.catalogID(sealer, false))
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	batch := sealer.EncryptFiles(ctx, paths, password, app.Config.Workers)
	for i, result := range batch.Results {
		if err := batch.Errors[i]; err != nil {
			printBatchError(err)
			continue
		}
		fmt.Printf("encrypted: %s -> %s (%s)\n", result.Input, result.Output, humanize.IBytes(uint64(result.EnvelopeSize)))
		if result.Removed {
			fmt.Printf("removed: %s\n", result.Input)
		}
	}

	if source == SourcePrompt && batch.Failed() < len(paths) {
		OfferToSavePassword(app.catalogID(sealer, true), password)
	}

	finishBatch(batch)
}

func printBatchError(err error) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("error:"), err)
	if hint := errorHint(err); hint != "" {
		fmt.Fprintf(os.Stderr, "  %s %s\n", color.CyanString("→"), hint)
	}
}

// finishBatch prints the failure count and exits 1 if anything failed
func finishBatch(batch *core.BatchResult) {
	if failed := batch.Failed(); failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%d of %d files failed\n", failed, len(batch.Paths))
		os.Exit(1)
	}
}
