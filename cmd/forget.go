package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/sealfile/internal/core"
)

// Forget removes envelopes from the catalog, leaving the files in place
func Forget(ctx context.Context, app *App, patterns []string) {
	if len(patterns) == 0 {
		fmt.Fprintf(os.Stderr, "Error: forget requires at least one file argument\n")
		fmt.Fprintf(os.Stderr, "Usage: sealfile forget <file> [file...]\n")
		os.Exit(1)
	}

	sealer := app.openSealer(core.StrategyAbort)
	defer sealer.Close()

	paths, err := sealer.ExpandPatterns(patterns)
	if err != nil {
		HandleError(err)
	}

	forgotten, err := sealer.Forget(ctx, paths)
	for _, path := range forgotten {
		fmt.Printf("forgotten: %s\n", path)
	}
	if err != nil {
		HandleError(err)
	}
}
