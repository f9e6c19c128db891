package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/sealfile/internal/core"
)

// Verify checks envelope structure and catalog digests without a password
func Verify(ctx context.Context, app *App, patterns []string) {
	sealer := app.openSealer(core.StrategyAbort)
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

	failed := 0
	for _, path := range paths {
		v, err := sealer.VerifyFile(ctx, path)
		if err != nil {
			failed++
			printBatchError(err)
			continue
		}
		if v.Cataloged {
			fmt.Printf("ok: %s (%d blocks, matches catalog)\n", v.Path, v.Blocks)
		} else {
			fmt.Printf("ok: %s (%d blocks, not cataloged)\n", v.Path, v.Blocks)
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%d of %d files failed verification\n", failed, len(paths))
		os.Exit(1)
	}
}
