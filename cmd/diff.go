package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/sealfile/internal/core"
	"github.com/illarion/sealfile/internal/crypto"
)

// Diff compares envelope contents with local plaintext files
func Diff(ctx context.Context, app *App, patterns []string) {
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
	if len(paths) == 0 {
		fmt.Println("No envelopes to compare")
		return
	}

	password, _, err := GetPasswordWithRetry("Enter password: ", app.catalogID(sealer, false), func(p []byte) error {
		return sealer.CheckPassword(ctx, paths[0], p)
	})
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	changed := 0
	for _, path := range paths {
		diff, err := sealer.DiffFile(ctx, path, password)
		if err != nil {
			HandleError(err)
		}
		if diff != "" {
			changed++
			fmt.Print(diff)
		}
	}

	if changed == 0 {
		fmt.Println("No differences")
	}
}
