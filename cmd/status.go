package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/illarion/sealfile/internal/core"
	"github.com/illarion/sealfile/internal/git"
)

// Status shows the catalog and the state of every envelope in it
func Status(ctx context.Context, app *App) {
	sealer := app.openSealer(core.StrategyAbort)
	defer sealer.Close()

	// Get status (no password required)
	status, err := sealer.Status(ctx)
	if errors.Is(err, core.ErrNoCatalog) {
		fmt.Printf("No %s catalog found in current directory\n", app.Config.Catalog)
		fmt.Println("Run 'sealfile encrypt <file>' to create one")
		return
	}
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Catalog: %s\n", status.CatalogPath)
	fmt.Printf("   created: %s\n", status.Created.Format(time.RFC3339))
	fmt.Printf("   last sealed: %s (%s)\n", status.Modified.Format(time.RFC3339), humanize.Time(status.Modified))
	fmt.Printf("   files: %d (%s plaintext)\n", len(status.Files), humanize.IBytes(uint64(status.TotalPlain)))

	fmt.Println("\nEnvelopes:")
	if len(status.Files) == 0 {
		fmt.Println("   (none)")
	}
	for _, file := range status.Files {
		icon := color.GreenString("*")
		switch file.State {
		case core.StateMissing:
			icon = color.YellowString("?")
		case core.StateModified:
			icon = color.RedString("!")
		}

		source := "sealed only"
		if file.SourcePresent {
			source = file.Source + " present"
		}
		fmt.Printf("   %s %s (%s, %s, %s)\n", icon, file.Envelope, file.State, humanize.IBytes(uint64(file.PlainSize)), source)
	}

	if status.Git != nil {
		fmt.Print(git.Format(status.Git))
	}
}
