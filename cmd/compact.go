package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/illarion/sealfile/internal/core"
)

// Compact compacts the catalog database to reclaim unused space
func Compact(_ context.Context, app *App) {
	sealer := app.openSealer(core.StrategyAbort)
	defer sealer.Close()

	// Get file size before
	info, err := os.Stat(app.Config.Catalog)
	if err != nil {
		if os.IsNotExist(err) {
			HandleError(core.ErrNoCatalog)
		}
		HandleError(err)
	}
	sizeBefore := info.Size()

	if err := sealer.Compact(); err != nil {
		HandleError(err)
	}

	// Get file size after
	info, err = os.Stat(app.Config.Catalog)
	if err != nil {
		HandleError(err)
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", humanize.IBytes(uint64(sizeBefore)), humanize.IBytes(uint64(sizeAfter)))
}
