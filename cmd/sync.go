package cmd

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"thunder-mod-manager/db"
	"thunder-mod-manager/logger"
	"thunder-mod-manager/thunderstore"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the local package catalog from Thunderstore",
	Long: `Fetches the full package listing for the active game's community
and upserts it into the local catalog. Existing versions keep their
identity; versions the registry no longer lists are marked inactive.`,
	Run: func(cmd *cobra.Command, _ []string) {
		gameSlug, _ := cmd.Flags().GetString("game")
		plain, _ := cmd.Flags().GetBool("plain")
		runSyncCommand(gameSlug, plain)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("game", "", "Game slug to sync instead of the active game")
	syncCmd.Flags().Bool("plain", false, "Log progress instead of showing the interactive view")
}

func runSyncCommand(gameSlug string, plain bool) {
	a := bootstrap(".")

	var game *db.Game
	if gameSlug != "" {
		game = a.ensureGame(gameSlug)
	} else {
		game = a.activeGame()
	}

	if plain {
		progress := make(chan syncProgressMsg, 100)
		go func() {
			defer close(progress)
			runSync(a, game, progress)
		}()
		for msg := range progress {
			switch msg.Type {
			case "status", "summary":
				logger.Log.Info(msg.Message)
			case "error":
				logger.Log.Warnw(msg.Message, zap.String("package", msg.Package))
			}
		}
		return
	}

	runSyncTUI(a, game)
}

const syncWorkers = 4

// runSync drives one catalog refresh, reporting progress on the channel.
// The caller owns the channel lifecycle.
func runSync(a *app, game *db.Game, progress chan<- syncProgressMsg) {
	progress <- syncProgressMsg{Type: "status", Message: fmt.Sprintf("Fetching package list for %s...", game.Slug)}

	listings, err := a.client.GetCommunityPackages(game.Slug)
	if err != nil {
		logger.Log.Errorw("Failed to fetch package list", zap.String("game", game.Slug), zap.Error(err))
		progress <- syncProgressMsg{Type: "error", Message: fmt.Sprintf("fetch failed: %v", err)}
		return
	}

	total := len(listings)
	progress <- syncProgressMsg{Type: "status", Message: fmt.Sprintf("Upserting %d packages...", total), Total: total}

	var upserted, failed, processed atomic.Int64
	jobs := make(chan thunderstore.PackageListing)
	var wg sync.WaitGroup

	for i := 0; i < syncWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for listing := range jobs {
				name := listing.Owner + "-" + listing.Name
				current := int(processed.Add(1))

				pkg, versions, err := thunderstore.ToCatalogInput(listing)
				if err != nil {
					logger.Log.Warnw("Skipping malformed package listing", zap.String("package", name), zap.Error(err))
					progress <- syncProgressMsg{Type: "error", Message: err.Error(), Package: name, Current: current, Total: total}
					failed.Add(1)
					continue
				}

				if _, err := a.catalog.UpsertPackage(game.ID, pkg, versions); err != nil {
					logger.Log.Errorw("Failed to upsert package", zap.String("package", name), zap.Error(err))
					progress <- syncProgressMsg{Type: "error", Message: err.Error(), Package: name, Current: current, Total: total}
					failed.Add(1)
					continue
				}

				upserted.Add(1)
				progress <- syncProgressMsg{Type: "package", Package: name, Current: current, Total: total}
			}
		}()
	}

	for _, listing := range listings {
		jobs <- listing
	}
	close(jobs)
	wg.Wait()

	summary := fmt.Sprintf("Synced %d packages for %s (%d failed).", upserted.Load(), game.Slug, failed.Load())
	logger.Log.Info(summary)
	progress <- syncProgressMsg{Type: "summary", Message: summary}
}
