package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"thunder-mod-manager/catalog"
	"thunder-mod-manager/logger"
	"thunder-mod-manager/ui"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the local package catalog",
	Long: `Searches the synced catalog for the active game. Results are ranked
by keyword relevance (name over owner over description), then download
count. Run 'sync' first to populate the catalog.`,
	Run: func(cmd *cobra.Command, args []string) {
		query := strings.Join(args, " ")
		categories, _ := cmd.Flags().GetStringSlice("category")
		nsfw, _ := cmd.Flags().GetBool("nsfw")
		deprecated, _ := cmd.Flags().GetBool("deprecated")
		limit, _ := cmd.Flags().GetInt("limit")
		runSearch(query, categories, nsfw, deprecated, limit)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringSlice("category", nil, "Only packages carrying every given category slug")
	searchCmd.Flags().Bool("nsfw", false, "Include NSFW packages")
	searchCmd.Flags().Bool("deprecated", false, "Include deprecated packages")
	searchCmd.Flags().IntP("limit", "n", 20, "Maximum number of results")
}

func runSearch(query string, categories []string, nsfw, deprecated bool, limit int) {
	a := bootstrap(".")
	game := a.activeGame()

	results, err := a.catalog.Search(query, catalog.Filters{
		GameID:            game.ID,
		Categories:        categories,
		IncludeNSFW:       nsfw,
		IncludeDeprecated: deprecated,
	})
	if err != nil {
		logger.Log.Fatalw("Search failed", zap.Error(err))
	}

	if len(results) == 0 {
		fmt.Println("No packages found. Try 'sync' to refresh the catalog.")
		return
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	fmt.Println(ui.Header(fmt.Sprintf("%-45s %-12s %-10s %s", "Package", "Downloads", "Latest", "Description")))
	for _, pkg := range results {
		latest := ""
		if pkg.LatestVersionID != nil {
			info, err := a.catalog.GetVersion(*pkg.LatestVersionID)
			if err == nil {
				latest = info.Version.Triple().String()
			}
		}
		fmt.Printf("%-45s %-12d %-10s %s\n",
			ui.Truncate(pkg.Owner+"-"+pkg.Name, 43),
			pkg.Downloads,
			latest,
			ui.Truncate(pkg.Description, 50),
		)
	}
}
