package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"thunder-mod-manager/logger"
)

// gameCmd groups the game selection subcommands
var gameCmd = &cobra.Command{
	Use:   "game",
	Short: "List and select games",
}

var gameListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known games",
	Run: func(_ *cobra.Command, _ []string) {
		a := bootstrap(".")
		active := a.activeGame()

		games, err := a.catalog.ListGames()
		if err != nil {
			logger.Log.Fatalw("Failed to list games", zap.Error(err))
		}

		for _, game := range games {
			marker := " "
			if game.ID == active.ID {
				marker = "*"
			}
			favorite := ""
			if game.Favorite {
				favorite = " ♥"
			}
			fmt.Printf("%s %-30s %s%s\n", marker, game.Slug, game.Name, favorite)
		}
	},
}

var gameUseCmd = &cobra.Command{
	Use:   "use [slug]",
	Short: "Select the active game",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		a := bootstrap(".")
		game := a.useGame(args[0])
		fmt.Printf("Active game is now %s.\n", game.Slug)
	},
}

var gameFavoriteCmd = &cobra.Command{
	Use:   "favorite [slug]",
	Short: "Toggle a game's favorite flag",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		a := bootstrap(".")
		game := a.ensureGame(args[0])
		if err := a.catalog.SetGameFavorite(game.ID, !game.Favorite); err != nil {
			logger.Log.Fatalw("Failed to update favorite flag", zap.Error(err))
		}
		if game.Favorite {
			fmt.Printf("Removed %s from favorites.\n", game.Slug)
		} else {
			fmt.Printf("Added %s to favorites.\n", game.Slug)
		}
	},
}

var gamePathCmd = &cobra.Command{
	Use:   "path [slug] [dir]",
	Short: "Override a game's install directory",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		a := bootstrap(".")
		game := a.ensureGame(args[0])
		if err := a.catalog.SetGameOverridePath(game.ID, args[1]); err != nil {
			logger.Log.Fatalw("Failed to set override path", zap.Error(err))
		}
		fmt.Printf("Install directory for %s set to %s.\n", game.Slug, args[1])
	},
}

func init() {
	rootCmd.AddCommand(gameCmd)
	gameCmd.AddCommand(gameListCmd)
	gameCmd.AddCommand(gameUseCmd)
	gameCmd.AddCommand(gameFavoriteCmd)
	gameCmd.AddCommand(gamePathCmd)
}
