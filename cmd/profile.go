package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"thunder-mod-manager/catalog"
	"thunder-mod-manager/db"
	"thunder-mod-manager/logger"
	"thunder-mod-manager/profile"
	"thunder-mod-manager/resolver"
	"thunder-mod-manager/thunderstore"
	"thunder-mod-manager/ui"
)

// profileCmd groups the profile management subcommands
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage mod profiles for the active game",
}

var profileCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new empty profile",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		a := bootstrap(".")
		game := a.activeGame()

		created, err := a.profiles.Create(game.ID, args[0])
		if err != nil {
			logger.Log.Fatalw("Failed to create profile", zap.String("name", args[0]), zap.Error(err))
		}
		fmt.Printf("Created profile %q at %s.\n", created.Name, created.Path)
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles for the active game",
	Run: func(_ *cobra.Command, _ []string) {
		a := bootstrap(".")
		game := a.activeGame()

		profiles, err := a.profiles.List(game.ID)
		if err != nil {
			logger.Log.Fatalw("Failed to list profiles", zap.Error(err))
		}
		if len(profiles) == 0 {
			fmt.Println("No profiles yet. Run 'profile create <name>'.")
			return
		}

		activeID := a.session.ActiveProfile()
		if raw, err := a.catalog.GetSetting(settingActiveProfile); err == nil && raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
				activeID = uint(id)
			}
		}
		for _, p := range profiles {
			marker := " "
			if p.ID == activeID {
				marker = "*"
			}
			favorite := ""
			if p.Favorite {
				favorite = " ♥"
			}
			fmt.Printf("%s %s%s\n", marker, p.Name, favorite)
		}
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Select the active profile",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		a := bootstrap(".")
		game := a.activeGame()
		selected := a.useProfile(game.ID, args[0])
		fmt.Printf("Active profile is now %q.\n", selected.Name)
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active profile's mod list in load order",
	Run: func(_ *cobra.Command, _ []string) {
		a := bootstrap(".")
		a.activeGame()
		info := a.activeProfile()

		fmt.Printf("Profile %q (%d mods)\n\n", info.Profile.Name, len(info.Mods))
		if len(info.Mods) == 0 {
			return
		}

		fmt.Println(ui.Header(fmt.Sprintf("%-4s %-45s %-12s %-8s %s", "#", "Mod", "Version", "Source", "State")))
		for _, mod := range info.Mods {
			display := mod.Name
			if mod.Owner != "" {
				display = mod.Owner + "-" + mod.Name
			}
			state := "enabled"
			if !mod.Enabled {
				state = "disabled"
			}
			fmt.Printf("%-4d %-45s %-12s %-8s %s\n",
				mod.OrderIndex, ui.Truncate(display, 43), mod.Version, mod.Kind, state)
		}
	},
}

var profileAddCmd = &cobra.Command{
	Use:   "add [Owner-Name[-1.2.3]]",
	Short: "Add a registry mod to the active profile",
	Long: `Adds a Thunderstore package to the active profile. Without an explicit
version the latest release is used. The add is rejected if the combined
dependency closure of the profile cannot be satisfied.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		a := bootstrap(".")
		game := a.activeGame()
		info := a.activeProfile()

		versionID := resolveVersionRef(a, game, args[0])
		added, err := a.profiles.AddMod(info.Profile.ID, profile.ThunderstoreSource{VersionID: versionID})
		if err != nil {
			var unsat *resolver.UnsatisfiedError
			if errors.As(err, &unsat) {
				logger.Log.Fatalw("Dependency closure cannot be satisfied",
					zap.String("missing", fmt.Sprintf("%s-%s >= %s", unsat.Owner, unsat.Name, unsat.Floor)),
					zap.String("required_by", unsat.RequiredBy),
				)
			}
			logger.Log.Fatalw("Failed to add mod", zap.Error(err))
		}
		fmt.Printf("Added %s at position %d.\n", args[0], added.OrderIndex)
	},
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove [mod]",
	Short: "Remove a mod from the active profile",
	Long: `Removes a mod list entry. If enabled mods depend on the removed one
the removal is rejected; pass --force to remove anyway, which disables
the dependents instead of deleting them.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")

		a := bootstrap(".")
		a.activeGame()
		info := a.activeProfile()

		mod, err := findProfileMod(info, args[0])
		if err != nil {
			logger.Log.Fatalw("Mod not found", zap.Error(err))
		}

		err = a.profiles.RemoveMod(info.Profile.ID, mod.ID, force)
		if err != nil {
			var deps *profile.DependentsError
			if errors.As(err, &deps) {
				fmt.Printf("Cannot remove %s, other mods depend on it:\n", deps.Removed)
				for _, d := range deps.Dependents {
					fmt.Printf("  %s\n", d)
				}
				fmt.Println("\nUse --force to remove anyway and disable the dependents.")
				return
			}
			logger.Log.Fatalw("Failed to remove mod", zap.Error(err))
		}
		fmt.Printf("Removed %s.\n", args[0])
	},
}

var profileDependantsCmd = &cobra.Command{
	Use:   "dependants [mod]",
	Short: "List enabled mods depending on the given one",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		a := bootstrap(".")
		a.activeGame()
		info := a.activeProfile()

		mod, err := findProfileMod(info, args[0])
		if err != nil {
			logger.Log.Fatalw("Mod not found", zap.Error(err))
		}

		dependants, err := a.profiles.Dependents(info.Profile.ID, mod.ID)
		if err != nil {
			logger.Log.Fatalw("Failed to compute dependants", zap.Error(err))
		}
		if len(dependants) == 0 {
			fmt.Printf("Nothing depends on %s.\n", args[0])
			return
		}
		for _, d := range dependants {
			fmt.Printf("%s-%s %s\n", d.Owner, d.Name, d.Version)
		}
	},
}

var profileEnableCmd = &cobra.Command{
	Use:   "enable [mod]",
	Short: "Enable a mod in the active profile",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		setModEnabled(args[0], true)
	},
}

var profileDisableCmd = &cobra.Command{
	Use:   "disable [mod]",
	Short: "Disable a mod without removing it",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		setModEnabled(args[0], false)
	},
}

var profileEnableAllCmd = &cobra.Command{
	Use:   "enable-all",
	Short: "Enable every mod in the active profile",
	Run: func(_ *cobra.Command, _ []string) {
		setAllModsEnabled(true)
	},
}

var profileDisableAllCmd = &cobra.Command{
	Use:   "disable-all",
	Short: "Disable every mod in the active profile",
	Run: func(_ *cobra.Command, _ []string) {
		setAllModsEnabled(false)
	},
}

var profilePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove every disabled mod from the active profile",
	Run: func(_ *cobra.Command, _ []string) {
		a := bootstrap(".")
		a.activeGame()
		info := a.activeProfile()

		if err := a.profiles.RemoveDisabled(info.Profile.ID); err != nil {
			logger.Log.Fatalw("Failed to prune disabled mods", zap.Error(err))
		}
		fmt.Println("Removed all disabled mods.")
	},
}

var profileReorderCmd = &cobra.Command{
	Use:   "reorder [mod] [mod] ...",
	Short: "Set the full load order of the active profile",
	Long: `Takes the complete mod list in the desired load order. Every entry of
the profile must appear exactly once.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		a := bootstrap(".")
		a.activeGame()
		info := a.activeProfile()

		ordered := make([]uint, len(args))
		for i, ref := range args {
			mod, err := findProfileMod(info, ref)
			if err != nil {
				logger.Log.Fatalw("Mod not found", zap.Error(err))
			}
			ordered[i] = mod.ID
		}

		if err := a.profiles.Reorder(info.Profile.ID, ordered); err != nil {
			logger.Log.Fatalw("Failed to reorder profile", zap.Error(err))
		}
		fmt.Println("Load order updated.")
	},
}

var profileRenameCmd = &cobra.Command{
	Use:   "rename [new name]",
	Short: "Rename the active profile",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		a := bootstrap(".")
		a.activeGame()
		info := a.activeProfile()

		if err := a.profiles.Rename(info.Profile.ID, args[0]); err != nil {
			logger.Log.Fatalw("Failed to rename profile", zap.Error(err))
		}
		fmt.Printf("Renamed %q to %q.\n", info.Profile.Name, args[0])
	},
}

var profileFavoriteCmd = &cobra.Command{
	Use:   "favorite",
	Short: "Toggle the active profile's favorite flag",
	Run: func(_ *cobra.Command, _ []string) {
		a := bootstrap(".")
		a.activeGame()
		info := a.activeProfile()

		if err := a.profiles.SetFavorite(info.Profile.ID, !info.Profile.Favorite); err != nil {
			logger.Log.Fatalw("Failed to update favorite flag", zap.Error(err))
		}
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a profile and its mod list",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		a := bootstrap(".")
		game := a.activeGame()

		profiles, err := a.profiles.List(game.ID)
		if err != nil {
			logger.Log.Fatalw("Failed to list profiles", zap.Error(err))
		}
		for _, p := range profiles {
			if p.Name != args[0] {
				continue
			}
			if err := a.profiles.Delete(p.ID); err != nil {
				logger.Log.Fatalw("Failed to delete profile", zap.Error(err))
			}
			fmt.Printf("Deleted profile %q.\n", p.Name)
			return
		}
		logger.Log.Fatalw("Profile not found", zap.String("name", args[0]))
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileUseCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileRemoveCmd)
	profileCmd.AddCommand(profileDependantsCmd)
	profileCmd.AddCommand(profileEnableCmd)
	profileCmd.AddCommand(profileDisableCmd)
	profileCmd.AddCommand(profileEnableAllCmd)
	profileCmd.AddCommand(profileDisableAllCmd)
	profileCmd.AddCommand(profilePruneCmd)
	profileCmd.AddCommand(profileReorderCmd)
	profileCmd.AddCommand(profileRenameCmd)
	profileCmd.AddCommand(profileFavoriteCmd)
	profileCmd.AddCommand(profileDeleteCmd)

	profileRemoveCmd.Flags().BoolP("force", "f", false, "Remove even if other mods depend on it")
}

func setModEnabled(ref string, enabled bool) {
	a := bootstrap(".")
	a.activeGame()
	info := a.activeProfile()

	mod, err := findProfileMod(info, ref)
	if err != nil {
		logger.Log.Fatalw("Mod not found", zap.Error(err))
	}
	if err := a.profiles.SetEnabled(mod.ID, enabled); err != nil {
		logger.Log.Fatalw("Failed to update mod state", zap.Error(err))
	}
}

func setAllModsEnabled(enabled bool) {
	a := bootstrap(".")
	a.activeGame()
	info := a.activeProfile()

	if err := a.profiles.SetAllEnabled(info.Profile.ID, enabled); err != nil {
		logger.Log.Fatalw("Failed to update mod states", zap.Error(err))
	}
}

// resolveVersionRef maps "Owner-Name" to the package's latest release
// and "Owner-Name-1.2.3" to that exact release.
func resolveVersionRef(a *app, game *db.Game, ref string) uint {
	if owner, name, triple, err := thunderstore.ParseDependencyString(ref); err == nil {
		info, err := a.catalog.FindVersion(game.ID, owner, name, triple)
		if err != nil {
			logger.Log.Fatalw("Version not found in catalog", zap.String("ref", ref), zap.Error(err))
		}
		return info.Version.ID
	}

	idx := strings.LastIndex(ref, "-")
	if idx <= 0 || idx == len(ref)-1 {
		logger.Log.Fatalw("Invalid package reference, expected Owner-Name", zap.String("ref", ref))
	}
	owner, name := ref[:idx], ref[idx+1:]

	pkg, err := a.catalog.GetPackage(game.ID, owner, name)
	if err != nil {
		var notFound *catalog.NotFoundError
		if errors.As(err, &notFound) {
			logger.Log.Fatalw("Package not in catalog, run 'sync' first", zap.String("ref", ref))
		}
		logger.Log.Fatalw("Failed to look up package", zap.Error(err))
	}
	if pkg.LatestVersionID == nil {
		logger.Log.Fatalw("Package has no usable release", zap.String("ref", ref))
	}
	return *pkg.LatestVersionID
}
