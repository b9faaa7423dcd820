package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"thunder-mod-manager/bridge"
	"thunder-mod-manager/catalog"
	"thunder-mod-manager/config"
	"thunder-mod-manager/db"
	"thunder-mod-manager/logger"
	"thunder-mod-manager/profile"
	"thunder-mod-manager/schema"
	"thunder-mod-manager/thunderstore"
)

// Settings keys for the persisted selection. The in-memory session only
// lives for one invocation, so the CLI re-hydrates it from these.
const (
	settingActiveGame    = "active_game"
	settingActiveProfile = "active_profile"
)

// app bundles the wired-up stores every command works against.
type app struct {
	cfg      config.Config
	gdb      *gorm.DB
	bus      *bridge.Bus
	session  *bridge.Session
	catalog  *catalog.Store
	profiles *profile.Store
	client   *thunderstore.Client
}

// bootstrap handles shared initialization logic for commands.
func bootstrap(path string) *app {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Log.Fatalw("Failed to load configuration", zap.Error(err))
	}

	gdb, err := db.Open(cfg.DatabasePath)
	if err != nil {
		logger.Log.Fatalw("Failed to open database", zap.String("path", cfg.DatabasePath), zap.Error(err))
	}
	if err := schema.MigrateAll(gdb); err != nil {
		logger.Log.Fatalw("Failed to migrate database", zap.Error(err))
	}
	logger.Log.Infow("Database ready", zap.String("path", cfg.DatabasePath))

	client, err := thunderstore.NewClient(cfg)
	if err != nil {
		logger.Log.Fatalw("Failed to create Thunderstore client", zap.Error(err))
	}

	a := newApp(cfg, gdb)
	a.client = client
	return a
}

// newApp wires the stores over an open, migrated database.
func newApp(cfg config.Config, gdb *gorm.DB) *app {
	bus := bridge.NewBus()
	cat := catalog.NewStore(gdb, bus)
	return &app{
		cfg:      cfg,
		gdb:      gdb,
		bus:      bus,
		session:  bridge.NewSession(),
		catalog:  cat,
		profiles: profile.NewStore(gdb, cat, bus, cfg.ProfilesDir),
	}
}

// activeGame resolves the selected game, seeding its community and game
// rows on first use. Falls back to the configured default community.
func (a *app) activeGame() *db.Game {
	slug, err := a.catalog.GetSetting(settingActiveGame)
	if err != nil {
		slug = a.cfg.Community
	}
	if slug == "" {
		logger.Log.Fatal("No game selected. Set THUNDER_COMMUNITY or run 'game use <slug>'.")
	}

	game := a.ensureGame(slug)
	a.session.SetActiveGame(game.ID)
	return game
}

// ensureGame makes sure community and game rows exist for a slug. On
// Thunderstore every community is a game, so the two share identity.
func (a *app) ensureGame(slug string) *db.Game {
	game, err := a.catalog.GetGame(slug)
	if err == nil {
		return game
	}
	var notFound *catalog.NotFoundError
	if !errors.As(err, &notFound) {
		logger.Log.Fatalw("Failed to look up game", zap.String("slug", slug), zap.Error(err))
	}

	community, err := a.catalog.UpsertCommunity(titleFromSlug(slug), slug)
	if err != nil {
		logger.Log.Fatalw("Failed to create community", zap.String("slug", slug), zap.Error(err))
	}
	game, err = a.catalog.UpsertGame(catalog.GameInput{
		CommunityID: community.ID,
		Name:        titleFromSlug(slug),
		Slug:        slug,
		ModLoader:   db.LoaderBepInEx,
	})
	if err != nil {
		logger.Log.Fatalw("Failed to create game", zap.String("slug", slug), zap.Error(err))
	}
	return game
}

// useGame persists the game selection and resets the profile selection,
// mirroring the session rule that profile choice is per game.
func (a *app) useGame(slug string) *db.Game {
	game := a.ensureGame(slug)
	previous, _ := a.catalog.GetSetting(settingActiveGame)
	if err := a.catalog.PutSetting(settingActiveGame, slug); err != nil {
		logger.Log.Fatalw("Failed to save game selection", zap.Error(err))
	}
	a.session.SetActiveGame(game.ID)
	if previous != slug {
		if err := a.catalog.PutSetting(settingActiveProfile, ""); err != nil {
			logger.Log.Fatalw("Failed to reset profile selection", zap.Error(err))
		}
	}
	return game
}

// activeProfile resolves the selected profile for the active game.
func (a *app) activeProfile() *profile.Info {
	raw, err := a.catalog.GetSetting(settingActiveProfile)
	if err != nil || raw == "" {
		logger.Log.Fatal("No profile selected. Run 'profile use <name>' first.")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		logger.Log.Fatalw("Corrupt profile selection", zap.String("value", raw), zap.Error(err))
	}

	info, err := a.profiles.Get(uint(id))
	if err != nil {
		logger.Log.Fatalw("Selected profile no longer exists", zap.Uint64("id", id), zap.Error(err))
	}
	a.session.SetActiveProfile(info.Profile.ID)
	return info
}

// useProfile persists the profile selection by name within a game.
func (a *app) useProfile(gameID uint, name string) *db.Profile {
	profiles, err := a.profiles.List(gameID)
	if err != nil {
		logger.Log.Fatalw("Failed to list profiles", zap.Error(err))
	}
	for i := range profiles {
		if profiles[i].Name == name {
			if err := a.catalog.PutSetting(settingActiveProfile, strconv.FormatUint(uint64(profiles[i].ID), 10)); err != nil {
				logger.Log.Fatalw("Failed to save profile selection", zap.Error(err))
			}
			a.session.SetActiveProfile(profiles[i].ID)
			return &profiles[i]
		}
	}
	logger.Log.Fatalw("Profile not found", zap.String("name", name))
	return nil
}

// findProfileMod matches a mod list entry by "Owner-Name", plain name,
// or numeric entry id.
func findProfileMod(info *profile.Info, ref string) (*profile.ModInfo, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		for i := range info.Mods {
			if info.Mods[i].ID == uint(id) {
				return &info.Mods[i], nil
			}
		}
	}
	for i := range info.Mods {
		mod := &info.Mods[i]
		if strings.EqualFold(mod.Name, ref) {
			return mod, nil
		}
		if mod.Owner != "" && strings.EqualFold(mod.Owner+"-"+mod.Name, ref) {
			return mod, nil
		}
	}
	return nil, fmt.Errorf("no mod %q in profile %q", ref, info.Profile.Name)
}

// titleFromSlug turns "lethal-company" into "Lethal Company".
func titleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
