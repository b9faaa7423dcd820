package schema

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"thunder-mod-manager/db"
)

// Step 1: the base relational schema. Note that profiles carry a
// denormalized `mods` JSON column here; step 3 replaces it with
// per-mod rows.
const baseDDL = `
CREATE TABLE communities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE
);

CREATE TABLE games (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	community_id INTEGER NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	platform_dir TEXT NOT NULL DEFAULT '',
	platform_id INTEGER NOT NULL DEFAULT 0,
	mod_loader TEXT NOT NULL,
	override_path TEXT NOT NULL DEFAULT '',
	favorite BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE packages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	owner TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at DATETIME,
	is_nsfw BOOLEAN NOT NULL DEFAULT FALSE,
	is_deprecated BOOLEAN NOT NULL DEFAULT FALSE,
	is_pinned BOOLEAN NOT NULL DEFAULT FALSE,
	rating INTEGER NOT NULL DEFAULT 0,
	downloads INTEGER NOT NULL DEFAULT 0,
	donation_link TEXT NOT NULL DEFAULT '',
	latest_version_id INTEGER,
	UNIQUE (game_id, owner, name)
);

CREATE TABLE versions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	package_id INTEGER NOT NULL REFERENCES packages(id) ON DELETE CASCADE,
	major INTEGER NOT NULL,
	minor INTEGER NOT NULL,
	patch INTEGER NOT NULL,
	created_at DATETIME,
	downloads INTEGER NOT NULL DEFAULT 0,
	file_size INTEGER NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	website_url TEXT NOT NULL DEFAULT '',
	UNIQUE (package_id, major, minor, patch)
);

CREATE TABLE dependencies (
	version_id INTEGER NOT NULL REFERENCES versions(id) ON DELETE CASCADE,
	owner TEXT NOT NULL,
	name TEXT NOT NULL,
	min_major INTEGER NOT NULL,
	min_minor INTEGER NOT NULL,
	min_patch INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	PRIMARY KEY (version_id, owner, name)
);

CREATE TABLE categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	slug TEXT NOT NULL,
	name TEXT NOT NULL,
	UNIQUE (game_id, slug)
);

CREATE TABLE package_categories (
	package_id INTEGER NOT NULL REFERENCES packages(id) ON DELETE CASCADE,
	category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	PRIMARY KEY (package_id, category_id)
);

CREATE TABLE profiles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	path TEXT NOT NULL,
	favorite BOOLEAN NOT NULL DEFAULT FALSE,
	launch_mode TEXT NOT NULL DEFAULT '',
	mods TEXT NOT NULL DEFAULT '[]',
	UNIQUE (game_id, name)
);

CREATE TABLE settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX idx_packages_game ON packages(game_id);
CREATE INDEX idx_versions_package ON versions(package_id);
CREATE INDEX idx_profiles_game ON profiles(game_id);
`

func createBaseSchema(tx *gorm.DB) error {
	return tx.Exec(baseDDL).Error
}

// Step 2: the full-text shadow table, backfilled from any packages already
// present so existing installations never need a separate rebuild.
const searchDDL = `
CREATE TABLE package_search (
	package_id INTEGER PRIMARY KEY REFERENCES packages(id) ON DELETE CASCADE,
	game_id INTEGER NOT NULL,
	name_tokens TEXT NOT NULL,
	owner_tokens TEXT NOT NULL,
	desc_tokens TEXT NOT NULL,
	downloads INTEGER NOT NULL DEFAULT 0,
	is_nsfw BOOLEAN NOT NULL DEFAULT FALSE,
	is_deprecated BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX idx_package_search_game ON package_search(game_id);
`

func createSearchIndex(tx *gorm.DB) error {
	if err := tx.Exec(searchDDL).Error; err != nil {
		return err
	}

	var packages []db.Package
	if err := tx.Find(&packages).Error; err != nil {
		return err
	}

	for _, pkg := range packages {
		row := db.SearchRowFor(pkg)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}

	return nil
}

// legacyProfileMod is the shape of one element of the denormalized
// profiles.mods JSON list written by schema version 1. A one-time
// adapter; nothing outside this step reads it.
type legacyProfileMod struct {
	Kind      string `json:"kind"`
	VersionID *uint  `json:"versionId,omitempty"`
	Name      string `json:"name,omitempty"`
	Version   string `json:"version,omitempty"`
	Path      string `json:"path,omitempty"`
	Enabled   *bool  `json:"enabled,omitempty"`
}

const profileModsDDL = `
CREATE TABLE profile_mods (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	profile_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	enabled BOOLEAN NOT NULL DEFAULT TRUE,
	order_index INTEGER NOT NULL,
	kind TEXT NOT NULL,
	version_id INTEGER REFERENCES versions(id),
	local_name TEXT NOT NULL DEFAULT '',
	local_version TEXT NOT NULL DEFAULT '',
	local_path TEXT NOT NULL DEFAULT '',
	local_sha1 TEXT NOT NULL DEFAULT ''
);

CREATE INDEX idx_profile_mods_profile ON profile_mods(profile_id);
`

// Step 3: replace the denormalized JSON mod list with profile_mods rows,
// one per element in original order, preserving enabled flags. Runs
// atomically with the column drop so a crash cannot leave both
// representations partially populated.
func normalizeProfileMods(tx *gorm.DB) error {
	if err := tx.Exec(profileModsDDL).Error; err != nil {
		return err
	}

	type legacyRow struct {
		ID   int64
		Mods string
	}
	var profiles []legacyRow
	if err := tx.Raw("SELECT id, mods FROM profiles ORDER BY id").Scan(&profiles).Error; err != nil {
		return err
	}

	for _, p := range profiles {
		var mods []legacyProfileMod
		if err := json.Unmarshal([]byte(p.Mods), &mods); err != nil {
			return &MigrationError{
				Step:   3,
				Entity: "profile",
				ID:     p.ID,
				Reason: fmt.Sprintf("legacy mod list is not valid JSON: %v", err),
				Err:    err,
			}
		}

		for idx, m := range mods {
			row, err := normalizedRow(p.ID, idx, m)
			if err != nil {
				return err
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
	}

	return tx.Exec("ALTER TABLE profiles DROP COLUMN mods").Error
}

func normalizedRow(profileID int64, idx int, m legacyProfileMod) (*db.ProfileMod, error) {
	enabled := true
	if m.Enabled != nil {
		enabled = *m.Enabled
	}

	row := &db.ProfileMod{
		ProfileID:  uint(profileID),
		Enabled:    enabled,
		OrderIndex: idx,
		Kind:       m.Kind,
	}

	switch m.Kind {
	case db.SourceThunderstore:
		if m.VersionID == nil {
			return nil, &MigrationError{
				Step:   3,
				Entity: "profile",
				ID:     profileID,
				Reason: fmt.Sprintf("mod list entry %d has no version reference", idx),
			}
		}
		row.VersionID = m.VersionID
	case db.SourceLocal:
		if m.Name == "" {
			return nil, &MigrationError{
				Step:   3,
				Entity: "profile",
				ID:     profileID,
				Reason: fmt.Sprintf("mod list entry %d has no name", idx),
			}
		}
		row.LocalName = m.Name
		row.LocalVersion = m.Version
		row.LocalPath = m.Path
	default:
		return nil, &MigrationError{
			Step:   3,
			Entity: "profile",
			ID:     profileID,
			Reason: fmt.Sprintf("mod list entry %d has unknown kind %q", idx, m.Kind),
		}
	}

	return row, nil
}
