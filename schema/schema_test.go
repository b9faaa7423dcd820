package schema

import (
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"thunder-mod-manager/db"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return gdb
}

func TestMigrateFromScratch(t *testing.T) {
	gdb := openTestDB(t)

	version, err := CurrentVersion(gdb)
	if err != nil {
		t.Fatalf("CurrentVersion() error: %v", err)
	}
	if version != 0 {
		t.Errorf("CurrentVersion() on fresh store = %d, want 0", version)
	}

	if err := MigrateAll(gdb); err != nil {
		t.Fatalf("MigrateAll() error: %v", err)
	}

	version, err = CurrentVersion(gdb)
	if err != nil {
		t.Fatalf("CurrentVersion() error: %v", err)
	}
	if version != Latest {
		t.Errorf("CurrentVersion() after migrate = %d, want %d", version, Latest)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	gdb := openTestDB(t)

	if err := MigrateAll(gdb); err != nil {
		t.Fatalf("first MigrateAll() error: %v", err)
	}
	if err := MigrateAll(gdb); err != nil {
		t.Fatalf("second MigrateAll() error: %v", err)
	}

	version, err := CurrentVersion(gdb)
	if err != nil {
		t.Fatalf("CurrentVersion() error: %v", err)
	}
	if version != Latest {
		t.Errorf("CurrentVersion() = %d, want %d", version, Latest)
	}

	var applied int64
	if err := gdb.Raw("SELECT COUNT(*) FROM schema_migrations").Scan(&applied).Error; err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if applied != int64(Latest) {
		t.Errorf("schema_migrations has %d rows, want %d", applied, Latest)
	}
}

func TestMigrateRejectsUnknownTarget(t *testing.T) {
	gdb := openTestDB(t)
	if err := Migrate(gdb, Latest+1); err == nil {
		t.Error("Migrate() with target beyond Latest should fail")
	}
}

// seedLegacyProfile brings the store to schema version 1 and inserts a
// game plus one profile carrying the given denormalized mod list.
func seedLegacyProfile(t *testing.T, gdb *gorm.DB, modsJSON string) {
	t.Helper()

	if err := Migrate(gdb, 1); err != nil {
		t.Fatalf("Migrate(1) error: %v", err)
	}

	stmts := []string{
		`INSERT INTO communities (id, name, slug) VALUES (1, 'Risk of Rain 2', 'riskofrain2')`,
		`INSERT INTO games (id, community_id, name, slug, mod_loader) VALUES (1, 1, 'Risk of Rain 2', 'riskofrain2', 'bepinex')`,
		`INSERT INTO packages (id, game_id, owner, name) VALUES (1, 1, 'bbepis', 'BepInExPack')`,
		`INSERT INTO versions (id, package_id, major, minor, patch) VALUES (10, 1, 5, 4, 21)`,
		`INSERT INTO versions (id, package_id, major, minor, patch) VALUES (11, 1, 5, 4, 22)`,
	}
	for _, stmt := range stmts {
		if err := gdb.Exec(stmt).Error; err != nil {
			t.Fatalf("seed statement failed: %v", err)
		}
	}

	err := gdb.Exec(
		`INSERT INTO profiles (id, game_id, name, path, mods) VALUES (1, 1, 'Default', '/profiles/default', ?)`,
		modsJSON,
	).Error
	if err != nil {
		t.Fatalf("seed profile failed: %v", err)
	}
}

func TestLegacyModListTransform(t *testing.T) {
	gdb := openTestDB(t)

	legacy := `[
		{"kind":"thunderstore","versionId":10,"enabled":true},
		{"kind":"local","name":"MyTweaks","version":"0.1.0","path":"/mods/mytweaks.dll","enabled":false},
		{"kind":"thunderstore","versionId":11}
	]`
	seedLegacyProfile(t, gdb, legacy)

	if err := MigrateAll(gdb); err != nil {
		t.Fatalf("MigrateAll() error: %v", err)
	}

	var mods []db.ProfileMod
	if err := gdb.Where("profile_id = ?", 1).Order("order_index").Find(&mods).Error; err != nil {
		t.Fatalf("loading profile mods: %v", err)
	}

	if len(mods) != 3 {
		t.Fatalf("got %d profile mods, want 3", len(mods))
	}

	for i, m := range mods {
		if m.OrderIndex != i {
			t.Errorf("mod %d has order_index %d, want %d", i, m.OrderIndex, i)
		}
	}

	if mods[0].Kind != db.SourceThunderstore || mods[0].VersionID == nil || *mods[0].VersionID != 10 {
		t.Errorf("mod 0 = %+v, want thunderstore version 10", mods[0])
	}
	if !mods[0].Enabled {
		t.Error("mod 0 should be enabled")
	}

	if mods[1].Kind != db.SourceLocal || mods[1].LocalName != "MyTweaks" {
		t.Errorf("mod 1 = %+v, want local MyTweaks", mods[1])
	}
	if mods[1].Enabled {
		t.Error("mod 1 should be disabled")
	}

	// Enabled defaults to true when the legacy entry omits it.
	if !mods[2].Enabled {
		t.Error("mod 2 should default to enabled")
	}

	// The legacy column must be gone.
	if err := gdb.Raw("SELECT mods FROM profiles LIMIT 1").Scan(&struct{ Mods string }{}).Error; err == nil {
		t.Error("legacy mods column still exists after migration")
	}
}

func TestLegacyTransformRejectsBadData(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"invalid json", `{not json`},
		{"unknown kind", `[{"kind":"github","enabled":true}]`},
		{"thunderstore without version", `[{"kind":"thunderstore","enabled":true}]`},
		{"local without name", `[{"kind":"local","version":"1.0.0"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gdb := openTestDB(t)
			seedLegacyProfile(t, gdb, tt.json)

			err := MigrateAll(gdb)
			if err == nil {
				t.Fatal("MigrateAll() should fail on unparseable legacy data")
			}

			var migErr *MigrationError
			if !errors.As(err, &migErr) {
				t.Fatalf("error is not a MigrationError: %v", err)
			}
			if migErr.Entity != "profile" || migErr.ID != 1 {
				t.Errorf("MigrationError identifies %s %d, want profile 1", migErr.Entity, migErr.ID)
			}

			// The failed step must have rolled back entirely.
			version, verErr := CurrentVersion(gdb)
			if verErr != nil {
				t.Fatalf("CurrentVersion() error: %v", verErr)
			}
			if version != 2 {
				t.Errorf("CurrentVersion() after failed step = %d, want 2", version)
			}

			var count int64
			gdb.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'profile_mods'").Scan(&count)
			if count != 0 {
				t.Error("profile_mods table should not exist after rollback")
			}
		})
	}
}
