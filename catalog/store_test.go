package catalog

import (
	"errors"
	"path/filepath"
	"testing"

	"thunder-mod-manager/db"
	"thunder-mod-manager/resolver"
	"thunder-mod-manager/schema"
	"thunder-mod-manager/semver"
)

func newTestStore(t *testing.T) (*Store, *db.Game) {
	t.Helper()

	gdb, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := schema.MigrateAll(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	store := NewStore(gdb, nil)

	community, err := store.UpsertCommunity("Lethal Company", "lethal-company")
	if err != nil {
		t.Fatalf("UpsertCommunity() error: %v", err)
	}
	game, err := store.UpsertGame(GameInput{
		CommunityID: community.ID,
		Name:        "Lethal Company",
		Slug:        "lethal-company",
		PlatformDir: "Lethal Company",
		PlatformID:  1966720,
		ModLoader:   db.LoaderBepInEx,
	})
	if err != nil {
		t.Fatalf("UpsertGame() error: %v", err)
	}

	return store, game
}

func v(s string) semver.Triple { return semver.MustParse(s) }

func simplePackage(owner, name string) PackageInput {
	return PackageInput{Owner: owner, Name: name}
}

func simpleVersions(triples ...string) []VersionInput {
	out := make([]VersionInput, len(triples))
	for i, s := range triples {
		out[i] = VersionInput{Version: v(s), IsActive: true}
	}
	return out
}

func TestUpsertPackageComputesLatest(t *testing.T) {
	store, game := newTestStore(t)

	pkg, err := store.UpsertPackage(game.ID, simplePackage("alice", "Widget"), simpleVersions("1.0.0", "1.2.0", "1.1.0"))
	if err != nil {
		t.Fatalf("UpsertPackage() error: %v", err)
	}
	if pkg.LatestVersionID == nil {
		t.Fatal("LatestVersionID not set")
	}

	info, err := store.GetVersion(*pkg.LatestVersionID)
	if err != nil {
		t.Fatalf("GetVersion() error: %v", err)
	}
	if info.Version.Triple() != v("1.2.0") {
		t.Errorf("latest version = %v, want 1.2.0", info.Version.Triple())
	}
	if info.Version.PackageID != pkg.ID {
		t.Error("latest_version_id points at a version of a different package")
	}

	// A later sync adds a newer release; the pointer must follow and the
	// package id must stay stable.
	again, err := store.UpsertPackage(game.ID, simplePackage("alice", "Widget"), simpleVersions("1.0.0", "1.2.0", "1.1.0", "2.0.0"))
	if err != nil {
		t.Fatalf("second UpsertPackage() error: %v", err)
	}
	if again.ID != pkg.ID {
		t.Errorf("package id changed across upserts: %d -> %d", pkg.ID, again.ID)
	}

	info, err = store.GetVersion(*again.LatestVersionID)
	if err != nil {
		t.Fatalf("GetVersion() error: %v", err)
	}
	if info.Version.Triple() != v("2.0.0") {
		t.Errorf("latest version after re-upsert = %v, want 2.0.0", info.Version.Triple())
	}
}

func TestUpsertPackageUnknownGame(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.UpsertPackage(9999, simplePackage("alice", "Widget"), simpleVersions("1.0.0"))
	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
	if integrity.Entity != "game" {
		t.Errorf("error entity = %s, want game", integrity.Entity)
	}
}

func TestUpsertMarksDroppedVersionsInactive(t *testing.T) {
	store, game := newTestStore(t)

	if _, err := store.UpsertPackage(game.ID, simplePackage("alice", "Widget"), simpleVersions("1.0.0", "1.1.0")); err != nil {
		t.Fatalf("UpsertPackage() error: %v", err)
	}
	pkg, err := store.UpsertPackage(game.ID, simplePackage("alice", "Widget"), simpleVersions("1.1.0"))
	if err != nil {
		t.Fatalf("second UpsertPackage() error: %v", err)
	}

	var versions []db.Version
	if err := store.db.Where("package_id = ?", pkg.ID).Order("major, minor, patch").Find(&versions).Error; err != nil {
		t.Fatalf("loading versions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("got %d versions, want 2 (dropped versions are kept)", len(versions))
	}
	if versions[0].IsActive {
		t.Error("1.0.0 should be inactive after being dropped from the payload")
	}
	if !versions[1].IsActive {
		t.Error("1.1.0 should still be active")
	}
}

func TestDependencyEdgesPreserveOrder(t *testing.T) {
	store, game := newTestStore(t)

	versions := []VersionInput{{
		Version:  v("1.0.0"),
		IsActive: true,
		Dependencies: []EdgeInput{
			{Owner: "zeta", Name: "Last", Floor: v("1.0.0")},
			{Owner: "alpha", Name: "First", Floor: v("2.0.0")},
			{Owner: "mid", Name: "Middle", Floor: v("0.1.0")},
		},
	}}

	pkg, err := store.UpsertPackage(game.ID, simplePackage("alice", "Widget"), versions)
	if err != nil {
		t.Fatalf("UpsertPackage() error: %v", err)
	}

	edges, err := store.DependencyEdges(*pkg.LatestVersionID)
	if err != nil {
		t.Fatalf("DependencyEdges() error: %v", err)
	}

	want := []string{"zeta-Last", "alpha-First", "mid-Middle"}
	if len(edges) != len(want) {
		t.Fatalf("got %d edges, want %d", len(edges), len(want))
	}
	for i, edge := range edges {
		if got := edge.Owner + "-" + edge.Name; got != want[i] {
			t.Errorf("edge %d = %s, want %s", i, got, want[i])
		}
	}
}

func TestDeletePackageCascades(t *testing.T) {
	store, game := newTestStore(t)

	pkg, err := store.UpsertPackage(game.ID, simplePackage("alice", "Widget"), simpleVersions("1.0.0"))
	if err != nil {
		t.Fatalf("UpsertPackage() error: %v", err)
	}

	if err := store.DeletePackage(pkg.ID); err != nil {
		t.Fatalf("DeletePackage() error: %v", err)
	}

	for table, model := range map[string]any{
		"versions":       &db.Version{},
		"package_search": &db.PackageSearch{},
	} {
		var count int64
		if err := store.db.Model(model).Count(&count).Error; err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("%s still has %d rows after package deletion", table, count)
		}
	}
}

func TestSnapshotServesResolver(t *testing.T) {
	store, game := newTestStore(t)

	libVersions := []VersionInput{
		{Version: v("1.0.0"), IsActive: true},
		{Version: v("1.5.0"), IsActive: true},
	}
	if _, err := store.UpsertPackage(game.ID, simplePackage("bob", "Lib"), libVersions); err != nil {
		t.Fatalf("UpsertPackage(Lib) error: %v", err)
	}

	appVersions := []VersionInput{{
		Version:      v("2.0.0"),
		IsActive:     true,
		Dependencies: []EdgeInput{{Owner: "bob", Name: "Lib", Floor: v("1.2.0")}},
	}}
	if _, err := store.UpsertPackage(game.ID, simplePackage("alice", "App"), appVersions); err != nil {
		t.Fatalf("UpsertPackage(App) error: %v", err)
	}

	err := store.Snapshot(game.ID, func(cat resolver.Catalog) error {
		result, err := resolver.Resolve(cat, []resolver.Root{{Owner: "alice", Name: "App", Version: v("2.0.0")}})
		if err != nil {
			return err
		}
		chosen := result[resolver.PackageRef{Owner: "bob", Name: "Lib"}]
		if chosen.Version != v("1.5.0") {
			t.Errorf("Lib resolved to %v, want 1.5.0", chosen.Version)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
}

func TestGameMutations(t *testing.T) {
	store, game := newTestStore(t)

	if err := store.SetGameFavorite(game.ID, true); err != nil {
		t.Fatalf("SetGameFavorite() error: %v", err)
	}
	if err := store.SetGameOverridePath(game.ID, "/opt/lethal"); err != nil {
		t.Fatalf("SetGameOverridePath() error: %v", err)
	}

	reloaded, err := store.GetGame(game.Slug)
	if err != nil {
		t.Fatalf("GetGame() error: %v", err)
	}
	if !reloaded.Favorite {
		t.Error("favorite flag not persisted")
	}
	if reloaded.OverridePath != "/opt/lethal" {
		t.Errorf("override path = %q, want /opt/lethal", reloaded.OverridePath)
	}

	if err := store.SetGameFavorite(9999, true); err == nil {
		t.Error("SetGameFavorite() on unknown game should fail")
	}
}

func TestUpsertGameUnknownCommunity(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.UpsertGame(GameInput{CommunityID: 9999, Name: "X", Slug: "x", ModLoader: db.LoaderBepInEx})
	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
}

func TestSettings(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.GetSetting("zoom"); err == nil {
		t.Error("GetSetting() on missing key should fail")
	}

	if err := store.PutSetting("zoom", "1.25"); err != nil {
		t.Fatalf("PutSetting() error: %v", err)
	}
	if err := store.PutSetting("zoom", "1.5"); err != nil {
		t.Fatalf("PutSetting() overwrite error: %v", err)
	}

	value, err := store.GetSetting("zoom")
	if err != nil {
		t.Fatalf("GetSetting() error: %v", err)
	}
	if value != "1.5" {
		t.Errorf("setting = %q, want 1.5 (overwritten in place)", value)
	}
}
