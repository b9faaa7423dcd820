// Package catalog is the normalized store for communities, games,
// packages, versions, categories and dependency edges, plus keyword
// search over a shadow index it keeps transactionally consistent with
// the primary rows.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"thunder-mod-manager/bridge"
	"thunder-mod-manager/db"
	"thunder-mod-manager/resolver"
	"thunder-mod-manager/semver"
)

// Store provides all catalog reads and writes. Other components never
// touch the catalog tables directly.
type Store struct {
	db  *gorm.DB
	idx searchIndex
	bus *bridge.Bus
}

// NewStore creates a catalog store. bus may be nil when no presentation
// layer is attached (tests, one-shot CLI runs).
func NewStore(gdb *gorm.DB, bus *bridge.Bus) *Store {
	return &Store{db: gdb, idx: shadowIndex{}, bus: bus}
}

// UpsertCommunity inserts or renames a community, keyed by slug.
func (s *Store) UpsertCommunity(name, slug string) (*db.Community, error) {
	var community db.Community
	err := s.db.Where("slug = ?", slug).First(&community).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		community = db.Community{Name: name, Slug: slug}
		if err := s.db.Create(&community).Error; err != nil {
			return nil, fmt.Errorf("create community %q: %w", slug, err)
		}
	case err != nil:
		return nil, err
	case community.Name != name:
		if err := s.db.Model(&community).Update("name", name).Error; err != nil {
			return nil, err
		}
	}
	return &community, nil
}

// GameInput describes a game to seed or update.
type GameInput struct {
	CommunityID uint
	Name        string
	Slug        string
	PlatformDir string
	PlatformID  int64
	ModLoader   string
}

// UpsertGame inserts or updates a game, keyed by slug. The community must
// already exist.
func (s *Store) UpsertGame(in GameInput) (*db.Game, error) {
	var count int64
	if err := s.db.Model(&db.Community{}).Where("id = ?", in.CommunityID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, &IntegrityError{Entity: "community", Key: fmt.Sprint(in.CommunityID), Reason: "does not exist"}
	}

	var game db.Game
	err := s.db.Where("slug = ?", in.Slug).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		game = db.Game{
			CommunityID: in.CommunityID,
			Name:        in.Name,
			Slug:        in.Slug,
			PlatformDir: in.PlatformDir,
			PlatformID:  in.PlatformID,
			ModLoader:   in.ModLoader,
		}
		if err := s.db.Create(&game).Error; err != nil {
			return nil, fmt.Errorf("create game %q: %w", in.Slug, err)
		}
		return &game, nil
	}
	if err != nil {
		return nil, err
	}

	// Admin update path: user-owned fields (override path, favorite) are
	// left alone.
	updates := map[string]any{
		"community_id": in.CommunityID,
		"name":         in.Name,
		"platform_dir": in.PlatformDir,
		"platform_id":  in.PlatformID,
		"mod_loader":   in.ModLoader,
	}
	if err := s.db.Model(&game).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *Store) GetGame(slug string) (*db.Game, error) {
	var game db.Game
	if err := s.db.Where("slug = ?", slug).First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "game", Key: slug}
		}
		return nil, err
	}
	return &game, nil
}

func (s *Store) ListGames() ([]db.Game, error) {
	var games []db.Game
	if err := s.db.Order("name").Find(&games).Error; err != nil {
		return nil, err
	}
	return games, nil
}

func (s *Store) SetGameFavorite(gameID uint, favorite bool) error {
	return s.updateGameField(gameID, "favorite", favorite)
}

func (s *Store) SetGameOverridePath(gameID uint, path string) error {
	return s.updateGameField(gameID, "override_path", path)
}

func (s *Store) updateGameField(gameID uint, field string, value any) error {
	res := s.db.Model(&db.Game{}).Where("id = ?", gameID).Update(field, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Entity: "game", Key: fmt.Sprint(gameID)}
	}
	return nil
}

// CategoryInput is one category tag attached to a package.
type CategoryInput struct {
	Slug string
	Name string
}

// EdgeInput is a declared dependency of a version.
type EdgeInput struct {
	Owner string
	Name  string
	Floor semver.Triple
}

// VersionInput is one release in a package upsert payload.
type VersionInput struct {
	Version      semver.Triple
	CreatedAt    time.Time
	Downloads    int64
	FileSize     int64
	IsActive     bool
	WebsiteURL   string
	Dependencies []EdgeInput
}

// PackageInput is the package half of an upsert payload.
type PackageInput struct {
	Owner        string
	Name         string
	Description  string
	CreatedAt    time.Time
	IsNSFW       bool
	IsDeprecated bool
	IsPinned     bool
	Rating       int64
	Downloads    int64
	DonationLink string
	Categories   []CategoryInput
}

// UpsertPackage inserts or replaces a package and its version set in one
// transaction: version rows, dependency edges, category links, the
// latest-version pointer and the search shadow row all move together.
// Versions missing from the payload are marked inactive, never deleted.
func (s *Store) UpsertPackage(gameID uint, in PackageInput, versions []VersionInput) (*db.Package, error) {
	var pkg db.Package

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Game{}).Where("id = ?", gameID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return &IntegrityError{Entity: "game", Key: fmt.Sprint(gameID), Reason: "does not exist"}
		}

		if err := s.upsertPackageRow(tx, gameID, in, &pkg); err != nil {
			return err
		}
		if err := s.upsertVersions(tx, &pkg, versions); err != nil {
			return err
		}
		if err := s.linkCategories(tx, &pkg, in.Categories); err != nil {
			return err
		}
		return s.idx.update(tx, pkg)
	})
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.PublishCatalogChanged()
	}
	return &pkg, nil
}

func (s *Store) upsertPackageRow(tx *gorm.DB, gameID uint, in PackageInput, pkg *db.Package) error {
	err := tx.Where("game_id = ? AND owner = ? AND name = ?", gameID, in.Owner, in.Name).First(pkg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		*pkg = db.Package{
			GameID:       gameID,
			Owner:        in.Owner,
			Name:         in.Name,
			Description:  in.Description,
			CreatedAt:    in.CreatedAt,
			IsNSFW:       in.IsNSFW,
			IsDeprecated: in.IsDeprecated,
			IsPinned:     in.IsPinned,
			Rating:       in.Rating,
			Downloads:    in.Downloads,
			DonationLink: in.DonationLink,
		}
		return tx.Create(pkg).Error
	}
	if err != nil {
		return err
	}

	pkg.Description = in.Description
	pkg.IsNSFW = in.IsNSFW
	pkg.IsDeprecated = in.IsDeprecated
	pkg.IsPinned = in.IsPinned
	pkg.Rating = in.Rating
	pkg.Downloads = in.Downloads
	pkg.DonationLink = in.DonationLink
	return tx.Save(pkg).Error
}

func (s *Store) upsertVersions(tx *gorm.DB, pkg *db.Package, versions []VersionInput) error {
	var existing []db.Version
	if err := tx.Where("package_id = ?", pkg.ID).Find(&existing).Error; err != nil {
		return err
	}
	byTriple := make(map[semver.Triple]*db.Version, len(existing))
	for i := range existing {
		byTriple[existing[i].Triple()] = &existing[i]
	}

	seen := make(map[semver.Triple]bool, len(versions))
	for _, in := range versions {
		seen[in.Version] = true

		row, ok := byTriple[in.Version]
		if ok {
			// Published versions are immutable apart from counters and
			// the supersession marker.
			err := tx.Model(row).Updates(map[string]any{
				"downloads": in.Downloads,
				"is_active": in.IsActive,
			}).Error
			if err != nil {
				return err
			}
		} else {
			row = &db.Version{
				PackageID:  pkg.ID,
				Major:      in.Version.Major,
				Minor:      in.Version.Minor,
				Patch:      in.Version.Patch,
				CreatedAt:  in.CreatedAt,
				Downloads:  in.Downloads,
				FileSize:   in.FileSize,
				IsActive:   in.IsActive,
				WebsiteURL: in.WebsiteURL,
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			byTriple[in.Version] = row
		}

		if err := s.replaceEdges(tx, row.ID, in.Dependencies); err != nil {
			return err
		}
	}

	// Supersede versions the registry no longer lists.
	for triple, row := range byTriple {
		if !seen[triple] && row.IsActive {
			if err := tx.Model(row).Update("is_active", false).Error; err != nil {
				return err
			}
		}
	}

	return s.recomputeLatest(tx, pkg, byTriple)
}

func (s *Store) replaceEdges(tx *gorm.DB, versionID uint, edges []EdgeInput) error {
	if err := tx.Where("version_id = ?", versionID).Delete(&db.Dependency{}).Error; err != nil {
		return err
	}
	for i, e := range edges {
		dep := db.Dependency{
			VersionID: versionID,
			Owner:     e.Owner,
			Name:      e.Name,
			MinMajor:  e.Floor.Major,
			MinMinor:  e.Floor.Minor,
			MinPatch:  e.Floor.Patch,
			Seq:       i,
		}
		if err := tx.Create(&dep).Error; err != nil {
			return err
		}
	}
	return nil
}

// recomputeLatest points latest_version_id at the active version with
// the greatest semantic triple. When every version has been superseded
// the pointer falls back to the greatest overall.
func (s *Store) recomputeLatest(tx *gorm.DB, pkg *db.Package, byTriple map[semver.Triple]*db.Version) error {
	triples := make([]semver.Triple, 0, len(byTriple))
	for t := range byTriple {
		triples = append(triples, t)
	}
	if len(triples) == 0 {
		return nil
	}
	sort.Slice(triples, func(i, j int) bool { return triples[j].Less(triples[i]) })

	latest := byTriple[triples[0]].ID
	for _, t := range triples {
		if byTriple[t].IsActive {
			latest = byTriple[t].ID
			break
		}
	}
	pkg.LatestVersionID = &latest
	return tx.Model(pkg).Update("latest_version_id", latest).Error
}

func (s *Store) linkCategories(tx *gorm.DB, pkg *db.Package, categories []CategoryInput) error {
	if err := tx.Where("package_id = ?", pkg.ID).Delete(&db.PackageCategory{}).Error; err != nil {
		return err
	}

	for _, in := range categories {
		var cat db.Category
		err := tx.Where("game_id = ? AND slug = ?", pkg.GameID, in.Slug).First(&cat).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cat = db.Category{GameID: pkg.GameID, Slug: in.Slug, Name: in.Name}
			if err := tx.Create(&cat).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		link := db.PackageCategory{PackageID: pkg.ID, CategoryID: cat.ID}
		if err := tx.Create(&link).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetPackage fetches a package by its natural key within a game.
func (s *Store) GetPackage(gameID uint, owner, name string) (*db.Package, error) {
	var pkg db.Package
	err := s.db.Where("game_id = ? AND owner = ? AND name = ?", gameID, owner, name).First(&pkg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "package", Key: owner + "-" + name}
	}
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// VersionInfo is a version row joined with its package identity.
type VersionInfo struct {
	Version db.Version
	Owner   string
	Name    string
}

// GetVersion fetches a version and the identity of its owning package.
func (s *Store) GetVersion(versionID uint) (*VersionInfo, error) {
	var version db.Version
	err := s.db.Where("id = ?", versionID).First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "version", Key: fmt.Sprint(versionID)}
	}
	if err != nil {
		return nil, err
	}

	var pkg db.Package
	if err := s.db.Where("id = ?", version.PackageID).First(&pkg).Error; err != nil {
		return nil, err
	}

	return &VersionInfo{Version: version, Owner: pkg.Owner, Name: pkg.Name}, nil
}

// FindVersion fetches one release of a package by its exact triple.
func (s *Store) FindVersion(gameID uint, owner, name string, triple semver.Triple) (*VersionInfo, error) {
	pkg, err := s.GetPackage(gameID, owner, name)
	if err != nil {
		return nil, err
	}

	var version db.Version
	err = s.db.Where("package_id = ? AND major = ? AND minor = ? AND patch = ?",
		pkg.ID, triple.Major, triple.Minor, triple.Patch).First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "version", Key: fmt.Sprintf("%s-%s-%s", owner, name, triple)}
	}
	if err != nil {
		return nil, err
	}

	return &VersionInfo{Version: version, Owner: owner, Name: name}, nil
}

// DependencyEdges returns a version's declared requirements in
// declaration order.
func (s *Store) DependencyEdges(versionID uint) ([]db.Dependency, error) {
	var edges []db.Dependency
	err := s.db.Where("version_id = ?", versionID).Order("seq").Find(&edges).Error
	if err != nil {
		return nil, err
	}
	return edges, nil
}

// DeletePackage removes a package, cascading to its versions, edges,
// category links and search row.
func (s *Store) DeletePackage(packageID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.idx.remove(tx, packageID); err != nil {
			return err
		}
		res := tx.Where("id = ?", packageID).Delete(&db.Package{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "package", Key: fmt.Sprint(packageID)}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.bus != nil {
		s.bus.PublishCatalogChanged()
	}
	return nil
}

// Snapshot runs fn against a single read transaction scoped to one game,
// so a resolution call never observes a half-applied catalog upsert.
func (s *Store) Snapshot(gameID uint, fn func(resolver.Catalog) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&snapshotCatalog{tx: tx, gameID: gameID})
	})
}

// snapshotCatalog adapts one transaction to the resolver's read surface.
type snapshotCatalog struct {
	tx     *gorm.DB
	gameID uint
}

func (c *snapshotCatalog) VersionsOf(owner, name string) ([]resolver.Candidate, error) {
	var versions []db.Version
	err := c.tx.
		Joins("JOIN packages ON packages.id = versions.package_id").
		Where("packages.game_id = ? AND packages.owner = ? AND packages.name = ?", c.gameID, owner, name).
		Find(&versions).Error
	if err != nil {
		return nil, err
	}

	candidates := make([]resolver.Candidate, len(versions))
	for i, v := range versions {
		candidates[i] = resolver.Candidate{VersionID: v.ID, Version: v.Triple()}
	}
	return candidates, nil
}

func (c *snapshotCatalog) EdgesOf(versionID uint) ([]resolver.Edge, error) {
	var deps []db.Dependency
	if err := c.tx.Where("version_id = ?", versionID).Order("seq").Find(&deps).Error; err != nil {
		return nil, err
	}

	edges := make([]resolver.Edge, len(deps))
	for i, d := range deps {
		edges[i] = resolver.Edge{Owner: d.Owner, Name: d.Name, Floor: d.Floor()}
	}
	return edges, nil
}

// GetSetting reads one process-wide setting.
func (s *Store) GetSetting(key string) (string, error) {
	var setting db.Setting
	err := s.db.Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", &NotFoundError{Entity: "setting", Key: key}
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

// PutSetting overwrites one process-wide setting in place.
func (s *Store) PutSetting(key, value string) error {
	setting := db.Setting{Key: key, Value: value}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&setting).Error
}
