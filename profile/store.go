// Package profile manages profile lifecycle and each profile's ordered
// mod list. Mutations on the same profile are serialized by a per-profile
// lock; mutations on different profiles proceed concurrently.
package profile

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"gorm.io/gorm"

	"thunder-mod-manager/bridge"
	"thunder-mod-manager/catalog"
	"thunder-mod-manager/db"
	"thunder-mod-manager/resolver"
)

// Store provides profile reads and writes. All dependency checks go
// through the catalog; the store never reaches into catalog tables.
type Store struct {
	db          *gorm.DB
	catalog     *catalog.Store
	bus         *bridge.Bus
	profilesDir string

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// NewStore creates a profile store. bus may be nil when no presentation
// layer is attached.
func NewStore(gdb *gorm.DB, cat *catalog.Store, bus *bridge.Bus, profilesDir string) *Store {
	return &Store{
		db:          gdb,
		catalog:     cat,
		bus:         bus,
		profilesDir: profilesDir,
		locks:       make(map[uint]*sync.Mutex),
	}
}

// lockProfile acquires the per-profile exclusive section. Contention is
// surfaced as ErrBusy rather than queueing, so callers can back off.
func (s *Store) lockProfile(profileID uint) (func(), error) {
	s.mu.Lock()
	lock, ok := s.locks[profileID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[profileID] = lock
	}
	s.mu.Unlock()

	if !lock.TryLock() {
		return nil, fmt.Errorf("profile %d: %w", profileID, ErrBusy)
	}
	return lock.Unlock, nil
}

// Create makes a new, empty profile for a game. The profile path is
// derived deterministically from the game and profile names.
func (s *Store) Create(gameID uint, name string) (*db.Profile, error) {
	var game db.Game
	if err := s.db.Where("id = ?", gameID).First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "game", ID: gameID}
		}
		return nil, err
	}

	var count int64
	if err := s.db.Model(&db.Profile{}).Where("game_id = ? AND name = ?", gameID, name).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &ConflictError{Entity: "profile", Key: name, Reason: "a profile with this name already exists"}
	}

	profile := db.Profile{
		GameID: gameID,
		Name:   name,
		Path:   filepath.Join(s.profilesDir, game.Slug, db.Slug(name)),
	}
	if err := s.db.Create(&profile).Error; err != nil {
		return nil, err
	}

	s.publish(profile.ID)
	return &profile, nil
}

// ModInfo is one profile entry joined with its display identity.
type ModInfo struct {
	ID         uint
	Kind       string
	Owner      string
	Name       string
	Version    string
	VersionID  uint // zero for local mods
	Enabled    bool
	OrderIndex int
}

// Info is a profile with its mods in load order.
type Info struct {
	Profile db.Profile
	Mods    []ModInfo
}

// Get returns a profile and its mod list ordered by load order.
func (s *Store) Get(profileID uint) (*Info, error) {
	var info *Info
	err := s.db.Transaction(func(tx *gorm.DB) error {
		loaded, err := loadInfo(tx, profileID)
		if err != nil {
			return err
		}
		info = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func loadInfo(tx *gorm.DB, profileID uint) (*Info, error) {
	var profile db.Profile
	if err := tx.Where("id = ?", profileID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "profile", ID: profileID}
		}
		return nil, err
	}

	var rows []db.ProfileMod
	if err := tx.Where("profile_id = ?", profileID).Order("order_index").Find(&rows).Error; err != nil {
		return nil, err
	}

	mods := make([]ModInfo, 0, len(rows))
	for _, row := range rows {
		mod := ModInfo{
			ID:         row.ID,
			Kind:       row.Kind,
			Enabled:    row.Enabled,
			OrderIndex: row.OrderIndex,
		}
		switch row.Kind {
		case db.SourceThunderstore:
			var version db.Version
			if err := tx.Where("id = ?", *row.VersionID).First(&version).Error; err != nil {
				return nil, err
			}
			var pkg db.Package
			if err := tx.Where("id = ?", version.PackageID).First(&pkg).Error; err != nil {
				return nil, err
			}
			mod.Owner = pkg.Owner
			mod.Name = pkg.Name
			mod.Version = version.Triple().String()
			mod.VersionID = version.ID
		case db.SourceLocal:
			mod.Name = row.LocalName
			mod.Version = row.LocalVersion
		}
		mods = append(mods, mod)
	}

	return &Info{Profile: profile, Mods: mods}, nil
}

// List returns a game's profiles ordered by name.
func (s *Store) List(gameID uint) ([]db.Profile, error) {
	var profiles []db.Profile
	if err := s.db.Where("game_id = ?", gameID).Order("name").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// AddMod appends a mod to the profile. For registry mods the full
// dependency closure is resolved first against the profile's current
// enabled set; an unsatisfiable add is rejected with nothing persisted.
// The new entry lands at the end of the load order, enabled.
func (s *Store) AddMod(profileID uint, src Source) (*db.ProfileMod, error) {
	unlock, err := s.lockProfile(profileID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var row db.ProfileMod
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var profile db.Profile
		if err := tx.Where("id = ?", profileID).First(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "profile", ID: profileID}
			}
			return err
		}

		if ts, ok := src.(ThunderstoreSource); ok {
			if err := s.checkResolvable(tx, &profile, ts); err != nil {
				return err
			}
		}

		var maxIndex int
		err := tx.Model(&db.ProfileMod{}).
			Where("profile_id = ?", profileID).
			Select("COALESCE(MAX(order_index), -1)").
			Scan(&maxIndex).Error
		if err != nil {
			return err
		}

		row = db.ProfileMod{
			ProfileID:  profileID,
			Enabled:    true,
			OrderIndex: maxIndex + 1,
		}
		applySource(&row, src)
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(profileID)
	return &row, nil
}

// checkResolvable resolves the profile's enabled registry mods plus the
// new entry in one catalog snapshot.
func (s *Store) checkResolvable(tx *gorm.DB, profile *db.Profile, ts ThunderstoreSource) error {
	newInfo, err := s.catalog.GetVersion(ts.VersionID)
	if err != nil {
		return err
	}

	roots, err := s.rootsOf(tx, profile.ID, 0)
	if err != nil {
		return err
	}

	for _, root := range roots {
		if root.Owner == newInfo.Owner && root.Name == newInfo.Name {
			return &ConflictError{
				Entity: "profile mod",
				Key:    newInfo.Owner + "-" + newInfo.Name,
				Reason: "already installed in this profile",
			}
		}
	}

	roots = append(roots, resolver.Root{
		Owner:   newInfo.Owner,
		Name:    newInfo.Name,
		Version: newInfo.Version.Triple(),
	})

	return s.catalog.Snapshot(profile.GameID, func(cat resolver.Catalog) error {
		_, err := resolver.Resolve(cat, roots)
		return err
	})
}

// rootsOf collects the enabled registry mods of a profile as resolver
// roots, skipping the mod with the given id.
func (s *Store) rootsOf(tx *gorm.DB, profileID, skipModID uint) ([]resolver.Root, error) {
	var rows []db.ProfileMod
	err := tx.Where("profile_id = ? AND enabled = ? AND kind = ?", profileID, true, db.SourceThunderstore).
		Order("order_index").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	roots := make([]resolver.Root, 0, len(rows))
	for _, row := range rows {
		if row.ID == skipModID {
			continue
		}
		info, err := s.catalog.GetVersion(*row.VersionID)
		if err != nil {
			return nil, err
		}
		roots = append(roots, resolver.Root{
			Owner:   info.Owner,
			Name:    info.Name,
			Version: info.Version.Triple(),
		})
	}
	return roots, nil
}

// SetEnabled toggles one mod. A pure metadata mutation: disabling never
// re-runs resolution, since only removal takes a mod out of dependency
// consideration.
func (s *Store) SetEnabled(profileModID uint, enabled bool) error {
	var mod db.ProfileMod
	if err := s.db.Where("id = ?", profileModID).First(&mod).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "profile mod", ID: profileModID}
		}
		return err
	}

	unlock, err := s.lockProfile(mod.ProfileID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.db.Model(&mod).Update("enabled", enabled).Error; err != nil {
		return err
	}

	s.publish(mod.ProfileID)
	return nil
}

// SetAllEnabled toggles every mod in a profile at once.
func (s *Store) SetAllEnabled(profileID uint, enabled bool) error {
	unlock, err := s.lockProfile(profileID)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.db.Model(&db.ProfileMod{}).
		Where("profile_id = ?", profileID).
		Update("enabled", enabled).Error
	if err != nil {
		return err
	}

	s.publish(profileID)
	return nil
}

// Reorder reassigns contiguous zero-based order indices following the
// given explicit full ordering of mod ids.
func (s *Store) Reorder(profileID uint, orderedIDs []uint) error {
	unlock, err := s.lockProfile(profileID)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var rows []db.ProfileMod
		if err := tx.Where("profile_id = ?", profileID).Find(&rows).Error; err != nil {
			return err
		}

		if len(rows) != len(orderedIDs) {
			return &ConflictError{
				Entity: "profile",
				Key:    fmt.Sprint(profileID),
				Reason: fmt.Sprintf("reorder lists %d mods, profile has %d", len(orderedIDs), len(rows)),
			}
		}
		present := make(map[uint]bool, len(rows))
		for _, row := range rows {
			present[row.ID] = true
		}
		for _, id := range orderedIDs {
			if !present[id] {
				return &ConflictError{
					Entity: "profile",
					Key:    fmt.Sprint(profileID),
					Reason: fmt.Sprintf("reorder references unknown mod %d", id),
				}
			}
			delete(present, id)
		}

		for index, id := range orderedIDs {
			err := tx.Model(&db.ProfileMod{}).Where("id = ?", id).Update("order_index", index).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(profileID)
	return nil
}

// Dependents returns the enabled siblings whose dependency floors are
// satisfied by the given mod's version, i.e. the mods that would break
// if it were removed.
func (s *Store) Dependents(profileID, profileModID uint) ([]ModInfo, error) {
	var deps []ModInfo
	err := s.db.Transaction(func(tx *gorm.DB) error {
		found, err := s.dependentsLocked(tx, profileID, profileModID)
		if err != nil {
			return err
		}
		deps = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deps, nil
}

func (s *Store) dependentsLocked(tx *gorm.DB, profileID, profileModID uint) ([]ModInfo, error) {
	var mod db.ProfileMod
	if err := tx.Where("id = ? AND profile_id = ?", profileModID, profileID).First(&mod).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "profile mod", ID: profileModID}
		}
		return nil, err
	}

	// Local mods are opaque: nothing can declare an edge to them.
	if mod.Kind != db.SourceThunderstore {
		return nil, nil
	}

	removed, err := s.catalog.GetVersion(*mod.VersionID)
	if err != nil {
		return nil, err
	}
	removedTriple := removed.Version.Triple()

	info, err := loadInfo(tx, profileID)
	if err != nil {
		return nil, err
	}

	var dependents []ModInfo
	for _, sibling := range info.Mods {
		if sibling.ID == profileModID || !sibling.Enabled || sibling.Kind != db.SourceThunderstore {
			continue
		}

		edges, err := s.catalog.DependencyEdges(sibling.VersionID)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			if edge.Owner == removed.Owner && edge.Name == removed.Name && removedTriple.AtLeast(edge.Floor()) {
				dependents = append(dependents, sibling)
				break
			}
		}
	}
	return dependents, nil
}

// RemoveMod deletes one entry from the profile. If enabled siblings
// depend on the removed version the call is rejected unless forced;
// forcing disables (not deletes) the dependents, transitively.
func (s *Store) RemoveMod(profileID, profileModID uint, force bool) error {
	unlock, err := s.lockProfile(profileID)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		dependents, err := s.dependentsLocked(tx, profileID, profileModID)
		if err != nil {
			return err
		}

		if len(dependents) > 0 {
			if !force {
				names := make([]string, len(dependents))
				for i, d := range dependents {
					names[i] = d.Owner + "-" + d.Name
				}
				var mod db.ProfileMod
				if err := tx.Where("id = ?", profileModID).First(&mod).Error; err != nil {
					return err
				}
				removed, err := s.catalog.GetVersion(*mod.VersionID)
				if err != nil {
					return err
				}
				return &DependentsError{Removed: removed.Owner + "-" + removed.Name, Dependents: names}
			}
			if err := s.disableTransitively(tx, profileID, dependents); err != nil {
				return err
			}
		}

		res := tx.Where("id = ? AND profile_id = ?", profileModID, profileID).Delete(&db.ProfileMod{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "profile mod", ID: profileModID}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(profileID)
	return nil
}

// disableTransitively disables the given mods and anything that in turn
// depends on them.
func (s *Store) disableTransitively(tx *gorm.DB, profileID uint, seed []ModInfo) error {
	pending := append([]ModInfo(nil), seed...)
	done := make(map[uint]bool)

	for len(pending) > 0 {
		mod := pending[0]
		pending = pending[1:]
		if done[mod.ID] {
			continue
		}
		done[mod.ID] = true

		next, err := s.dependentsLocked(tx, profileID, mod.ID)
		if err != nil {
			return err
		}

		err = tx.Model(&db.ProfileMod{}).Where("id = ?", mod.ID).Update("enabled", false).Error
		if err != nil {
			return err
		}

		pending = append(pending, next...)
	}
	return nil
}

// RemoveDisabled deletes every disabled mod from the profile.
func (s *Store) RemoveDisabled(profileID uint) error {
	unlock, err := s.lockProfile(profileID)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.db.Where("profile_id = ? AND enabled = ?", profileID, false).Delete(&db.ProfileMod{}).Error
	if err != nil {
		return err
	}

	s.publish(profileID)
	return nil
}

// Rename changes a profile's display name. The derived path is kept so
// installed files stay where they are.
func (s *Store) Rename(profileID uint, name string) error {
	unlock, err := s.lockProfile(profileID)
	if err != nil {
		return err
	}
	defer unlock()

	var profile db.Profile
	if err := s.db.Where("id = ?", profileID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "profile", ID: profileID}
		}
		return err
	}

	var count int64
	err = s.db.Model(&db.Profile{}).
		Where("game_id = ? AND name = ? AND id != ?", profile.GameID, name, profileID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return &ConflictError{Entity: "profile", Key: name, Reason: "a profile with this name already exists"}
	}

	if err := s.db.Model(&profile).Update("name", name).Error; err != nil {
		return err
	}

	s.publish(profileID)
	return nil
}

// SetFavorite marks or unmarks a profile as favorite.
func (s *Store) SetFavorite(profileID uint, favorite bool) error {
	res := s.db.Model(&db.Profile{}).Where("id = ?", profileID).Update("favorite", favorite)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Entity: "profile", ID: profileID}
	}

	s.publish(profileID)
	return nil
}

// Delete removes a profile and all of its mods.
func (s *Store) Delete(profileID uint) error {
	unlock, err := s.lockProfile(profileID)
	if err != nil {
		return err
	}
	defer unlock()

	res := s.db.Where("id = ?", profileID).Delete(&db.Profile{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Entity: "profile", ID: profileID}
	}

	if s.bus != nil {
		s.bus.PublishProfileDeleted(profileID)
	}
	return nil
}

// publish emits the profile's current snapshot after a committed
// mutation. Publishing is asynchronous for subscribers and never blocks
// the mutating caller.
func (s *Store) publish(profileID uint) {
	if s.bus == nil {
		return
	}

	info, err := s.Get(profileID)
	if err != nil {
		return
	}

	snap := bridge.ProfileSnapshot{
		ID:       info.Profile.ID,
		GameID:   info.Profile.GameID,
		Name:     info.Profile.Name,
		Path:     info.Profile.Path,
		Favorite: info.Profile.Favorite,
		Mods:     make([]bridge.ModSnapshot, len(info.Mods)),
	}
	for i, mod := range info.Mods {
		snap.Mods[i] = bridge.ModSnapshot{
			ID:         mod.ID,
			Kind:       mod.Kind,
			Owner:      mod.Owner,
			Name:       mod.Name,
			Version:    mod.Version,
			Enabled:    mod.Enabled,
			OrderIndex: mod.OrderIndex,
		}
	}
	s.bus.PublishProfile(snap)
}
