package db

import (
	"time"

	"thunder-mod-manager/semver"
)

// Community represents a supported game family. Seeded at startup, never
// mutated by user action.
type Community struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"not null"`
	Slug string `gorm:"uniqueIndex;not null"` // URL-safe unique key
}

func (Community) TableName() string { return "communities" }

// Game is a specific moddable title within a community.
type Game struct {
	ID           uint   `gorm:"primaryKey"`
	CommunityID  uint   `gorm:"index;not null"`
	Name         string `gorm:"not null"`
	Slug         string `gorm:"uniqueIndex;not null"`
	PlatformDir  string // Directory name under the platform's library
	PlatformID   int64  // Numeric platform (Steam) id
	ModLoader    string `gorm:"not null"` // One well-known loader per game
	OverridePath string // User-overridden install path, empty when unset
	Favorite     bool
}

func (Game) TableName() string { return "games" }

// Mod-loader kinds. One per game, extensible.
const (
	LoaderBepInEx     = "bepinex"
	LoaderMelonLoader = "melonloader"
	LoaderShimloader  = "shimloader"
	LoaderGDWeave     = "gdweave"
)

// Package is a mod published for exactly one game. LatestVersionID always
// points at a version row owned by this package.
type Package struct {
	ID              uint   `gorm:"primaryKey"`
	GameID          uint   `gorm:"index;not null"`
	Owner           string `gorm:"not null"`
	Name            string `gorm:"not null"`
	Description     string
	CreatedAt       time.Time
	IsNSFW          bool `gorm:"column:is_nsfw"`
	IsDeprecated    bool
	IsPinned        bool
	Rating          int64
	Downloads       int64
	DonationLink    string
	LatestVersionID *uint `gorm:"column:latest_version_id"`
}

func (Package) TableName() string { return "packages" }

// Version is one immutable published release of a package. Only IsActive
// may change after insertion.
type Version struct {
	ID         uint `gorm:"primaryKey"`
	PackageID  uint `gorm:"index;not null"`
	Major      int  `gorm:"not null"`
	Minor      int  `gorm:"not null"`
	Patch      int  `gorm:"not null"`
	CreatedAt  time.Time
	Downloads  int64
	FileSize   int64
	IsActive   bool
	WebsiteURL string
}

func (Version) TableName() string { return "versions" }

// Triple returns the version's semantic triple.
func (v Version) Triple() semver.Triple {
	return semver.Triple{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
}

// Dependency is a requirement edge from a version to a named package with
// a minimum-version floor. The target is a soft reference by owner+name:
// the package may not be known to the local catalog yet.
type Dependency struct {
	VersionID uint   `gorm:"primaryKey;autoIncrement:false"`
	Owner     string `gorm:"primaryKey"`
	Name      string `gorm:"primaryKey"`
	MinMajor  int    `gorm:"not null"`
	MinMinor  int    `gorm:"not null"`
	MinPatch  int    `gorm:"not null"`
	Seq       int    `gorm:"not null"` // Preserves declaration order
}

func (Dependency) TableName() string { return "dependencies" }

// Floor returns the minimum-version requirement.
func (d Dependency) Floor() semver.Triple {
	return semver.Triple{Major: d.MinMajor, Minor: d.MinMinor, Patch: d.MinPatch}
}

// Category is a tag scoped to a game.
type Category struct {
	ID     uint   `gorm:"primaryKey"`
	GameID uint   `gorm:"uniqueIndex:idx_categories_game_slug;not null"`
	Slug   string `gorm:"uniqueIndex:idx_categories_game_slug;not null"`
	Name   string `gorm:"not null"`
}

func (Category) TableName() string { return "categories" }

// PackageCategory joins packages to categories.
type PackageCategory struct {
	PackageID  uint `gorm:"primaryKey;autoIncrement:false"`
	CategoryID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (PackageCategory) TableName() string { return "package_categories" }

// Profile is a user-named, ordered working set of mods for one game.
type Profile struct {
	ID         uint   `gorm:"primaryKey"`
	GameID     uint   `gorm:"index;not null"`
	Name       string `gorm:"not null"`
	Path       string `gorm:"not null"`
	Favorite   bool
	LaunchMode string // Optional launch-mode configuration
}

func (Profile) TableName() string { return "profiles" }

// ProfileMod source kinds.
const (
	SourceThunderstore = "thunderstore"
	SourceLocal        = "local"
)

// ProfileMod is one entry in a profile's mod list. Within a profile,
// OrderIndex values induce a total order. Exactly one of the source
// variants is populated, discriminated by Kind.
type ProfileMod struct {
	ID         uint   `gorm:"primaryKey"`
	ProfileID  uint   `gorm:"index;not null"`
	Enabled    bool   `gorm:"not null"`
	OrderIndex int    `gorm:"not null"`
	Kind       string `gorm:"not null"`

	// Kind == SourceThunderstore
	VersionID *uint

	// Kind == SourceLocal
	LocalName    string
	LocalVersion string
	LocalPath    string
	LocalSHA1    string `gorm:"column:local_sha1"`
}

func (ProfileMod) TableName() string { return "profile_mods" }

// Setting is a single row of process-wide configuration, overwritten in
// place.
type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

func (Setting) TableName() string { return "settings" }

// PackageSearch is the full-text shadow row for a package. It is written
// in the same transaction as the package row it mirrors and never rebuilt
// out of band.
type PackageSearch struct {
	PackageID    uint   `gorm:"primaryKey;autoIncrement:false"`
	GameID       uint   `gorm:"index;not null"`
	NameTokens   string `gorm:"not null"`
	OwnerTokens  string `gorm:"not null"`
	DescTokens   string `gorm:"not null"`
	Downloads    int64
	IsNSFW       bool `gorm:"column:is_nsfw"`
	IsDeprecated bool
}

func (PackageSearch) TableName() string { return "package_search" }
