package profile

import "thunder-mod-manager/db"

// Source describes where a profile mod comes from. It is a closed sum:
// either a reference to a registry version or a locally provided file.
type Source interface {
	isSource()
}

// ThunderstoreSource references a resolved version row in the catalog.
type ThunderstoreSource struct {
	VersionID uint
}

func (ThunderstoreSource) isSource() {}

// LocalSource describes a user-provided mod the catalog knows nothing
// about. Local mods are opaque to dependency resolution.
type LocalSource struct {
	Name    string
	Version string
	Path    string
	SHA1    string
}

func (LocalSource) isSource() {}

func applySource(row *db.ProfileMod, src Source) {
	switch s := src.(type) {
	case ThunderstoreSource:
		row.Kind = db.SourceThunderstore
		vid := s.VersionID
		row.VersionID = &vid
	case LocalSource:
		row.Kind = db.SourceLocal
		row.LocalName = s.Name
		row.LocalVersion = s.Version
		row.LocalPath = s.Path
		row.LocalSHA1 = s.SHA1
	}
}
