// Package schema owns the on-disk relational schema and its versioned,
// append-only migration sequence. Each step runs inside its own
// transaction; a failed step rolls back and leaves the store at the last
// successfully applied version.
package schema

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Step is one migration in the ordered sequence. Steps are append-only:
// published versions are never edited, only followed.
type Step struct {
	Version int
	Name    string
	Run     func(tx *gorm.DB) error
}

// Latest is the schema version this build of the application requires.
const Latest = 3

var steps = []Step{
	{Version: 1, Name: "base schema", Run: createBaseSchema},
	{Version: 2, Name: "package search index", Run: createSearchIndex},
	{Version: 3, Name: "normalize profile mods", Run: normalizeProfileMods},
}

const watermarkDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at DATETIME NOT NULL
)`

// CurrentVersion returns the highest successfully applied migration
// version, or 0 for an uninitialized store.
func CurrentVersion(gdb *gorm.DB) (int, error) {
	if err := gdb.Exec(watermarkDDL).Error; err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	var version int
	err := gdb.Raw("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// Migrate applies every unapplied step up to and including target, in
// ascending order, one transaction per step. Calling it with an
// already-current target is a no-op.
func Migrate(gdb *gorm.DB, target int) error {
	if target > Latest {
		return fmt.Errorf("unknown schema version %d (latest is %d)", target, Latest)
	}

	current, err := CurrentVersion(gdb)
	if err != nil {
		return err
	}
	if current >= target {
		return nil
	}

	for _, step := range steps {
		if step.Version <= current || step.Version > target {
			continue
		}

		err := gdb.Transaction(func(tx *gorm.DB) error {
			if err := step.Run(tx); err != nil {
				return err
			}
			return tx.Exec(
				"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
				step.Version, step.Name, time.Now().UTC(),
			).Error
		})
		if err != nil {
			// Halt here: later steps must never run on top of a
			// failed one.
			return fmt.Errorf("migration %d (%s) failed: %w", step.Version, step.Name, err)
		}
	}

	return nil
}

// MigrateAll brings the store up to the latest schema version.
func MigrateAll(gdb *gorm.DB) error {
	return Migrate(gdb, Latest)
}
