package schema

import "fmt"

// MigrationError reports a row whose legacy data could not be transformed
// into the new shape. It is fatal to startup: the application must not
// proceed with a half-migrated store, and must never silently drop user
// data.
type MigrationError struct {
	Step   int
	Entity string
	ID     int64
	Reason string
	Err    error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration step %d: %s %d: %s", e.Step, e.Entity, e.ID, e.Reason)
}

func (e *MigrationError) Unwrap() error { return e.Err }
