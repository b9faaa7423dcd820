package profile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBusy reports lock contention on a profile. The caller may retry
// after a short backoff; nothing was persisted.
var ErrBusy = errors.New("profile is locked by another operation")

// DependentsError rejects a removal that would leave enabled mods with
// an unsatisfiable requirement. The caller may force-remove, which
// disables (not deletes) the dependents.
type DependentsError struct {
	Removed    string
	Dependents []string
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("removing %s would break %s", e.Removed, strings.Join(e.Dependents, ", "))
}

// NotFoundError reports a missing profile or profile mod.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConflictError reports a uniqueness or consistency violation within a
// profile (duplicate name, duplicate package, bad reorder permutation).
type ConflictError struct {
	Entity string
	Key    string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Entity, e.Key, e.Reason)
}
