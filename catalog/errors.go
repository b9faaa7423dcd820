package catalog

import "fmt"

// IntegrityError is a referential-integrity or uniqueness violation.
// The operation is aborted and must not be retried as-is.
type IntegrityError struct {
	Entity string
	Key    string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Entity, e.Key, e.Reason)
}

// NotFoundError reports a missing row by entity kind and key.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}
