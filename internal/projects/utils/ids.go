package utils

import (
	"github.com/google/uuid"
)

// NewProjectID allocates a project id. The same value is used as the local
// storage key and as the remote primary key, so it must be a plain UUID with
// no prefix.
func NewProjectID() string {
	return uuid.NewString()
}

// NewLibraryID allocates an id for an external library descriptor.
func NewLibraryID() string {
	return "lib_" + uuid.NewString()
}

// IsProjectID reports whether s has the shape NewProjectID produces. The
// remote store uses it to reject ids it could never have stored.
func IsProjectID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
