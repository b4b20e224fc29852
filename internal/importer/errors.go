package importer

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsUniqueViolation translates a store-level duplicate key failure so the
// batch report can carry an "already exists" reason instead of a raw driver
// message. Checked textually because the sqlite and postgres drivers return
// different error types.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
