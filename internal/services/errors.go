package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/isdelr/messagely-be/internal/common"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint
// failure raised by SQLite.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE constraint failed")
}

// missingFields returns the names whose values are blank.
func missingFields(fields ...[2]string) []string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	return missing
}

// validateUsername rejects names that cannot round-trip through a URL path
// segment such as /users/{username}.
func validateUsername(username string) error {
	if strings.ContainsAny(username, `/\`) {
		return fmt.Errorf("%w: username must not contain slashes", common.ErrInvalidInput)
	}
	for _, r := range username {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: username must not contain control characters", common.ErrInvalidInput)
		}
	}
	return nil
}

// nullTime converts a scanned nullable timestamp to a UTC pointer.
func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
