package mysql

import (
	"database/sql"
	"strings"
)

// nullIfEmpty stores NULL for empty/whitespace strings
func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
