package storage

import (
	"database/sql"
	"strings"
)

// NullString is a small helper to construct sql.NullString values for the
// optional contact fields without repeating the struct literal. Blank input
// is stored as NULL.
func NullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
