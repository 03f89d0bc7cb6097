// Package dberr classifies storage-layer failures so callers can tell an
// expected condition (a missing optional capability, a lost create race)
// from a genuine fault. Classification is by SQLSTATE when the driver
// preserves it, with a message-substring fallback for wrapped errors and
// non-Postgres drivers.
package dberr

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes for "this object does not exist". Seeing one of
// these from a query means the deployment lacks an optional capability
// (extension function, table, view or column), not that the query is wrong.
const (
	codeUndefinedFunction = "42883"
	codeUndefinedTable    = "42P01"
	codeUndefinedColumn   = "42703"
	codeUndefinedObject   = "42704"

	codeUniqueViolation = "23505"
)

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint failed")
}

// IsUndefinedCapability reports whether err means the storage backend lacks
// a function, table, view or column the query relied on. Callers use this
// to advance to the next degradation tier; it must never match ordinary
// data errors.
func IsUndefinedCapability(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUndefinedFunction, codeUndefinedTable, codeUndefinedColumn, codeUndefinedObject:
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	switch {
	// SQLite phrasing.
	case strings.Contains(msg, "no such function"),
		strings.Contains(msg, "no such table"),
		strings.Contains(msg, "no such column"),
		strings.Contains(msg, "no such view"):
		return true
	// Postgres phrasing surviving only as text.
	case strings.Contains(msg, "does not exist") &&
		(strings.Contains(msg, "function") ||
			strings.Contains(msg, "relation") ||
			strings.Contains(msg, "column") ||
			strings.Contains(msg, "operator")):
		return true
	}
	return false
}
