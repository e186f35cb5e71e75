package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Driver-neutral error kinds. Store methods wrap these beneath the
// domain-level kind so callers can match either.
var (
	ErrNotFound        = errors.New("store: not found")
	ErrQueryCanceled   = errors.New("store: query canceled or timed out")
	ErrConstraint      = errors.New("store: constraint violation")
	ErrBusy            = errors.New("store: database busy")
	ErrUndefinedObject = errors.New("store: undefined table or column")
	ErrInvalidInput    = errors.New("store: invalid input syntax")
	ErrConnection      = errors.New("store: connection failure")
)

func translateCommon(err error) (error, bool) {
	if err == nil {
		return nil, true
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err), true
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrQueryCanceled, context.Canceled), true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrQueryCanceled, context.DeadlineExceeded), true
	}
	return nil, false
}

// translatePostgres maps lib/pq SQLSTATE codes onto the store error kinds.
func translatePostgres(err error) error {
	if out, ok := translateCommon(err); ok {
		return out
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505", "23503", "23502", "23514":
			return fmt.Errorf("%w: %s", ErrConstraint, pqErr.Message)
		case "57014":
			return fmt.Errorf("%w: %s", ErrQueryCanceled, pqErr.Message)
		case "22P02", "22007", "22008":
			return fmt.Errorf("%w: %s", ErrInvalidInput, pqErr.Message)
		case "42703", "42P01":
			return fmt.Errorf("%w: %s", ErrUndefinedObject, pqErr.Message)
		case "55P03", "40P01", "40001":
			return fmt.Errorf("%w: %s", ErrBusy, pqErr.Message)
		}
		switch pqErr.Code.Class() {
		case "08", "28", "3D", "53", "57":
			return fmt.Errorf("%w: %s", ErrConnection, pqErr.Message)
		}
		return fmt.Errorf("postgres error %s: %s", pqErr.Code, pqErr.Message)
	}

	return err
}

// translateSQLite maps modernc sqlite result codes onto the store error kinds.
func translateSQLite(err error) error {
	if out, ok := translateCommon(err); ok {
		return out
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return fmt.Errorf("%w: %s", ErrConstraint, liteErr.Error())
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %s", ErrBusy, liteErr.Error())
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_READONLY:
			return fmt.Errorf("%w: %s", ErrConnection, liteErr.Error())
		case sqlite3.SQLITE_INTERRUPT:
			return fmt.Errorf("%w: %s", ErrQueryCanceled, liteErr.Error())
		}
	}

	return err
}
