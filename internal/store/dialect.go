package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// dialect carries everything that differs between the supported databases.
type dialect struct {
	name   string
	driver string

	fetchMessagesSQL string
	insertSummarySQL string
	appendMessageSQL string
	listSummariesSQL string

	versionTableSQL  string
	recordVersionSQL string
	migrations       []migration

	maxOpenConns func(requested int) int
	timestampArg func(t time.Time) any
	translate    func(err error) error
}

func (d *dialect) open(dsn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, err
	}
	n := d.maxOpenConns(maxConns)
	db.SetMaxOpenConns(n)
	db.SetMaxIdleConns(n)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// resolveDialect picks a dialect from the DSN and returns the DSN in the form
// the driver expects.
func resolveDialect(dsn string) (*dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, "", fmt.Errorf("empty database DSN")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgresDialect, dsn, nil
	case strings.HasPrefix(dsn, "host=") || strings.Contains(dsn, " dbname=") || strings.HasPrefix(dsn, "dbname="):
		return postgresDialect, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqliteDialect, sqliteDSN(strings.TrimPrefix(dsn, "sqlite://")), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqliteDialect, sqliteDSN(strings.TrimPrefix(dsn, "sqlite:")), nil
	case strings.Contains(dsn, "://"):
		return nil, "", fmt.Errorf("unsupported database DSN scheme in %q", redactDSN(dsn))
	default:
		return sqliteDialect, sqliteDSN(dsn), nil
	}
}

// redactDSN hides the password portion of a URL-style DSN.
func redactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, hasPass := strings.Cut(creds, ":")
	if !hasPass {
		return dsn
	}
	return scheme + "://" + user + ":***@" + host
}
