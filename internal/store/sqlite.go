package store

import (
	"strings"
	"time"
)

// sqliteTimeLayout sorts lexically and is understood by SQLite's date().
const sqliteTimeLayout = "2006-01-02 15:04:05.000"

var sqliteDialect = &dialect{
	name:   "sqlite",
	driver: "sqlite",

	fetchMessagesSQL: `
		SELECT id, data, created_at
		FROM messages
		WHERE date(created_at) = ?
		ORDER BY created_at, id`,
	insertSummarySQL: `INSERT INTO summaries (summary, date) VALUES (?, ?) RETURNING id`,
	appendMessageSQL: `INSERT INTO messages (data, created_at) VALUES (?, ?) RETURNING id`,
	listSummariesSQL: `
		SELECT id, summary, date, created_at
		FROM summaries
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,

	versionTableSQL: `
		CREATE TABLE IF NOT EXISTS schema_version (
			version     INTEGER PRIMARY KEY,
			description TEXT,
			applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	recordVersionSQL: `INSERT OR REPLACE INTO schema_version (version, description) VALUES (?, ?)`,
	migrations: []migration{
		{
			Version:     1,
			Description: "base schema: messages, summaries",
			SQL: `
			CREATE TABLE IF NOT EXISTS messages (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				data        TEXT NOT NULL CHECK (json_valid(data)),
				created_at  DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
			);

			CREATE TABLE IF NOT EXISTS summaries (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				summary     TEXT NOT NULL,
				date        DATE NOT NULL,
				created_at  DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
			);
			`,
		},
		{
			Version:     2,
			Description: "v2: day lookup indexes",
			SQL: `
			CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at);
			CREATE INDEX IF NOT EXISTS idx_summaries_date ON summaries(date);
			`,
		},
	},

	// A single writer avoids SQLITE_BUSY under the WAL journal.
	maxOpenConns: func(int) int { return 1 },
	timestampArg: func(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) },
	translate:    translateSQLite,
}

// sqliteDSN appends the pragmas the store relies on unless the caller
// already set them.
func sqliteDSN(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}
