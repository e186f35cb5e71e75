package store

import "time"

var postgresDialect = &dialect{
	name:   "postgres",
	driver: "postgres",

	fetchMessagesSQL: `
		SELECT id, data, created_at
		FROM messages
		WHERE (created_at AT TIME ZONE 'UTC')::date = $1::date
		ORDER BY created_at, id`,
	insertSummarySQL: `INSERT INTO summaries (summary, date) VALUES ($1, $2::date) RETURNING id`,
	appendMessageSQL: `INSERT INTO messages (data, created_at) VALUES ($1::jsonb, $2) RETURNING id`,
	listSummariesSQL: `
		SELECT id, summary, date, created_at
		FROM summaries
		ORDER BY created_at DESC, id DESC
		LIMIT $1`,

	versionTableSQL: `
		CREATE TABLE IF NOT EXISTS schema_version (
			version     INTEGER PRIMARY KEY,
			description TEXT,
			applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	recordVersionSQL: `
		INSERT INTO schema_version (version, description) VALUES ($1, $2)
		ON CONFLICT (version) DO NOTHING`,
	migrations: []migration{
		{
			Version:     1,
			Description: "base schema: messages, summaries",
			SQL: `
			CREATE TABLE IF NOT EXISTS messages (
				id          SERIAL PRIMARY KEY,
				data        JSONB NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
			);

			CREATE TABLE IF NOT EXISTS summaries (
				id          SERIAL PRIMARY KEY,
				summary     TEXT NOT NULL,
				date        DATE NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
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

	maxOpenConns: func(requested int) int { return requested },
	timestampArg: func(t time.Time) any { return t.UTC() },
	translate:    translatePostgres,
}
