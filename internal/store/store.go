// Package store owns the messages/summaries schema and every SQL query the
// digest pipeline issues. Postgres (lib/pq) and SQLite (modernc) share one
// implementation and differ only in their dialect.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"digestbot/internal/domain"
)

const (
	defaultMaxConnections = 5
	defaultConnectTimeout = 3 * time.Second
	defaultQueryTimeout   = 10 * time.Second
)

// Config configures the store connection.
type Config struct {
	DSN            string
	MaxConnections int
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
	Logger         *slog.Logger
}

// Store implements domain.MessageStore, domain.MessageSink and
// domain.SummaryReader on top of database/sql.
type Store struct {
	db           *sql.DB
	dialect      *dialect
	queryTimeout time.Duration
	logger       *slog.Logger
}

// Open connects to the database named by cfg.DSN, verifies connectivity and
// ensures the schema exists. Connection failures wrap domain.ErrStoreUnavailable.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = defaultMaxConnections
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	d, dsn, err := resolveDialect(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	db, err := d.open(dsn, cfg.MaxConnections)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrStoreUnavailable, d.name, d.translate(err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: connect %s: %w", domain.ErrStoreUnavailable, d.name, d.translate(err))
	}

	s := &Store{
		db:           db,
		dialect:      d,
		queryTimeout: cfg.QueryTimeout,
		logger:       cfg.Logger,
	}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	cfg.Logger.Info("store ready", "dialect", d.name, "max_connections", cfg.MaxConnections)
	return s, nil
}

// Dialect returns "postgres" or "sqlite".
func (s *Store) Dialect() string { return s.dialect.name }

// EnsureSchema creates the messages and summaries tables if they are absent.
// Safe to call any number of times.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, cancel := s.schemaContext(ctx)
	defer cancel()
	if err := runMigrations(ctx, s.db, s.dialect, s.logger); err != nil {
		return fmt.Errorf("%w: ensure schema: %w", domain.ErrStoreUnavailable, s.dialect.translate(err))
	}
	return nil
}

// schemaContext bounds a migration run by one query timeout per migration
// plus one for the version bookkeeping.
func (s *Store) schemaContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout*time.Duration(len(s.dialect.migrations)+1))
}

// Ping checks connectivity within the query timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", domain.ErrStoreUnavailable, s.dialect.translate(err))
	}
	return nil
}

// FetchMessagesForDate returns every message whose UTC calendar day is date,
// oldest first. A day without messages yields domain.ErrNoRows.
func (s *Store) FetchMessagesForDate(ctx context.Context, date time.Time) ([]domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	day := domain.Day(date).Format(domain.DateLayout)
	rows, err := s.db.QueryContext(ctx, s.dialect.fetchMessagesSQL, day)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch messages for %s: %w", domain.ErrStoreUnavailable, day, s.dialect.translate(err))
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var (
			m       domain.Message
			data    []byte
			created timeValue
		)
		if err := rows.Scan(&m.ID, &data, &created); err != nil {
			return nil, fmt.Errorf("%w: scan message: %w", domain.ErrStoreUnavailable, s.dialect.translate(err))
		}
		m.Data = json.RawMessage(data)
		m.CreatedAt = created.Time
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate messages: %w", domain.ErrStoreUnavailable, s.dialect.translate(err))
	}

	if len(msgs) == 0 {
		return nil, domain.ErrNoRows
	}
	return msgs, nil
}

// InsertSummary appends one summary row for date and returns its id.
func (s *Store) InsertSummary(ctx context.Context, summary string, date time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	day := domain.Day(date).Format(domain.DateLayout)
	var id int64
	err := s.db.QueryRowContext(ctx, s.dialect.insertSummarySQL, summary, day).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: insert summary for %s: %w", domain.ErrStoreWrite, day, s.dialect.translate(err))
	}
	return id, nil
}

// AppendMessage stores one raw message payload.
func (s *Store) AppendMessage(ctx context.Context, data json.RawMessage, createdAt time.Time) (int64, error) {
	if !json.Valid(data) {
		return 0, fmt.Errorf("%w: message payload is not valid JSON", domain.ErrStoreWrite)
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var id int64
	err := s.db.QueryRowContext(ctx, s.dialect.appendMessageSQL, string(data), s.dialect.timestampArg(createdAt)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: append message: %w", domain.ErrStoreWrite, s.dialect.translate(err))
	}
	return id, nil
}

// ListSummaries returns up to limit summaries, newest first.
func (s *Store) ListSummaries(ctx context.Context, limit int) ([]domain.Summary, error) {
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.dialect.listSummariesSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list summaries: %w", domain.ErrStoreUnavailable, s.dialect.translate(err))
	}
	defer rows.Close()

	var out []domain.Summary
	for rows.Next() {
		var (
			sum     domain.Summary
			date    timeValue
			created timeValue
		)
		if err := rows.Scan(&sum.ID, &sum.Summary, &date, &created); err != nil {
			return nil, fmt.Errorf("%w: scan summary: %w", domain.ErrStoreUnavailable, s.dialect.translate(err))
		}
		sum.Date = domain.Day(date.Time)
		sum.CreatedAt = created.Time
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate summaries: %w", domain.ErrStoreUnavailable, s.dialect.translate(err))
	}
	return out, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// timeValue scans timestamps and dates whether the driver hands back a
// time.Time or the textual form SQLite stores.
type timeValue struct {
	Time time.Time
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	domain.DateLayout,
}

func (v *timeValue) Scan(src any) error {
	switch t := src.(type) {
	case nil:
		v.Time = time.Time{}
		return nil
	case time.Time:
		v.Time = t.UTC()
		return nil
	case string:
		return v.parse(t)
	case []byte:
		return v.parse(string(t))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (v *timeValue) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			v.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", s)
}

var (
	_ domain.MessageStore  = (*Store)(nil)
	_ domain.MessageSink   = (*Store)(nil)
	_ domain.SummaryReader = (*Store)(nil)
)
