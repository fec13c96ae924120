package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gridsync/internal/coverage"
	"gridsync/internal/model"
)

// Default write-retry settings. Persistence failures are transient more
// often than not (failover, connection churn), so each batch is retried a
// few times before the window's write is surfaced as failed.
const (
	DefaultWriteRetries  = 3
	DefaultWriteInterval = 500 * time.Millisecond
)

// Store persists composite records to PostgreSQL with insert-or-merge-fields
// semantics. Each record's upsert is atomic; no transaction spans records.
type Store struct {
	pool        *pgxpool.Pool
	logger      *slog.Logger
	pointsTable string
	daysTable   string

	writeRetries  int
	writeInterval time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTables overrides the table names.
func WithTables(points, days string) Option {
	return func(s *Store) {
		if points != "" {
			s.pointsTable = points
		}
		if days != "" {
			s.daysTable = days
		}
	}
}

// WithWriteRetry sets the per-batch retry count and spacing.
func WithWriteRetry(retries int, interval time.Duration) Option {
	return func(s *Store) {
		s.writeRetries = retries
		s.writeInterval = interval
	}
}

// New creates a Store on an existing connection pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:          pool,
		logger:        slog.Default(),
		pointsTable:   "zone_observations",
		daysTable:     "zone_days",
		writeRetries:  DefaultWriteRetries,
		writeInterval: DefaultWriteInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates both record tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				zone        text        NOT NULL,
				observed_at timestamptz NOT NULL,
				fields      jsonb       NOT NULL DEFAULT '{}'::jsonb,
				updated_at  timestamptz NOT NULL DEFAULT now(),
				PRIMARY KEY (zone, observed_at)
			)`, s.pointsTable),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				zone       text        NOT NULL,
				day        date        NOT NULL,
				series     jsonb       NOT NULL DEFAULT '{}'::jsonb,
				summary    jsonb       NOT NULL DEFAULT '{}'::jsonb,
				updated_at timestamptz NOT NULL DEFAULT now(),
				PRIMARY KEY (zone, day)
			)`, s.daysTable),
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Ping verifies the store connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// PointCoverage builds the existing-coverage index for one zone: which
// series labels are already stored at each timestamp. It reflects store
// state at call time only; the index is not refreshed during a run.
func (s *Store) PointCoverage(ctx context.Context, zone string) (coverage.Index, error) {
	query := fmt.Sprintf(`SELECT observed_at, fields FROM %s WHERE zone = $1`, s.pointsTable)

	rows, err := s.pool.Query(ctx, query, zone)
	if err != nil {
		return nil, fmt.Errorf("query coverage for %s: %w", zone, err)
	}
	defer rows.Close()

	idx := coverage.New()
	for rows.Next() {
		var observedAt time.Time
		var fieldsJSON []byte
		if err := rows.Scan(&observedAt, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("scan coverage row: %w", err)
		}

		labels, err := fieldLabels(fieldsJSON)
		if err != nil {
			return nil, fmt.Errorf("decode coverage fields: %w", err)
		}

		key := observedAt.UTC().Format(time.RFC3339)
		for _, label := range labels {
			idx.Add(key, label)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coverage rows: %w", err)
	}

	return idx, nil
}

// fieldLabels extracts the label keys of a stored jsonb fields object.
func fieldLabels(fieldsJSON []byte) ([]model.SeriesLabel, error) {
	if len(fieldsJSON) == 0 {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(fieldsJSON, &fields); err != nil {
		return nil, err
	}
	labels := make([]model.SeriesLabel, 0, len(fields))
	for label := range fields {
		labels = append(labels, label)
	}
	return labels, nil
}

// UpsertStats summarizes one batch write.
type UpsertStats struct {
	Inserted int // records newly created
	Merged   int // records whose fields were merged into an existing row
}

// Total returns the number of records written.
func (st UpsertStats) Total() int { return st.Inserted + st.Merged }

// UpsertPoints writes per-timestamp records. An existing row keeps fields
// absent from the new record; same-named fields take the new value.
func (s *Store) UpsertPoints(ctx context.Context, records []*model.PointRecord) (UpsertStats, error) {
	if len(records) == 0 {
		return UpsertStats{}, nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (zone, observed_at, fields)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (zone, observed_at)
		DO UPDATE SET fields = %s.fields || EXCLUDED.fields, updated_at = now()
		RETURNING (xmax = 0) AS inserted`, s.pointsTable, s.pointsTable)

	batch := &pgx.Batch{}
	for _, rec := range records {
		fields, err := json.Marshal(rec.Fields)
		if err != nil {
			return UpsertStats{}, fmt.Errorf("marshal fields for %s@%s: %w", rec.Zone, rec.Key(), err)
		}
		batch.Queue(query, rec.Zone, rec.Timestamp.UTC(), string(fields))
	}

	return s.sendWithRetry(ctx, batch, len(records))
}

// UpsertDays writes per-day records. Resolution buckets and summary scalars
// merge at the top level: a re-written bucket replaces the stored one, a
// bucket absent from the new record stays untouched.
func (s *Store) UpsertDays(ctx context.Context, records []*model.DayRecord) (UpsertStats, error) {
	if len(records) == 0 {
		return UpsertStats{}, nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (zone, day, series, summary)
		VALUES ($1, $2, $3::jsonb, $4::jsonb)
		ON CONFLICT (zone, day)
		DO UPDATE SET
			series = %s.series || EXCLUDED.series,
			summary = %s.summary || EXCLUDED.summary,
			updated_at = now()
		RETURNING (xmax = 0) AS inserted`, s.daysTable, s.daysTable, s.daysTable)

	batch := &pgx.Batch{}
	for _, rec := range records {
		series, summary, err := dayJSON(rec)
		if err != nil {
			return UpsertStats{}, fmt.Errorf("marshal day %s/%s: %w", rec.Zone, rec.Day, err)
		}
		batch.Queue(query, rec.Zone, rec.Day, series, summary)
	}

	return s.sendWithRetry(ctx, batch, len(records))
}

// dayJSON marshals a day record's jsonb columns. Nil maps become empty
// objects so the || merge never sees SQL nulls.
func dayJSON(rec *model.DayRecord) (series, summary string, err error) {
	sb, err := json.Marshal(rec.Series)
	if err != nil {
		return "", "", err
	}
	mb, err := json.Marshal(rec.Summary)
	if err != nil {
		return "", "", err
	}
	series, summary = string(sb), string(mb)
	if rec.Series == nil {
		series = "{}"
	}
	if rec.Summary == nil {
		summary = "{}"
	}
	return series, summary, nil
}

// sendWithRetry executes a batch, retrying transient failures with constant
// backoff before giving up. A batch that still fails leaves this window
// under-persisted; the error propagates so the caller can log it, and the
// next run's idempotent sweep fills the gap.
func (s *Store) sendWithRetry(ctx context.Context, batch *pgx.Batch, count int) (UpsertStats, error) {
	var stats UpsertStats

	operation := func() error {
		stats = UpsertStats{}

		results := s.pool.SendBatch(ctx, batch)
		defer results.Close()

		for i := 0; i < count; i++ {
			var inserted bool
			if err := results.QueryRow().Scan(&inserted); err != nil {
				return fmt.Errorf("batch upsert %d/%d: %w", i+1, count, err)
			}
			if inserted {
				stats.Inserted++
			} else {
				stats.Merged++
			}
		}
		return results.Close()
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.writeInterval), uint64(s.writeRetries)),
		ctx,
	)

	err := backoff.RetryNotify(operation, policy, func(err error, next time.Duration) {
		s.logger.Warn("batch write failed, retrying", "err", err, "backoff", next)
	})
	if err != nil {
		return UpsertStats{}, err
	}
	return stats, nil
}
