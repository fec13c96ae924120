package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"gridsync/internal/coverage"
	"gridsync/internal/merge"
	"gridsync/internal/metrics"
	"gridsync/internal/model"
	"gridsync/internal/store"
	"gridsync/internal/window"
)

// Mode selects the record granularity of a run.
type Mode string

const (
	// ModePoints stores one record per (zone, timestamp) over monthly windows.
	ModePoints Mode = "points"

	// ModeDays stores one record per (zone, date) over daily windows.
	ModeDays Mode = "days"
)

// Fetcher is the upstream boundary: windowed fetches that return decoded
// points. A fetch error means the retry policy was exhausted.
type Fetcher interface {
	FetchGeneration(ctx context.Context, eic string, win window.Window) ([]model.TimePoint, error)
	FetchPrices(ctx context.Context, eic string, win window.Window) ([]model.PriceSeries, error)
	GenerationLabel() model.SeriesLabel
}

// Storage is the persistence boundary: coverage reads and idempotent upserts.
type Storage interface {
	PointCoverage(ctx context.Context, zone string) (coverage.Index, error)
	UpsertPoints(ctx context.Context, records []*model.PointRecord) (store.UpsertStats, error)
	UpsertDays(ctx context.Context, records []*model.DayRecord) (store.UpsertStats, error)
}

// Config controls a synchronization run.
type Config struct {
	Mode Mode

	// From is the inclusive start of the historical sweep.
	From time.Time

	// ZoneConcurrency bounds parallel zone processing; 1 is sequential.
	ZoneConcurrency int

	// Pace is the minimum spacing between fetch windows across the whole
	// run, respecting upstream rate limits. Zero disables pacing.
	Pace time.Duration

	// SummaryLabels are reduced to once-per-day scalars in days mode.
	SummaryLabels []model.SeriesLabel

	// Now supplies the sweep's upper bound; defaults to time.Now.
	Now func() time.Time
}

// ZoneReport summarizes one zone's sweep.
type ZoneReport struct {
	Zone    string
	Windows int
	Written int
	Err     error
}

// RunReport summarizes a full run.
type RunReport struct {
	RunID    uuid.UUID
	Duration time.Duration
	Zones    []ZoneReport
}

// Written returns the total records written across zones.
func (r *RunReport) Written() int {
	total := 0
	for _, z := range r.Zones {
		total += z.Written
	}
	return total
}

// Failed returns the zones whose sweep ended with an error.
func (r *RunReport) Failed() []ZoneReport {
	var failed []ZoneReport
	for _, z := range r.Zones {
		if z.Err != nil {
			failed = append(failed, z)
		}
	}
	return failed
}

// Runner sweeps every configured zone through the window sequence, fetching,
// merging, and upserting one window at a time. Writes are idempotent and the
// sweep advances monotonically, so a killed run is resumed by re-invocation
// rather than by checkpointing.
type Runner struct {
	cfg     Config
	fetcher Fetcher
	storage Storage
	zones   []model.Zone
	logger  *slog.Logger
	limiter *rate.Limiter
}

// NewRunner creates a Runner.
func NewRunner(cfg Config, fetcher Fetcher, storage Storage, zones []model.Zone, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ZoneConcurrency < 1 {
		cfg.ZoneConcurrency = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	var limiter *rate.Limiter
	if cfg.Pace > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Pace), 1)
	}

	return &Runner{
		cfg:     cfg,
		fetcher: fetcher,
		storage: storage,
		zones:   zones,
		logger:  logger,
		limiter: limiter,
	}
}

// Run executes the sweep. Zone failures are isolated: one zone's error never
// aborts the others, and only context cancellation stops the run early.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	runID := uuid.New()
	logger := r.logger.With("run_id", runID)
	start := time.Now()

	logger.Info("starting synchronization run",
		"mode", r.cfg.Mode,
		"from", r.cfg.From.Format(time.RFC3339),
		"zones", len(r.zones),
		"zone_concurrency", r.cfg.ZoneConcurrency,
	)

	report := &RunReport{
		RunID: runID,
		Zones: make([]ZoneReport, len(r.zones)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.ZoneConcurrency)

	var mu sync.Mutex
	for i, zone := range r.zones {
		i, zone := i, zone
		g.Go(func() error {
			zr := r.syncZone(gctx, zone, logger.With("zone", zone.Code))
			mu.Lock()
			report.Zones[i] = zr
			mu.Unlock()

			if zr.Err != nil {
				metrics.ZoneFailures.Inc()
				// Stop the whole group only on cancellation.
				if gctx.Err() != nil {
					return gctx.Err()
				}
			}
			return nil
		})
	}

	err := g.Wait()
	report.Duration = time.Since(start)

	logger.Info("synchronization run finished",
		"duration", report.Duration,
		"records_written", report.Written(),
		"zones_failed", len(report.Failed()),
	)

	if err != nil {
		return report, err
	}
	return report, nil
}

// syncZone sweeps one zone through all windows.
func (r *Runner) syncZone(ctx context.Context, zone model.Zone, logger *slog.Logger) ZoneReport {
	zr := ZoneReport{Zone: zone.Code}
	logger.Info("processing zone", "eic", zone.EIC)

	var idx coverage.Index
	if r.cfg.Mode == ModePoints {
		var err error
		idx, err = r.storage.PointCoverage(ctx, zone.Code)
		if err != nil {
			logger.Error("coverage query failed", "err", err)
			zr.Err = err
			return zr
		}
		logger.Debug("coverage index built", "keys", idx.Len())
	}

	step := window.StepMonthly
	if r.cfg.Mode == ModeDays {
		step = window.StepDaily
	}

	it := window.NewPlanner(step).Windows(r.cfg.From, r.cfg.Now())
	for {
		win, ok := it.Next()
		if !ok {
			break
		}
		if err := r.pace(ctx); err != nil {
			zr.Err = err
			return zr
		}

		written, err := r.syncWindow(ctx, zone, win, idx, logger)
		if err != nil {
			if ctx.Err() != nil {
				zr.Err = ctx.Err()
				return zr
			}
			// Window-level persistence failure: the next run's sweep
			// revisits this range, so log and move on.
			logger.Error("window write failed",
				"period_start", win.PeriodStart(),
				"period_end", win.PeriodEnd(),
				"err", err,
			)
			metrics.UpsertErrors.Inc()
		}

		zr.Windows++
		zr.Written += written
		metrics.WindowsProcessed.WithLabelValues(string(r.cfg.Mode)).Inc()
	}

	logger.Info("zone complete", "windows", zr.Windows, "records_written", zr.Written)
	return zr
}

// syncWindow fetches, merges, and persists one window.
func (r *Runner) syncWindow(ctx context.Context, zone model.Zone, win window.Window, idx coverage.Index, logger *slog.Logger) (int, error) {
	logger.Debug("fetching window",
		"period_start", win.PeriodStart(),
		"period_end", win.PeriodEnd(),
	)

	generation := r.fetchGeneration(ctx, zone, win, logger)
	prices := r.fetchPrices(ctx, zone, win, logger)

	switch r.cfg.Mode {
	case ModeDays:
		rec := merge.Day(zone.Code, win.DateKey(), r.fetcher.GenerationLabel(), generation, prices, merge.DayOptions{
			SummaryLabels: r.cfg.SummaryLabels,
		})
		if rec == nil {
			logger.Info("no new data", "day", win.DateKey())
			return 0, nil
		}
		stats, err := r.storage.UpsertDays(ctx, []*model.DayRecord{rec})
		if err != nil {
			return 0, err
		}
		logger.Info("stored day", "day", win.DateKey(), "inserted", stats.Inserted, "merged", stats.Merged)
		metrics.RecordsWritten.WithLabelValues(string(ModeDays)).Add(float64(stats.Total()))
		return stats.Total(), nil

	default:
		byKey := merge.Points(zone.Code, r.fetcher.GenerationLabel(), generation, prices, idx)
		if len(byKey) == 0 {
			logger.Info("no new data",
				"period_start", win.PeriodStart(),
				"period_end", win.PeriodEnd(),
			)
			return 0, nil
		}
		records := make([]*model.PointRecord, 0, len(byKey))
		for _, rec := range byKey {
			records = append(records, rec)
		}
		stats, err := r.storage.UpsertPoints(ctx, records)
		if err != nil {
			return 0, err
		}
		logger.Info("stored records",
			"period_start", win.PeriodStart(),
			"count", stats.Total(),
			"inserted", stats.Inserted,
			"merged", stats.Merged,
		)
		metrics.RecordsWritten.WithLabelValues(string(ModePoints)).Add(float64(stats.Total()))
		return stats.Total(), nil
	}
}

// fetchGeneration fetches one window's generation data. A failed fetch is
// an empty window for that source, never fatal to the zone.
func (r *Runner) fetchGeneration(ctx context.Context, zone model.Zone, win window.Window, logger *slog.Logger) []model.TimePoint {
	start := time.Now()
	points, err := r.fetcher.FetchGeneration(ctx, zone.EIC, win)
	metrics.FetchLatency.WithLabelValues("generation").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.FetchRequests.WithLabelValues("generation", "error").Inc()
		logger.Warn("generation fetch failed", "period_start", win.PeriodStart(), "err", err)
		return nil
	}
	metrics.FetchRequests.WithLabelValues("generation", "ok").Inc()
	metrics.PointsDecoded.WithLabelValues("generation").Add(float64(len(points)))
	return points
}

// fetchPrices fetches one window's price data, with the same isolation.
func (r *Runner) fetchPrices(ctx context.Context, zone model.Zone, win window.Window, logger *slog.Logger) []model.PriceSeries {
	start := time.Now()
	series, err := r.fetcher.FetchPrices(ctx, zone.EIC, win)
	metrics.FetchLatency.WithLabelValues("price").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.FetchRequests.WithLabelValues("price", "error").Inc()
		logger.Warn("price fetch failed", "period_start", win.PeriodStart(), "err", err)
		return nil
	}
	metrics.FetchRequests.WithLabelValues("price", "ok").Inc()
	for _, s := range series {
		metrics.PointsDecoded.WithLabelValues("price").Add(float64(len(s.Points)))
	}
	return series
}

// pace enforces the inter-window spacing. The limiter is shared across
// zones, so concurrent sweeps still respect the global upstream budget.
func (r *Runner) pace(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}
