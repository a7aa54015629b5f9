package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/seismoscope/quake-feed-service/internal/domain"
	"github.com/seismoscope/quake-feed-service/internal/observability"
)

// Fetcher retrieves raw features for a time window from the feed.
type Fetcher interface {
	Fetch(ctx context.Context, window domain.TimeWindow) ([]domain.RawFeature, error)
}

// Publisher delivers newly normalized events to an external sink.
type Publisher interface {
	PublishBatch(ctx context.Context, events []domain.EventRecord) error
}

// Refresher drives the fetch→normalize pipeline: one synchronous pass at
// startup, then one per tick. Passes never overlap; each either replaces the
// snapshot or leaves the previous one in place.
type Refresher struct {
	fetcher   Fetcher
	geocoder  domain.Geocoder // optional
	publisher Publisher       // optional
	store     *Store
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	interval  time.Duration // <= 0 disables periodic refresh after the initial pass
	lookback  time.Duration
	ready     atomic.Bool

	// published tracks event IDs already sent to the sink so each event is
	// published once. IDs that age out of the feed window are forgotten.
	published map[string]struct{}
}

// New creates a Refresher. Pass a nil geocoder to skip place enrichment and
// a nil publisher to skip fan-out.
func New(f Fetcher, geocoder domain.Geocoder, publisher Publisher, store *Store,
	logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock,
	interval, lookback time.Duration) *Refresher {
	return &Refresher{
		fetcher:   f,
		geocoder:  geocoder,
		publisher: publisher,
		store:     store,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
		interval:  interval,
		lookback:  lookback,
		published: make(map[string]struct{}),
	}
}

// CheckReadiness returns nil once at least one fetch has succeeded.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no feed snapshot available yet")
	}
	return nil
}

// Run executes the refresh loop until the context is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("refresher started", "interval", r.interval, "lookback", r.lookback)
	r.metrics.RefresherRunning.Set(1)
	defer r.metrics.RefresherRunning.Set(0)

	r.refreshOnce(ctx)

	if r.interval <= 0 {
		r.logger.Info("periodic refresh disabled, serving initial snapshot")
		<-ctx.Done()
		return nil
	}

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			r.refreshOnce(ctx)
		}
	}
}

// refreshOnce runs a single synchronous fetch→normalize pass. A fetch error
// is logged and counted; the prior snapshot stays in place until the next
// tick retries.
func (r *Refresher) refreshOnce(ctx context.Context) {
	now := r.clock.Now().UTC()
	window := domain.TimeWindow{Start: now.Add(-r.lookback), End: now}

	start := time.Now()
	raw, err := r.fetcher.Fetch(ctx, window)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.metrics.FetchesTotal.WithLabelValues(fetchOutcome(err)).Inc()
		r.logger.Error("feed fetch failed, keeping previous snapshot",
			"error", err,
			"window_start", window.Start,
			"window_end", window.End,
		)
		return
	}
	r.metrics.FetchesTotal.WithLabelValues("success").Inc()
	r.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	r.metrics.RecordsFetched.Observe(float64(len(raw)))

	records, drops := domain.Normalize(raw)
	for field, n := range drops.ByField {
		r.metrics.RecordsDropped.WithLabelValues(field).Add(float64(n))
	}
	if drops.Total() > 0 {
		r.logger.Warn("dropped malformed features", "dropped", drops.Total(), "kept", len(records))
	}

	if r.geocoder != nil {
		for i := range records {
			records[i] = domain.EnrichWithPlace(ctx, records[i], r.geocoder, r.logger)
		}
	}

	r.store.Replace(Snapshot{
		Records:   records,
		Window:    window,
		FetchedAt: now,
		Dropped:   drops.Total(),
	})
	r.metrics.SnapshotSize.Set(float64(len(records)))
	r.ready.Store(true)

	r.logger.Info("snapshot refreshed", "records", len(records), "dropped", drops.Total())

	r.publishNew(ctx, records)
}

// publishNew sends events not yet seen by the sink, then prunes the
// published set down to IDs still present in the current window.
func (r *Refresher) publishNew(ctx context.Context, records []domain.EventRecord) {
	if r.publisher == nil {
		return
	}

	fresh := make([]domain.EventRecord, 0, len(records))
	for _, event := range records {
		if _, ok := r.published[event.ID]; !ok {
			fresh = append(fresh, event)
		}
	}

	if len(fresh) > 0 {
		if err := r.publisher.PublishBatch(ctx, fresh); err != nil {
			// Unpublished events stay unmarked and are retried next pass.
			r.logger.Warn("publish batch failed", "error", err, "batch_size", len(fresh))
			return
		}
		r.metrics.EventsPublished.Add(float64(len(fresh)))
	}

	next := make(map[string]struct{}, len(records))
	for _, event := range records {
		if _, ok := r.published[event.ID]; ok {
			next[event.ID] = struct{}{}
		}
	}
	for _, event := range fresh {
		next[event.ID] = struct{}{}
	}
	r.published = next
}

func fetchOutcome(err error) string {
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		return string(fetchErr.Reason)
	}
	return "error"
}
