package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seismoscope/quake-feed-service/internal/domain"
	"github.com/seismoscope/quake-feed-service/internal/observability"
	"github.com/seismoscope/quake-feed-service/internal/pipeline"
)

// --- mocks ---

type mockFetcher struct {
	mu      sync.Mutex
	batches [][]domain.RawFeature
	errs    []error
	calls   int
}

func (m *mockFetcher) Fetch(_ context.Context, _ domain.TimeWindow) ([]domain.RawFeature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.batches) {
		return m.batches[i], nil
	}
	if len(m.batches) > 0 {
		return m.batches[len(m.batches)-1], nil
	}
	return nil, nil
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockPublisher struct {
	mu      sync.Mutex
	batches [][]domain.EventRecord
	err     error
}

func (m *mockPublisher) PublishBatch(_ context.Context, events []domain.EventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	batch := make([]domain.EventRecord, len(events))
	copy(batch, events)
	m.batches = append(m.batches, batch)
	return nil
}

func (m *mockPublisher) publishedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, batch := range m.batches {
		for _, event := range batch {
			ids = append(ids, event.ID)
		}
	}
	return ids
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func rawFeature(id string, mag float64, millis int64) domain.RawFeature {
	return domain.RawFeature{
		ID: id,
		Properties: domain.RawProperties{
			Mag:  f64(mag),
			Time: i64(millis),
		},
		Geometry: domain.RawGeometry{Coordinates: []float64{-118.55, 34.21, 9.8}},
	}
}

func newRefresher(f pipeline.Fetcher, pub pipeline.Publisher, store *pipeline.Store,
	clock clockwork.Clock, interval time.Duration) *pipeline.Refresher {
	return pipeline.New(f, nil, pub, store, discardLogger(),
		observability.NewMetricsForTesting(), clock, interval, 24*time.Hour)
}

// --- tests ---

func TestRefresher_InitialPassFillsStore(t *testing.T) {
	fetcher := &mockFetcher{batches: [][]domain.RawFeature{{
		rawFeature("evt-1", 5.2, 1704067200000),
		rawFeature("evt-2", 2.1, 1704070800000),
	}}}
	store := pipeline.NewStore()
	r := newRefresher(fetcher, nil, store, clockwork.NewFakeClock(), 0)

	require.Error(t, r.CheckReadiness(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := store.Latest()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)

	snap, ok := store.Latest()
	require.True(t, ok)
	assert.Len(t, snap.Records, 2)
	assert.Equal(t, "evt-1", snap.Records[0].ID)
	assert.Zero(t, snap.Dropped)
	assert.NoError(t, r.CheckReadiness(context.Background()))
}

func TestRefresher_MalformedFeaturesDropped(t *testing.T) {
	missingMag := rawFeature("evt-bad", 0, 1704067200000)
	missingMag.Properties.Mag = nil

	fetcher := &mockFetcher{batches: [][]domain.RawFeature{{
		rawFeature("evt-1", 5.2, 1704067200000),
		missingMag,
	}}}
	store := pipeline.NewStore()
	r := newRefresher(fetcher, nil, store, clockwork.NewFakeClock(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := store.Latest()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)

	snap, _ := store.Latest()
	assert.Len(t, snap.Records, 1)
	assert.Equal(t, 1, snap.Dropped)
}

func TestRefresher_FetchErrorKeepsPriorSnapshot(t *testing.T) {
	fetcher := &mockFetcher{
		batches: [][]domain.RawFeature{
			{rawFeature("evt-1", 5.2, 1704067200000)},
		},
		errs: []error{
			nil,
			&domain.FetchError{Reason: domain.FetchTimeout, Err: errors.New("deadline exceeded")},
		},
	}
	store := pipeline.NewStore()
	clock := clockwork.NewFakeClock()
	r := newRefresher(fetcher, nil, store, clock, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := store.Latest()
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	first, _ := store.Latest()

	// Trigger a second pass; the fetch fails with a timeout.
	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		return fetcher.callCount() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)

	snap, ok := store.Latest()
	require.True(t, ok)
	assert.Equal(t, first.FetchedAt, snap.FetchedAt, "failed fetch must not replace the snapshot")
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "evt-1", snap.Records[0].ID)
}

func TestRefresher_PublishesEachEventOnce(t *testing.T) {
	fetcher := &mockFetcher{batches: [][]domain.RawFeature{
		{rawFeature("evt-1", 5.2, 1704067200000)},
		{rawFeature("evt-1", 5.2, 1704067200000), rawFeature("evt-2", 3.3, 1704070800000)},
	}}
	pub := &mockPublisher{}
	store := pipeline.NewStore()
	clock := clockwork.NewFakeClock()
	r := newRefresher(fetcher, pub, store, clock, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := store.Latest()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		return fetcher.callCount() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	// Third pass repeats the second batch: nothing new to publish.
	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		return fetcher.callCount() >= 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)

	assert.Equal(t, []string{"evt-1", "evt-2"}, pub.publishedIDs())
}

func TestStore_LatestBeforeFirstReplace(t *testing.T) {
	store := pipeline.NewStore()

	_, ok := store.Latest()
	assert.False(t, ok)

	store.Replace(pipeline.Snapshot{FetchedAt: time.Now()})
	_, ok = store.Latest()
	assert.True(t, ok)
}
