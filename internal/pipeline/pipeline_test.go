package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/pm25-forecast-service/internal/domain"
	"github.com/couchcryptid/pm25-forecast-service/internal/observability"
	"github.com/couchcryptid/pm25-forecast-service/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	failKeys map[string]bool
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.ForecastResult, error) {
	if m.failKeys[string(raw.Key)] {
		return domain.ForecastResult{}, errors.New("bad request")
	}
	return domain.ForecastResult{ID: string(raw.Key)}, nil
}

type mockLoader struct {
	loaded []domain.ForecastResult
	calls  int
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, results []domain.ForecastResult) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, results...)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func request(key string, committed *[]string) domain.RawEvent {
	return domain.RawEvent{
		Key:   []byte(key),
		Value: []byte(`{"city":"` + key + `"}`),
		Topic: "forecast-requests",
		Commit: func(_ context.Context) error {
			*committed = append(*committed, key)
			return nil
		},
	}
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var committed []string
	ext := &mockExtractor{batches: [][]domain.RawEvent{
		{request("beijing", &committed), request("delhi", &committed)},
	}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)
	require.Error(t, p.CheckReadiness(context.Background()))

	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 2)
	assert.Equal(t, "beijing", ldr.loaded[0].ID)
	assert.Equal(t, "delhi", ldr.loaded[1].ID)
	assert.Equal(t, 1, ldr.calls, "one LoadBatch per batch")
	assert.Equal(t, []string{"beijing", "delhi"}, committed)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches, will block
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_TransformErrorSkipsAndCommits(t *testing.T) {
	var committed []string
	ext := &mockExtractor{batches: [][]domain.RawEvent{
		{request("atlantis", &committed), request("lahore", &committed)},
	}}
	tfm := &mockTransformer{failKeys: map[string]bool{"atlantis": true}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, "lahore", ldr.loaded[0].ID)
	assert.ElementsMatch(t, []string{"atlantis", "lahore"}, committed)
}

func TestPipeline_Run_AllTransformsFail(t *testing.T) {
	var committed []string
	ext := &mockExtractor{batches: [][]domain.RawEvent{{request("atlantis", &committed)}}}
	tfm := &mockTransformer{failKeys: map[string]bool{"atlantis": true}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Zero(t, ldr.calls)
	assert.Equal(t, []string{"atlantis"}, committed)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var committed []string
	ext := &mockExtractor{batches: [][]domain.RawEvent{{request("beijing", &committed)}}}
	ldr := &mockLoader{err: errors.New("broker unavailable")}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, 1, ldr.calls)
	assert.Empty(t, committed)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{err: errors.New("connection refused")}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	start := time.Now()
	runFor(t, p, 500*time.Millisecond)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, ldr.loaded)
}

func TestLoaders_FanOut(t *testing.T) {
	a, b := &mockLoader{}, &mockLoader{}
	results := []domain.ForecastResult{{ID: "pm25-1"}}

	require.NoError(t, pipeline.Loaders{a, b}.LoadBatch(context.Background(), results))
	assert.Equal(t, results, a.loaded)
	assert.Equal(t, results, b.loaded)

	failing := &mockLoader{err: errors.New("redis down")}
	c := &mockLoader{}
	err := pipeline.Loaders{failing, c}.LoadBatch(context.Background(), results)
	require.EqualError(t, err, "redis down")
	assert.Zero(t, c.calls)
}
