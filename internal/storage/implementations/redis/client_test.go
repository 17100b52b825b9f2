package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

func newTestStore(t *testing.T, config *RedisConfig) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	config.Addr = mr.Addr()

	store, err := NewRedisStore(config, logrus.New())
	require.NoError(t, err)
	require.NoError(t, store.Connect(context.Background()))
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func testReport(runID string, created time.Time) *models.Report {
	return &models.Report{
		RunID:     runID,
		CreatedAt: created,
		Source:    "synthetic",
		Horizon:   13,
		Metric:    "mape",
		Ranking: &models.Ranking{
			Metric: "mape",
			Rows:   []models.RankRow{{Rank: 1, Forecaster: "naive", Value: 1.25}},
			Best:   "naive",
		},
	}
}

func TestNewRedisStoreInvalidConfig(t *testing.T) {
	_, err := NewRedisStore(nil, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")

	_, err = NewRedisStore(&RedisConfig{}, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address or cluster addresses are required")
}

func TestNewRedisStoreDefaults(t *testing.T) {
	store, err := NewRedisStore(&RedisConfig{Addr: "localhost:6379"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "redis", store.GetType())
	assert.Equal(t, 24*time.Hour, store.config.TTL)
	assert.Equal(t, "tsforecast:report:abc", store.reportKey("abc"))
	assert.Equal(t, "tsforecast:plot:abc", store.plotKey("abc"))
	assert.Equal(t, "tsforecast:runs", store.indexKey())
}

func TestSaveAndGetReport(t *testing.T) {
	store, mr := newTestStore(t, &RedisConfig{TTL: time.Hour, KeyPrefix: "test"})
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveReport(ctx, testReport("run-1", created), []byte("png-bytes")))

	report, err := store.GetReport(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 13, report.Horizon)
	assert.Equal(t, "naive", report.Ranking.Best)

	plot, err := store.GetPlot(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), plot)

	assert.Equal(t, time.Hour, mr.TTL("test:report:run-1"))
	assert.Equal(t, time.Hour, mr.TTL("test:plot:run-1"))
}

func TestGetReportExpired(t *testing.T) {
	store, mr := newTestStore(t, &RedisConfig{TTL: time.Minute})
	ctx := context.Background()

	require.NoError(t, store.SaveReport(ctx, testReport("run-1", time.Now()), nil))
	mr.FastForward(2 * time.Minute)

	_, err := store.GetReport(ctx, "run-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataNotFound))

	_, err = store.GetPlot(ctx, "run-1")
	assert.True(t, errors.Is(err, errors.ErrDataNotFound))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestListRunsNewestFirst(t *testing.T) {
	store, _ := newTestStore(t, &RedisConfig{})
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveReport(ctx, testReport("old", base), nil))
	require.NoError(t, store.SaveReport(ctx, testReport("new", base.Add(time.Hour)), nil))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].RunID)
	assert.Equal(t, "old", runs[1].RunID)
	assert.Equal(t, base, runs[1].CreatedAt)
}

func TestSaveReportPublishesEvent(t *testing.T) {
	store, mr := newTestStore(t, &RedisConfig{UseStreams: true})
	ctx := context.Background()

	require.NoError(t, store.SaveReport(ctx, testReport("run-1", time.Now()), nil))

	entries, err := mr.Stream("tsforecast:events")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Values, "run-1")
	assert.Contains(t, entries[0].Values, "naive")
}

func TestSaveReportRequiresRunID(t *testing.T) {
	store, _ := newTestStore(t, &RedisConfig{})

	err := store.SaveReport(context.Background(), &models.Report{}, nil)
	require.Error(t, err)
}

func TestNotConnected(t *testing.T) {
	store, err := NewRedisStore(&RedisConfig{Addr: "localhost:6379"}, logrus.New())
	require.NoError(t, err)

	assert.Error(t, store.Ping(context.Background()))
	_, err = store.GetReport(context.Background(), "x")
	assert.Error(t, err)
	assert.NoError(t, store.Close())
}
