package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// RedisConfig holds configuration for the Redis report store
type RedisConfig struct {
	Addr          string        `json:"addr" mapstructure:"addr"`
	Password      string        `json:"password" mapstructure:"password"`
	DB            int           `json:"db" mapstructure:"db"`
	DialTimeout   time.Duration `json:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout   time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	PoolSize      int           `json:"pool_size" mapstructure:"pool_size"`
	MaxRetries    int           `json:"max_retries" mapstructure:"max_retries"`
	TTL           time.Duration `json:"ttl" mapstructure:"ttl"`
	KeyPrefix     string        `json:"key_prefix" mapstructure:"key_prefix"`
	UseStreams    bool          `json:"use_streams" mapstructure:"use_streams"`
	StreamMaxLen  int64         `json:"stream_max_len" mapstructure:"stream_max_len"`
	UseClustering bool          `json:"use_clustering" mapstructure:"use_clustering"`
	ClusterAddrs  []string      `json:"cluster_addrs" mapstructure:"cluster_addrs"`
}

// RedisStore keeps comparison reports and their plots with a TTL. Saved runs
// are indexed by creation time and optionally announced on a stream.
type RedisStore struct {
	config *RedisConfig
	client redis.UniversalClient
	logger *logrus.Logger
	mu     sync.RWMutex
	closed bool
}

// RunSummary is the index entry of a stored run
type RunSummary struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRedisStore creates a new Redis report store
func NewRedisStore(config *RedisConfig, logger *logrus.Logger) (*RedisStore, error) {
	if config == nil {
		return nil, errors.NewStorageError("INVALID_CONFIG", "Redis config cannot be nil")
	}

	if config.Addr == "" && len(config.ClusterAddrs) == 0 {
		return nil, errors.NewStorageError("INVALID_CONFIG", "Redis address or cluster addresses are required")
	}

	if logger == nil {
		logger = logrus.New()
	}

	if config.TTL == 0 {
		config.TTL = constants.DefaultReportTTL
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = constants.DefaultRedisPrefix
	}
	if config.StreamMaxLen == 0 {
		config.StreamMaxLen = 1000
	}

	return &RedisStore{
		config: config,
		logger: logger,
	}, nil
}

// GetType returns the sink type
func (r *RedisStore) GetType() string {
	return "redis"
}

// Connect establishes connection to Redis
func (r *RedisStore) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return nil
	}

	var client redis.UniversalClient
	if r.config.UseClustering && len(r.config.ClusterAddrs) > 0 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        r.config.ClusterAddrs,
			Password:     r.config.Password,
			DialTimeout:  r.config.DialTimeout,
			ReadTimeout:  r.config.ReadTimeout,
			WriteTimeout: r.config.WriteTimeout,
			PoolSize:     r.config.PoolSize,
			MaxRetries:   r.config.MaxRetries,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:         r.config.Addr,
			Password:     r.config.Password,
			DB:           r.config.DB,
			DialTimeout:  r.config.DialTimeout,
			ReadTimeout:  r.config.ReadTimeout,
			WriteTimeout: r.config.WriteTimeout,
			PoolSize:     r.config.PoolSize,
			MaxRetries:   r.config.MaxRetries,
		})
	}

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return errors.NewSinkError("redis", r.config.Addr, "connect", err)
	}

	r.client = client
	r.closed = false

	r.logger.WithFields(logrus.Fields{
		"addr":       r.config.Addr,
		"db":         r.config.DB,
		"clustering": r.config.UseClustering,
	}).Debug("Connected to Redis")

	return nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.client == nil {
		return nil
	}

	err := r.client.Close()
	r.client = nil
	r.closed = true
	if err != nil {
		return errors.NewSinkError("redis", r.config.Addr, "close", err)
	}
	return nil
}

// Ping tests the Redis connection
func (r *RedisStore) Ping(ctx context.Context) error {
	client, err := r.getClient()
	if err != nil {
		return err
	}
	if _, err := client.Ping(ctx).Result(); err != nil {
		return errors.NewSinkError("redis", r.config.Addr, "ping", err)
	}
	return nil
}

// SaveReport writes the report JSON and plot under the run ID and indexes the run
func (r *RedisStore) SaveReport(ctx context.Context, report *models.Report, plot []byte) error {
	if report == nil || report.RunID == "" {
		return errors.NewInputError(errors.CodeInvalidRequest, "report with a run ID is required")
	}

	client, err := r.getClient()
	if err != nil {
		return err
	}

	data, err := json.Marshal(report)
	if err != nil {
		return errors.NewSinkError("redis", report.RunID, "encode", err)
	}

	pipe := client.TxPipeline()
	pipe.Set(ctx, r.reportKey(report.RunID), data, r.config.TTL)
	if len(plot) > 0 {
		pipe.Set(ctx, r.plotKey(report.RunID), plot, r.config.TTL)
	}
	pipe.ZAdd(ctx, r.indexKey(), &redis.Z{
		Score:  float64(report.CreatedAt.Unix()),
		Member: report.RunID,
	})
	if r.config.UseStreams {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: r.streamKey(),
			MaxLen: r.config.StreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{
				"run_id":  report.RunID,
				"best":    bestOf(report),
				"metric":  report.Metric,
				"horizon": report.Horizon,
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.NewSinkError("redis", report.RunID, "save", err)
	}

	r.logger.WithFields(logrus.Fields{
		"run_id":     report.RunID,
		"bytes":      len(data),
		"plot_bytes": len(plot),
		"ttl":        r.config.TTL,
	}).Debug("Saved report to Redis")

	return nil
}

// GetReport returns the report stored under runID
func (r *RedisStore) GetReport(ctx context.Context, runID string) (*models.Report, error) {
	client, err := r.getClient()
	if err != nil {
		return nil, err
	}

	data, err := client.Get(ctx, r.reportKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, errors.NewDataNotFoundError("redis", runID)
	}
	if err != nil {
		return nil, errors.NewSourceError("redis", runID, "get", err)
	}

	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.NewSourceError("redis", runID, "decode", err)
	}
	return &report, nil
}

// GetPlot returns the PNG stored under runID
func (r *RedisStore) GetPlot(ctx context.Context, runID string) ([]byte, error) {
	client, err := r.getClient()
	if err != nil {
		return nil, err
	}

	data, err := client.Get(ctx, r.plotKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, errors.NewDataNotFoundError("redis", runID)
	}
	if err != nil {
		return nil, errors.NewSourceError("redis", runID, "get", err)
	}
	return data, nil
}

// ListRuns returns up to limit stored runs, newest first. Expired reports are
// pruned from the index as they are found.
func (r *RedisStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	client, err := r.getClient()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	entries, err := client.ZRevRangeWithScores(ctx, r.indexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, errors.NewSourceError("redis", r.indexKey(), "list", err)
	}

	runs := make([]RunSummary, 0, len(entries))
	for _, z := range entries {
		runID, _ := z.Member.(string)
		exists, err := client.Exists(ctx, r.reportKey(runID)).Result()
		if err != nil {
			return nil, errors.NewSourceError("redis", runID, "exists", err)
		}
		if exists == 0 {
			client.ZRem(ctx, r.indexKey(), runID)
			continue
		}
		runs = append(runs, RunSummary{
			RunID:     runID,
			CreatedAt: time.Unix(int64(z.Score), 0).UTC(),
		})
	}
	return runs, nil
}

func (r *RedisStore) getClient() (redis.UniversalClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed || r.client == nil {
		return nil, errors.NewStorageError("NOT_CONNECTED", "Redis not connected")
	}
	return r.client, nil
}

func (r *RedisStore) reportKey(runID string) string {
	return fmt.Sprintf("%s:report:%s", r.config.KeyPrefix, runID)
}

func (r *RedisStore) plotKey(runID string) string {
	return fmt.Sprintf("%s:plot:%s", r.config.KeyPrefix, runID)
}

func (r *RedisStore) indexKey() string {
	return r.config.KeyPrefix + ":runs"
}

func (r *RedisStore) streamKey() string {
	return r.config.KeyPrefix + ":events"
}

func bestOf(report *models.Report) string {
	if report.Ranking.HasBest() {
		return report.Ranking.Best
	}
	return ""
}
