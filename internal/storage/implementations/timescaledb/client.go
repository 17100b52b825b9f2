package timescaledb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/storage/implementations/file"
	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// TimescaleDBConfig holds configuration for the TimescaleDB source
type TimescaleDBConfig struct {
	Host           string        `json:"host" mapstructure:"host"`
	Port           int           `json:"port" mapstructure:"port"`
	Database       string        `json:"database" mapstructure:"database"`
	Username       string        `json:"username" mapstructure:"username"`
	Password       string        `json:"password" mapstructure:"password"`
	SSLMode        string        `json:"ssl_mode" mapstructure:"ssl_mode"`
	ConnectTimeout time.Duration `json:"connect_timeout" mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration `json:"query_timeout" mapstructure:"query_timeout"`
	MaxConnections int           `json:"max_connections" mapstructure:"max_connections"`
}

// TimescaleDBSource reads a hypertable or plain table into a frame. Locations
// look like schema.table?time=ts&columns=a,b&since=2020-01-01.
type TimescaleDBSource struct {
	config *TimescaleDBConfig
	db     *sql.DB
	logger *logrus.Logger
	mu     sync.RWMutex
	closed bool
}

// TableQuery identifies what to read
type TableQuery struct {
	Table      string
	TimeColumn string
	Columns    []string
	Since      *time.Time
}

// NewTimescaleDBSource creates a new TimescaleDB source instance
func NewTimescaleDBSource(config *TimescaleDBConfig, logger *logrus.Logger) (*TimescaleDBSource, error) {
	if config == nil {
		return nil, errors.NewStorageError("INVALID_CONFIG", "TimescaleDB config cannot be nil")
	}

	if logger == nil {
		logger = logrus.New()
	}

	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 5432
	}
	if config.SSLMode == "" {
		config.SSLMode = "prefer"
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = constants.DefaultStorageTimeout
	}
	if config.QueryTimeout == 0 {
		config.QueryTimeout = constants.DefaultStorageTimeout
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = 2
	}

	return &TimescaleDBSource{
		config: config,
		logger: logger,
	}, nil
}

// NewTimescaleDBSourceWithDB wraps an already opened database handle
func NewTimescaleDBSourceWithDB(db *sql.DB, config *TimescaleDBConfig, logger *logrus.Logger) (*TimescaleDBSource, error) {
	source, err := NewTimescaleDBSource(config, logger)
	if err != nil {
		return nil, err
	}
	source.db = db
	return source, nil
}

// GetType returns the source scheme
func (ts *TimescaleDBSource) GetType() string {
	return constants.SchemeTimescaleDB
}

// ConnectionString renders the lib/pq keyword/value connection string
func (ts *TimescaleDBSource) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		ts.config.Host,
		ts.config.Port,
		ts.config.Username,
		ts.config.Password,
		ts.config.Database,
		ts.config.SSLMode,
		int(ts.config.ConnectTimeout.Seconds()),
	)
}

// Connect establishes connection to TimescaleDB
func (ts *TimescaleDBSource) Connect(ctx context.Context) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", ts.ConnectionString())
	if err != nil {
		return errors.NewSourceError("timescaledb", ts.config.Database, "connect", err)
	}
	db.SetMaxOpenConns(ts.config.MaxConnections)

	pingCtx, cancel := context.WithTimeout(ctx, ts.config.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return errors.NewSourceError("timescaledb", ts.config.Database, "connect", err)
	}

	ts.db = db
	ts.closed = false

	ts.logger.WithFields(logrus.Fields{
		"host":     ts.config.Host,
		"port":     ts.config.Port,
		"database": ts.config.Database,
	}).Debug("Connected to TimescaleDB")

	return nil
}

// Close closes the database connection
func (ts *TimescaleDBSource) Close() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.closed || ts.db == nil {
		return nil
	}

	err := ts.db.Close()
	ts.db = nil
	ts.closed = true
	if err != nil {
		return errors.NewSourceError("timescaledb", ts.config.Database, "close", err)
	}
	return nil
}

// Ping tests the database connection
func (ts *TimescaleDBSource) Ping(ctx context.Context) error {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	if ts.db == nil {
		return errors.NewStorageError("NOT_CONNECTED", "Database not connected")
	}

	ctx, cancel := context.WithTimeout(ctx, ts.config.QueryTimeout)
	defer cancel()

	if err := ts.db.PingContext(ctx); err != nil {
		return errors.NewSourceError("timescaledb", ts.config.Database, "ping", err)
	}
	return nil
}

// Load selects the time column and value columns ordered by time
func (ts *TimescaleDBSource) Load(ctx context.Context, location string) (*models.Frame, error) {
	ts.mu.RLock()
	db := ts.db
	ts.mu.RUnlock()

	if db == nil {
		return nil, errors.NewStorageError("NOT_CONNECTED", "Database not connected")
	}

	q, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	query, args := BuildQuery(q)
	ts.logger.WithFields(logrus.Fields{
		"query": query,
	}).Debug("Executing TimescaleDB query")

	ctx, cancel := context.WithTimeout(ctx, ts.config.QueryTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewSourceError("timescaledb", q.Table, "query", err)
	}
	defer rows.Close()

	frame, err := scanFrame(q, rows)
	if err != nil {
		return nil, err
	}
	if frame.Len() == 0 {
		return nil, errors.NewDataNotFoundError("timescaledb", q.Table)
	}
	return frame, nil
}

// ParseLocation reads table[?time=col&columns=a,b&since=date]
func ParseLocation(location string) (*TableQuery, error) {
	path, rawQuery, _ := strings.Cut(strings.TrimPrefix(location, "/"), "?")
	if path == "" {
		return nil, errors.NewInputError(errors.CodeInvalidSource, "TimescaleDB location must name a table")
	}

	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, errors.NewInputError(errors.CodeInvalidSource, fmt.Sprintf("invalid TimescaleDB parameters: %v", err))
	}

	q := &TableQuery{
		Table:      path,
		TimeColumn: params.Get("time"),
	}
	if cols := params.Get("columns"); cols != "" {
		for _, c := range strings.Split(cols, ",") {
			if c = strings.TrimSpace(c); c != "" {
				q.Columns = append(q.Columns, c)
			}
		}
	}
	if since := params.Get("since"); since != "" {
		t, err := file.ParseTimestamp(since)
		if err != nil {
			return nil, errors.NewInputError(errors.CodeInvalidSource, fmt.Sprintf("invalid since: %v", err))
		}
		q.Since = &t
	}
	if len(q.Columns) > 0 && q.TimeColumn == "" {
		q.TimeColumn = "time"
	}

	return q, nil
}

// BuildQuery renders the SELECT for q with quoted identifiers
func BuildQuery(q *TableQuery) (string, []interface{}) {
	parts := strings.Split(q.Table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	table := strings.Join(parts, ".")

	selectList := "*"
	if len(q.Columns) > 0 {
		cols := make([]string, 0, len(q.Columns)+1)
		cols = append(cols, pq.QuoteIdentifier(q.TimeColumn))
		for _, c := range q.Columns {
			cols = append(cols, pq.QuoteIdentifier(c))
		}
		selectList = strings.Join(cols, ", ")
	}

	orderBy := "1"
	if q.TimeColumn != "" {
		orderBy = pq.QuoteIdentifier(q.TimeColumn)
	}

	var args []interface{}
	where := ""
	if q.Since != nil {
		where = fmt.Sprintf(" WHERE %s >= $1", orderBy)
		args = append(args, *q.Since)
	}

	return fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", selectList, table, where, orderBy), args
}

func scanFrame(q *TableQuery, rows *sql.Rows) (*models.Frame, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, errors.NewSourceError("timescaledb", q.Table, "scan", err)
	}
	if len(names) < 2 {
		return nil, errors.NewSeriesValidationError(errors.CodeSeriesNotUnivariate,
			fmt.Sprintf("table %s needs a time column and at least one value column", q.Table))
	}

	timeIdx := 0
	if q.TimeColumn != "" {
		timeIdx = -1
		for i, n := range names {
			if n == q.TimeColumn {
				timeIdx = i
			}
		}
		if timeIdx < 0 {
			return nil, errors.NewInputError(errors.CodeInvalidSource,
				fmt.Sprintf("time column %q not found in %s", q.TimeColumn, q.Table))
		}
	}

	frame := &models.Frame{Name: q.Table}
	colIdx := make([]int, 0, len(names)-1)
	for i, n := range names {
		if i == timeIdx {
			continue
		}
		colIdx = append(colIdx, i)
		frame.Columns = append(frame.Columns, models.Column{Name: n})
	}

	raw := make([]interface{}, len(names))
	dest := make([]interface{}, len(names))
	for i := range raw {
		dest[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.NewSourceError("timescaledb", q.Table, "scan", err)
		}

		ts, ok := toTime(raw[timeIdx])
		if !ok {
			return nil, errors.NewParseError(q.Table, frame.Len()+1, fmt.Errorf("time column value %v is not a timestamp", raw[timeIdx]))
		}
		frame.Timestamps = append(frame.Timestamps, ts)

		for j, i := range colIdx {
			v, numeric := toFloat(raw[i])
			if !numeric {
				frame.Columns[j].NonNumeric++
			}
			frame.Columns[j].Values = append(frame.Columns[j].Values, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewSourceError("timescaledb", q.Table, "scan", err)
	}

	return frame, nil
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case []byte:
		ts, err := file.ParseTimestamp(string(t))
		return ts, err == nil
	case string:
		ts, err := file.ParseTimestamp(t)
		return ts, err == nil
	default:
		return time.Time{}, false
	}
}

// toFloat converts a scanned cell. NULL is NaN and numeric; anything that is not
// a number is NaN and reported as non-numeric.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return math.NaN(), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return math.NaN(), false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return math.NaN(), false
		}
		return f, true
	default:
		return math.NaN(), false
	}
}
