package influxdb

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// InfluxDBConfig contains configuration for the InfluxDB source
type InfluxDBConfig struct {
	URL          string        `json:"url" mapstructure:"url"`
	Token        string        `json:"token" mapstructure:"token"`
	Organization string        `json:"organization" mapstructure:"organization"`
	Range        string        `json:"range" mapstructure:"range"` // Flux range start, e.g. -10y
	Timeout      time.Duration `json:"timeout" mapstructure:"timeout"`
	UseGZip      bool          `json:"use_gzip" mapstructure:"use_gzip"`
}

// InfluxDBSource loads a measurement as a frame with one column per field.
// Locations look like bucket/measurement?field=f&start=-1y.
type InfluxDBSource struct {
	config    *InfluxDBConfig
	client    influxdb2.Client
	queryAPI  api.QueryAPI
	logger    *logrus.Logger
	connected bool
}

// Query identifies what to read
type Query struct {
	Bucket      string
	Measurement string
	Field       string
	Start       string
}

// NewInfluxDBSource creates a new InfluxDB source instance
func NewInfluxDBSource(config *InfluxDBConfig, logger *logrus.Logger) (*InfluxDBSource, error) {
	if config == nil {
		return nil, errors.NewStorageError("INVALID_CONFIG", "InfluxDB config cannot be nil")
	}

	if config.URL == "" {
		return nil, errors.NewStorageError("INVALID_CONFIG", "InfluxDB URL is required")
	}

	if logger == nil {
		logger = logrus.New()
	}

	if config.Timeout == 0 {
		config.Timeout = constants.DefaultStorageTimeout
	}
	if config.Range == "" {
		config.Range = constants.DefaultInfluxRange
	}

	return &InfluxDBSource{
		config: config,
		logger: logger,
	}, nil
}

// GetType returns the source scheme
func (s *InfluxDBSource) GetType() string {
	return constants.SchemeInflux
}

// Connect establishes connection to InfluxDB
func (s *InfluxDBSource) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}

	options := influxdb2.DefaultOptions()
	options.SetUseGZip(s.config.UseGZip)
	options.SetHTTPRequestTimeout(uint(s.config.Timeout.Seconds()))

	s.client = influxdb2.NewClientWithOptions(s.config.URL, s.config.Token, options)

	ok, err := s.client.Ping(ctx)
	if err != nil {
		s.client.Close()
		return errors.NewSourceError("influxdb", s.config.URL, "connect", err)
	}
	if !ok {
		s.client.Close()
		return errors.NewSourceError("influxdb", s.config.URL, "connect", fmt.Errorf("ping failed"))
	}

	s.queryAPI = s.client.QueryAPI(s.config.Organization)
	s.connected = true

	s.logger.WithFields(logrus.Fields{
		"url":          s.config.URL,
		"organization": s.config.Organization,
	}).Debug("Connected to InfluxDB")

	return nil
}

// Close closes the connection to InfluxDB
func (s *InfluxDBSource) Close() error {
	if !s.connected {
		return nil
	}
	s.client.Close()
	s.connected = false
	return nil
}

// Ping tests the connection
func (s *InfluxDBSource) Ping(ctx context.Context) error {
	if !s.connected {
		return errors.NewStorageError("NOT_CONNECTED", "Not connected to InfluxDB")
	}
	ok, err := s.client.Ping(ctx)
	if err != nil || !ok {
		return errors.NewSourceError("influxdb", s.config.URL, "ping", err)
	}
	return nil
}

// Load runs a Flux query for the measurement and pivots fields into columns
func (s *InfluxDBSource) Load(ctx context.Context, location string) (*models.Frame, error) {
	if !s.connected {
		return nil, errors.NewStorageError("NOT_CONNECTED", "Not connected to InfluxDB")
	}

	q, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	if q.Start == "" {
		q.Start = s.config.Range
	}

	flux := BuildFluxQuery(q)
	s.logger.WithFields(logrus.Fields{
		"query": flux,
	}).Debug("Executing InfluxDB query")

	result, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, errors.NewSourceError("influxdb", location, "query", err)
	}
	defer result.Close()

	var points []fieldPoint
	for result.Next() {
		record := result.Record()
		value, ok := toFloat(record.Value())
		if !ok {
			continue
		}
		points = append(points, fieldPoint{field: record.Field(), ts: record.Time(), value: value})
	}
	if result.Err() != nil {
		return nil, errors.NewSourceError("influxdb", location, "query", result.Err())
	}
	if len(points) == 0 {
		return nil, errors.NewDataNotFoundError("influxdb", location)
	}

	frame := pivot(q.Measurement, points)
	return frame, nil
}

// ParseLocation reads bucket/measurement with optional field and start parameters
func ParseLocation(location string) (*Query, error) {
	path, rawQuery, _ := strings.Cut(strings.TrimPrefix(location, "/"), "?")
	bucket, measurement, ok := strings.Cut(path, "/")
	if !ok || bucket == "" || measurement == "" {
		return nil, errors.NewInputError(errors.CodeInvalidSource,
			fmt.Sprintf("InfluxDB location must be bucket/measurement, got %q", location))
	}

	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, errors.NewInputError(errors.CodeInvalidSource, fmt.Sprintf("invalid InfluxDB parameters: %v", err))
	}

	return &Query{
		Bucket:      bucket,
		Measurement: measurement,
		Field:       params.Get("field"),
		Start:       params.Get("start"),
	}, nil
}

// BuildFluxQuery renders the Flux query for q
func BuildFluxQuery(q *Query) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", fluxString(q.Bucket))
	fmt.Fprintf(&b, "  |> range(start: %s)\n", q.Start)
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %s)\n", fluxString(q.Measurement))
	if q.Field != "" {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r._field == %s)\n", fluxString(q.Field))
	}
	b.WriteString(`  |> keep(columns: ["_time", "_value", "_field"])` + "\n")
	b.WriteString(`  |> sort(columns: ["_time"])`)
	return b.String()
}

func fluxString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

type fieldPoint struct {
	field string
	ts    time.Time
	value float64
}

// pivot aligns field values on the union of their timestamps. Fields missing at
// a timestamp are NaN. Columns are ordered by field name.
func pivot(name string, points []fieldPoint) *models.Frame {
	fieldIndex := make(map[string]int)
	var fields []string
	timeIndex := make(map[int64]int)
	var times []time.Time

	for _, p := range points {
		if _, ok := fieldIndex[p.field]; !ok {
			fieldIndex[p.field] = len(fields)
			fields = append(fields, p.field)
		}
		if _, ok := timeIndex[p.ts.UnixNano()]; !ok {
			timeIndex[p.ts.UnixNano()] = len(times)
			times = append(times, p.ts)
		}
	}

	sort.Strings(fields)
	for i, f := range fields {
		fieldIndex[f] = i
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	for i, ts := range times {
		timeIndex[ts.UnixNano()] = i
	}

	columns := make([]models.Column, len(fields))
	for i, f := range fields {
		values := make([]float64, len(times))
		for j := range values {
			values[j] = math.NaN()
		}
		columns[i] = models.Column{Name: f, Values: values}
	}
	for _, p := range points {
		columns[fieldIndex[p.field]].Values[timeIndex[p.ts.UnixNano()]] = p.value
	}

	return &models.Frame{
		Name:       name,
		Timestamps: times,
		Columns:    columns,
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
