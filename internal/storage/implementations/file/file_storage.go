package file

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// FileSourceConfig contains configuration for the local CSV source
type FileSourceConfig struct {
	BasePath  string `json:"base_path" mapstructure:"base_path"` // relative locations resolve against it
	Delimiter string `json:"delimiter" mapstructure:"delimiter"`
}

// FileSource reads tabular CSV input from the local filesystem. The first column
// is the time index; every other column is a value column.
type FileSource struct {
	config    *FileSourceConfig
	logger    *logrus.Logger
	mu        sync.RWMutex
	connected bool
}

// NewFileSource creates a new file source instance
func NewFileSource(config *FileSourceConfig, logger *logrus.Logger) (*FileSource, error) {
	if config == nil {
		return nil, errors.NewStorageError("INVALID_CONFIG", "FileSourceConfig cannot be nil")
	}

	if config.Delimiter == "" {
		config.Delimiter = ","
	}
	if len([]rune(config.Delimiter)) != 1 {
		return nil, errors.NewStorageError("INVALID_CONFIG", "Delimiter must be a single character")
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &FileSource{
		config: config,
		logger: logger,
	}, nil
}

// GetType returns the source scheme
func (fs *FileSource) GetType() string {
	return constants.SchemeFile
}

// Connect verifies the base path when one is configured
func (fs *FileSource) Connect(ctx context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.connected {
		return nil
	}

	if fs.config.BasePath != "" {
		if _, err := os.Stat(fs.config.BasePath); err != nil {
			return errors.NewSourceError("file", fs.config.BasePath, "connect", err)
		}
	}

	fs.connected = true
	return nil
}

// Close releases the source
func (fs *FileSource) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.connected = false
	return nil
}

// Ping checks the base path is still accessible
func (fs *FileSource) Ping(ctx context.Context) error {
	if fs.config.BasePath == "" {
		return nil
	}
	if _, err := os.Stat(fs.config.BasePath); err != nil {
		return errors.NewSourceError("file", fs.config.BasePath, "ping", err)
	}
	return nil
}

// Load reads and parses the CSV file at location
func (fs *FileSource) Load(ctx context.Context, location string) (*models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := location
	if fs.config.BasePath != "" && !filepath.IsAbs(path) {
		path = filepath.Join(fs.config.BasePath, path)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewDataNotFoundError("file", path)
		}
		return nil, errors.NewSourceError("file", path, "open", err)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, errors.NewSourceError("file", path, "decompress", err)
		}
		defer gz.Close()
		r = gz
	}

	start := time.Now()
	frame, err := fs.LoadReader(ctx, path, r)
	if err != nil {
		return nil, err
	}

	fs.logger.WithFields(logrus.Fields{
		"path":     path,
		"rows":     frame.Len(),
		"columns":  len(frame.Columns),
		"duration": time.Since(start),
	}).Debug("Loaded CSV file")

	return frame, nil
}

// LoadReader parses CSV from an open stream
func (fs *FileSource) LoadReader(ctx context.Context, name string, r io.Reader) (*models.Frame, error) {
	return ParseCSV(name, r, []rune(fs.config.Delimiter)[0])
}

// ParseCSV parses tabular input with a header row. Empty cells become NaN; cells
// that are not numbers become NaN and are counted per column.
func ParseCSV(name string, r io.Reader, delimiter rune) (*models.Frame, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewSeriesValidationError(errors.CodeSeriesEmpty, fmt.Sprintf("%s is empty", name))
	}
	if err != nil {
		return nil, errors.NewParseError(name, 1, err)
	}
	if len(header) < 2 {
		return nil, errors.NewSeriesValidationError(errors.CodeSeriesNotUnivariate,
			fmt.Sprintf("%s needs a time column and at least one value column", name))
	}

	frame := &models.Frame{
		Name:    baseName(name),
		Columns: make([]models.Column, len(header)-1),
	}
	for i, col := range header[1:] {
		col = strings.TrimSpace(col)
		if col == "" {
			col = fmt.Sprintf("column_%d", i+1)
		}
		frame.Columns[i].Name = col
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.NewParseError(name, line, err)
		}

		ts, err := ParseTimestamp(record[0])
		if err != nil {
			return nil, errors.NewParseError(name, line, err)
		}
		frame.Timestamps = append(frame.Timestamps, ts)

		for i := range frame.Columns {
			cell := strings.TrimSpace(record[i+1])
			value := math.NaN()
			if cell != "" {
				if v, err := strconv.ParseFloat(cell, 64); err == nil {
					value = v
				} else {
					frame.Columns[i].NonNumeric++
				}
			}
			frame.Columns[i].Values = append(frame.Columns[i].Values, value)
		}
	}

	return frame, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	constants.DateLayout,
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
}

// ParseTimestamp parses the supported time index layouts. Values without a zone
// are read as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

func baseName(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, ".gz")
	return strings.TrimSuffix(base, filepath.Ext(base))
}
