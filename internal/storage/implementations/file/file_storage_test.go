package file

import (
	"compress/gzip"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/tsforecast/pkg/errors"
)

func TestNewFileSource(t *testing.T) {
	logger := logrus.New()
	source, err := NewFileSource(&FileSourceConfig{}, logger)

	require.NoError(t, err)
	assert.Equal(t, ",", source.config.Delimiter)
	assert.Equal(t, logger, source.logger)
	assert.Equal(t, "file", source.GetType())
}

func TestNewFileSourceInvalidConfig(t *testing.T) {
	_, err := NewFileSource(nil, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FileSourceConfig cannot be nil")

	_, err = NewFileSource(&FileSourceConfig{Delimiter: ";;"}, logrus.New())
	require.Error(t, err)
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	content := "date,sales,visits\n2021-01-04,10,100\n2021-01-05,12,\n2021-01-11,n/a,90\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop.csv"), []byte(content), 0644))

	source, err := NewFileSource(&FileSourceConfig{BasePath: dir}, logrus.New())
	require.NoError(t, err)
	require.NoError(t, source.Connect(context.Background()))
	defer source.Close()

	frame, err := source.Load(context.Background(), "shop.csv")
	require.NoError(t, err)

	assert.Equal(t, "shop", frame.Name)
	assert.Equal(t, 3, frame.Len())
	assert.Equal(t, []string{"sales", "visits"}, frame.ColumnNames())
	assert.Equal(t, time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), frame.Timestamps[0])

	sales, ok := frame.Column("sales")
	require.True(t, ok)
	assert.Equal(t, 10.0, sales.Values[0])
	assert.True(t, math.IsNaN(sales.Values[2]))
	assert.Equal(t, 1, sales.NonNumeric)

	visits, ok := frame.Column("visits")
	require.True(t, ok)
	assert.True(t, math.IsNaN(visits.Values[1]))
	assert.Equal(t, 0, visits.NonNumeric)
}

func TestLoadGzipCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("time,value\n2021-01-03,1.5\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	source, err := NewFileSource(&FileSourceConfig{}, logrus.New())
	require.NoError(t, err)

	frame, err := source.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "series", frame.Name)
	assert.Equal(t, []float64{1.5}, frame.Columns[0].Values)
}

func TestLoadMissingFile(t *testing.T) {
	source, err := NewFileSource(&FileSourceConfig{}, logrus.New())
	require.NoError(t, err)

	_, err = source.Load(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataNotFound))
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		errType errors.ErrorType
	}{
		{name: "empty input", input: "", errType: errors.ErrorTypeValidation},
		{name: "no value column", input: "date\n2021-01-01\n", errType: errors.ErrorTypeValidation},
		{name: "bad timestamp", input: "date,value\nyesterday,1\n", errType: errors.ErrorTypeSource},
		{name: "ragged row", input: "date,value\n2021-01-01,1,2\n", errType: errors.ErrorTypeSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV("input.csv", strings.NewReader(tt.input), ',')
			require.Error(t, err)
			assert.Equal(t, tt.errType, errors.TypeOf(err))
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2021-03-07", time.Date(2021, 3, 7, 0, 0, 0, 0, time.UTC)},
		{"2021-03-07 13:45:00", time.Date(2021, 3, 7, 13, 45, 0, 0, time.UTC)},
		{"2021-03-07T13:45:00Z", time.Date(2021, 3, 7, 13, 45, 0, 0, time.UTC)},
		{"2021/03/07", time.Date(2021, 3, 7, 0, 0, 0, 0, time.UTC)},
		{"03/07/2021", time.Date(2021, 3, 7, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
		})
	}

	_, err := ParseTimestamp("not a date")
	assert.Error(t, err)
}
