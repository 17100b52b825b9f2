package timescaledb

import (
	"context"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/tsforecast/pkg/errors"
)

func TestNewTimescaleDBSourceDefaults(t *testing.T) {
	source, err := NewTimescaleDBSource(&TimescaleDBConfig{Database: "metrics", Username: "u", Password: "p"}, logrus.New())
	require.NoError(t, err)

	assert.Equal(t, "timescaledb", source.GetType())
	assert.Equal(t, "host=localhost port=5432 user=u password=p dbname=metrics sslmode=prefer connect_timeout=30",
		source.ConnectionString())

	_, err = NewTimescaleDBSource(nil, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TimescaleDB config cannot be nil")
}

func TestParseLocation(t *testing.T) {
	q, err := ParseLocation("public.sales?time=ts&columns=amount,units&since=2021-01-01")
	require.NoError(t, err)
	assert.Equal(t, "public.sales", q.Table)
	assert.Equal(t, "ts", q.TimeColumn)
	assert.Equal(t, []string{"amount", "units"}, q.Columns)
	require.NotNil(t, q.Since)
	assert.Equal(t, 2021, q.Since.Year())

	q, err = ParseLocation("sales?columns=amount")
	require.NoError(t, err)
	assert.Equal(t, "time", q.TimeColumn)

	_, err = ParseLocation("")
	assert.Error(t, err)

	_, err = ParseLocation("sales?since=someday")
	assert.Error(t, err)
}

func TestBuildQuery(t *testing.T) {
	query, args := BuildQuery(&TableQuery{Table: "sales"})
	assert.Equal(t, `SELECT * FROM "sales" ORDER BY 1`, query)
	assert.Empty(t, args)

	since := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args = BuildQuery(&TableQuery{
		Table:      "public.sales",
		TimeColumn: "ts",
		Columns:    []string{"amount", `odd"name`},
		Since:      &since,
	})
	assert.Equal(t, `SELECT "ts", "amount", "odd""name" FROM "public"."sales" WHERE "ts" >= $1 ORDER BY "ts"`, query)
	assert.Equal(t, []interface{}{since}, args)
}

func TestLoadScansFrame(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t1 := time.Date(2021, 1, 3, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(7 * 24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "ts", "amount", "label" FROM "sales" ORDER BY "ts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"ts", "amount", "label"}).
			AddRow(t1, []byte("1.5"), "a").
			AddRow(t2, nil, "b"))

	source, err := NewTimescaleDBSourceWithDB(db, &TimescaleDBConfig{}, logrus.New())
	require.NoError(t, err)

	frame, err := source.Load(context.Background(), "sales?time=ts&columns=amount,label")
	require.NoError(t, err)

	assert.Equal(t, []time.Time{t1, t2}, frame.Timestamps)
	assert.Equal(t, []string{"amount", "label"}, frame.ColumnNames())
	assert.Equal(t, 1.5, frame.Columns[0].Values[0])
	assert.True(t, math.IsNaN(frame.Columns[0].Values[1]))
	assert.Equal(t, 0, frame.Columns[0].NonNumeric)
	assert.Equal(t, 2, frame.Columns[1].NonNumeric)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadEmptyTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "sales" ORDER BY 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"time", "value"}))

	source, err := NewTimescaleDBSourceWithDB(db, &TimescaleDBConfig{}, logrus.New())
	require.NoError(t, err)

	_, err = source.Load(context.Background(), "sales")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataNotFound))
}

func TestLoadBeforeConnect(t *testing.T) {
	source, err := NewTimescaleDBSource(&TimescaleDBConfig{}, logrus.New())
	require.NoError(t, err)

	_, err = source.Load(context.Background(), "sales")
	assert.Error(t, err)
}
