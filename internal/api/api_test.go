package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/tsforecast/internal/comparison"
	"github.com/inferloop/tsforecast/internal/forecasters"
	"github.com/inferloop/tsforecast/internal/observability/metrics"
	"github.com/inferloop/tsforecast/internal/pipeline"
	"github.com/inferloop/tsforecast/internal/series"
	"github.com/inferloop/tsforecast/internal/storage/implementations/memory"
	"github.com/inferloop/tsforecast/internal/validation"
	"github.com/inferloop/tsforecast/internal/visualization"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	adapter := forecasters.NewAdapter(forecasters.NewRegistry(nil, logger))
	p := pipeline.New(
		series.NewLoader(nil, nil, logger),
		validation.NewSeriesValidator(nil, logger),
		comparison.NewHarness(adapter, nil, logger),
		logger,
	)

	pm, err := metrics.NewPrometheusMetrics(nil, logger)
	require.NoError(t, err)
	p.SetMetrics(pm)

	store := memory.NewReportStore(10, logger)
	p.SetSink(store, visualization.NewPlotter(nil, logger))

	router, err := NewRouter(&Config{
		Pipeline:           p,
		Adapter:            adapter,
		Store:              store,
		Metrics:            pm,
		DefaultForecasters: []string{"naive", "mean"},
		AllowedSchemes:     []string{"s3"},
	}, logger)
	require.NoError(t, err)

	server := httptest.NewServer(router.SetupRoutes())
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func TestNewRouterRequiresCollaborators(t *testing.T) {
	_, err := NewRouter(&Config{}, nil)
	assert.Error(t, err)

	_, err = NewRouter(nil, nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)

	resp := get(t, server.URL+"/api/v1/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestListForecasters(t *testing.T) {
	server := newTestServer(t)

	resp := get(t, server.URL+"/api/v1/forecasters")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ForecastersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotZero(t, body.Count)
	assert.Len(t, body.Forecasters, body.Count)

	for i := 1; i < len(body.Forecasters); i++ {
		assert.Less(t, body.Forecasters[i-1].Name, body.Forecasters[i].Name)
	}
}

func TestCompareSyntheticAndFetchReport(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/v1/compare", CompareRequest{
		Source:      "synthetic",
		Horizon:     13,
		Forecasters: []string{"naive"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body CompareResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "naive", body.Best)
	assert.Equal(t, 13, body.Report.Test.Len())
	assert.Equal(t, "/api/v1/reports/"+body.RunID, resp.Header.Get("Location"))

	reportResp := get(t, server.URL+body.Links["report"])
	require.Equal(t, http.StatusOK, reportResp.StatusCode)

	plotResp := get(t, server.URL+body.Links["plot"])
	require.Equal(t, http.StatusOK, plotResp.StatusCode)
	assert.Equal(t, "image/png", plotResp.Header.Get("Content-Type"))
	data, err := io.ReadAll(plotResp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestCompareUsesDefaults(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/v1/compare", CompareRequest{Source: "synthetic"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body CompareResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 13, body.Report.Horizon)
	assert.Len(t, body.Report.Outcomes, 2)
}

func TestCompareUpload(t *testing.T) {
	server := newTestServer(t)

	var csv strings.Builder
	csv.WriteString("date,sales\n")
	start := time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&csv, "%s,%d\n", start.AddDate(0, 0, 7*i).Format("2006-01-02"), 100+i)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "sales.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv.String()))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("horizon", "13"))
	require.NoError(t, mw.WriteField("forecasters", "naive, drift"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(server.URL+"/api/v1/compare", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body CompareResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "sales.csv", body.Report.Source)
	assert.Equal(t, 27, body.Report.Train.Len())
	assert.Len(t, body.Report.Results(), 2)
	assert.Equal(t, "drift", body.Best, "a linear series is predicted exactly by drift")
}

type trackingReader struct {
	io.Reader
	closed bool
}

func (tr *trackingReader) Close() error {
	tr.closed = true
	return nil
}

func TestCloseUpload(t *testing.T) {
	upload := &trackingReader{Reader: strings.NewReader("date,value\n")}
	closeUpload(series.Request{Name: "sales.csv", Reader: upload})
	assert.True(t, upload.closed)

	assert.NotPanics(t, func() {
		closeUpload(series.Request{Reader: strings.NewReader("date,value\n")})
		closeUpload(series.Request{Source: "synthetic"})
	})
}

func TestCompareUploadBadField(t *testing.T) {
	server := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "sales.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("date,sales\n2022-01-02,1\n"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("horizon", "thirteen"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(server.URL+"/api/v1/compare", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, resp).Code)
}

func TestCompareErrors(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name   string
		body   CompareRequest
		status int
		code   string
	}{
		{"no source", CompareRequest{}, http.StatusBadRequest, "INPUT_REQUIRED"},
		{"local path", CompareRequest{Source: "/etc/passwd"}, http.StatusBadRequest, "INVALID_SOURCE"},
		{"unserved scheme", CompareRequest{Source: "timescaledb://sales"}, http.StatusBadRequest, "INVALID_SOURCE"},
		{"bad horizon", CompareRequest{Source: "synthetic", Horizon: 7}, http.StatusBadRequest, "INVALID_HORIZON"},
		{"unknown forecaster", CompareRequest{Source: "synthetic", Forecasters: []string{"prophet"}}, http.StatusBadRequest, "UNKNOWN_FORECASTER"},
		{"bad metric", CompareRequest{Source: "synthetic", Metric: "r2"}, http.StatusBadRequest, "INVALID_METRIC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/api/v1/compare", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decodeError(t, resp).Code)
		})
	}
}

func TestCompareMalformedJSON(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/v1/compare", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, resp).Code)
}

func TestReportNotFound(t *testing.T) {
	server := newTestServer(t)

	resp := get(t, server.URL+"/api/v1/reports/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "DATA_NOT_FOUND", decodeError(t, resp).Code)

	resp = get(t, server.URL+"/api/v1/reports/missing/plot.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	server := newTestServer(t)

	resp := get(t, server.URL+"/api/v2/nothing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t)

	get(t, server.URL+"/api/v1/forecasters")
	postJSON(t, server.URL+"/api/v1/compare", CompareRequest{Source: "synthetic", Forecasters: []string{"naive"}})

	resp := get(t, server.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `tsforecast_http_requests_total{method="GET",route="/api/v1/forecasters",status="200"} 1`)
	assert.Contains(t, out, `tsforecast_runs_total{status="success"} 1`)
}
