package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/observability/health"
	"github.com/inferloop/tsforecast/internal/pipeline"
	"github.com/inferloop/tsforecast/internal/series"
	"github.com/inferloop/tsforecast/internal/storage"
	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// CompareRequest is the JSON body of POST /compare. Multipart uploads carry the
// same fields as form values next to a "file" part.
type CompareRequest struct {
	Source      string   `json:"source"`
	ValueColumn string   `json:"value_column,omitempty"`
	Horizon     int      `json:"horizon,omitempty"`
	Metric      string   `json:"metric,omitempty"`
	Forecasters []string `json:"forecasters,omitempty"`
	PreviewRows int      `json:"preview_rows,omitempty"`
}

// CompareResponse is returned by POST /compare
type CompareResponse struct {
	RunID   string            `json:"run_id"`
	Best    string            `json:"best,omitempty"`
	Message string            `json:"message"`
	Report  *models.Report    `json:"report"`
	Links   map[string]string `json:"links"`
}

// ForecastersResponse lists the eligible forecasters
type ForecastersResponse struct {
	Forecasters []models.ForecasterDescriptor `json:"forecasters"`
	Count       int                           `json:"count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error      string    `json:"error"`
	Message    string    `json:"message,omitempty"`
	Code       string    `json:"code,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	StatusCode int       `json:"status_code"`
}

// Index describes the service
func (router *Router) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": constants.AppDescription,
		"version": constants.AppVersion,
		"endpoints": map[string]string{
			"health":      constants.APIPrefix + "/health",
			"forecasters": constants.APIPrefix + "/forecasters",
			"compare":     constants.APIPrefix + "/compare",
			"reports":     constants.APIPrefix + "/reports/{id}",
		},
	})
}

// GetHealth runs the registered health checks
func (router *Router) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := router.config.Health.Check(r.Context())

	code := http.StatusOK
	if status.OverallStatus == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// ListForecasters returns the forecasters eligible for univariate comparison
func (router *Router) ListForecasters(w http.ResponseWriter, r *http.Request) {
	list := router.config.Adapter.List()
	writeJSON(w, http.StatusOK, ForecastersResponse{Forecasters: list, Count: len(list)})
}

// Compare runs one comparison from a JSON body or a multipart CSV upload
func (router *Router) Compare(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	opts, err := router.parseCompare(w, r)
	if err != nil {
		router.writeError(w, r, err)
		return
	}
	defer closeUpload(opts.Request)

	router.runMu.Lock()
	report, err := router.config.Pipeline.Execute(r.Context(), *opts, nil)
	router.runMu.Unlock()
	if err != nil {
		router.writeError(w, r, err)
		return
	}

	base := constants.APIPrefix + "/reports/" + report.RunID
	resp := CompareResponse{
		RunID:   report.RunID,
		Message: bestMessage(report.Ranking),
		Report:  report,
		Links: map[string]string{
			"report": base,
			"plot":   base + "/plot.png",
		},
	}
	if report.Ranking.HasBest() {
		resp.Best = report.Ranking.Best
	}

	w.Header().Set("Location", base)
	writeJSON(w, http.StatusCreated, resp)
}

// GetReport returns a stored report
func (router *Router) GetReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	report, err := router.config.Store.GetReport(r.Context(), id)
	if err != nil {
		router.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetPlot returns the stored forecast plot of a report
func (router *Router) GetPlot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	plot, err := router.config.Store.GetPlot(r.Context(), id)
	if err != nil {
		router.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", constants.MimeTypePNG)
	w.Header().Set("Content-Length", strconv.Itoa(len(plot)))
	w.WriteHeader(http.StatusOK)
	w.Write(plot)
}

func (router *Router) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:      http.StatusText(http.StatusNotFound),
		Message:    fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path),
		Timestamp:  time.Now().UTC(),
		StatusCode: http.StatusNotFound,
	})
}

func (router *Router) parseCompare(w http.ResponseWriter, r *http.Request) (*pipeline.Options, error) {
	r.Body = http.MaxBytesReader(w, r.Body, router.config.MaxUploadBytes)

	var req CompareRequest
	var request series.Request

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(router.config.MaxUploadBytes); err != nil {
			return nil, errors.NewInputError(errors.CodeInvalidRequest, fmt.Sprintf("invalid multipart body: %v", err))
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, errors.NewUserInputMissingError("upload a CSV file in the \"file\" field or send a JSON body with a source")
		}
		request = series.Request{Name: header.Filename, Reader: file}

		req.ValueColumn = r.FormValue("value_column")
		req.Metric = r.FormValue("metric")
		req.Forecasters = splitList(r.FormValue("forecasters"))
		if req.Horizon, err = formInt(r, "horizon"); err != nil {
			closeUpload(request)
			return nil, err
		}
		if req.PreviewRows, err = formInt(r, "preview_rows"); err != nil {
			closeUpload(request)
			return nil, err
		}

	default:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errors.NewInputError(errors.CodeInvalidRequest, fmt.Sprintf("invalid JSON body: %v", err))
		}
		if err := router.checkSource(req.Source); err != nil {
			return nil, err
		}
		request = series.Request{Source: req.Source}
	}

	opts := &pipeline.Options{
		Request:     request,
		ValueColumn: req.ValueColumn,
		Horizon:     req.Horizon,
		Metric:      strings.ToLower(req.Metric),
		Forecasters: req.Forecasters,
		PreviewRows: req.PreviewRows,
	}
	if opts.Horizon == 0 {
		opts.Horizon = router.config.DefaultHorizon
	}
	if len(opts.Forecasters) == 0 {
		opts.Forecasters = router.config.DefaultForecasters
	}
	return opts, nil
}

// closeUpload releases an uploaded file part
func closeUpload(req series.Request) {
	if c, ok := req.Reader.(io.Closer); ok {
		c.Close()
	}
}

// checkSource rejects schemes the server does not expose. Plain paths would read
// the server's own filesystem.
func (router *Router) checkSource(source string) error {
	source = strings.TrimSpace(source)
	if source == "" {
		return errors.NewUserInputMissingError("send a source (\"synthetic\" or a source URI) or upload a CSV file")
	}
	if source == constants.SourceSynthetic {
		return nil
	}

	scheme, _, err := storage.ParseURI(source)
	if err != nil {
		return err
	}
	for _, allowed := range router.config.AllowedSchemes {
		if scheme == allowed {
			return nil
		}
	}
	return errors.NewInputError(errors.CodeInvalidSource,
		fmt.Sprintf("source scheme %q is not served by this API", scheme))
}

func (router *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if errors.Is(err, errors.ErrDataNotFound) {
		status = http.StatusNotFound
	}

	resp := ErrorResponse{
		Error:      http.StatusText(status),
		Message:    err.Error(),
		Timestamp:  time.Now().UTC(),
		StatusCode: status,
	}
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		resp.Code = appErr.Code
		resp.Message = appErr.Message
		resp.Details = appErr.Details
	}

	entry := router.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("Request failed")
	} else {
		entry.WithError(err).Debug("Request rejected")
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", constants.MimeTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func bestMessage(ranking *models.Ranking) string {
	if !ranking.HasBest() {
		return "no forecaster produced a result"
	}
	return fmt.Sprintf("best model is %s", ranking.Best)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formInt(r *http.Request, field string) (int, error) {
	value := strings.TrimSpace(r.FormValue(field))
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.NewInputError(errors.CodeInvalidRequest, fmt.Sprintf("%s must be an integer, got %q", field, value))
	}
	return n, nil
}
