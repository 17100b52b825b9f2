package memory

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// DefaultCapacity is the number of reports kept when no capacity is configured
const DefaultCapacity = 100

type entry struct {
	report *models.Report
	plot   []byte
}

// ReportStore keeps the most recent reports in process memory. The oldest report
// is evicted once capacity is reached.
type ReportStore struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string]*entry
	order    []string
	logger   *logrus.Logger
}

// NewReportStore creates an in-memory report store
func NewReportStore(capacity int, logger *logrus.Logger) *ReportStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &ReportStore{
		capacity: capacity,
		entries:  make(map[string]*entry),
		logger:   logger,
	}
}

// GetType returns "memory"
func (s *ReportStore) GetType() string {
	return "memory"
}

// SaveReport stores the report and plot under the run ID
func (s *ReportStore) SaveReport(ctx context.Context, report *models.Report, plot []byte) error {
	if report == nil || report.RunID == "" {
		return errors.NewInputError(errors.CodeInvalidRequest, "report with a run ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[report.RunID]; !exists {
		s.order = append(s.order, report.RunID)
	}
	s.entries[report.RunID] = &entry{report: report, plot: plot}

	for len(s.order) > s.capacity {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, evicted)
		s.logger.WithField("run_id", evicted).Debug("Evicted report from memory store")
	}

	return nil
}

// GetReport returns the report stored under runID
func (s *ReportStore) GetReport(ctx context.Context, runID string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[runID]
	if !ok {
		return nil, errors.NewDataNotFoundError("memory", runID)
	}
	return e.report, nil
}

// GetPlot returns the plot stored under runID
func (s *ReportStore) GetPlot(ctx context.Context, runID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[runID]
	if !ok || len(e.plot) == 0 {
		return nil, errors.NewDataNotFoundError("memory", runID)
	}
	return e.plot, nil
}

// Len returns the number of stored reports
func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close drops every stored report
func (s *ReportStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
	s.order = nil
	return nil
}
