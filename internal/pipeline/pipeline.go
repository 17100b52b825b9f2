package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/analytics"
	"github.com/inferloop/tsforecast/internal/comparison"
	"github.com/inferloop/tsforecast/internal/observability/metrics"
	"github.com/inferloop/tsforecast/internal/series"
	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/interfaces"
	"github.com/inferloop/tsforecast/pkg/models"
)

// Options are the user's choices for one comparison
type Options struct {
	Request     series.Request
	ValueColumn string
	Horizon     int
	Metric      string
	Forecasters []string
	PreviewRows int
}

// Run is the state of one invocation, threaded from loading to reporting and
// discarded afterwards
type Run struct {
	ID         string
	CreatedAt  time.Time
	Options    Options
	Frame      *models.Frame
	Series     *models.Series
	Split      *models.Split
	Comparison *models.Comparison
	Ranking    *models.Ranking
}

// Renderer draws the forecast plot stored next to a report
type Renderer interface {
	RenderPNG(report *models.Report) ([]byte, error)
}

// Pipeline wires loader, validator, splitter, harness and ranker
type Pipeline struct {
	loader    *series.Loader
	validator interfaces.SeriesValidator
	harness   *comparison.Harness
	metrics   *metrics.PrometheusMetrics
	sink      interfaces.ReportSink
	renderer  Renderer
	logger    *logrus.Logger
}

// New creates a new pipeline
func New(loader *series.Loader, validator interfaces.SeriesValidator, harness *comparison.Harness, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}

	return &Pipeline{
		loader:    loader,
		validator: validator,
		harness:   harness,
		logger:    logger,
	}
}

// SetMetrics attaches a Prometheus recorder. The harness reports outcomes to it too.
func (p *Pipeline) SetMetrics(m *metrics.PrometheusMetrics) {
	p.metrics = m
	if m != nil {
		p.harness.SetObserver(m)
	}
}

// SetSink stores every finished report, with a plot drawn by renderer when set
func (p *Pipeline) SetSink(sink interfaces.ReportSink, renderer Renderer) {
	p.sink = sink
	p.renderer = renderer
}

// Execute runs one comparison end to end. Missing input, an invalid series and a
// series too short for the horizon stop the run; forecaster failures do not.
func (p *Pipeline) Execute(ctx context.Context, opts Options, progress comparison.Progress) (*models.Report, error) {
	run := &Run{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Options:   opts,
	}
	if run.Options.Metric == "" {
		run.Options.Metric = constants.DefaultMetric
	}
	if run.Options.PreviewRows <= 0 {
		run.Options.PreviewRows = constants.DefaultPreviewRows
	}

	logger := p.logger.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"horizon": run.Options.Horizon,
	})

	start := time.Now()
	report, err := p.execute(ctx, run, progress)
	duration := time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordRun(runStatus(err), duration)
		if werr := p.metrics.WriteTextfile(); werr != nil {
			logger.WithError(werr).Warn("Failed to write metrics textfile")
		}
	}

	if err != nil {
		if !errors.IsUserInputMissing(err) {
			logger.WithError(err).WithField("duration", duration).Error("Comparison run stopped")
		}
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"duration":  duration,
		"succeeded": len(report.Results()),
		"best":      report.Ranking.Best,
	}).Info("Comparison run finished")

	p.store(ctx, logger, report)

	return report, nil
}

func (p *Pipeline) execute(ctx context.Context, run *Run, progress comparison.Progress) (*models.Report, error) {
	frame, err := p.loader.Load(ctx, run.Options.Request)
	if err != nil {
		return nil, err
	}
	run.Frame = frame

	// checked after loading so a missing source still ends in guidance
	if err := analytics.ValidateMetric(run.Options.Metric); err != nil {
		return nil, err
	}

	s, err := p.validator.Validate(ctx, frame, run.Options.ValueColumn)
	if err != nil {
		return nil, err
	}
	run.Series = s
	if p.metrics != nil {
		p.metrics.RecordSeries(s.Len())
	}

	if err := p.validator.ValidateHorizon(s, run.Options.Horizon); err != nil {
		return nil, err
	}

	split, err := analytics.TemporalSplit(s, run.Options.Horizon)
	if err != nil {
		return nil, err
	}
	run.Split = split

	cmp, err := p.harness.Run(ctx, split, run.Options.Forecasters, progress)
	if err != nil {
		return nil, err
	}
	run.Comparison = cmp

	ranking, err := analytics.Rank(cmp.Results(), run.Options.Metric)
	if err != nil {
		return nil, err
	}
	run.Ranking = ranking

	return run.Report(), nil
}

// Report assembles the run into its report
func (r *Run) Report() *models.Report {
	return &models.Report{
		RunID:      r.ID,
		CreatedAt:  r.CreatedAt,
		Source:     sourceName(r.Options.Request),
		Horizon:    r.Options.Horizon,
		Metric:     r.Options.Metric,
		Preview:    r.Series.Head(r.Options.PreviewRows),
		Statistics: analytics.Describe(r.Series.Values),
		Train:      r.Split.Train,
		Test:       r.Split.Test,
		Outcomes:   r.Comparison.Outcomes,
		Ranking:    r.Ranking,
	}
}

func (p *Pipeline) store(ctx context.Context, logger *logrus.Entry, report *models.Report) {
	if p.sink == nil {
		return
	}

	var plot []byte
	if p.renderer != nil {
		var err error
		if plot, err = p.renderer.RenderPNG(report); err != nil {
			logger.WithError(err).Warn("Failed to render plot for report sink")
		}
	}

	if err := p.sink.SaveReport(ctx, report, plot); err != nil {
		logger.WithError(err).WithField("sink", p.sink.GetType()).Warn("Failed to store report")
		return
	}
	logger.WithField("sink", p.sink.GetType()).Debug("Stored report")
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return metrics.RunStatusSuccess
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return metrics.RunStatusCancelled
	default:
		return metrics.RunStatusFatal
	}
}

func sourceName(req series.Request) string {
	if req.Reader != nil {
		if req.Name != "" {
			return req.Name
		}
		return "upload"
	}
	return req.Source
}
