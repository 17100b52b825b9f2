package export

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/visualization"
	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// ExportEngine writes comparison reports in the registered formats
type ExportEngine struct {
	logger    *logrus.Logger
	config    *ExportConfig
	mu        sync.RWMutex
	exporters map[string]Exporter
}

// ExportConfig configures the export engine
type ExportConfig struct {
	Options ExportOptions             `json:"options"`
	Plot    *visualization.PlotConfig `json:"plot,omitempty"`
}

// ExportOptions contains options shared by all exporters
type ExportOptions struct {
	DateFormat string `json:"date_format"`
	Precision  int    `json:"precision"` // decimal places, -1 keeps full precision
	Pretty     bool   `json:"pretty"`
}

// Exporter writes a report in one or more formats
type Exporter interface {
	Name() string
	SupportedFormats() []string
	Export(ctx context.Context, writer io.Writer, report *models.Report, options ExportOptions) error
}

// NewExportEngine creates a new export engine with the json, csv, text and png exporters
func NewExportEngine(config *ExportConfig, logger *logrus.Logger) *ExportEngine {
	if config == nil {
		config = getDefaultExportConfig()
	}

	if logger == nil {
		logger = logrus.New()
	}

	engine := &ExportEngine{
		logger:    logger,
		config:    config,
		exporters: make(map[string]Exporter),
	}

	engine.registerDefaultExporters()

	return engine
}

// RegisterExporter registers an exporter for each of its formats
func (ee *ExportEngine) RegisterExporter(exporter Exporter) {
	ee.mu.Lock()
	defer ee.mu.Unlock()

	for _, format := range exporter.SupportedFormats() {
		ee.exporters[format] = exporter
	}
	ee.logger.WithField("exporter", exporter.Name()).Debug("Registered exporter")
}

// GetSupportedFormats returns the registered formats in sorted order
func (ee *ExportEngine) GetSupportedFormats() []string {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	formats := make([]string, 0, len(ee.exporters))
	for format := range ee.exporters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// Export writes report to writer in the given format
func (ee *ExportEngine) Export(ctx context.Context, report *models.Report, format string, writer io.Writer) error {
	if report == nil {
		return errors.NewInputError(errors.CodeInvalidRequest, "report cannot be nil")
	}

	ee.mu.RLock()
	exporter, ok := ee.exporters[strings.ToLower(format)]
	ee.mu.RUnlock()
	if !ok {
		return errors.NewInputError(errors.CodeInvalidRequest,
			fmt.Sprintf("unsupported export format %q, supported: %s", format, strings.Join(ee.GetSupportedFormats(), ", ")))
	}

	if err := exporter.Export(ctx, writer, report, ee.config.Options); err != nil {
		return fmt.Errorf("%s export failed: %w", format, err)
	}

	ee.logger.WithFields(logrus.Fields{
		"run_id":   report.RunID,
		"format":   format,
		"exporter": exporter.Name(),
	}).Debug("Exported report")

	return nil
}

// ExportToFile writes report to path. The format follows the file extension and a
// trailing ".gz" compresses the output.
func (ee *ExportEngine) ExportToFile(ctx context.Context, report *models.Report, path string) (err error) {
	format, compressed := FormatForPath(path)
	if format == "" {
		return errors.NewInputError(errors.CodeInvalidRequest,
			fmt.Sprintf("cannot infer export format from %q", path))
	}

	out, err := createOutputFile(path, compressed)
	if err != nil {
		return errors.NewSinkError(constants.SchemeFile, path, "create", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.NewSinkError(constants.SchemeFile, path, "close", cerr)
		}
	}()

	if err := ee.Export(ctx, report, format, out); err != nil {
		return err
	}

	ee.logger.WithFields(logrus.Fields{
		"run_id": report.RunID,
		"path":   path,
		"format": format,
	}).Info("Wrote report file")

	return nil
}

// FormatForPath returns the export format implied by the file extension and
// whether the file is gzip compressed
func FormatForPath(path string) (format string, compressed bool) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".gz") {
		compressed = true
		lower = strings.TrimSuffix(lower, ".gz")
	}
	return constants.GetFormatByExtension(filepath.Ext(lower)), compressed
}

func createOutputFile(path string, compressed bool) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	if compressed {
		return &gzipWriter{file: file, gzWriter: gzip.NewWriter(file)}, nil
	}
	return file, nil
}

// gzipWriter wraps gzip writer with file
type gzipWriter struct {
	file     *os.File
	gzWriter *gzip.Writer
}

func (gw *gzipWriter) Write(p []byte) (int, error) {
	return gw.gzWriter.Write(p)
}

func (gw *gzipWriter) Close() error {
	if err := gw.gzWriter.Close(); err != nil {
		gw.file.Close()
		return err
	}
	return gw.file.Close()
}

func (ee *ExportEngine) registerDefaultExporters() {
	ee.RegisterExporter(&JSONExporter{})
	ee.RegisterExporter(&CSVExporter{})
	ee.RegisterExporter(&TextExporter{})
	ee.RegisterExporter(&PNGExporter{plotter: visualization.NewPlotter(ee.config.Plot, ee.logger)})
}

func getDefaultExportConfig() *ExportConfig {
	return &ExportConfig{
		Options: ExportOptions{
			DateFormat: constants.DateLayout,
			Precision:  -1,
			Pretty:     true,
		},
	}
}
