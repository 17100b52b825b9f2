package export

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/models"
)

// JSONExporter writes the full report wrapped with export metadata
type JSONExporter struct{}

// JSONExportInfo describes an exported report
type JSONExportInfo struct {
	Format      string    `json:"format"`
	Version     string    `json:"version"`
	ExportedAt  time.Time `json:"exported_at"`
	Forecasters int       `json:"forecasters"`
	Failed      int       `json:"failed"`
	Best        string    `json:"best,omitempty"`
}

// JSONExportWrapper is the document written by JSONExporter
type JSONExportWrapper struct {
	Info   JSONExportInfo `json:"export_info"`
	Report *models.Report `json:"report"`
}

// Name returns the exporter name
func (je *JSONExporter) Name() string {
	return "json"
}

// SupportedFormats returns supported formats
func (je *JSONExporter) SupportedFormats() []string {
	return []string{constants.FormatJSON}
}

// Export writes the report as a JSON document
func (je *JSONExporter) Export(ctx context.Context, writer io.Writer, report *models.Report, options ExportOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	comparison := models.Comparison{Outcomes: report.Outcomes}
	info := JSONExportInfo{
		Format:      constants.FormatJSON,
		Version:     constants.AppVersion,
		ExportedAt:  time.Now().UTC(),
		Forecasters: len(report.Outcomes),
		Failed:      len(comparison.Failures()),
	}
	if report.Ranking.HasBest() {
		info.Best = report.Ranking.Best
	}

	encoder := json.NewEncoder(writer)
	if options.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(JSONExportWrapper{Info: info, Report: report})
}
