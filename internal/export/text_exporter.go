package export

import (
	"context"
	"io"

	"github.com/inferloop/tsforecast/internal/visualization"
	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/models"
)

// TextExporter writes the terminal report
type TextExporter struct{}

// Name returns the exporter name
func (te *TextExporter) Name() string {
	return "text"
}

// SupportedFormats returns supported formats
func (te *TextExporter) SupportedFormats() []string {
	return []string{constants.FormatText}
}

// Export writes the report as aligned text tables
func (te *TextExporter) Export(ctx context.Context, writer io.Writer, report *models.Report, options ExportOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return visualization.WriteReport(writer, report)
}

// PNGExporter writes the forecast plot
type PNGExporter struct {
	plotter *visualization.Plotter
}

// Name returns the exporter name
func (pe *PNGExporter) Name() string {
	return "png"
}

// SupportedFormats returns supported formats
func (pe *PNGExporter) SupportedFormats() []string {
	return []string{constants.FormatPNG}
}

// Export draws the forecast panels as PNG
func (pe *PNGExporter) Export(ctx context.Context, writer io.Writer, report *models.Report, options ExportOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return pe.plotter.WritePNG(writer, report)
}
