package interfaces

import (
	"context"
	"io"

	"github.com/inferloop/tsforecast/pkg/models"
)

// Storage defines the connection lifecycle shared by sources and sinks
type Storage interface {
	// Connect establishes connection to the storage backend
	Connect(ctx context.Context) error

	// Close closes the connection and cleans up resources
	Close() error

	// Ping tests the connection
	Ping(ctx context.Context) error
}

// SeriesSource loads raw tabular data for the series loader
type SeriesSource interface {
	Storage

	// GetType returns the source scheme, e.g. "file" or "s3"
	GetType() string

	// Load reads the data at location. The frame is not yet resampled.
	Load(ctx context.Context, location string) (*models.Frame, error)
}

// ReaderSource is implemented by sources that can parse an already open stream
type ReaderSource interface {
	LoadReader(ctx context.Context, name string, r io.Reader) (*models.Frame, error)
}

// ReportSink persists comparison reports
type ReportSink interface {
	// GetType returns the sink type, e.g. "redis"
	GetType() string

	// SaveReport stores the report and its rendered plot
	SaveReport(ctx context.Context, report *models.Report, plot []byte) error

	// Close releases resources
	Close() error
}

// ReportStore is a sink that can serve reports back
type ReportStore interface {
	ReportSink

	// GetReport returns the report stored under runID
	GetReport(ctx context.Context, runID string) (*models.Report, error)

	// GetPlot returns the PNG plot stored under runID
	GetPlot(ctx context.Context, runID string) ([]byte, error)
}
