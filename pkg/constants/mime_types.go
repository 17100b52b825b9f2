package constants

import "strings"

// MIME type constants for report outputs
const (
	MimeTypeJSON = "application/json"
	MimeTypeCSV  = "text/csv"
	MimeTypePNG  = "image/png"
	MimeTypeText = "text/plain"
)

// formatMap maps file extensions to report formats
var formatMap = map[string]string{
	".json": FormatJSON,
	".csv":  FormatCSV,
	".png":  FormatPNG,
	".txt":  FormatText,
}

// GetFormatByExtension returns the report format for a file extension, or ""
func GetFormatByExtension(ext string) string {
	return formatMap[strings.ToLower(ext)]
}
