// Package ingestion reads knowledge-base documents, chunks them, and persists
// the chunks with their embeddings to Postgres.
package ingestion

import (
	"path/filepath"
	"strings"
)

// DocumentFormat enumerates supported document payload formats.
type DocumentFormat string

const (
	FormatUnknown  DocumentFormat = ""
	FormatText     DocumentFormat = "text"
	FormatMarkdown DocumentFormat = "markdown"
	FormatPDF      DocumentFormat = "pdf"
	FormatCSV      DocumentFormat = "csv"
)

// DetectFormat infers a document format from the path's extension.
func DetectFormat(path string) DocumentFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return FormatText
	case ".md", ".markdown":
		return FormatMarkdown
	case ".pdf":
		return FormatPDF
	case ".csv":
		return FormatCSV
	default:
		return FormatUnknown
	}
}
