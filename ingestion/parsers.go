package ingestion

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

type DocumentPayload struct {
	Path string
	Data []byte
}

type ParsedDocument struct {
	Title  string
	Chunks []string
}

type DocumentParser interface {
	Parse(ctx context.Context, payload DocumentPayload) (*ParsedDocument, error)
}

// ParserFor returns the parser for a detected format, or nil when the format
// is unsupported.
func ParserFor(format DocumentFormat) DocumentParser {
	switch format {
	case FormatText:
		return textParser{}
	case FormatMarkdown:
		return markdownParser{}
	case FormatPDF:
		return pdfParser{}
	case FormatCSV:
		return csvParser{}
	default:
		return nil
	}
}

type textParser struct{}

func (textParser) Parse(_ context.Context, payload DocumentPayload) (*ParsedDocument, error) {
	content := normalizePlainText(string(payload.Data))
	title := firstNonEmptyLine(content)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(payload.Path), filepath.Ext(payload.Path))
	}

	return &ParsedDocument{
		Title:  title,
		Chunks: ChunkText(content, defaultChunkSize, defaultChunkOverlap),
	}, nil
}

type markdownParser struct{}

func (markdownParser) Parse(_ context.Context, payload DocumentPayload) (*ParsedDocument, error) {
	content := string(payload.Data)

	return &ParsedDocument{
		Title:  ExtractTitle(content, filepath.Base(payload.Path)),
		Chunks: ChunkText(content, defaultChunkSize, defaultChunkOverlap),
	}, nil
}

type pdfParser struct{}

func (pdfParser) Parse(_ context.Context, payload DocumentPayload) (*ParsedDocument, error) {
	reader, err := pdf.NewReader(bytes.NewReader(payload.Data), int64(len(payload.Data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	content := normalizePlainText(buf.String())
	title := firstNonEmptyLine(content)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(payload.Path), filepath.Ext(payload.Path))
	}

	return &ParsedDocument{
		Title:  title,
		Chunks: ChunkText(content, defaultChunkSize, defaultChunkOverlap),
	}, nil
}

type csvParser struct{}

func (csvParser) Parse(_ context.Context, payload DocumentPayload) (*ParsedDocument, error) {
	records, err := csv.NewReader(bytes.NewReader(payload.Data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(payload.Path), filepath.Ext(payload.Path))
	if len(records) == 0 {
		return &ParsedDocument{Title: title}, nil
	}

	headers := records[0]
	rows := records[1:]

	paragraphs := make([]string, 0, len(rows))
	for idx, row := range rows {
		paragraphs = append(paragraphs, formatCSVRow(headers, row, idx))
	}

	content := strings.Join(paragraphs, "\n\n")
	return &ParsedDocument{
		Title:  title,
		Chunks: ChunkText(content, defaultChunkSize, defaultChunkOverlap),
	}, nil
}

// ExtractTitle returns the first markdown heading, falling back to the given
// name when the document has none.
func ExtractTitle(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}
	return fallback
}

func normalizePlainText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

func firstNonEmptyLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func formatCSVRow(headers, row []string, idx int) string {
	builder := &strings.Builder{}
	fmt.Fprintf(builder, "Row %d", idx+1)

	limit := len(headers)
	if len(row) < limit {
		limit = len(row)
	}

	for i := 0; i < limit; i++ {
		header := strings.TrimSpace(headers[i])
		if header == "" {
			header = fmt.Sprintf("Column %d", i+1)
		}
		fmt.Fprintf(builder, "\n%s: %s", header, strings.TrimSpace(row[i]))
	}

	for i := len(headers); i < len(row); i++ {
		fmt.Fprintf(builder, "\nExtra %d: %s", i+1, strings.TrimSpace(row[i]))
	}

	return builder.String()
}
