package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// Format describes the CSV dialect of a source file
type Format struct {
	Delimiter rune
	// Charset decodes the file. nil means UTF-8.
	Charset *charmap.Charmap
	Header  bool
}

// utf8Marker is written into the first cell by exports that were converted
// to UTF-8 after the fact
const utf8Marker = "utf-8"

// Row is one CSV record with optional access by header name
type Row struct {
	Line    int
	fields  []string
	columns map[string]int
}

// At returns the trimmed field at index i, "" when out of range
func (r Row) At(i int) string {
	if i < 0 || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// Field returns the trimmed field below the named header column
func (r Row) Field(name string) string {
	if idx, ok := r.columns[name]; ok {
		return r.At(idx)
	}
	return ""
}

// Int parses the field at index i
func (r Row) Int(i int) (int, error) {
	return strconv.Atoi(r.At(i))
}

// Float parses the field at index i. A decimal comma is accepted.
func (r Row) Float(i int) (float64, error) {
	return parseDecimal(r.At(i))
}

func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

func makeColumnMap(header []string) map[string]int {
	colMap := make(map[string]int)
	for i, col := range header {
		colMap[strings.TrimSpace(col)] = i
	}
	return colMap
}

// decode converts the raw file content to UTF-8
func decode(content []byte, f Format) io.Reader {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if f.Charset == nil {
		return bytes.NewReader(content)
	}

	firstLine := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		firstLine = content[:i]
	}
	firstCell := firstLine
	if i := bytes.IndexRune(firstLine, f.Delimiter); i >= 0 {
		firstCell = firstLine[:i]
	}
	if f.Header && strings.TrimSpace(string(firstCell)) == utf8Marker {
		return bytes.NewReader(content)
	}
	return f.Charset.NewDecoder().Reader(bytes.NewReader(content))
}

// parse reads all rows of r and converts them with fn. Rows that fail to
// convert are logged and skipped; fn returns ok=false to drop a row
// silently.
func parse[T any](r io.Reader, f Format, logger *zap.Logger, fn func(row Row) (value T, ok bool, err error)) ([]T, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	csvReader := csv.NewReader(decode(content, f))
	csvReader.Comma = f.Delimiter
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	var columns map[string]int
	line := 0
	if f.Header {
		header, err := csvReader.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		line++
		columns = makeColumnMap(header)
	}

	var out []T
	skipped := 0
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			logger.Warn("skipping malformed row", zap.Int("line", line), zap.Error(err))
			skipped++
			continue
		}

		value, ok, err := fn(Row{Line: line, fields: record, columns: columns})
		if err != nil {
			logger.Warn("skipping invalid row", zap.Int("line", line), zap.Error(err))
			skipped++
			continue
		}
		if ok {
			out = append(out, value)
		}
	}

	logger.Debug("parsed csv", zap.Int("rows", len(out)), zap.Int("skipped", skipped))
	return out, nil
}
