package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"property-features/models"
	"property-features/utils"
)

// CSVReader loads header-keyed rows from CSV files. Header names are trimmed
// and lower-cased; rows whose field count differs from the header are skipped.
type CSVReader struct {
	logger *utils.Logger
}

// NewCSVReader creates a CSVReader with the given logger.
func NewCSVReader(logger *utils.Logger) *CSVReader {
	return &CSVReader{logger: logger}
}

// Read opens path and parses it.
func (c *CSVReader) Read(path string) ([]*models.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	records, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("csv: %s: %w", path, err)
	}
	c.logger.Info("[csv] Read %d rows from %s", len(records), path)
	return records, nil
}

// Parse reads a CSV stream whose first line is the header.
func (c *CSVReader) Parse(r io.Reader) ([]*models.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	var records []*models.RawRecord
	skipped := 0
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			c.logger.Debug("[csv] skipping line %d: %v", parseErr.Line, parseErr.Err)
			continue
		}
		if err != nil {
			return nil, err
		}

		line, _ := cr.FieldPos(0)
		if len(fields) != len(header) {
			skipped++
			c.logger.Debug("[csv] skipping line %d: %d fields, want %d", line, len(fields), len(header))
			continue
		}

		rec := &models.RawRecord{Line: line, Fields: make(map[string]string, len(header))}
		for i, name := range header {
			if name == "" {
				continue
			}
			if _, dup := rec.Fields[name]; !dup {
				rec.Fields[name] = fields[i]
			}
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		c.logger.Warn("[csv] skipped %d malformed lines", skipped)
	}
	return records, nil
}
