package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/pkg/logger"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSV loads records from a CSV file whose first row names the columns.
type CSV struct {
	path string
	log  *slog.Logger
}

// NewCSV creates a CSV source. A nil logger discards output.
func NewCSV(path string, log *slog.Logger) *CSV {
	if log == nil {
		log = logger.NewNope()
	}
	return &CSV{path: path, log: log}
}

// LoadRecords reads and parses the file.
func (s *CSV) LoadRecords(ctx context.Context) (*mailmerge.RecordSet, error) {
	s.log.InfoContext(ctx, "loading csv", slog.String("path", s.path))

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", mailmerge.ErrLoad, err)
	}
	records, err := ParseCSV(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	if err != nil {
		return nil, err
	}

	set, err := mailmerge.NewRecordSet(records, s.log)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "loaded records",
		slog.Int("count", len(records)),
		slog.String("headers", strings.Join(set.Headers.Sorted(), ", ")),
	)
	return set, nil
}

// ParseCSV reads a header row followed by data rows. Column names must be
// unique and every row must have as many fields as the header.
func ParseCSV(r io.Reader) ([]mailmerge.RawRecord, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty csv", mailmerge.ErrLoad)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", mailmerge.ErrLoad, err)
	}
	seen := make(mailmerge.FieldSet, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if seen.Has(h) {
			return nil, fmt.Errorf("%w: duplicate column %q", mailmerge.ErrLoad, h)
		}
		seen.Add(h)
		header[i] = h
	}

	var records []mailmerge.RawRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", mailmerge.ErrLoad, err)
		}
		rec := make(mailmerge.RawRecord, len(header))
		for i, h := range header {
			rec[h] = row[i]
		}
		records = append(records, rec)
	}
	return records, nil
}
