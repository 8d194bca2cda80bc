package mailmerge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/mailmerge/pkg/logger"
)

// DataSource loads the records of a merge.
type DataSource interface {
	LoadRecords(ctx context.Context) (*RecordSet, error)
}

// RecordSet is the loaded input of a run.
type RecordSet struct {
	Headers FieldSet
	Records []RawRecord
}

// NewRecordSet derives headers from the first record and normalises every
// value with NormalizeRecord. Later records with a different key set are
// reported but kept.
func NewRecordSet(records []RawRecord, log *slog.Logger) (*RecordSet, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrLoad)
	}
	if log == nil {
		log = logger.NewNope()
	}

	headers := make(FieldSet, len(records[0]))
	for k := range records[0] {
		headers.Add(k)
	}

	for i, r := range records[1:] {
		if !sameKeys(headers, r) {
			log.Warn("record keys differ from the first record",
				slog.Int("index", i+1),
				slog.Any("headers", headers.Sorted()),
			)
		}
	}

	normalized := make([]RawRecord, len(records))
	for i, r := range records {
		n, err := NormalizeRecord(r)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrLoad, i, err)
		}
		normalized[i] = n
	}

	return &RecordSet{Headers: headers, Records: normalized}, nil
}

func sameKeys(headers FieldSet, r RawRecord) bool {
	if len(headers) != len(r) {
		return false
	}
	for k := range r {
		if !headers.Has(k) {
			return false
		}
	}
	return true
}
