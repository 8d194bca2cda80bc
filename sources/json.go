package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/pkg/logger"
)

// JSON loads records from a file holding an array of objects.
type JSON struct {
	path string
	log  *slog.Logger
}

// NewJSON creates a JSON source. A nil logger discards output.
func NewJSON(path string, log *slog.Logger) *JSON {
	if log == nil {
		log = logger.NewNope()
	}
	return &JSON{path: path, log: log}
}

// LoadRecords reads and decodes the file.
func (s *JSON) LoadRecords(ctx context.Context) (*mailmerge.RecordSet, error) {
	s.log.InfoContext(ctx, "loading json", slog.String("path", s.path))

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", mailmerge.ErrLoad, err)
	}
	records, err := ParseJSON(data)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "loaded records", slog.Int("count", len(records)))
	return mailmerge.NewRecordSet(records, s.log)
}

// ParseJSON decodes an array of objects. Integral numbers become int64,
// other numbers float64.
func ParseJSON(data []byte) ([]mailmerge.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", mailmerge.ErrLoad, err)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: json must be a list of objects", mailmerge.ErrLoad)
	}

	records := make([]mailmerge.RawRecord, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: item %d is not an object", mailmerge.ErrLoad, i)
		}
		records = append(records, mailmerge.RawRecord(mailmerge.CanonicalJSON(obj).(map[string]any)))
	}
	return records, nil
}
