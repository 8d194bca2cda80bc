package sources

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/pkg/db"
	"github.com/dmitrymomot/mailmerge/pkg/logger"
)

// Postgres loads records from a query. Column names become headers.
type Postgres struct {
	db    db.Beginner
	query string
	args  []any
	log   *slog.Logger
}

// NewPostgres creates a source running query with args in a read-only
// transaction. A nil logger discards output.
func NewPostgres(conn db.Beginner, log *slog.Logger, query string, args ...any) *Postgres {
	if log == nil {
		log = logger.NewNope()
	}
	return &Postgres{db: conn, query: query, args: args, log: log}
}

// LoadRecords runs the query and collects every row.
func (s *Postgres) LoadRecords(ctx context.Context) (*mailmerge.RecordSet, error) {
	var records []mailmerge.RawRecord

	err := db.ReadOnly(ctx, s.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, s.query, s.args...)
		if err != nil {
			return err
		}
		maps, err := pgx.CollectRows(rows, pgx.RowToMap)
		if err != nil {
			return err
		}
		records = make([]mailmerge.RawRecord, 0, len(maps))
		for _, m := range maps {
			records = append(records, uuidStrings(m))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", mailmerge.ErrLoad, err)
	}

	s.log.InfoContext(ctx, "loaded records", slog.Int("count", len(records)))
	return mailmerge.NewRecordSet(records, s.log)
}

// uuidStrings replaces UUID column values, scanned as [16]byte, with their
// string form.
func uuidStrings(row map[string]any) mailmerge.RawRecord {
	for k, v := range row {
		if b, ok := v.([16]byte); ok {
			row[k] = uuid.UUID(b).String()
		}
	}
	return row
}
