package sidecar

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dmitrymomot/mailmerge"
	"github.com/dmitrymomot/mailmerge/pkg/logger"
	"github.com/dmitrymomot/mailmerge/pkg/storage"
)

// Directories results move to after dispatch.
const (
	SentDir   = "sent"
	DraftsDir = "drafts"
)

// Metadata is the storage metadata of a loaded result: its sidecar and the
// name of the sidecar file.
type Metadata struct {
	Data Data
	Path string
}

// Result is a merge result loaded from a Backend.
type Result = mailmerge.MergeResultWithMetadata[Metadata]

// Backend is a mailmerge.StorageBackend over a storage.Store.
type Backend struct {
	store   storage.Store
	namer   Namer
	dynamic DynamicNamer
	log     *slog.Logger
}

var (
	_ mailmerge.StorageBackend[Metadata] = (*Backend)(nil)
	_ mailmerge.PostActioner[Metadata]   = (*Backend)(nil)
)

// Option configures a Backend.
type Option func(*Backend)

// WithNamer names records with a fixed namer.
func WithNamer(n Namer) Option {
	return func(b *Backend) { b.namer = n }
}

// WithDynamicNamer resolves the namer from the input of each generate run.
func WithDynamicNamer(n DynamicNamer) Option {
	return func(b *Backend) { b.dynamic = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// New creates a Backend. A namer is only needed to store fresh results.
func New(store storage.Store, opts ...Option) *Backend {
	b := &Backend{store: store, log: logger.NewNope()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// StoreFresh writes the previews and sidecar of every result. Records that
// fail validation or whose name is empty or contains a path separator or
// "__" are skipped. Records sharing a name get a numeric suffix.
func (b *Backend) StoreFresh(ctx context.Context, results []mailmerge.MergeResult, input *mailmerge.RecordSet) error {
	namer, err := b.resolveNamer(ctx, input)
	if err != nil {
		return err
	}

	used := make(map[string]int, len(results))
	stored := 0
	for _, r := range results {
		if v := mailmerge.ValidateRecord(r.Record); !v.Valid {
			b.log.WarnContext(ctx, "skipping invalid record", slog.String("reason", v.Reason))
			continue
		}

		prefix, err := uniqueName(RecordPrefix(r.Record, namer), used)
		if err != nil {
			b.log.WarnContext(ctx, "skipping record with unusable name",
				slog.String("to", r.Record.String(mailmerge.FieldTo)),
				logger.Err(err),
			)
			continue
		}

		data, contents := Split(prefix, r)
		for _, c := range contents {
			if err := b.store.Write(ctx, c.Filename, []byte(c.Content)); err != nil {
				return err
			}
		}
		if err := b.writeSidecar(ctx, prefix+MetadataSuffix, data); err != nil {
			return err
		}
		stored++
		b.log.DebugContext(ctx, "stored record", slog.String("name", prefix), slog.Int("files", len(contents)))
	}

	b.log.InfoContext(ctx, "previews written, review them before sending", slog.Int("records", stored))
	return nil
}

func (b *Backend) resolveNamer(ctx context.Context, input *mailmerge.RecordSet) (Namer, error) {
	switch {
	case b.namer != nil:
		return b.namer, nil
	case b.dynamic != nil:
		var (
			headers mailmerge.FieldSet
			records []mailmerge.RawRecord
		)
		if input != nil {
			headers, records = input.Headers, input.Records
		}
		return b.dynamic(ctx, headers, records)
	default:
		return nil, ErrNoNamer
	}
}

func uniqueName(name string, used map[string]int) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, partsSeparator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name, nil
	}
	return uniqueName(name+"-"+strconv.Itoa(n+1), used)
}

// LoadAll yields every sidecar at the top level of the store, in name order,
// with the content of its previews.
func (b *Backend) LoadAll(ctx context.Context) iter.Seq2[*Result, error] {
	return func(yield func(*Result, error) bool) {
		names, err := b.store.List(ctx, MetadataSuffix)
		if err != nil {
			yield(nil, err)
			return
		}
		b.log.InfoContext(ctx, "loading sidecars", slog.Int("count", len(names)))

		for _, name := range names {
			r, err := b.load(ctx, name)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (b *Backend) load(ctx context.Context, name string) (*Result, error) {
	raw, err := b.store.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	data, err := Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	contents := make([]PreviewContent, len(data.Files))
	for i, f := range data.Files {
		content, err := b.store.Read(ctx, f.Filename)
		if err != nil {
			return nil, err
		}
		contents[i] = PreviewContent{Filename: f.Filename, Content: string(content)}
	}

	result, err := data.Join(contents)
	if err != nil {
		return nil, err
	}
	return &Result{
		MergeResult:     result,
		StorageMetadata: Metadata{Data: data, Path: name},
	}, nil
}

// StoreUpdated overwrites the content files of every result and rewrites its
// sidecar with the new preview metadata.
func (b *Backend) StoreUpdated(ctx context.Context, results []*Result) error {
	for _, r := range results {
		data := r.StorageMetadata.Data
		if len(r.Previews) != len(data.Files) {
			return fmt.Errorf("%w: %s: %d previews for %d files",
				ErrCorruptSidecar, data.Name, len(r.Previews), len(data.Files))
		}

		files := make([]File, len(data.Files))
		for i, p := range r.Previews {
			f := data.Files[i]
			if err := b.store.Write(ctx, f.Filename, []byte(p.Content)); err != nil {
				return err
			}
			files[i] = File{
				Filename:   f.Filename,
				EngineData: PreviewMetadata{Name: p.Name, Metadata: p.Metadata},
			}
		}
		data.Files = files

		if err := b.writeSidecar(ctx, r.StorageMetadata.Path, data); err != nil {
			return err
		}
		r.StorageMetadata.Data = data
		b.log.DebugContext(ctx, "updated record", slog.String("name", data.Name))
	}
	return nil
}

// PostAction moves the files of a dispatched result out of the pending set.
func (b *Backend) PostAction(ctx context.Context, r *Result, mode mailmerge.PostActionMode) error {
	var dir string
	switch mode {
	case mailmerge.PostActionSMTPSent:
		dir = SentDir
	case mailmerge.PostActionDraftsUploaded:
		dir = DraftsDir
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	data := r.StorageMetadata.Data
	for _, f := range data.Files {
		if err := b.store.Move(ctx, f.Filename, dir); err != nil {
			return err
		}
	}
	if err := b.store.Move(ctx, r.StorageMetadata.Path, dir); err != nil {
		return err
	}
	b.log.InfoContext(ctx, "moved record", slog.String("name", data.Name), slog.String("dir", dir))
	return nil
}

func (b *Backend) writeSidecar(ctx context.Context, name string, data Data) error {
	raw, err := data.Marshal()
	if err != nil {
		return err
	}
	return b.store.Write(ctx, name, raw)
}
