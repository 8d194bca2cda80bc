package mailmerge

import (
	"context"
	"iter"
)

// PostActionMode tags what happened to a record before its post-action.
type PostActionMode string

const (
	PostActionSMTPSent       PostActionMode = "smtp-sent"
	PostActionDraftsUploaded PostActionMode = "drafts-uploaded"
)

// FreshStore persists the results of a generate run.
type FreshStore interface {
	// StoreFresh receives the whole batch together with the input it came
	// from, for backends that derive names from sample records.
	StoreFresh(ctx context.Context, results []MergeResult, input *RecordSet) error
}

// StorageBackend persists merge results between runs. T is the metadata a
// backend needs to find a result's artifacts again.
type StorageBackend[T any] interface {
	FreshStore

	// LoadAll lazily yields every pending result. The sequence is finite and
	// single use.
	LoadAll(ctx context.Context) iter.Seq2[*MergeResultWithMetadata[T], error]

	StoreUpdated(ctx context.Context, results []*MergeResultWithMetadata[T]) error
}

// PostActioner is implemented by backends that act on a result once it has
// been dispatched, e.g. moving it out of the pending set.
type PostActioner[T any] interface {
	PostAction(ctx context.Context, result *MergeResultWithMetadata[T], mode PostActionMode) error
}
