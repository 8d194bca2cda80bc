// Package storage provides the flat file store that holds merge previews.
//
// A Store is a directory-like namespace of named files: previews and their
// sidecar metadata are written at the top level, and dispatched records are
// moved into subdirectories such as "sent" or "drafts". List only sees the top
// level, so moved files are never offered again.
//
// Two implementations are provided:
//
//	local := storage.NewLocal("previews/2024-welcome")
//	remote, err := storage.NewS3(ctx, storage.Config{Bucket: "mailmerge", Prefix: "previews/2024-welcome"})
//
// Open picks one from a location string, treating s3://bucket/prefix as S3
// and anything else as a local directory.
package storage
