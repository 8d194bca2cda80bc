// Package sources provides record sources for a merge: CSV and JSON files and
// PostgreSQL queries. Every source returns a mailmerge.RecordSet whose headers
// come from the first record and fails with mailmerge.ErrLoad on empty or
// malformed input.
package sources
