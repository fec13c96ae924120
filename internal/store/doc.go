// Package store is the PostgreSQL persistence layer: coverage reads and
// batched insert-or-merge-fields upserts for both record granularities.
// The open-ended series label set lives in jsonb columns, so an upsert
// merges new labels into an existing row without touching the others.
package store
