// Package coverage holds the per-run index of which (key, label) pairs a
// zone already has persisted. The index is built once from store state at the
// start of a zone's processing and is never refreshed mid-run, so it carries
// no consistency guarantee against concurrent writers. Its only job is to
// keep re-runs from re-writing data the store already holds; the store's
// upsert is idempotent without it.
package coverage

import "gridsync/internal/model"

// Index maps a record key (canonical timestamp or day key) to the set of
// series labels already persisted under that key for one zone.
type Index map[string]map[model.SeriesLabel]struct{}

// New returns an empty index.
func New() Index {
	return make(Index)
}

// Add records that label is present under key.
func (idx Index) Add(key string, label model.SeriesLabel) {
	labels, ok := idx[key]
	if !ok {
		labels = make(map[model.SeriesLabel]struct{})
		idx[key] = labels
	}
	labels[label] = struct{}{}
}

// Has reports whether label is already persisted under key.
func (idx Index) Has(key string, label model.SeriesLabel) bool {
	_, ok := idx[key][label]
	return ok
}

// Len returns the number of keys with at least one covered label.
func (idx Index) Len() int {
	return len(idx)
}
