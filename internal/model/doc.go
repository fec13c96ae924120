// Package model defines the domain types shared across the gatherer:
// bidding zones, resolutions, decoded time points, series labels, and the
// composite records persisted to the store.
package model
