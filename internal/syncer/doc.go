// Package syncer orchestrates a synchronization run: it sweeps each
// configured zone through the planner's window sequence, fetches and merges
// both sources per window, and persists the composite records. Restart
// safety comes from idempotent writes, not in-run checkpointing.
package syncer
