// Package aggregate merges worker submissions into per-task vote tallies.
//
// Submissions are grouped by task (or by task plus the set of facts an
// alternative was written from), duplicate items are collapsed by canonical
// key, and each merged item records who voted for it. Items below threshold
// stay in the output for audit; Forward produces the subset the next stage
// may consume. Groups merge concurrently but output order only depends on
// input order. An assignment submitted twice aborts the pass with a
// DuplicateError.
package aggregate
