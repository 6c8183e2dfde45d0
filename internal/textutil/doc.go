// Package textutil provides term-frequency fingerprints and cosine similarity
// over token slices.
//
// Callers tokenize and normalize text first (see package canonical); this
// package only measures how close two bags of tokens are. The aggregator uses
// it to flag near-duplicate alternatives that canonicalization kept apart.
package textutil
