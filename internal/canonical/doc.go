// Package canonical decides when two worker-authored items are the same item.
//
// Facts compare on their trimmed (head, relation, tail) with case preserved
// and the "Not" prefix kept inside the relation. Free-text alternatives
// compare on the sorted multiset of their content words: case-folded,
// stemmed with the Snowball English stemmer, and optionally without
// stopwords. Canonicalization is total: items that cannot be parsed return
// ok=false and callers keep them unique rather than dropping them.
package canonical
