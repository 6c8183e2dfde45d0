package aggregate

import (
	"slices"
	"sort"

	"ckcrowd/internal/canonical"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/textutil"
)

// DefaultNearDuplicateSimilarity is the cosine similarity above which two
// distinct alternatives are reported for review.
const DefaultNearDuplicateSimilarity = 0.9

// NearDuplicate is a pair of alternatives in one task that canonicalization
// kept apart but that share most of their content words.
type NearDuplicate struct {
	GroupKey   string  `json:"group_key"`
	First      string  `json:"first"`
	Second     string  `json:"second"`
	Similarity float64 `json:"similarity"`
}

// NearDuplicates scans alternative items per task.
func NearDuplicates(tasks []Task, canon *canonical.Canonicalizer, minSimilarity float64) []NearDuplicate {
	var out []NearDuplicate
	for _, t := range tasks {
		type entry struct {
			text string
			fp   *textutil.Fingerprint
		}
		var entries []entry
		for _, it := range t.Items {
			if it.Item.Kind != stage.ItemAlternative {
				continue
			}
			fp := textutil.NewFingerprint(canon.ContentWords(it.Item.Text))
			if fp == nil {
				continue
			}
			entries = append(entries, entry{text: it.Item.Text, fp: fp})
		}
		for i := 0; i < len(entries); i++ {
			for j := i + 1; j < len(entries); j++ {
				sim := textutil.CosineSimilarity(entries[i].fp, entries[j].fp)
				if sim >= minSimilarity {
					out = append(out, NearDuplicate{
						GroupKey:   t.GroupKey,
						First:      entries[i].text,
						Second:     entries[j].text,
						Similarity: sim,
					})
				}
			}
		}
	}
	return out
}

// HeadTailConflict lists facts in one task that connect the same head and
// tail through different relations.
type HeadTailConflict struct {
	GroupKey  string   `json:"group_key"`
	Head      string   `json:"head"`
	Tail      string   `json:"tail"`
	Relations []string `json:"relations"`
}

// SharedHeadTail reports head/tail pairs annotated with more than one relation.
func SharedHeadTail(tasks []Task) []HeadTailConflict {
	var out []HeadTailConflict
	for _, t := range tasks {
		relations := make(map[[2]string][]string)
		var order [][2]string
		for _, it := range t.Items {
			if it.Item.Kind != stage.ItemFact || !it.Dedupable {
				continue
			}
			pair := [2]string{canonical.CleanField(it.Item.Head), canonical.CleanField(it.Item.Tail)}
			rel := canonical.CleanRelation(it.Item.RelationText())
			if _, ok := relations[pair]; !ok {
				order = append(order, pair)
			}
			if !slices.Contains(relations[pair], rel) {
				relations[pair] = append(relations[pair], rel)
			}
		}
		for _, pair := range order {
			rels := relations[pair]
			if len(rels) < 2 {
				continue
			}
			sorted := append([]string(nil), rels...)
			sort.Strings(sorted)
			out = append(out, HeadTailConflict{GroupKey: t.GroupKey, Head: pair[0], Tail: pair[1], Relations: sorted})
		}
	}
	return out
}
