package canonical

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"ckcrowd/internal/knowledge"
	"ckcrowd/internal/stage"
	"ckcrowd/internal/submission"
)

// Key identifies the canonical form of an item. Equal keys mean the items are
// duplicates of each other.
type Key string

const (
	factPrefix        = "f\t"
	alternativePrefix = "a\t"
	separator         = "\t"
)

// Options controls free-text canonicalization.
type Options struct {
	ExcludeStopwords bool
	Lemmatize        bool
}

// Canonicalizer computes comparison keys. It is stateless and safe for
// concurrent use.
type Canonicalizer struct {
	opts Options
}

// New builds a Canonicalizer.
func New(opts Options) *Canonicalizer {
	return &Canonicalizer{opts: opts}
}

// Key dispatches on the item kind. ok is false when the item cannot be
// parsed; such items must be treated as unique.
func (c *Canonicalizer) Key(item submission.Item) (Key, bool) {
	if item.Kind == stage.ItemAlternative {
		return c.AlternativeKey(item.Text)
	}
	return c.FactKey(item.Head, item.RelationText(), item.Tail)
}

// FactKey canonicalizes a (head, relation, tail) triple. Comparison is
// case-sensitive; the negation prefix stays part of the relation.
func (c *Canonicalizer) FactKey(head, relation, tail string) (Key, bool) {
	h := CleanField(head)
	r := CleanRelation(relation)
	t := CleanField(tail)
	if h == "" || r == "" || t == "" {
		return "", false
	}
	return Key(factPrefix + h + separator + r + separator + t), true
}

// AlternativeKey reduces free text to a sorted multiset of content words.
func (c *Canonicalizer) AlternativeKey(text string) (Key, bool) {
	words := c.ContentWords(text)
	if len(words) == 0 {
		return "", false
	}
	sorted := append([]string(nil), words...)
	sort.Strings(sorted)
	return Key(alternativePrefix + strings.Join(sorted, " ")), true
}

// ContentWords tokenizes text into case-folded, optionally stemmed words with
// stopwords removed. When every word is a stopword the unfiltered words are
// returned so short replies still compare.
func (c *Canonicalizer) ContentWords(text string) []string {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	kept := tokens
	if c.opts.ExcludeStopwords {
		kept = make([]string, 0, len(tokens))
		for _, tok := range tokens {
			if !IsStopword(tok) {
				kept = append(kept, tok)
			}
		}
		if len(kept) == 0 {
			kept = tokens
		}
	}
	out := make([]string, len(kept))
	for i, tok := range kept {
		if c.opts.Lemmatize {
			tok = english.Stem(tok, false)
		}
		out[i] = tok
	}
	return out
}

// Tokenize splits NFKC-normalized, case-folded text on anything that is not
// a letter or digit.
func Tokenize(text string) []string {
	folded := cases.Fold().String(norm.NFKC.String(text))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var fieldReplacer = strings.NewReplacer("#squote#", "'", "#dquote#", "\"")

// CleanField normalizes one fact field: NFKC, form escapes undone, internal
// whitespace collapsed, surrounding quotes and trailing sentence punctuation
// removed. Case is preserved.
func CleanField(value string) string {
	value = fieldReplacer.Replace(norm.NFKC.String(value))
	value = strings.Join(strings.Fields(value), " ")
	for {
		trimmed := strings.TrimFunc(value, isQuote)
		trimmed = strings.TrimRightFunc(trimmed, isTrailingPunct)
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == value {
			return value
		}
		value = trimmed
	}
}

// CleanRelation normalizes a relation label and its negation prefix so that
// "not  IsA" and "Not IsA" agree while "IsA" stays distinct.
func CleanRelation(value string) string {
	return knowledge.ParseRelation(CleanField(value)).String()
}

func isQuote(r rune) bool {
	switch r {
	case '"', '\'', '`', '‘', '’', '“', '”', '«', '»':
		return true
	}
	return false
}

func isTrailingPunct(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '!', '?':
		return true
	}
	return false
}
