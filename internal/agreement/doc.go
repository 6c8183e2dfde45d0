// Package agreement computes inter-rater reliability over selection votes.
//
// Only items rated by exactly the configured number of raters enter the
// VoteMatrix; the rest are counted as excluded. Fleiss' kappa and
// Krippendorff's alpha are computed independently over the same matrix so
// that a large gap between them points at a matrix construction problem.
// Degenerate matrices yield undefined statistics rather than errors.
package agreement
