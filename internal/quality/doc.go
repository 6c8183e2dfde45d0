// Package quality scores workers from reviewer grades.
//
// Score folds one stage's submissions into a Record per worker. Authored
// items earn their grade; selections earn the grade signed by whether the
// worker ticked the candidate, so rejecting a bad item is rewarded the same
// way accepting a good one is. Records are rebuilt from scratch on every run.
//
// The package also grades qualification quizzes (Calibrate) and converts
// contribution counts into bonus units and amounts.
package quality
