// Package adjudication handles the expert round: it finds candidates the
// experts split on and applies an operator's YAML resolution file on top of
// the vote outcome.
package adjudication
