// Package workflow runs one campaign stage end to end.
//
// A Runner checks that the previous stage left a forward set, ingests the
// stage's submissions (schema-checked records plus the contract with the
// upstream forward set), merges them into tasks, scores workers, computes
// agreement for selection stages, and writes every result as an artifact in
// the campaign directory. The expert stage also applies operator resolutions
// and assembles the labeled dataset.
//
// Stage runs log "stage started", "stage completed" and "stage failed" with
// the stage and run id stamped on every line. Add a stage by extending
// stage.Kind and its Definition; this package only sequences the steps.
package workflow
