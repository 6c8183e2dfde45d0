// Package submission models worker submissions for every pipeline stage and
// loads them from marketplace result files.
//
// A Submission carries the fields shared by all stages; which of the optional
// fields must be present is declared by the stage's Definition and checked by
// Validate. Ingest applies those checks to a batch, keeps the valid records in
// input order and collects everything else in a SkipReport instead of failing
// the run.
package submission
