// Package campaign persists stage artifacts in a flat directory.
//
// Each stage owns a subdirectory holding one JSON file per artifact. Files
// are envelopes carrying the schema version, stage, artifact kind, and run id,
// and are checked against the expected stage and kind when read, so a
// misplaced or stale file fails loudly instead of feeding the wrong stage.
// A run takes an exclusive file lock on the campaign for its duration.
package campaign
