// Package preflight provides readiness checks for the filesystem paths and
// external services a campaign depends on.
//
// The CLI "ckcrowd doctor" command runs RunAll and prints one line per check.
// The ntfy check is skipped when no topic is configured.
package preflight
