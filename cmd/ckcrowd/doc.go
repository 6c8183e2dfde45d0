// Command ckcrowd runs the stages of a crowdsourced knowledge-annotation
// campaign and reports on them.
//
// Each stage consumes a results file exported from the marketplace, merges it
// into consensus items, and writes its artifacts under the campaign
// directory. Reporting commands (status, workers, agreement) read those
// artifacts without taking the campaign lock. Payout commands plan and send
// worker bonuses through a marketplace connector.
package main
