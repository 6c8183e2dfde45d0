// Package logs reads the ckcrowd log file for the `logs` command.
//
// Tail returns the last lines of the file, or the lines appended after a
// byte offset, optionally waiting for new output. A Match filter keeps only
// lines containing every given term, which is how the CLI narrows output to
// one stage or run id.
package logs
