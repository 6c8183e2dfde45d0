// Package dataset prepares stage input batches from forward sets and
// assembles the final labeled dataset from adjudicated tasks.
package dataset
