// Package knowledge holds the commonsense relation taxonomy: which dimension
// each relation belongs to and how a fact reads as an English sentence.
package knowledge
