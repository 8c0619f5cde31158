// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): document conversion, embedding, vector
// indexing, answer generation and ledger persistence.
package driven
