// Package domain contains the core business entities for the knowledge
// base: source documents, provenance-tagged chunks, ledger entries and
// build reports. It has no dependencies on adapters or services.
package domain
