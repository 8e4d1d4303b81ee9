// Package sqlite provides persistent storage for patients, documents,
// embeddings, diagnostics, invoices and audit data backed by a single
// SQLite database file.
package sqlite
