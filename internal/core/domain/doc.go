// Package domain contains the core business entities for the MediFlow
// platform: patients, medical documents, embeddings, diagnostics, billing
// and audit records. It has no dependencies on adapters or services.
package domain
