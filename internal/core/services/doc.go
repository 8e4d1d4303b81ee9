// Package services implements the application use cases: the indexing
// pipeline, similarity retrieval, grounded diagnostic generation, intake
// extraction, billing optimisation and security anomaly detection.
// Services depend only on domain types and driven ports.
package services
