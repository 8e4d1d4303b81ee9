// Package memory provides in-memory implementations of the storage ports.
// Used for tests and for single-process runs without persistence. All
// stores are safe for concurrent use.
package memory
