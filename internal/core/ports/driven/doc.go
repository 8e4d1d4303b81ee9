// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): stores, queues, the embedding model and the
// LLM completion service.
package driven
