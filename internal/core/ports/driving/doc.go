// Package driving provides interfaces for the application's use cases
// (primary/inbound ports) as consumed by the CLI, the agents and the
// ingest watcher.
package driving
