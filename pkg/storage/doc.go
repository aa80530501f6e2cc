// Package storage defines audit records of answered questions and the
// sinks they are written to. Adapters live in subpackages: memory (bounded
// LRU, the default), postgres (queryable history) and redis (append-only
// stream for downstream consumers).
package storage
