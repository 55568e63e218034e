// Package store defines the graph persistence contract and its two
// backends: a networked Neo4j store and an embedded Badger store. Both
// satisfy GraphStore, so callers select a backend by configuration and
// never depend on the concrete type.
package store
