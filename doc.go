// Package mnemo implements a retrieval-augmented knowledge graph
// engine. Free text is turned into a property graph of entities and
// relationships by a language model, deduplicated against what the
// graph already knows, and queried back through vector retrieval,
// subgraph traversal, and grounded question answering.
//
// The engine is storage-agnostic: a networked Neo4j backend and an
// embedded Badger backend both satisfy the same store contract, so
// callers pick one by configuration.
package mnemo
