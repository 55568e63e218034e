// Package embedder provides text embedding clients for vector
// representations.
//
// The Client interface is implemented by an OpenAI-compatible HTTP
// client and a local EmbedEverything model. Batching is handled inside
// each implementation based on provider limits.
package embedder
