// Package types defines the data model shared across the mnemo engine:
// entities, documents, relationships, scopes, ingestion contexts, and the
// result shapes returned by the public operations. It also carries the
// label and relationship-type validation that guards query construction.
package types
