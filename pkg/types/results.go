package types

import "fmt"

// Subgraph is the union of distinct entities and relationships discovered
// across all traversal paths, deduplicated by id.
type Subgraph struct {
	Entities      []*Entity       `json:"entities"`
	Relationships []*Relationship `json:"relationships"`
}

// EmptySubgraph returns a subgraph with non-nil empty slices.
func EmptySubgraph() *Subgraph {
	return &Subgraph{
		Entities:      []*Entity{},
		Relationships: []*Relationship{},
	}
}

// CreatedCounts reports how many records a learn call created. Document is
// 0 when an identical document already existed in the scope.
type CreatedCounts struct {
	Entities      int `json:"entities"`
	Relationships int `json:"relationships"`
	Document      int `json:"document"`
}

// Add accumulates counts from another learn call.
func (c *CreatedCounts) Add(other CreatedCounts) {
	c.Entities += other.Entities
	c.Relationships += other.Relationships
	c.Document += other.Document
}

// LearnResult is returned from a single Learn call.
type LearnResult struct {
	Document      *Document       `json:"document"`
	Context       *Context        `json:"context,omitempty"`
	Entities      []*Entity       `json:"entities"`
	Relationships []*Relationship `json:"relationships"`
	Created       CreatedCounts   `json:"created"`
	Reused        CreatedCounts   `json:"reused"`
}

// LearnBatchItem records the outcome of one batch item. Exactly one of
// Result and Error is set.
type LearnBatchItem struct {
	Index  int          `json:"index"`
	Result *LearnResult `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// LearnBatchResult aggregates a sequential batch run. Items that failed do
// not abort the batch; they are collected here alongside the successes.
type LearnBatchResult struct {
	Items     []LearnBatchItem `json:"items"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Created   CreatedCounts    `json:"created"`
	Reused    CreatedCounts    `json:"reused"`
}

// Summary renders a one-line batch outcome.
func (r *LearnBatchResult) Summary() string {
	return fmt.Sprintf("batch: %d succeeded, %d failed; created %d entities, %d relationships, %d documents",
		r.Succeeded, r.Failed, r.Created.Entities, r.Created.Relationships, r.Created.Document)
}

// AskResult is returned from an Ask call. Found is false when no entities
// or documents matched; in that case Answer states that nothing was found
// and no LLM call was made.
type AskResult struct {
	Answer        string          `json:"answer"`
	Found         bool            `json:"found"`
	Entities      []*Entity       `json:"entities"`
	Relationships []*Relationship `json:"relationships"`
	Documents     []*Document     `json:"documents,omitempty"`
}

// GraphStats summarizes a scope's graph.
type GraphStats struct {
	ScopeID       string `json:"scopeId"`
	Entities      int64  `json:"entities"`
	Documents     int64  `json:"documents"`
	Relationships int64  `json:"relationships"`
}
