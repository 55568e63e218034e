package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/soundprediction/mnemo/pkg/types"
)

// Vector search candidate sizing. When non-vector filters are applied
// after an indexed fetch, under-fetching silently degrades recall, so
// filtered searches oversample before truncating to the caller's limit.
const (
	MinFilteredCandidates = 50
	FilteredOversample    = 5
	MaxCandidates         = 500
	DefaultSearchLimit    = 10
)

// Traversal depth bounds. Out-of-range depth is a fatal input error.
const (
	MinTraversalDepth = 1
	MaxTraversalDepth = 10
)

// CandidateLimit returns how many candidates the underlying fetch must
// request for a vector search. Filtered searches request at least
// max(limit*5, 50); unfiltered searches request the limit itself. Both
// are capped at MaxCandidates.
func CandidateLimit(limit int, filtered bool) int {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	candidates := limit
	if filtered {
		candidates = limit * FilteredOversample
		if candidates < MinFilteredCandidates {
			candidates = MinFilteredCandidates
		}
	}
	if candidates > MaxCandidates {
		candidates = MaxCandidates
	}
	return candidates
}

// ValidateMaxDepth rejects traversal depths outside [1, 10].
func ValidateMaxDepth(depth int) error {
	if depth < MinTraversalDepth || depth > MaxTraversalDepth {
		return types.NewValidationError("maxDepth",
			fmt.Sprintf("%d is outside [%d, %d]", depth, MinTraversalDepth, MaxTraversalDepth))
	}
	return nil
}

// SubgraphShortCircuits reports whether a traversal can never yield a
// bounded result because neither a label filter nor a seed-id filter is
// present. Callers must return an empty subgraph without any backend
// call; this is a correctness contract, not an optimization.
func SubgraphShortCircuits(opts SubgraphOptions) bool {
	return len(opts.EntityLabels) == 0 && len(opts.SeedEntityIDs) == 0
}

// PredicateBuilder composes independent optional filter fragments into a
// single WHERE clause. It tracks whether any fragment has been emitted so
// absent fragments never leave a dangling connective behind.
type PredicateBuilder struct {
	conds  []string
	params map[string]any
}

// NewPredicateBuilder returns an empty builder.
func NewPredicateBuilder() *PredicateBuilder {
	return &PredicateBuilder{params: make(map[string]any)}
}

// Add appends a raw condition fragment.
func (b *PredicateBuilder) Add(cond string) *PredicateBuilder {
	b.conds = append(b.conds, cond)
	return b
}

// AddParam appends a condition fragment together with its bound parameter.
func (b *PredicateBuilder) AddParam(cond, name string, value any) *PredicateBuilder {
	b.conds = append(b.conds, cond)
	b.params[name] = value
	return b
}

// Empty reports whether no fragment has been added.
func (b *PredicateBuilder) Empty() bool {
	return len(b.conds) == 0
}

// Where returns the full WHERE clause, or the empty string when no
// fragment was added.
func (b *PredicateBuilder) Where() string {
	if len(b.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conds, " AND ")
}

// Params returns the bound parameters accumulated so far.
func (b *PredicateBuilder) Params() map[string]any {
	return b.params
}

// AddScopeFilter restricts alias to one scope when scopeID is set.
func (b *PredicateBuilder) AddScopeFilter(alias, scopeID string) *PredicateBuilder {
	if scopeID != "" {
		b.AddParam(alias+".scope_id = $scope_id", "scope_id", scopeID)
	}
	return b
}

// AddSeedFilter composes the id filter for seed entities. A single seed
// uses an equality comparison; multiple seeds OR together via IN. The two
// shapes must never collapse into a scalar comparison against a list.
func (b *PredicateBuilder) AddSeedFilter(alias string, seedIDs []string) *PredicateBuilder {
	switch len(seedIDs) {
	case 0:
	case 1:
		b.AddParam(alias+".id = $seed_id", "seed_id", seedIDs[0])
	default:
		b.AddParam(alias+".id IN $seed_ids", "seed_ids", seedIDs)
	}
	return b
}

// AddLabelFilter restricts alias to entities whose label is in labels.
func (b *PredicateBuilder) AddLabelFilter(alias string, labels []string) *PredicateBuilder {
	switch len(labels) {
	case 0:
	case 1:
		b.AddParam(alias+".label = $entity_label", "entity_label", labels[0])
	default:
		b.AddParam(alias+".label IN $entity_labels", "entity_labels", labels)
	}
	return b
}

// AddTemporalFilter restricts alias to records whose validity window
// contains validAt. Unset bounds are open.
func (b *PredicateBuilder) AddTemporalFilter(alias string, validAt *time.Time) *PredicateBuilder {
	if validAt == nil {
		return b
	}
	b.AddParam(
		fmt.Sprintf("(%[1]s.valid_from IS NULL OR %[1]s.valid_from <= $valid_at) AND (%[1]s.valid_to IS NULL OR %[1]s.valid_to >= $valid_at)", alias),
		// Timestamps are stored RFC3339 in UTC, so string comparison
		// is chronological.
		"valid_at", validAt.UTC().Format(time.RFC3339Nano),
	)
	return b
}

// ValidateRelationshipTypes checks every type token before it can be
// interpolated into query text.
func ValidateRelationshipTypes(relTypes []string) error {
	for _, t := range relTypes {
		if err := types.ValidateRelationshipType(t); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEntityLabels checks every label token before it can be
// interpolated into query text.
func ValidateEntityLabels(labels []string) error {
	for _, l := range labels {
		if err := types.ValidateEntityLabel(l); err != nil {
			return err
		}
	}
	return nil
}
