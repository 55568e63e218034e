package mnemo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/soundprediction/mnemo/pkg/types"
)

// Context assembly budgets. The assembled context is what gets sent to
// the answering model, so it is hard-capped by character count with
// documents taking priority over graph records.
const (
	contextCharBudget   = 200_000
	documentBudgetShare = 0.6
	maxPropertyValueLen = 200
	maxDisplayItems     = 100
)

// buildContext renders retrieved documents, entities, and relationships
// into the text block handed to the answering model.
func buildContext(docs []*types.Document, entities []*types.Entity, rels []*types.Relationship) string {
	var b strings.Builder
	remaining := contextCharBudget

	docBudget := int(float64(contextCharBudget) * documentBudgetShare)
	used := writeDocumentSection(&b, docs, docBudget)
	remaining -= used

	remaining -= writeEntitySection(&b, entities, remaining)
	writeRelationshipSection(&b, rels, entities, remaining)

	return strings.TrimRight(b.String(), "\n")
}

func writeDocumentSection(b *strings.Builder, docs []*types.Document, budget int) int {
	if len(docs) == 0 {
		return 0
	}

	start := b.Len()
	shown := 0
	header := sectionHeader("SOURCE DOCUMENTS")
	b.WriteString(header)
	budget -= len(header)

	for _, doc := range docs {
		if shown >= maxDisplayItems {
			break
		}
		entry := fmt.Sprintf("- %s\n", doc.Text)
		if len(entry) > budget {
			// A single oversized document is truncated rather than
			// dropped so at least the prefix survives.
			if budget > 16 {
				entry = "- " + truncate(doc.Text, budget-6) + "\n"
			} else {
				break
			}
		}
		b.WriteString(entry)
		budget -= len(entry)
		shown++
	}
	writeOverflow(b, shown, len(docs))
	b.WriteByte('\n')
	return b.Len() - start
}

func writeEntitySection(b *strings.Builder, entities []*types.Entity, budget int) int {
	if len(entities) == 0 || budget <= 0 {
		return 0
	}

	start := b.Len()
	shown := 0
	header := sectionHeader("ENTITIES")
	b.WriteString(header)
	budget -= len(header)

	for _, entity := range entities {
		if shown >= maxDisplayItems {
			break
		}
		entry := formatEntity(entity)
		if len(entry) > budget {
			break
		}
		b.WriteString(entry)
		budget -= len(entry)
		shown++
	}
	writeOverflow(b, shown, len(entities))
	b.WriteByte('\n')
	return b.Len() - start
}

func writeRelationshipSection(b *strings.Builder, rels []*types.Relationship, entities []*types.Entity, budget int) {
	if len(rels) == 0 || budget <= 0 {
		return
	}

	nameByID := make(map[string]string, len(entities))
	for _, entity := range entities {
		nameByID[entity.ID] = entity.Name
	}

	shown := 0
	header := sectionHeader("RELATIONSHIPS")
	b.WriteString(header)
	budget -= len(header)

	for _, rel := range rels {
		if shown >= maxDisplayItems {
			break
		}
		from := nameByID[rel.FromID]
		if from == "" {
			from = rel.FromID
		}
		to := nameByID[rel.ToID]
		if to == "" {
			to = rel.ToID
		}
		entry := fmt.Sprintf("- %s %s %s\n", from, rel.Type, to)
		if len(entry) > budget {
			break
		}
		b.WriteString(entry)
		budget -= len(entry)
		shown++
	}
	writeOverflow(b, shown, len(rels))
}

// formatEntity renders one entity line with its open properties.
// Reserved keys never reach the model; long values are truncated.
func formatEntity(entity *types.Entity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- %s (%s)", entity.Name, entity.Label)

	props := types.ScrubProperties(entity.Properties)
	if len(props) > 0 {
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, truncate(fmt.Sprintf("%v", props[k]), maxPropertyValueLen)))
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, ", "))
	}
	b.WriteByte('\n')
	return b.String()
}

func sectionHeader(name string) string {
	return fmt.Sprintf("## %s\n", name)
}

// writeOverflow notes hidden items when a section was capped.
func writeOverflow(b *strings.Builder, shown, total int) {
	if shown < total {
		fmt.Fprintf(b, "(%d of %d total)\n", shown, total)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
