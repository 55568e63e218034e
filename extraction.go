package mnemo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/soundprediction/mnemo/pkg/llm"
	"github.com/soundprediction/mnemo/pkg/prompts"
	"github.com/soundprediction/mnemo/pkg/types"
)

// llmExtractionOptions pins extraction to temperature zero so repeated
// ingestion of the same text stays as stable as the model allows.
func llmExtractionOptions() llm.Options {
	t := llm.DefaultTemperature
	return llm.Options{Temperature: &t}
}

// extract sends text to the language model and returns the validated
// extraction payload.
func (e *Engine) extract(ctx context.Context, text string) (*types.ExtractionPayload, error) {
	userPrompt := prompts.ExtractionUserPrompt(text, e.constraintLines())

	resp, err := e.llm.GenerateResponse(ctx, prompts.ExtractionSystemPrompt, userPrompt, llmExtractionOptions())
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	payload, err := parseExtraction(resp.Content)
	if err != nil {
		return nil, err
	}
	return e.validateExtraction(payload, resp.Content)
}

func (e *Engine) constraintLines() []string {
	if len(e.config.AllowedRelationships) == 0 {
		return nil
	}
	lines := make([]string, 0, len(e.config.AllowedRelationships))
	for _, c := range e.config.AllowedRelationships {
		lines = append(lines, fmt.Sprintf("%s %s %s", c.FromLabel, c.Type, c.ToLabel))
	}
	return lines
}

// parseExtraction coerces raw model output into an ExtractionPayload.
// Fenced code blocks are unwrapped and malformed JSON is repaired before
// giving up.
func parseExtraction(raw string) (*types.ExtractionPayload, error) {
	candidate := extractJSONBlock(raw)
	if candidate == "" {
		return nil, &ExtractionFormatError{Detail: "no JSON object found in output", Raw: raw}
	}

	var payload types.ExtractionPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(candidate)
		if rerr != nil {
			return nil, &ExtractionFormatError{Detail: rerr.Error(), Raw: raw}
		}
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			return nil, &ExtractionFormatError{Detail: err.Error(), Raw: raw}
		}
	}

	// Both arrays must be present, even if empty. An absent key leaves
	// the slice nil, which is how we tell "[]" apart from "missing".
	if payload.Entities == nil || payload.Relationships == nil {
		return nil, &ExtractionFormatError{Detail: "output is missing the entities or relationships array", Raw: raw}
	}
	return &payload, nil
}

// extractJSONBlock pulls the JSON body out of model output: the first
// fenced code block if one exists, otherwise the outermost brace span.
func extractJSONBlock(raw string) string {
	trimmed := strings.TrimSpace(raw)

	if start := strings.Index(trimmed, "```"); start >= 0 {
		rest := trimmed[start+3:]
		// Skip a language tag like ```json.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			firstLine := strings.TrimSpace(rest[:nl])
			if !strings.ContainsAny(firstLine, "{}") {
				rest = rest[nl+1:]
			}
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			trimmed = strings.TrimSpace(rest[:end])
		}
	}

	first := strings.IndexByte(trimmed, '{')
	last := strings.LastIndexByte(trimmed, '}')
	if first < 0 || last <= first {
		return ""
	}
	return trimmed[first : last+1]
}

// validateExtraction checks the payload against the model contract.
// An entity without a name or title fails the whole extraction; beyond
// that, malformed entries are dropped rather than failing the payload:
// entities with an invalid label, and relationships that are
// self-loops, duplicates, badly typed, outside the configured
// allow-list, or pointing at unknown entities.
func (e *Engine) validateExtraction(payload *types.ExtractionPayload, raw string) (*types.ExtractionPayload, error) {
	out := &types.ExtractionPayload{}

	byName := make(map[string]types.ExtractedEntity)
	for i, ent := range payload.Entities {
		name := ent.DisplayName()
		if name == "" {
			return nil, &ExtractionFormatError{
				Detail: fmt.Sprintf("extracted entity %d has neither a name nor a title", i),
				Raw:    raw,
			}
		}
		if types.ValidateEntityLabel(ent.Label) != nil {
			e.logger.Debug("dropping extracted entity with invalid label", "name", name, "label", ent.Label)
			continue
		}
		if _, ok := byName[name]; ok {
			continue
		}
		ent.Name = name
		byName[name] = ent
		out.Entities = append(out.Entities, ent)
	}

	seenRels := make(map[string]struct{})
	for _, rel := range payload.Relationships {
		if rel.From == "" || rel.To == "" || rel.From == rel.To {
			continue
		}
		if !types.IsValidRelationshipType(rel.Type) {
			e.logger.Debug("dropping extracted relationship with invalid type", "type", rel.Type)
			continue
		}
		from, fromOK := byName[rel.From]
		to, toOK := byName[rel.To]
		if !fromOK || !toOK {
			e.logger.Debug("dropping extracted relationship with unknown endpoint", "from", rel.From, "to", rel.To)
			continue
		}
		if !e.relationshipAllowed(from.Label, rel.Type, to.Label) {
			continue
		}
		key := rel.From + "|" + rel.To + "|" + rel.Type
		if _, ok := seenRels[key]; ok {
			continue
		}
		seenRels[key] = struct{}{}
		out.Relationships = append(out.Relationships, rel)
	}

	return out, nil
}

// relationshipAllowed checks the constraint allow-list; an empty list
// allows everything.
func (e *Engine) relationshipAllowed(fromLabel, relType, toLabel string) bool {
	if len(e.config.AllowedRelationships) == 0 {
		return true
	}
	for _, c := range e.config.AllowedRelationships {
		if c.FromLabel == fromLabel && c.Type == relType && c.ToLabel == toLabel {
			return true
		}
	}
	return false
}
