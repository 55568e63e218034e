// Package prompts holds the prompt templates sent to the language model
// for knowledge extraction and question answering.
package prompts

import (
	"fmt"
	"strings"
)

// ExtractionSystemPrompt instructs the model to emit a strict JSON
// payload of entities and relationships.
const ExtractionSystemPrompt = `You are an AI assistant that extracts a knowledge graph from text.
Your task is to identify the significant entities mentioned in the text and the relationships between them.

Respond with a single JSON object, no prose, in this format:

{
  "entities": [
    {"name": "Ada Lovelace", "label": "Person", "properties": {"occupation": "mathematician"}}
  ],
  "relationships": [
    {"from": "Ada Lovelace", "to": "Charles Babbage", "type": "COLLABORATED_WITH", "properties": {}}
  ]
}

Rules:
- Every entity must have a non-empty "name" (or "title") and a "label" in UpperCamelCase (for example Person, Organization, Place).
- Every relationship "type" must be UPPER_SNAKE_CASE and its "from" and "to" must name entities from the "entities" array.
- Do not invent entities or relationships the text does not support.`

// ExtractionUserPrompt wraps the source text for extraction. When
// allowedRelationships is non-empty the model is constrained to those
// (fromLabel, type, toLabel) triples.
func ExtractionUserPrompt(text string, allowedRelationships []string) string {
	var b strings.Builder
	if len(allowedRelationships) > 0 {
		b.WriteString("Only use these relationship patterns (FromLabel TYPE ToLabel):\n")
		for _, r := range allowedRelationships {
			b.WriteString("- ")
			b.WriteString(r)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString("<TEXT>\n")
	b.WriteString(text)
	b.WriteString("\n</TEXT>")
	return b.String()
}

// AnswerSystemPrompt instructs the model to answer only from supplied
// graph context.
const AnswerSystemPrompt = `You are an AI assistant that answers questions using a knowledge graph.
You will be given graph context: entities, relationships, and source documents retrieved for the question.
Answer using only that context. If the context does not contain the answer, say so plainly instead of guessing.`

// AnswerUserPrompt combines the question with the assembled graph
// context.
func AnswerUserPrompt(question, graphContext string) string {
	return fmt.Sprintf("<CONTEXT>\n%s\n</CONTEXT>\n\nQuestion: %s", graphContext, question)
}
