package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLearnRequestValidate(t *testing.T) {
	assert.NoError(t, (&LearnRequest{Text: "some text"}).Validate())
	assert.Error(t, (&LearnRequest{Text: "   "}).Validate())

	huge := &LearnRequest{Text: strings.Repeat("x", MaxTextLength+1)}
	assert.ErrorIs(t, huge.Validate(), ErrTextTooLong)
}

func TestLearnBatchRequestValidate(t *testing.T) {
	assert.NoError(t, (&LearnBatchRequest{Texts: []string{"one", "two"}}).Validate())
	assert.Error(t, (&LearnBatchRequest{}).Validate())
	assert.Error(t, (&LearnBatchRequest{Texts: []string{"one", " "}}).Validate())
}

func TestAskRequestValidate(t *testing.T) {
	assert.NoError(t, (&AskRequest{Query: "who?"}).Validate())
	assert.NoError(t, (&AskRequest{Query: "who?", Strategy: "entities"}).Validate())
	assert.NoError(t, (&AskRequest{Query: "who?", Strategy: "both"}).Validate())
	assert.Error(t, (&AskRequest{Query: ""}).Validate())
	assert.Error(t, (&AskRequest{Query: "who?", Strategy: "psychic"}).Validate())
}
