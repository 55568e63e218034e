package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "badger", cfg.Store.Provider)
	assert.Equal(t, "./mnemo_db", cfg.Store.Path)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "embedeverything", cfg.Embedding.Provider)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, "default", cfg.Engine.DefaultScopeID)
	assert.Equal(t, 10, cfg.Engine.SearchLimit)
	assert.True(t, cfg.CircuitBreaker.Enabled)
}

func TestLoadFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "mnemo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9999
store:
  provider: neo4j
  uri: bolt://graph:7687
engine:
  search_limit: 25
  relationships:
    - from_label: Person
      type: WORKS_AT
      to_label: Company
`), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "neo4j", cfg.Store.Provider)
	assert.Equal(t, "bolt://graph:7687", cfg.Store.URI)
	assert.Equal(t, 25, cfg.Engine.SearchLimit)
	require.Len(t, cfg.Engine.Relationships, 1)
	assert.Equal(t, "WORKS_AT", cfg.Engine.Relationships[0].Type)

	// Defaults still apply for keys the file omits.
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestOpenAIKeyFallback(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
}

func TestLoadRelationshipRules(t *testing.T) {
	t.Run("valid rules file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
relationships:
  - from_label: Person
    type: WORKS_AT
    to_label: Company
  - from_label: Company
    type: LOCATED_IN
    to_label: City
`), 0644))

		rules, err := LoadRelationshipRules(path)
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, "Person", rules[0].FromLabel)
		assert.Equal(t, "LOCATED_IN", rules[1].Type)
	})

	t.Run("incomplete rule fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
relationships:
  - from_label: Person
    type: WORKS_AT
`), 0644))

		_, err := LoadRelationshipRules(path)
		assert.ErrorContains(t, err, "incomplete")
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := LoadRelationshipRules(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
