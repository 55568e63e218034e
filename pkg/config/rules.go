package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// relationshipRulesFile is the shape of a standalone rules file:
//
//	relationships:
//	  - from_label: Person
//	    type: WORKS_AT
//	    to_label: Company
type relationshipRulesFile struct {
	Relationships []RelationshipRuleConfig `yaml:"relationships"`
}

// LoadRelationshipRules reads an extraction allow-list from a YAML
// file. Rule files are shared between deployments independently of the
// main config, which is why they load separately.
func LoadRelationshipRules(path string) ([]RelationshipRuleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read relationship rules file: %w", err)
	}

	var file relationshipRulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse relationship rules file: %w", err)
	}

	for i, rule := range file.Relationships {
		if rule.FromLabel == "" || rule.Type == "" || rule.ToLabel == "" {
			return nil, fmt.Errorf("relationship rule %d is incomplete: from_label, type, and to_label are all required", i)
		}
	}
	return file.Relationships, nil
}
