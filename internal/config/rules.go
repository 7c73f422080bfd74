package config

import (
	"fmt"
	"os"

	"clipgenie/internal/extractor"

	"github.com/adrg/xdg"
)

// RulesFile is looked up in the XDG config directories when RULES_PATH is
// not set.
const RulesFile = "clipgenie/rules.yaml"

// LoadRules reads extraction rules from path. An empty path searches the XDG
// config directories and falls back to the embedded rules.
func LoadRules(path string) (extractor.Rules, string, error) {
	if path == "" {
		found, err := xdg.SearchConfigFile(RulesFile)
		if err != nil {
			return extractor.DefaultRules(), "", nil
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return extractor.Rules{}, path, fmt.Errorf("read rules: %w", err)
	}

	rules, err := extractor.ParseRules(data)
	if err != nil {
		return extractor.Rules{}, path, fmt.Errorf("parse rules %s: %w", path, err)
	}

	return rules, path, nil
}
