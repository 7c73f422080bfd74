package extractor

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type SiteMode string

const (
	// SiteModeAll joins the text of every matching node.
	SiteModeAll SiteMode = "all"
	// SiteModeFirst takes the first matching node and falls back to the body.
	SiteModeFirst SiteMode = "first"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

type Rules struct {
	PDF        PDFRule          `yaml:"pdf"`
	Structured []StructuredRule `yaml:"structured"`
	Sites      []SiteRule       `yaml:"sites"`
	Generic    GenericRule      `yaml:"generic"`
}

type PDFRule struct {
	Viewer    string `yaml:"viewer"`
	TextLayer string `yaml:"text_layer"`
	Advisory  string `yaml:"advisory"`
}

type StructuredRule struct {
	Host  string           `yaml:"host"`
	Paths []StructuredPath `yaml:"paths"`
}

type StructuredPath struct {
	Path     string `yaml:"path"`
	Selector string `yaml:"selector"`
}

type SiteRule struct {
	Host      string   `yaml:"host"`
	Selector  string   `yaml:"selector"`
	Mode      SiteMode `yaml:"mode"`
	Separator string   `yaml:"separator"`
}

type GenericRule struct {
	Containers []string `yaml:"containers"`
	Remove     string   `yaml:"remove"`
}

// DefaultRules returns the embedded rule set.
func DefaultRules() Rules {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rules are invalid: %v", err))
	}

	return rules
}

func ParseRules(data []byte) (Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("unmarshal rules: %w", err)
	}

	if err := rules.validate(); err != nil {
		return Rules{}, fmt.Errorf("validate rules: %w", err)
	}

	return rules, nil
}

func (r Rules) validate() error {
	var errs []error

	if strings.TrimSpace(r.PDF.Advisory) == "" {
		errs = append(errs, errors.New("pdf advisory is empty"))
	}
	if strings.TrimSpace(r.PDF.TextLayer) == "" {
		errs = append(errs, errors.New("pdf text layer selector is empty"))
	}

	for i, s := range r.Structured {
		if strings.TrimSpace(s.Host) == "" {
			errs = append(errs, fmt.Errorf("structured rule %d: host is empty", i))
		}
		for j, p := range s.Paths {
			if strings.TrimSpace(p.Selector) == "" {
				errs = append(errs, fmt.Errorf("structured rule %d path %d: selector is empty", i, j))
			}
		}
	}

	for i, s := range r.Sites {
		if strings.TrimSpace(s.Host) == "" {
			errs = append(errs, fmt.Errorf("site rule %d: host is empty", i))
		}
		if strings.TrimSpace(s.Selector) == "" {
			errs = append(errs, fmt.Errorf("site rule %q: selector is empty", s.Host))
		}
		switch s.Mode {
		case SiteModeAll, SiteModeFirst:
		default:
			errs = append(errs, fmt.Errorf("site rule %q: unknown mode %q (valid: all, first)", s.Host, s.Mode))
		}
	}

	if len(r.Generic.Containers) == 0 {
		errs = append(errs, errors.New("generic containers are empty"))
	}

	return errors.Join(errs...)
}
