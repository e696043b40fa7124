package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the static pattern catalog driving state extraction. Patterns
// are lowercase trigger phrases; the text following a matched trigger
// becomes the candidate description.
type Catalog struct {
	StateTypes map[string]PatternGroup `yaml:"state_types"`
}

// PatternGroup holds the trigger phrases for one state type, grouped by the
// status the match implies.
type PatternGroup struct {
	Create     []string `yaml:"create"`
	Complete   []string `yaml:"complete"`
	Invalidate []string `yaml:"invalidate"`
}

// LoadCatalog reads a YAML catalog from path. An empty path returns the
// builtin catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return BuiltinCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state catalog: %w", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse state catalog: %w", err)
	}
	if len(cat.StateTypes) == 0 {
		return nil, fmt.Errorf("state catalog %s defines no state types", path)
	}

	cat.normalize()
	return &cat, nil
}

// normalize lowercases and trims every pattern so matching can assume
// lowercase triggers.
func (c *Catalog) normalize() {
	for name, group := range c.StateTypes {
		group.Create = lowerAll(group.Create)
		group.Complete = lowerAll(group.Complete)
		group.Invalidate = lowerAll(group.Invalidate)
		c.StateTypes[name] = group
	}
}

func lowerAll(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BuiltinCatalog returns the compiled-in default patterns. Triggers are
// prefixes: the candidate description is the text after the trigger, so
// every phrase here reads naturally with its object following it.
func BuiltinCatalog() *Catalog {
	return &Catalog{
		StateTypes: map[string]PatternGroup{
			"goal": {
				Create: []string{
					"let's go to", "lets go to", "let's head to",
					"we should go to", "our goal is", "the goal is",
					"we're trying to", "we are trying to",
				},
				Complete: []string{
					"we arrived at", "we reached", "we made it to", "we got to",
				},
				Invalidate: []string{
					"we're no longer going to", "we are no longer going to",
					"forget about going to",
				},
			},
			"task": {
				Create: []string{
					"we need to", "we have to", "we must",
					"i will", "i'll", "i need to",
					"the next step is", "our task is",
				},
				Complete: []string{
					"we finished", "we've finished", "we completed",
					"we've completed", "i finished", "i've finished",
					"done with",
				},
				Invalidate: []string{
					"we no longer need to", "we can skip",
				},
			},
			"decision": {
				Create: []string{
					"we decided", "we've decided", "we chose", "we've chosen",
					"we agreed", "we've agreed", "the decision is",
					"we're going with", "we are going with",
				},
				Invalidate: []string{
					"we changed our mind about", "we reversed",
				},
			},
			"fact": {
				Create: []string{
					"it turns out", "we learned", "we've learned",
					"we discovered", "we've discovered",
					"remember that", "note that", "the fact is",
				},
				Invalidate: []string{
					"it's not true that", "it is not true that",
					"we were wrong about",
				},
			},
		},
	}
}
