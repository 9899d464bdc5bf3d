// Package query turns a search request into provider-ready query strings.
package query

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// WeightedTerm is a search term with a relative weight; higher-weight terms
// are placed first and survive truncation longest.
type WeightedTerm struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
}

// Template holds the per-industry query vocabulary.
type Template struct {
	Industry      string         `yaml:"industry"`
	Terms         []WeightedTerm `yaml:"terms"`
	Excluded      []string       `yaml:"excluded"`
	EventKeywords []string       `yaml:"event_keywords"`
}

// TopTerms returns up to n terms ordered by descending weight.
func (t Template) TopTerms(n int) []string {
	sorted := make([]WeightedTerm, len(t.Terms))
	copy(sorted, t.Terms)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Weight > sorted[j].Weight })
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]string, 0, n)
	for _, wt := range sorted[:n] {
		out = append(out, wt.Term)
	}
	return out
}

// Library is the set of industry templates, keyed by lowercased industry.
type Library struct {
	byIndustry map[string]Template
}

// LoadLibrary reads templates from a YAML file. A missing path yields an
// empty library, not an error; every industry then takes the generic path.
func LoadLibrary(path string) (*Library, error) {
	lib := &Library{byIndustry: make(map[string]Template)}
	if path == "" {
		return lib, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lib, nil
		}
		return nil, eris.Wrapf(err, "query: read templates %s", path)
	}

	var wrapper struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "query: parse templates")
	}
	for _, t := range wrapper.Templates {
		lib.byIndustry[strings.ToLower(t.Industry)] = t
	}
	return lib, nil
}

// Get returns the template for an industry, if one exists.
func (l *Library) Get(industry string) (Template, bool) {
	if l == nil {
		return Template{}, false
	}
	t, ok := l.byIndustry[strings.ToLower(strings.TrimSpace(industry))]
	return t, ok
}

// Add registers a template, replacing any existing one for the industry.
// Used by tests and programmatic setup.
func (l *Library) Add(t Template) {
	l.byIndustry[strings.ToLower(t.Industry)] = t
}
