package pipeline

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/camera-db/internal/model"
)

// Mode selects how a category combines its sources.
type Mode string

const (
	// ModeFallback stops at the first source yielding usable records.
	ModeFallback Mode = "fallback"
	// ModeMerge unions every successful source before deduplication.
	ModeMerge Mode = "merge"
)

// CategoryPlan is the ordered source chain for one category.
type CategoryPlan struct {
	Sources []string `yaml:"sources"`
	Mode    Mode     `yaml:"mode,omitempty"`
	Output  string   `yaml:"output,omitempty"` // defaults to the category file name
}

// Plan maps categories to their source chains.
type Plan struct {
	Categories map[model.Category]CategoryPlan `yaml:"categories"`
}

// DefaultPlan tries Overpass first for every category and falls back to the
// POI Factory lists where they exist.
func DefaultPlan() *Plan {
	return &Plan{Categories: map[model.Category]CategoryPlan{
		model.CategoryALPR:     {Sources: []string{"overpass"}, Mode: ModeFallback},
		model.CategoryRedLight: {Sources: []string{"overpass", "poi_factory"}, Mode: ModeFallback},
		model.CategorySpeed:    {Sources: []string{"overpass", "poi_factory"}, Mode: ModeFallback},
	}}
}

// LoadPlan reads a plan from a YAML file. Categories the file omits keep
// their default chain.
//
//	plan:
//	  categories:
//	    speed:
//	      sources: [overpass, poi_factory]
//	      mode: merge
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read plan %s", path)
	}

	var wrapper struct {
		Plan struct {
			Categories map[string]CategoryPlan `yaml:"categories"`
		} `yaml:"plan"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse plan")
	}

	plan := DefaultPlan()
	for name, cp := range wrapper.Plan.Categories {
		cat, err := model.ParseCategory(name)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: plan %s", path)
		}
		if cp.Mode == "" {
			cp.Mode = ModeFallback
		}
		plan.Categories[cat] = cp
	}
	return plan, nil
}

// For returns the plan for cat. The output name defaults to the category
// file name.
func (p *Plan) For(cat model.Category) (CategoryPlan, bool) {
	cp, ok := p.Categories[cat]
	if !ok {
		return CategoryPlan{}, false
	}
	if cp.Output == "" {
		cp.Output = cat.FileName()
	}
	if cp.Mode == "" {
		cp.Mode = ModeFallback
	}
	return cp, true
}

// Validate checks the plan for the requested categories against the set of
// known source names.
func (p *Plan) Validate(cats []model.Category, known func(string) bool) error {
	for _, cat := range cats {
		cp, ok := p.For(cat)
		if !ok {
			return eris.Errorf("pipeline: no plan for category %s", cat)
		}
		if len(cp.Sources) == 0 {
			return eris.Errorf("pipeline: plan for %s has no sources", cat)
		}
		if cp.Mode != ModeFallback && cp.Mode != ModeMerge {
			return eris.Errorf("pipeline: plan for %s has unknown mode %q (valid: fallback, merge)", cat, cp.Mode)
		}
		for _, name := range cp.Sources {
			if !known(name) {
				return eris.Errorf("pipeline: plan for %s names unknown source %q", cat, name)
			}
		}
	}
	return nil
}
