// Package templates loads ticket templates and renders them for model prompts.
package templates

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/raphaelgruber/voc2ticket/internal/models"
	"gopkg.in/yaml.v3"
)

// Registry is a read-only catalog of templates keyed by id.
type Registry struct {
	byID map[string]*models.Template
	ids  []string
}

// NewRegistry builds a registry from in-memory templates. Later duplicates win.
func NewRegistry(tpls ...models.Template) *Registry {
	r := &Registry{byID: make(map[string]*models.Template, len(tpls))}
	for i := range tpls {
		tpl := tpls[i]
		if _, exists := r.byID[tpl.ID]; !exists {
			r.ids = append(r.ids, tpl.ID)
		}
		r.byID[tpl.ID] = &tpl
	}
	sort.Strings(r.ids)
	return r
}

// LoadDir reads every *.yaml file in dir whose name does not start with "_".
// Files without an id take the file name (without extension) as id.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read templates dir: %w", err)
	}

	var tpls []models.Template
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") || filepath.Ext(name) != ".yaml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
		var tpl models.Template
		if err := yaml.Unmarshal(data, &tpl); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		if tpl.ID == "" {
			tpl.ID = strings.TrimSuffix(name, ".yaml")
		}
		tpls = append(tpls, tpl)
	}

	slog.Info("templates loaded", "dir", dir, "count", len(tpls))
	return NewRegistry(tpls...), nil
}

// Get returns the template with the given id.
func (r *Registry) Get(id string) (*models.Template, bool) {
	tpl, ok := r.byID[id]
	return tpl, ok
}

// List returns all templates sorted by id.
func (r *Registry) List() []models.Template {
	out := make([]models.Template, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, *r.byID[id])
	}
	return out
}

// Len returns the number of templates.
func (r *Registry) Len() int { return len(r.ids) }

// SummaryText renders one line per template for the classifier prompt.
func (r *Registry) SummaryText() string {
	var b strings.Builder
	for _, id := range r.ids {
		tpl := r.byID[id]
		keywords := tpl.Keywords
		if len(keywords) > 5 {
			keywords = keywords[:5]
		}
		fmt.Fprintf(&b, "- id: %s | name: %s | description: %s | keywords: %s\n",
			tpl.ID, tpl.Name, tpl.Description, strings.Join(keywords, ", "))
	}
	return b.String()
}

// FieldsDefinitionText renders the field list of tpl for the extractor prompt.
func FieldsDefinitionText(tpl *models.Template) string {
	var b strings.Builder
	for _, f := range tpl.Fields {
		required := "optional"
		if f.Required {
			required = "required"
		}
		fmt.Fprintf(&b, "- key: %s\n  label: %s\n  type: %s (%s)\n", f.Key, f.Label, f.Type, required)
		if len(f.Options) > 0 {
			fmt.Fprintf(&b, "  options: %s\n", strings.Join(f.Options, ", "))
		}
		if f.Default != nil {
			fmt.Fprintf(&b, "  default: %s\n", *f.Default)
		}
		if f.AIInstruction != "" {
			fmt.Fprintf(&b, "  instruction: %s\n", f.AIInstruction)
		}
	}
	return b.String()
}
