// Package registry holds the static catalog of articles and their payment
// terms. The catalog is loaded once at startup and read-only afterwards.
package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Entry describes one article: its content and, when Paid, the price a
// reader must settle before the full body is served.
type Entry struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Subtitle    string `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
	Author      string `yaml:"author,omitempty" json:"author,omitempty"`
	Description string `yaml:"description" json:"description"`
	// Price is a decimal string in the asset's major unit, e.g. "0.05".
	Price     string `yaml:"price" json:"price"`
	Paid      bool   `yaml:"paid" json:"paid"`
	BaseClaps int    `yaml:"baseClaps" json:"baseClaps"`
	Preview   string `yaml:"preview" json:"-"`
	Content   string `yaml:"content" json:"-"`
}

// Registry is a read-only resource catalog keyed by article ID.
type Registry struct {
	byID  map[string]Entry
	order []string
}

// New builds a registry from a fixed set of entries. Duplicate IDs are a
// configuration fault.
func New(entries []Entry) (*Registry, error) {
	r := &Registry{byID: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry with empty id")
		}
		if _, dup := r.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", e.ID)
		}
		if e.Paid && e.Price == "" {
			return nil, fmt.Errorf("paid entry %q has no price", e.ID)
		}
		r.byID[e.ID] = e
		r.order = append(r.order, e.ID)
	}
	return r, nil
}

// LoadFile reads a YAML catalog. An empty path falls back to the built-in
// default catalog.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return New(defaultCatalog)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var doc struct {
		Articles []Entry `yaml:"articles"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(doc.Articles) == 0 {
		return nil, fmt.Errorf("catalog %s has no articles", path)
	}
	return New(doc.Articles)
}

// Lookup returns the entry for an article ID. A miss is an ordinary
// outcome, not an error: unregistered resources are not gated.
func (r *Registry) Lookup(id string) (Entry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Gated reports whether the article exists and requires payment.
func (r *Registry) Gated(id string) bool {
	e, ok := r.byID[id]
	return ok && e.Paid
}

// All returns the catalog in declaration order.
func (r *Registry) All() []Entry {
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
