// Package nouns loads the noun catalog: per-domain JSON files that
// describe business entities, their properties, and the actions and
// events associated with them. The catalog is declarative metadata for
// discovery surfaces; it carries no behavior of its own.
package nouns

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Domain is one catalog file: a business domain and its entities.
type Domain struct {
	Domain      string   `json:"domain"`
	Description string   `json:"description,omitempty"`
	Entities    []Entity `json:"entities"`
}

// Entity describes one business noun.
type Entity struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Properties  []Property `json:"properties,omitempty"`
	Actions     []string   `json:"actions,omitempty"`
	Events      []string   `json:"events,omitempty"`
}

// Property is a named, typed attribute of an entity.
type Property struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Catalog holds the loaded domains. Lookups share slices with the
// catalog; treat returned values as read-only.
type Catalog struct {
	dir string

	mu      sync.RWMutex
	domains map[string]Domain
}

// NewCatalog returns an empty catalog rooted at dir. Call Load to read
// the files.
func NewCatalog(dir string) *Catalog {
	return &Catalog{
		dir:     dir,
		domains: make(map[string]Domain),
	}
}

// Dir returns the catalog directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// Load reads every .json file in the catalog directory and swaps the
// loaded set in atomically. On error the previous catalog is kept.
func (c *Catalog) Load() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read catalog directory: %w", err)
	}

	domains := make(map[string]Domain)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(c.dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		var d Domain
		if err := json.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		if d.Domain == "" {
			return fmt.Errorf("parse %s: missing domain name", entry.Name())
		}
		if _, exists := domains[d.Domain]; exists {
			return fmt.Errorf("parse %s: duplicate domain %q", entry.Name(), d.Domain)
		}

		domains[d.Domain] = d
	}

	c.mu.Lock()
	c.domains = domains
	c.mu.Unlock()

	log.Debug().
		Str("dir", c.dir).
		Int("domains", len(domains)).
		Msg("Noun catalog loaded")

	return nil
}

// Reload re-reads the catalog directory. A failed reload keeps the
// previous catalog and logs the error.
func (c *Catalog) Reload() {
	if err := c.Load(); err != nil {
		log.Error().
			Err(err).
			Str("dir", c.dir).
			Msg("Noun catalog reload failed, keeping previous catalog")
	}
}

// Get returns the named domain.
func (c *Catalog) Get(name string) (Domain, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.domains[name]
	return d, ok
}

// Entity returns one entity of a domain.
func (c *Catalog) Entity(domain, name string) (Entity, bool) {
	d, ok := c.Get(domain)
	if !ok {
		return Entity{}, false
	}
	for _, e := range d.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}

// Domains returns the loaded domain names, sorted.
func (c *Catalog) Domains() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.domains))
	for name := range c.domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all loaded domains, sorted by name.
func (c *Catalog) List() []Domain {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.domains))
	for name := range c.domains {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Domain, 0, len(names))
	for _, name := range names {
		out = append(out, c.domains[name])
	}
	return out
}

// Count returns the number of loaded domains.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.domains)
}
