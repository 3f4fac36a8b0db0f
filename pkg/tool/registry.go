package tool

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// Registry is the process-wide tool catalog. Registration normally
// happens at startup; lookups and listings are safe at any time from
// any goroutine.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

// entry pairs a definition with its compiled parameter schema.
type entry struct {
	def    Definition
	schema *gojsonschema.Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Register adds a tool definition. An empty audience defaults to both.
// The ID must be unique: registering a duplicate fails and leaves the
// existing entry untouched.
func (r *Registry) Register(def Definition) error {
	if def.Audience == "" {
		def.Audience = AudienceBoth
	}
	if err := def.Validate(); err != nil {
		return NewError(ErrInvalidDefinition, "tool %q: %v", def.ID, err)
	}

	schema, err := compileParameterSchema(def)
	if err != nil {
		return NewError(ErrInvalidDefinition, "tool %q: %v", def.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[def.ID]; exists {
		return NewError(ErrDuplicateToolID, "tool %q is already registered", def.ID).
			WithDetail("tool", def.ID)
	}

	r.entries[def.ID] = &entry{def: def, schema: schema}
	r.order = append(r.order, def.ID)

	log.Debug().
		Str("tool", def.ID).
		Str("audience", string(def.Audience)).
		Bool("requires_confirmation", def.RequiresConfirmation).
		Int("parameters", len(def.Parameters)).
		Msg("Tool registered")

	return nil
}

// RegisterAll registers definitions in order, stopping at the first
// failure.
func (r *Registry) RegisterAll(defs ...Definition) error {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the definition registered under id.
func (r *Registry) Get(id string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ent, ok := r.entries[id]
	if !ok {
		return Definition{}, NewError(ErrUnknownTool, "tool %q is not registered", id).
			WithDetail("tool", id)
	}
	return ent.def.clone(), nil
}

// Has checks if id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[id]
	return ok
}

// List returns all definitions in registration order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		defs = append(defs, r.entries[id].def.clone())
	}
	return defs
}

// ListByCategory returns definitions whose leading ID segment matches
// category, in registration order.
func (r *Registry) ListByCategory(category string) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0)
	for _, id := range r.order {
		if def := r.entries[id].def; def.Category() == category {
			defs = append(defs, def.clone())
		}
	}
	return defs
}

// ListByAudience returns definitions a caller of the given class may
// use, in registration order.
func (r *Registry) ListByAudience(class Audience) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0)
	for _, id := range r.order {
		if def := r.entries[id].def; def.Audience.Allows(class) {
			defs = append(defs, def.clone())
		}
	}
	return defs
}

// FindByTag returns definitions carrying the given tag, in registration
// order.
func (r *Registry) FindByTag(tag string) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0)
	for _, id := range r.order {
		if def := r.entries[id].def; def.HasTag(tag) {
			defs = append(defs, def.clone())
		}
	}
	return defs
}

// Categories returns the distinct leading ID segments, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	cats := make([]string, 0)
	for _, id := range r.order {
		cat := r.entries[id].def.Category()
		if !seen[cat] {
			seen[cat] = true
			cats = append(cats, cat)
		}
	}
	sort.Strings(cats)
	return cats
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Clear removes every registration. Intended for tests and full
// catalog reloads, not for unregistering individual tools.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := len(r.entries)
	r.entries = make(map[string]*entry)
	r.order = nil

	log.Debug().Int("removed", removed).Msg("Tool registry cleared")
}

// lookup returns the internal entry for id, schema included.
func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ent, ok := r.entries[id]
	if !ok {
		return nil, NewError(ErrUnknownTool, "tool %q is not registered", id).
			WithDetail("tool", id)
	}
	return ent, nil
}
