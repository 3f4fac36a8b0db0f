package tool

import (
	"context"
	"fmt"
	"strings"
)

// Audience declares who a tool is published to.
type Audience string

const (
	AudienceHuman Audience = "human"
	AudienceAI    Audience = "ai"
	AudienceBoth  Audience = "both"
)

// Allows checks if a caller of the given class may see and invoke a tool
// published to this audience.
func (a Audience) Allows(class Audience) bool {
	if a == AudienceBoth {
		return true
	}
	return a == class
}

func (a Audience) valid() bool {
	switch a {
	case AudienceHuman, AudienceAI, AudienceBoth:
		return true
	}
	return false
}

// ParamType enumerates the value types a parameter can declare.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
	// TypeAny accepts any JSON value. Used by generic tools whose payload
	// type depends on other parameters.
	TypeAny ParamType = "any"
)

func (t ParamType) valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeArray, TypeObject, TypeAny:
		return true
	}
	return false
}

// ParameterSpec describes one named parameter of a tool.
type ParameterSpec struct {
	Name        string        `json:"name"`
	Type        ParamType     `json:"type"`
	Description string        `json:"description,omitempty"`
	Required    bool          `json:"required,omitempty"`
	Default     interface{}   `json:"default,omitempty"`
	Enum        []interface{} `json:"enum,omitempty"`
}

// Permission names a capability a caller must hold to invoke a tool.
// Resource and Action are required; Scope narrows the grant and is
// optional on both sides.
type Permission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Scope    string `json:"scope,omitempty"`
}

// Covers checks if this granted permission satisfies a required one.
// "*" on the grant side matches anything. An empty scope on either side
// means the scope dimension is unconstrained.
func (p Permission) Covers(required Permission) bool {
	if !grantMatches(p.Resource, required.Resource) {
		return false
	}
	if !grantMatches(p.Action, required.Action) {
		return false
	}
	if p.Scope == "" || required.Scope == "" {
		return true
	}
	return grantMatches(p.Scope, required.Scope)
}

func grantMatches(granted, required string) bool {
	return granted == "*" || granted == required
}

// String renders the permission as resource:action[:scope].
func (p Permission) String() string {
	if p.Scope != "" {
		return p.Resource + ":" + p.Action + ":" + p.Scope
	}
	return p.Resource + ":" + p.Action
}

// Handler executes a tool invocation. Args have already been validated
// and defaulted against the tool's parameter specs when the engine calls
// the handler.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Definition declares a tool: identity, contract, and handler.
type Definition struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Audience             Audience        `json:"audience"`
	Parameters           []ParameterSpec `json:"parameters,omitempty"`
	Permissions          []Permission    `json:"permissions,omitempty"`
	RequiresConfirmation bool            `json:"requires_confirmation,omitempty"`
	Idempotent           bool            `json:"idempotent,omitempty"`
	// Strict rejects arguments not declared in Parameters. The default is
	// to pass unknown arguments through to the handler untouched.
	Strict  bool     `json:"strict,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Handler Handler  `json:"-"`
}

// Category returns the leading segment of the tool ID, e.g. "web" for
// "web.fetch".
func (d Definition) Category() string {
	if i := strings.Index(d.ID, "."); i > 0 {
		return d.ID[:i]
	}
	return d.ID
}

// Subcategory returns the segments between category and verb, e.g.
// "json" for "data.json.parse". Two-segment IDs have none.
func (d Definition) Subcategory() string {
	parts := strings.Split(d.ID, ".")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[1:len(parts)-1], ".")
}

// HasTag checks if the definition carries the given tag.
func (d Definition) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Validate checks that the definition is complete enough to register.
func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("tool ID is required")
	}
	if !validToolID(d.ID) {
		return fmt.Errorf("invalid tool ID %q: must be non-empty dot-separated segments", d.ID)
	}
	if d.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if d.Description == "" {
		return fmt.Errorf("tool description is required")
	}
	if d.Handler == nil {
		return fmt.Errorf("tool handler is required")
	}
	if !d.Audience.valid() {
		return fmt.Errorf("invalid audience %q (must be: human, ai, both)", d.Audience)
	}

	seen := make(map[string]bool, len(d.Parameters))
	for _, p := range d.Parameters {
		if p.Name == "" {
			return fmt.Errorf("parameter name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
		if !p.Type.valid() {
			return fmt.Errorf("parameter %q: invalid type %q", p.Name, p.Type)
		}
	}

	for _, perm := range d.Permissions {
		if perm.Resource == "" || perm.Action == "" {
			return fmt.Errorf("permission resource and action are required")
		}
	}

	return nil
}

func validToolID(id string) bool {
	for _, seg := range strings.Split(id, ".") {
		if seg == "" {
			return false
		}
	}
	return true
}

// clone returns a copy whose slices are detached from the original, so
// registry consumers cannot mutate registered definitions.
func (d Definition) clone() Definition {
	c := d
	if d.Parameters != nil {
		c.Parameters = append([]ParameterSpec(nil), d.Parameters...)
	}
	if d.Permissions != nil {
		c.Permissions = append([]Permission(nil), d.Permissions...)
	}
	if d.Tags != nil {
		c.Tags = append([]string(nil), d.Tags...)
	}
	return c
}
