package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func noopHandler(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return nil, nil
}

func TestDefinition_Validate(t *testing.T) {
	valid := Definition{
		ID:          "web.fetch",
		Name:        "Fetch",
		Description: "Fetch a URL",
		Audience:    AudienceBoth,
		Handler:     noopHandler,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(d *Definition)
	}{
		{
			name:   "empty id",
			mutate: func(d *Definition) { d.ID = "" },
		},
		{
			name:   "empty id segment",
			mutate: func(d *Definition) { d.ID = "web..fetch" },
		},
		{
			name:   "trailing dot",
			mutate: func(d *Definition) { d.ID = "web.fetch." },
		},
		{
			name:   "empty name",
			mutate: func(d *Definition) { d.Name = "" },
		},
		{
			name:   "empty description",
			mutate: func(d *Definition) { d.Description = "" },
		},
		{
			name:   "nil handler",
			mutate: func(d *Definition) { d.Handler = nil },
		},
		{
			name:   "invalid audience",
			mutate: func(d *Definition) { d.Audience = "robot" },
		},
		{
			name: "unnamed parameter",
			mutate: func(d *Definition) {
				d.Parameters = []ParameterSpec{{Type: TypeString}}
			},
		},
		{
			name: "duplicate parameter",
			mutate: func(d *Definition) {
				d.Parameters = []ParameterSpec{
					{Name: "url", Type: TypeString},
					{Name: "url", Type: TypeString},
				}
			},
		},
		{
			name: "invalid parameter type",
			mutate: func(d *Definition) {
				d.Parameters = []ParameterSpec{{Name: "url", Type: "uri"}}
			},
		},
		{
			name: "permission missing action",
			mutate: func(d *Definition) {
				d.Permissions = []Permission{{Resource: "network"}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := valid
			tt.mutate(&def)
			assert.Error(t, def.Validate())
		})
	}
}

func TestDefinition_Category(t *testing.T) {
	assert.Equal(t, "web", Definition{ID: "web.fetch"}.Category())
	assert.Equal(t, "communication", Definition{ID: "communication.email.send"}.Category())
	assert.Equal(t, "ping", Definition{ID: "ping"}.Category())
}

func TestDefinition_Subcategory(t *testing.T) {
	assert.Equal(t, "json", Definition{ID: "data.json.parse"}.Subcategory())
	assert.Equal(t, "email", Definition{ID: "communication.email.send"}.Subcategory())
	assert.Equal(t, "", Definition{ID: "web.fetch"}.Subcategory())
	assert.Equal(t, "", Definition{ID: "ping"}.Subcategory())
}

func TestAudience_Allows(t *testing.T) {
	assert.True(t, AudienceBoth.Allows(AudienceHuman))
	assert.True(t, AudienceBoth.Allows(AudienceAI))
	assert.True(t, AudienceHuman.Allows(AudienceHuman))
	assert.True(t, AudienceAI.Allows(AudienceAI))
	assert.False(t, AudienceHuman.Allows(AudienceAI))
	assert.False(t, AudienceAI.Allows(AudienceHuman))
}

func TestPermission_Covers(t *testing.T) {
	tests := []struct {
		name     string
		grant    Permission
		required Permission
		covers   bool
	}{
		{
			name:     "exact match",
			grant:    Permission{Resource: "network", Action: "read"},
			required: Permission{Resource: "network", Action: "read"},
			covers:   true,
		},
		{
			name:     "wildcard resource",
			grant:    Permission{Resource: "*", Action: "read"},
			required: Permission{Resource: "network", Action: "read"},
			covers:   true,
		},
		{
			name:     "wildcard action",
			grant:    Permission{Resource: "network", Action: "*"},
			required: Permission{Resource: "network", Action: "write"},
			covers:   true,
		},
		{
			name:     "resource mismatch",
			grant:    Permission{Resource: "filesystem", Action: "read"},
			required: Permission{Resource: "network", Action: "read"},
			covers:   false,
		},
		{
			name:     "action mismatch",
			grant:    Permission{Resource: "network", Action: "read"},
			required: Permission{Resource: "network", Action: "write"},
			covers:   false,
		},
		{
			name:     "unscoped grant covers scoped requirement",
			grant:    Permission{Resource: "communication", Action: "send"},
			required: Permission{Resource: "communication", Action: "send", Scope: "example.com"},
			covers:   true,
		},
		{
			name:     "scoped grant covers unscoped requirement",
			grant:    Permission{Resource: "communication", Action: "send", Scope: "example.com"},
			required: Permission{Resource: "communication", Action: "send"},
			covers:   true,
		},
		{
			name:     "scope mismatch",
			grant:    Permission{Resource: "communication", Action: "send", Scope: "example.com"},
			required: Permission{Resource: "communication", Action: "send", Scope: "other.org"},
			covers:   false,
		},
		{
			name:     "wildcard scope",
			grant:    Permission{Resource: "communication", Action: "send", Scope: "*"},
			required: Permission{Resource: "communication", Action: "send", Scope: "other.org"},
			covers:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.covers, tt.grant.Covers(tt.required))
		})
	}
}

func TestPermission_String(t *testing.T) {
	assert.Equal(t, "network:read", Permission{Resource: "network", Action: "read"}.String())
	assert.Equal(t, "communication:send:example.com",
		Permission{Resource: "communication", Action: "send", Scope: "example.com"}.String())
}
