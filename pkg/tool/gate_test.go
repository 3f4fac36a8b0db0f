package tool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_Check_Audience(t *testing.T) {
	gate := NewGate(nil)

	humanOnly := testDefinition("admin.reset")
	humanOnly.Audience = AudienceHuman

	err := gate.Check(humanOnly, Caller{Class: AudienceAI})
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrAudienceMismatch))

	assert.NoError(t, gate.Check(humanOnly, Caller{Class: AudienceHuman}))

	both := testDefinition("web.fetch")
	assert.NoError(t, gate.Check(both, Caller{Class: AudienceAI}))
	assert.NoError(t, gate.Check(both, Caller{Class: AudienceHuman}))
}

func TestGate_Check_Permissions(t *testing.T) {
	gate := NewGate(nil)

	def := testDefinition("communication.email.send")
	def.Permissions = []Permission{{Resource: "communication", Action: "send"}}

	caller := Caller{Class: AudienceHuman}
	err := gate.Check(def, caller)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrPermissionDenied))
	terr := toError(err)
	assert.Equal(t, "communication", terr.Detail["resource"])
	assert.Equal(t, "send", terr.Detail["action"])

	caller.Grants = []Permission{{Resource: "communication", Action: "send"}}
	assert.NoError(t, gate.Check(def, caller))

	caller.Grants = []Permission{{Resource: "*", Action: "*"}}
	assert.NoError(t, gate.Check(def, caller))
}

func TestGate_Check_AllRequiredPermissionsMustBeHeld(t *testing.T) {
	gate := NewGate(nil)

	def := testDefinition("files.archive")
	def.Permissions = []Permission{
		{Resource: "filesystem", Action: "read"},
		{Resource: "filesystem", Action: "write"},
	}

	caller := Caller{
		Class:  AudienceHuman,
		Grants: []Permission{{Resource: "filesystem", Action: "read"}},
	}
	err := gate.Check(def, caller)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrPermissionDenied))
	assert.Equal(t, "write", toError(err).Detail["action"])
}

func TestGate_Check_AudienceCheckedBeforePermissions(t *testing.T) {
	gate := NewGate(nil)

	def := testDefinition("admin.reset")
	def.Audience = AudienceHuman
	def.Permissions = []Permission{{Resource: "admin", Action: "reset"}}

	// The caller fails both checks; audience must win.
	err := gate.Check(def, Caller{Class: AudienceAI})
	assert.True(t, IsCode(err, ErrAudienceMismatch))
}

func TestGate_Check_ConfirmationWithoutBroker(t *testing.T) {
	gate := NewGate(nil)

	def := testDefinition("communication.email.send")
	def.RequiresConfirmation = true

	err := gate.Check(def, Caller{Class: AudienceHuman})
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrConfirmationRequired))

	// Without a broker any non-empty token is accepted.
	assert.NoError(t, gate.Check(def, Caller{Class: AudienceHuman, ConfirmationToken: "yes"}))
}

func TestGate_Check_ConfirmationRoundTrip(t *testing.T) {
	confirmations := NewConfirmations(time.Minute)
	gate := NewGate(confirmations)

	def := testDefinition("communication.email.send")
	def.RequiresConfirmation = true

	caller := Caller{Class: AudienceHuman}

	// First attempt is denied and carries a token for resubmission.
	err := gate.Check(def, caller)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrConfirmationRequired))
	token, ok := toError(err).Detail["confirmation_token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	// Resubmitting with the token passes.
	caller.ConfirmationToken = token
	assert.NoError(t, gate.Check(def, caller))

	// The token is single use.
	err = gate.Check(def, caller)
	assert.True(t, IsCode(err, ErrConfirmationRequired))
}

func TestGate_Check_ConfirmationTokenBoundToTool(t *testing.T) {
	confirmations := NewConfirmations(time.Minute)
	gate := NewGate(confirmations)

	email := testDefinition("communication.email.send")
	email.RequiresConfirmation = true
	sms := testDefinition("communication.sms.send")
	sms.RequiresConfirmation = true

	err := gate.Check(email, Caller{Class: AudienceHuman})
	require.Error(t, err)
	token := toError(err).Detail["confirmation_token"].(string)

	// A token issued for email cannot confirm sms.
	err = gate.Check(sms, Caller{Class: AudienceHuman, ConfirmationToken: token})
	assert.True(t, IsCode(err, ErrConfirmationRequired))

	// It still confirms the tool it was issued for.
	assert.NoError(t, gate.Check(email, Caller{Class: AudienceHuman, ConfirmationToken: token}))
}

func TestGate_Check_PermissionsCheckedBeforeConfirmation(t *testing.T) {
	confirmations := NewConfirmations(time.Minute)
	gate := NewGate(confirmations)

	def := testDefinition("communication.email.send")
	def.RequiresConfirmation = true
	def.Permissions = []Permission{{Resource: "communication", Action: "send"}}

	err := gate.Check(def, Caller{Class: AudienceHuman})
	assert.True(t, IsCode(err, ErrPermissionDenied))
	// No token may be issued while the caller lacks permission.
	assert.Equal(t, 0, confirmations.Pending())
}
