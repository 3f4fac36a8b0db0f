package tool

// Caller identifies who is invoking a tool and what they hold.
type Caller struct {
	// Actor is a stable identifier for logs and audit, e.g. "cli",
	// a user ID, or an agent ID.
	Actor string `json:"actor,omitempty"`
	// Class is the audience class the caller belongs to: human or ai.
	Class Audience `json:"class,omitempty"`
	// Grants are the permissions the caller holds.
	Grants []Permission `json:"grants,omitempty"`
	// ConfirmationToken redeems a previously issued confirmation.
	ConfirmationToken string `json:"confirmation_token,omitempty"`
}

// HasGrant checks if any held grant covers the required permission.
func (c Caller) HasGrant(required Permission) bool {
	for _, g := range c.Grants {
		if g.Covers(required) {
			return true
		}
	}
	return false
}

// Gate enforces audience, permission, and confirmation policy before a
// handler may run.
type Gate struct {
	confirmations *Confirmations
}

// NewGate creates a gate. confirmations may be nil, in which case any
// non-empty token satisfies a confirmation requirement. That mode is
// for embedders that manage confirmation out of band.
func NewGate(confirmations *Confirmations) *Gate {
	return &Gate{confirmations: confirmations}
}

// Check runs the policy checks in order: audience, then permissions,
// then confirmation. The first failure wins and is returned classified.
func (g *Gate) Check(def Definition, caller Caller) error {
	if !def.Audience.Allows(caller.Class) {
		return NewError(ErrAudienceMismatch, "tool %q is published to %s callers, not %s",
			def.ID, def.Audience, caller.Class).
			WithDetail("tool_audience", string(def.Audience)).
			WithDetail("caller_class", string(caller.Class))
	}

	for _, required := range def.Permissions {
		if !caller.HasGrant(required) {
			denied := NewError(ErrPermissionDenied, "tool %q requires permission %s", def.ID, required).
				WithDetail("resource", required.Resource).
				WithDetail("action", required.Action)
			if required.Scope != "" {
				denied = denied.WithDetail("scope", required.Scope)
			}
			return denied
		}
	}

	if def.RequiresConfirmation {
		return g.checkConfirmation(def, caller)
	}

	return nil
}

func (g *Gate) checkConfirmation(def Definition, caller Caller) error {
	if g.confirmations == nil {
		if caller.ConfirmationToken != "" {
			return nil
		}
		return NewError(ErrConfirmationRequired, "tool %q requires explicit confirmation", def.ID).
			WithDetail("tool", def.ID)
	}

	if caller.ConfirmationToken != "" && g.confirmations.Redeem(caller.ConfirmationToken, def.ID) {
		return nil
	}

	// Issue a fresh token so the caller can confirm and resubmit.
	token, expiresAt := g.confirmations.Request(def.ID)
	return NewError(ErrConfirmationRequired, "tool %q requires explicit confirmation", def.ID).
		WithDetail("tool", def.ID).
		WithDetail("confirmation_token", token).
		WithDetail("expires_at", expiresAt)
}
