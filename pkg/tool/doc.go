// Package tool catalogs declarative tool definitions and drives their
// invocation through validation, gating, and handler dispatch.
//
// Invariants:
// - Tool IDs are unique; a duplicate registration is rejected, never overwritten.
// - Arguments are schema-validated and defaulted before a handler runs.
// - Audience, permission, and confirmation checks all pass before a handler runs.
// - Every invocation ends in exactly one terminal result: completed or failed.
//
// Usage:
//
//	reg := tool.NewRegistry()
//	_ = reg.Register(tool.Definition{
//		ID:          "text.echo",
//		Name:        "Echo",
//		Description: "Echo input text",
//		Audience:    tool.AudienceBoth,
//		Parameters:  []tool.ParameterSpec{{Name: "text", Type: tool.TypeString, Description: "text to echo", Required: true}},
//		Handler:     func(ctx context.Context, args map[string]interface{}) (interface{}, error) { return args["text"], nil },
//	})
//	engine := tool.NewEngine(reg, tool.NewGate(nil))
//	result := engine.Invoke(ctx, tool.Request{Tool: "text.echo", Args: map[string]interface{}{"text": "hi"}})
package tool
