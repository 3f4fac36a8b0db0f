// Package llmtool exports registered tool definitions as provider tool
// declarations so language models can call them through the engine.
// Only tools whose audience admits AI callers are exported. Provider
// APIs reject dots in tool names, so ids are exported with dots
// replaced by underscores; ResolveProviderName maps a model's call
// back to the registry id.
package llmtool

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"

	"github.com/nounverse/verbs/pkg/tool"
)

// ProviderName returns the provider-safe name for a tool id.
func ProviderName(id string) string {
	return strings.ReplaceAll(id, ".", "_")
}

// ResolveProviderName maps a provider tool name back to the id of a
// registered tool.
func ResolveProviderName(registry *tool.Registry, name string) (string, bool) {
	for _, def := range registry.List() {
		if ProviderName(def.ID) == name {
			return def.ID, true
		}
	}
	return "", false
}

// InputSchema builds the JSON Schema declaration for one definition:
// an object schema with one property per parameter and a required list.
func InputSchema(def tool.Definition) map[string]interface{} {
	properties := make(map[string]interface{})
	required := []string{}

	for _, param := range def.Parameters {
		prop := map[string]interface{}{
			"description": param.Description,
		}
		if param.Type != tool.TypeAny {
			prop["type"] = string(param.Type)
		}
		if len(param.Enum) > 0 {
			prop["enum"] = param.Enum
		}
		properties[param.Name] = prop

		if param.Required {
			required = append(required, param.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	if def.Strict {
		schema["additionalProperties"] = false
	}
	return schema
}

// AnthropicTools exports the AI-callable definitions for the Anthropic
// Messages API, in registration order.
func AnthropicTools(registry *tool.Registry) []anthropic.ToolUnionParam {
	tools := []anthropic.ToolUnionParam{}

	for _, def := range registry.ListByAudience(tool.AudienceAI) {
		schema := InputSchema(def)

		toolParam := anthropic.ToolParam{
			Name:        ProviderName(def.ID),
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
			},
		}
		if required, ok := schema["required"].([]string); ok {
			toolParam.InputSchema.Required = required
		}

		tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
	}

	return tools
}

// OpenAITools exports the AI-callable definitions as OpenAI function
// declarations, in registration order.
func OpenAITools(registry *tool.Registry) []openai.ChatCompletionToolParam {
	tools := []openai.ChatCompletionToolParam{}

	for _, def := range registry.ListByAudience(tool.AudienceAI) {
		tools = append(tools, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        ProviderName(def.ID),
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(InputSchema(def)),
			},
		})
	}

	return tools
}
