package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nounverse/verbs/internal/config"
	"github.com/nounverse/verbs/internal/daemon"
	"github.com/nounverse/verbs/pkg/llmtool"
	"github.com/nounverse/verbs/pkg/tool"
	"github.com/spf13/cobra"
)

var (
	listAudience string
	invokeArgs   string
	invokeActor  string
	invokeClass  string
	invokeGrants []string
	invokeYes    bool
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and invoke registered tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tools",
	RunE:  runToolsList,
}

var toolsDescribeCmd = &cobra.Command{
	Use:   "describe <id>",
	Short: "Show a tool's full declaration",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolsDescribe,
}

var toolsInvokeCmd = &cobra.Command{
	Use:   "invoke <id>",
	Short: "Invoke a tool through the engine",
	Long: `Invoke a registered tool through the validation and gating pipeline.
Arguments are passed as a JSON object. Tools that require confirmation
fail on the first attempt; with --yes the issued confirmation token is
redeemed and the invocation is submitted again.`,
	Args: cobra.ExactArgs(1),
	RunE: runToolsInvoke,
}

func init() {
	toolsListCmd.Flags().StringVar(&listAudience, "audience", "", "only list tools visible to this caller class (human, ai)")
	toolsInvokeCmd.Flags().StringVar(&invokeArgs, "args", "", "tool arguments as a JSON object")
	toolsInvokeCmd.Flags().StringVar(&invokeActor, "actor", "cli", "actor recorded for the invocation")
	toolsInvokeCmd.Flags().StringVar(&invokeClass, "class", "human", "caller class (human, ai)")
	toolsInvokeCmd.Flags().StringArrayVar(&invokeGrants, "grant", nil, "granted permission as resource:action[:scope], repeatable (default *:*)")
	toolsInvokeCmd.Flags().BoolVar(&invokeYes, "yes", false, "confirm tools that require confirmation")

	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsDescribeCmd)
	toolsCmd.AddCommand(toolsInvokeCmd)
	rootCmd.AddCommand(toolsCmd)
}

func runToolsList(cmd *cobra.Command, args []string) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}

	defs := registry.List()
	if listAudience != "" {
		class, err := parseCallerClass(listAudience)
		if err != nil {
			return err
		}
		defs = registry.ListByAudience(class)
	}

	if len(defs) == 0 {
		cmd.Println("No tools registered.")
		return nil
	}

	cmd.Printf("Registered tools (%d):\n", len(defs))
	for _, def := range defs {
		var marks []string
		if def.RequiresConfirmation {
			marks = append(marks, "confirm")
		}
		if def.Idempotent {
			marks = append(marks, "idempotent")
		}
		suffix := ""
		if len(marks) > 0 {
			suffix = " [" + strings.Join(marks, ", ") + "]"
		}
		cmd.Printf("- %s | audience: %s | %s%s\n", def.ID, def.Audience, def.Name, suffix)
	}
	return nil
}

func runToolsDescribe(cmd *cobra.Command, args []string) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}

	def, err := registry.Get(args[0])
	if err != nil {
		return err
	}

	cmd.Printf("ID:          %s\n", def.ID)
	cmd.Printf("Name:        %s\n", def.Name)
	cmd.Printf("Description: %s\n", def.Description)
	cmd.Printf("Audience:    %s\n", def.Audience)
	cmd.Printf("Idempotent:  %t\n", def.Idempotent)
	cmd.Printf("Confirm:     %t\n", def.RequiresConfirmation)
	if len(def.Tags) > 0 {
		cmd.Printf("Tags:        %s\n", strings.Join(def.Tags, ", "))
	}
	if len(def.Permissions) > 0 {
		perms := make([]string, len(def.Permissions))
		for i, p := range def.Permissions {
			perms[i] = p.String()
		}
		cmd.Printf("Permissions: %s\n", strings.Join(perms, ", "))
	}
	if len(def.Parameters) > 0 {
		cmd.Println("Parameters:")
		for _, p := range def.Parameters {
			required := ""
			if p.Required {
				required = " (required)"
			}
			cmd.Printf("- %s: %s%s | %s\n", p.Name, p.Type, required, p.Description)
		}
	}

	schema, err := json.MarshalIndent(llmtool.InputSchema(def), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render input schema: %w", err)
	}
	cmd.Printf("Input schema:\n%s\n", schema)
	return nil
}

func runToolsInvoke(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	toolArgs := map[string]interface{}{}
	if invokeArgs != "" {
		if err := json.Unmarshal([]byte(invokeArgs), &toolArgs); err != nil {
			return fmt.Errorf("invalid --args: %w", err)
		}
	}

	class, err := parseCallerClass(invokeClass)
	if err != nil {
		return err
	}

	grants := []tool.Permission{{Resource: "*", Action: "*"}}
	if len(invokeGrants) > 0 {
		grants = grants[:0]
		for _, g := range invokeGrants {
			perm, err := parsePermission(g)
			if err != nil {
				return err
			}
			grants = append(grants, perm)
		}
	}

	caller := tool.Caller{
		Actor:  invokeActor,
		Class:  class,
		Grants: grants,
	}

	ctx := context.Background()
	result := engine.Invoke(ctx, tool.Request{
		Tool:   args[0],
		Args:   toolArgs,
		Caller: caller,
	})

	// A confirmation-required failure carries a freshly issued token.
	// With --yes, redeem it by resubmitting the same request.
	if !result.Success && result.Error != nil &&
		result.Error.Code == tool.ErrConfirmationRequired && invokeYes {
		if token, ok := result.Error.Detail["confirmation_token"].(string); ok && token != "" {
			caller.ConfirmationToken = token
			result = engine.Invoke(ctx, tool.Request{
				Tool:   args[0],
				Args:   toolArgs,
				Caller: caller,
			})
		}
	}

	if result.Success {
		cmd.Printf("Invocation %s completed in %s\n", result.InvocationID, result.Duration.Round(time.Millisecond))
		output, err := json.MarshalIndent(result.Output, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render output: %w", err)
		}
		cmd.Println(string(output))
		return nil
	}

	if result.Error != nil && result.Error.Code == tool.ErrConfirmationRequired {
		return fmt.Errorf("tool %s requires confirmation, re-run with --yes", args[0])
	}
	return fmt.Errorf("invocation failed: %w", result.Error)
}

// loadRegistry builds the registry the daemon would run with, for
// one-shot inspection commands.
func loadRegistry() (*tool.Registry, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	registry, err := daemon.BuildRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}
	return registry, nil
}

// buildEngine assembles a standalone engine over the configured packs.
// One-shot invocations share a single process, so the confirmation
// broker lives only as long as the command.
func buildEngine(cfg *config.Config) (*tool.Engine, error) {
	registry, err := daemon.BuildRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}

	ttl := time.Duration(cfg.Tools.ConfirmationTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = tool.DefaultConfirmationTTL
	}
	engine := tool.NewEngine(registry, tool.NewGate(tool.NewConfirmations(ttl)))
	if cfg.Tools.DefaultTimeoutSeconds > 0 {
		engine.SetDefaultTimeout(time.Duration(cfg.Tools.DefaultTimeoutSeconds) * time.Second)
	}
	return engine, nil
}

func parseCallerClass(s string) (tool.Audience, error) {
	switch s {
	case "human":
		return tool.AudienceHuman, nil
	case "ai":
		return tool.AudienceAI, nil
	}
	return "", fmt.Errorf("invalid caller class %q (must be: human, ai)", s)
}

func parsePermission(s string) (tool.Permission, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 2:
		return tool.Permission{Resource: parts[0], Action: parts[1]}, nil
	case 3:
		return tool.Permission{Resource: parts[0], Action: parts[1], Scope: parts[2]}, nil
	}
	return tool.Permission{}, fmt.Errorf("invalid grant %q (expected resource:action[:scope])", s)
}
