package daemon

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nounverse/verbs/internal/config"
	"github.com/nounverse/verbs/pkg/commtools"
	"github.com/nounverse/verbs/pkg/datatools"
	"github.com/nounverse/verbs/pkg/tool"
	"github.com/nounverse/verbs/pkg/webtools"
)

// BuildRegistry creates a tool registry populated with the built-in
// tool packs enabled in cfg. The daemon and the one-shot CLI commands
// share this so both see the same catalog of tools.
func BuildRegistry(cfg *config.Config) (*tool.Registry, error) {
	registry := tool.NewRegistry()

	if cfg.Packs.Web.Enabled {
		opts := webtools.Options{
			UserAgent: cfg.Packs.Web.UserAgent,
			MaxBytes:  cfg.Packs.Web.MaxBodyBytes,
		}
		if cfg.Packs.Web.TimeoutSeconds > 0 {
			opts.Client = &http.Client{
				Timeout: time.Duration(cfg.Packs.Web.TimeoutSeconds) * time.Second,
			}
		}
		if err := webtools.Register(registry, opts); err != nil {
			return nil, fmt.Errorf("failed to register web tools: %w", err)
		}
	}

	if cfg.Packs.Data.Enabled {
		if err := datatools.Register(registry); err != nil {
			return nil, fmt.Errorf("failed to register data tools: %w", err)
		}
	}

	if cfg.Packs.Comm.Enabled {
		if err := commtools.Register(registry, commtools.Options{}); err != nil {
			return nil, fmt.Errorf("failed to register communication tools: %w", err)
		}
	}

	return registry, nil
}
