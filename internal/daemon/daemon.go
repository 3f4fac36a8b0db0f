// Package daemon wires the configured tool packs, invocation engine,
// noun catalog, scheduler, and metrics endpoint into a long-running
// service with signal-driven shutdown.
package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nounverse/verbs/internal/config"
	"github.com/nounverse/verbs/internal/logger"
	"github.com/nounverse/verbs/internal/metrics"
	"github.com/nounverse/verbs/pkg/audit"
	"github.com/nounverse/verbs/pkg/nouns"
	"github.com/nounverse/verbs/pkg/schedule"
	"github.com/nounverse/verbs/pkg/tool"
)

// Daemon is the long-running verbs service.
type Daemon struct {
	mu        sync.RWMutex
	running   bool
	startTime time.Time

	config *config.Config
	logger *logger.Logger

	metrics       *metrics.Metrics
	registry      *tool.Registry
	confirmations *tool.Confirmations
	gate          *tool.Gate
	engine        *tool.Engine
	auditStore    *audit.Store
	catalog       *nouns.Catalog
	watcher       *nouns.Watcher
	scheduler     *schedule.Scheduler
	metricsServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Status represents daemon status.
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
}

// New creates a new daemon instance. The logger is built by the caller
// so one-shot commands and the daemon share the same setup path.
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config: cfg,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}

	// Initialize core modules in dependency order
	if err := d.initializeCoreModules(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}

	// Initialize services
	if err := d.initializeServices(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return d, nil
}

// initializeCoreModules sets up the registry, gating, engine, and audit
// trail in dependency order.
func (d *Daemon) initializeCoreModules() error {
	// Initialize metrics collector
	d.metrics = metrics.NewMetrics()
	d.logger.Info().Msg("Metrics collector initialized")

	// Build tool registry from the enabled packs
	registry, err := BuildRegistry(d.config)
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}
	d.registry = registry
	d.logger.Info().Int("tools", registry.Count()).Msg("Tool registry initialized")

	// Initialize confirmation broker and gate
	ttl := time.Duration(d.config.Tools.ConfirmationTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = tool.DefaultConfirmationTTL
	}
	d.confirmations = tool.NewConfirmations(ttl)
	d.gate = tool.NewGate(d.confirmations)
	d.logger.Info().Dur("ttl", ttl).Msg("Confirmation broker initialized")

	// Initialize invocation engine
	d.engine = tool.NewEngine(d.registry, d.gate)
	if d.config.Tools.DefaultTimeoutSeconds > 0 {
		d.engine.SetDefaultTimeout(time.Duration(d.config.Tools.DefaultTimeoutSeconds) * time.Second)
	}
	d.engine.SetRetryConfig(tool.RetryConfig{
		Enabled:        d.config.Tools.Retry.Enabled,
		MaxAttempts:    d.config.Tools.Retry.MaxAttempts,
		InitialBackoff: time.Duration(d.config.Tools.Retry.InitialBackoffMs) * time.Millisecond,
		MaxBackoff:     time.Duration(d.config.Tools.Retry.MaxBackoffMs) * time.Millisecond,
	})
	d.engine.SetRecorder(d.metrics)
	d.logger.Info().Msg("Invocation engine initialized")

	// Initialize audit trail
	if d.config.Audit.Enabled {
		store, err := audit.Open(d.config.Audit.Path)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		d.auditStore = store
		d.engine.Subscribe(store.HandleEvent)
		d.logger.Info().Str("path", d.config.Audit.Path).Msg("Audit trail initialized")
	}

	return nil
}

// initializeServices sets up the noun catalog, scheduler, and metrics
// endpoint on top of the core modules.
func (d *Daemon) initializeServices() error {
	// Initialize noun catalog
	if err := os.MkdirAll(d.config.Catalog.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	d.catalog = nouns.NewCatalog(d.config.Catalog.Dir)
	if err := d.catalog.Load(); err != nil {
		return fmt.Errorf("failed to load noun catalog: %w", err)
	}
	d.logger.Info().Int("domains", d.catalog.Count()).Msg("Noun catalog initialized")

	// Initialize catalog watcher
	if d.config.Catalog.Watch {
		watcher, err := nouns.NewWatcher(d.catalog)
		if err != nil {
			d.logger.Warn().Err(err).Msg("Failed to create catalog watcher, continuing without hot reload")
		} else {
			d.watcher = watcher
			d.logger.Info().Msg("Catalog watcher initialized")
		}
	}

	// Initialize scheduler
	d.scheduler = schedule.NewScheduler(d.engine)
	d.logger.Info().Msg("Scheduler initialized")

	// Initialize metrics server
	if d.config.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", d.metrics.Handler())
		d.metricsServer = &http.Server{
			Addr:    d.config.Metrics.Addr,
			Handler: mux,
		}
		d.logger.Info().Str("addr", d.config.Metrics.Addr).Msg("Metrics server initialized")
	}

	d.metrics.SetRegisteredTools(d.registry.Count())

	return nil
}

// Start starts the daemon.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	d.logger.Info().Msg("Starting verbs daemon")

	// Write PID file
	pidFile, err := WritePIDFile(d.config.DataDir)
	if err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	d.logger.Info().Str("pid_file", pidFile).Int("pid", os.Getpid()).Msg("PID file written")

	// Start catalog watcher
	if d.watcher != nil {
		if err := d.watcher.Watch(); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to start catalog watcher, continuing without hot reload")
		} else {
			d.logger.Info().Str("dir", d.catalog.Dir()).Msg("Catalog watcher started")
		}
	}

	// Start scheduler
	d.scheduler.Start()
	d.logger.Info().Msg("Scheduler started")

	// Start metrics server
	if d.metricsServer != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.logger.Info().Str("addr", d.metricsServer.Addr).Msg("Metrics server started")
			if err := d.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				d.logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	// Keep gauges current while running
	d.wg.Add(1)
	go d.refreshGauges()

	d.logger.Info().
		Int("pid", os.Getpid()).
		Int("tools", d.registry.Count()).
		Int("domains", d.catalog.Count()).
		Msg("Daemon started successfully")

	return nil
}

// refreshGauges periodically republishes the registered-tools and
// pending-confirmations gauges.
func (d *Daemon) refreshGauges() {
	defer d.wg.Done()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.metrics.SetRegisteredTools(d.registry.Count())
			d.metrics.SetPendingConfirmations(d.confirmations.Pending())
		}
	}
}

// Stop stops the daemon.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info().Msg("Stopping verbs daemon")

	// Stop scheduler
	d.scheduler.Stop()
	d.logger.Info().Msg("Scheduler stopped")

	// Stop catalog watcher
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to stop catalog watcher")
		}
	}

	// Stop metrics server
	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.metricsServer.Shutdown(shutdownCtx); err != nil {
			d.logger.Error().Err(err).Msg("Failed to shut down metrics server")
		}
		cancel()
	}

	// Cancel context
	d.cancel()

	// Wait for goroutines to finish (with timeout)
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		d.logger.Warn().Msg("Timeout waiting for goroutines to stop")
	}

	// Close audit store
	if d.auditStore != nil {
		if err := d.auditStore.Close(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to close audit store")
		}
	}

	// Remove PID file
	if err := RemovePIDFile(d.config.DataDir); err != nil {
		d.logger.Error().Err(err).Msg("Failed to remove PID file")
	}

	d.logger.Info().Msg("Daemon stopped successfully")

	return nil
}

// Status returns the daemon status.
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// Wait blocks until SIGINT or SIGTERM arrives, then stops the daemon.
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// GetConfig returns the daemon configuration.
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetLogger returns the daemon logger.
func (d *Daemon) GetLogger() *logger.Logger {
	return d.logger
}

// GetRegistry returns the tool registry.
func (d *Daemon) GetRegistry() *tool.Registry {
	return d.registry
}

// GetEngine returns the invocation engine.
func (d *Daemon) GetEngine() *tool.Engine {
	return d.engine
}

// GetConfirmations returns the confirmation broker.
func (d *Daemon) GetConfirmations() *tool.Confirmations {
	return d.confirmations
}

// GetCatalog returns the noun catalog.
func (d *Daemon) GetCatalog() *nouns.Catalog {
	return d.catalog
}

// GetScheduler returns the job scheduler.
func (d *Daemon) GetScheduler() *schedule.Scheduler {
	return d.scheduler
}

// GetAuditStore returns the audit store, nil when auditing is disabled.
func (d *Daemon) GetAuditStore() *audit.Store {
	return d.auditStore
}

// GetMetrics returns the metrics collector.
func (d *Daemon) GetMetrics() *metrics.Metrics {
	return d.metrics
}
