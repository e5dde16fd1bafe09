package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mnemo/mnemo/config"
	"github.com/mnemo/mnemo/pkg/atom"
	"github.com/mnemo/mnemo/pkg/eventbus"
	"github.com/mnemo/mnemo/pkg/logger"
	"github.com/mnemo/mnemo/pkg/memory"
	"github.com/mnemo/mnemo/pkg/metrics"
	"github.com/mnemo/mnemo/pkg/version"
)

var (
	configPath  = flag.String("config", "", "Path to configuration file")
	versionFlag = flag.Bool("version", false, "Print version information")
	helpFlag    = flag.Bool("help", false, "Print help information")

	// CLI overrides
	appName   = flag.String("app-name", "", "Override app name")
	basePath  = flag.String("base-path", "", "Override memory base path")
	logLevel  = flag.String("log-level", "", "Override log level")
	debugMode = flag.Bool("debug", false, "Enable debug mode")

	// Offline repair mode
	repairPath   = flag.String("repair", "", "Repair the atom file at this path in place and exit")
	repairOutput = flag.String("repair-output", "", "With -repair, write the repaired atom here instead of replacing in place")
	noBackup     = flag.Bool("no-backup", false, "With -repair, skip the .bak copy")

	sweepInterval = flag.Duration("sweep-interval", 10*time.Minute, "Interval between auto-promotion/cleanup sweeps (0 disables)")
)

func main() {
	flag.Parse()

	if *helpFlag {
		printHelp()
		os.Exit(0)
	}

	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	if *repairPath != "" {
		os.Exit(runRepair(*repairPath, *repairOutput, !*noBackup))
	}

	overrides := buildOverrides()

	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration:\n%s\n", err)
		os.Exit(1)
	}

	logCfg := &logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	if cfg.App.Debug || *debugMode {
		logCfg.Level = logger.DebugLevel
	}
	log := logger.New(logCfg)
	logger.SetGlobal(log)

	log.Info("Starting Mnemo",
		"version", version.Version,
		"buildTime", version.BuildTime,
		"gitCommit", version.GitCommit,
		"app", cfg.App.Name,
		"environment", cfg.App.Environment,
	)
	log.Debug("Configuration loaded", "config", cfg.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	metricsCfg := metrics.DefaultConfig()
	metricsCfg.Enabled = cfg.Metrics.Enabled
	metricsCfg.Port = cfg.Metrics.Port
	metricsCfg.Path = cfg.Metrics.Path
	metricsManager := metrics.NewManager(metricsCfg)

	if metricsManager.Enabled() {
		go func() {
			log.Info("Starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := metricsManager.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				log.Error("Metrics server error", "error", err)
			}
		}()
	}

	bus := eventbus.NewMemoryBus()
	publisher, err := eventbus.NewPublisher(cfg.App.Name, bus, eventbus.DefaultRetryConfig(), metricsManager)
	if err != nil {
		log.Error("Failed to create lifecycle publisher", "error", err)
		os.Exit(1)
	}
	go logLifecycleEvents(ctx, bus, log)

	ctrl, err := memory.NewController(cfg.Memory,
		memory.WithLogger(log),
		memory.WithMetrics(metricsManager),
		memory.WithPublisher(publisher),
	)
	if err != nil {
		log.Error("Failed to create memory controller", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := ctrl.Close(); err != nil {
			log.Error("Error closing memory controller", "error", err)
		}
	}()

	// Watch the config file so log level changes apply without a restart.
	if *configPath != "" {
		watcher, err := config.NewWatcher(*configPath, config.NewLoader())
		if err != nil {
			log.Warn("Config watcher unavailable", "error", err)
		} else {
			watcher.OnChange(func(updated *config.Config) {
				log.SetLevel(logger.ParseLevel(updated.Log.Level))
				log.Info("Configuration reloaded", "log_level", updated.Log.Level)
			})
			go func() {
				if err := watcher.Watch(ctx); err != nil && err != context.Canceled {
					log.Error("Config watcher error", "error", err)
				}
			}()
			defer watcher.Stop()
		}
	}

	if *sweepInterval > 0 {
		go runMaintenance(ctx, ctrl, log, *sweepInterval)
	}

	log.Info("Mnemo is running",
		"base_path", cfg.Memory.BasePath,
		"metrics_port", cfg.Metrics.Port,
		"sweep_interval", sweepInterval.String(),
	)
	log.Info("Press Ctrl+C to stop")

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("Context cancelled")
	}

	cancel()
	log.Info("Mnemo stopped gracefully")
}

// logLifecycleEvents mirrors every lifecycle event to the debug log.
func logLifecycleEvents(ctx context.Context, bus *eventbus.MemoryBus, log logger.Logger) {
	sub, err := bus.Subscribe(eventbus.SubjectPrefix+".>", 64)
	if err != nil {
		log.Warn("Lifecycle event subscription failed", "error", err)
		return
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			log.Debug("Lifecycle event", "subject", msg.Subject, "payload", string(msg.Payload))
		}
	}
}

// runMaintenance periodically promotes atoms whose importance crossed their
// tier threshold and sweeps stale/expired atoms.
func runMaintenance(ctx context.Context, ctrl *memory.Controller, log logger.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			repaired := ctrl.RepairSweep(ctx)
			promoted := ctrl.AutoPromote(ctx)
			swept := ctrl.Cleanup(ctx)
			stats := ctrl.Stats()

			log.Info("Maintenance sweep complete",
				"repaired", repaired.Repaired,
				"repair_failures", repaired.Failed,
				"promoted_short_to_middle", promoted.ShortToMiddle,
				"promoted_middle_to_long", promoted.MiddleToLong,
				"swept_short", swept.Short,
				"swept_middle", swept.Middle,
				"swept_long", swept.Long,
				"atom_counts", stats,
			)
		}
	}
}

// runRepair handles the -repair flag: offline repair of a single atom file.
func runRepair(path, output string, backup bool) int {
	if output != "" {
		report, err := atom.RepairFile(path, output, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "repair failed: %v\n", err)
			return 1
		}
		if !report.Success {
			fmt.Fprintf(os.Stderr, "could not recover %s\n", path)
			for _, w := range report.Warnings {
				fmt.Fprintf(os.Stderr, "  %s\n", w)
			}
			return 1
		}
		fmt.Printf("recovered %s -> %s (%d issues, %d fixes)\n",
			path, output, len(report.IssuesFound), len(report.FixesApplied))
		return 0
	}

	if !atom.AutoRepair(path, backup) {
		fmt.Fprintf(os.Stderr, "could not repair %s in place\n", path)
		return 1
	}
	fmt.Printf("repaired %s in place\n", path)
	return 0
}

func buildOverrides() map[string]interface{} {
	overrides := make(map[string]interface{})

	if *appName != "" {
		overrides["app.name"] = *appName
	}
	if *basePath != "" {
		overrides["memory.base_path"] = *basePath
	}
	if *logLevel != "" {
		overrides["log.level"] = *logLevel
	}
	if *debugMode {
		overrides["app.debug"] = true
	}

	return overrides
}

func printVersion() {
	fmt.Printf("Mnemo - Tiered Memory Substrate for Autonomous Agents\n")
	fmt.Printf("Version:    %s\n", version.Version)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
	fmt.Printf("Go Version: %s\n", version.GoVersion)
}

func printHelp() {
	fmt.Printf("Mnemo - Tiered binary memory substrate for autonomous agents\n\n")
	fmt.Printf("Usage: mnemo [options]\n\n")
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  mnemo                                     # Run with default config\n")
	fmt.Printf("  mnemo -config config.yaml                 # Use specific config file\n")
	fmt.Printf("  mnemo -base-path /var/lib/mnemo -debug    # Override specific options\n")
	fmt.Printf("  mnemo -repair data/short/a1b2.atom        # Repair one atom file in place\n")
	fmt.Printf("  mnemo -version                            # Print version info\n")
}
