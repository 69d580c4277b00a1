package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "github.com/KimMachineGun/automemlimit"
	_ "go.uber.org/automaxprocs"

	"github.com/redis/go-redis/v9"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/kcloudops/kcloud-monitor/internal/alert"
	"github.com/kcloudops/kcloud-monitor/internal/cache"
	"github.com/kcloudops/kcloud-monitor/internal/collector"
	"github.com/kcloudops/kcloud-monitor/internal/config"
	"github.com/kcloudops/kcloud-monitor/internal/controlplane"
	"github.com/kcloudops/kcloud-monitor/internal/cooldown"
	"github.com/kcloudops/kcloud-monitor/internal/costmodel"
	"github.com/kcloudops/kcloud-monitor/internal/enrichment"
	"github.com/kcloudops/kcloud-monitor/internal/errors"
	"github.com/kcloudops/kcloud-monitor/internal/health"
	"github.com/kcloudops/kcloud-monitor/internal/history"
	"github.com/kcloudops/kcloud-monitor/internal/monitor"
	"github.com/kcloudops/kcloud-monitor/internal/observability"
	"github.com/kcloudops/kcloud-monitor/internal/rules"
	"github.com/kcloudops/kcloud-monitor/internal/store"
	"github.com/kcloudops/kcloud-monitor/internal/telemetry"
)

func main() {
	// 1. Load and validate config.
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// 2. Create context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		slog.Info("shutdown signal received", "signal", sig)
		cancel()
	}()

	slog.Info("kcloud-monitor starting",
		"version", cfg.Version,
		"session_id", cfg.SessionID,
		"clusters", len(cfg.AllClusters()),
		"cycle_interval", cfg.CycleInterval,
	)

	// 3. Create shared infrastructure.
	metrics := observability.NewMetrics()
	errCollector := errors.NewErrorCollector(errors.RealClock{})

	// 4. Build the control-plane client.
	restCfg := buildKubeConfig(cfg.Kubeconfig)
	dynamicClient := dynamic.NewForConfigOrDie(restCfg)
	cp := controlplane.NewCAPIClient(dynamicClient, cfg.ClusterNamespace)

	// 5. Persistent collaborators. Both are optional; the monitor falls
	// back to in-process state when either is missing or unreachable.
	var redisCache *cache.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		var err error
		redisCache, err = cache.New(rdb, slog.Default())
		if err != nil {
			slog.Error("failed to build cache layer", "error", err)
			os.Exit(1)
		}
	}

	var metricStore *store.Store
	if cfg.StorePath != "" {
		var err error
		metricStore, err = store.Open(cfg.StorePath)
		if err != nil {
			slog.Error("failed to open metric store", "path", cfg.StorePath, "error", err)
			os.Exit(1)
		}
		defer metricStore.Close()
	}

	// 6. Rule set: file override, otherwise the built-in defaults. Stored
	// rules take over on the first reload when the store has any.
	ruleSet := rules.NewSet()
	initial := rules.DefaultRules()
	if cfg.RuleFile != "" {
		loaded, err := rules.LoadFile(cfg.RuleFile)
		if err != nil {
			slog.Error("failed to load rule file", "path", cfg.RuleFile, "error", err)
			os.Exit(1)
		}
		initial = loaded
	}
	if err := ruleSet.Replace(initial); err != nil {
		slog.Error("invalid rule set", "error", err)
		os.Exit(1)
	}
	slog.Info("rules installed", "count", ruleSet.Len())

	// 7. Collector and alert engine. The engine starts on the fallback
	// chain; the monitor swaps in the enhanced chain once collaborators
	// probe healthy.
	params := costmodel.Params{ElectricityRate: cfg.ElectricityRate, CoolingOverhead: cfg.CoolingOverhead}
	pipeline := enrichment.NewPipeline(slog.Default(), metrics,
		enrichment.NewCostEnricher(config.Templates(), config.DefaultTemplateID, params),
		enrichment.NewScoreEnricher(),
	)
	col := collector.New(
		cp,
		telemetry.NewSyntheticEstimator(uint64(time.Now().UnixNano())),
		config.Templates(),
		pipeline,
		errors.RealClock{},
		errCollector,
		metrics,
		&cfg,
	)
	engine := alert.New(
		ruleSet,
		cooldown.NewMemory(errors.RealClock{}),
		errors.RealClock{},
		errCollector,
		metrics,
		slog.Default(),
		alert.NewLogSink(slog.Default()),
	)

	// 8. Assemble the monitor.
	hist := history.New(cfg.HistoryLimit)
	mon := monitor.New(&cfg, monitor.Deps{
		Collector: col,
		Engine:    engine,
		RuleSet:   ruleSet,
		History:   hist,
		Cache:     redisCache,
		Store:     metricStore,
		Errors:    errCollector,
		Metrics:   metrics,
		Clock:     errors.RealClock{},
		Logger:    slog.Default(),
	})

	// 9. Start the health server.
	healthSrv := health.NewServer(cfg.HealthPort, metrics, mon, mon, cfg.DebugEndpoints)
	if err := healthSrv.Start(); err != nil {
		slog.Error("failed to start health server", "error", err)
		os.Exit(1)
	}

	// 10. Start the memory pressure monitor. Under pressure, shed half of
	// every cluster's in-memory history and force a collection.
	memMon := monitor.NewMemoryPressureMonitor(slog.Default(), 0.8, 30*time.Second,
		func(float64) {
			hist.Shed(cfg.HistoryLimit / 2)
			runtime.GC()
		}, nil)
	memMon.Start()

	// 11. Run the monitor (blocks until the context is canceled).
	if err := mon.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("monitor exited with error", "error", err)
	}

	// 12. Graceful shutdown.
	memMon.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()
	if err := healthSrv.Stop(shutdownCtx); err != nil {
		slog.Error("health server shutdown error", "error", err)
	}

	slog.Info("kcloud-monitor stopped")
}

// buildKubeConfig creates a Kubernetes REST config.
// It tries in-cluster config first, then falls back to a kubeconfig file
// (explicit path, $KUBECONFIG, or ~/.kube/config).
func buildKubeConfig(explicit string) *rest.Config {
	if explicit == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			slog.Info("using in-cluster kubernetes config")
			return cfg
		}
	}

	kubeconfig := explicit
	if kubeconfig == "" {
		kubeconfig = os.Getenv("KUBECONFIG")
	}
	if kubeconfig == "" {
		kubeconfig = clientcmd.RecommendedHomeFile
	}

	cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		slog.Error("failed to build kubernetes config", "error", err)
		os.Exit(1)
	}
	slog.Info("using kubeconfig file", "path", kubeconfig)
	return cfg
}
