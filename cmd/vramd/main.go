package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vramd/internal/config"
	"vramd/internal/device"
	"vramd/internal/httpapi"
	"vramd/internal/loader"
	"vramd/internal/manager"
	"vramd/internal/registry"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var (
		cfgPath  string
		logLevel string
	)
	root := &cobra.Command{
		Use:           "vramd",
		Short:         "Device-memory-resident model manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "vramd.yaml", "Path to configuration (yaml/json/toml)")
	root.PersistentFlags().String("log-level", "info", "Log level: debug|info|warn|error")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if f := cmd.Flags().Lookup("log-level"); f != nil {
			logLevel = f.Value.String()
		}
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfgPath, logLevel)
		},
	}
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configured budget and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cfgPath)
		},
	}
	root.AddCommand(serve, validate)
	return root
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// capacityProvider picks the configured static capacity when pinned,
// otherwise the nvidia-smi probe.
func capacityProvider(cfg config.Config) device.CapacityProvider {
	if cfg.CapacityGB > 0 {
		return device.Static{Bytes: uint64(cfg.CapacityGB * float64(uint64(1)<<30))}
	}
	return device.NvidiaSMI{}
}

func runServe(cfgPath, logLevel string) error {
	log := newLogger(logLevel)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	table, err := registry.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	mgr, err := manager.New(manager.Config{
		Table:            table,
		Loader:           &loader.LlamaServer{Bin: cfg.LlamaBin, Log: log},
		Device:           capacityProvider(cfg),
		OffloadThreshold: cfg.OffloadThreshold,
		WarmupEnabled:    cfg.WarmupEnabled,
		Logger:           log,
	})
	if err != nil {
		return err
	}

	warmupCtx, cancelWarmup := context.WithCancel(context.Background())
	go mgr.Warmup(warmupCtx)

	httpapi.SetLogger(log)
	mux := httpapi.NewMux(mgr, httpapi.MuxConfig{BatchHints: cfg.BatchHints})
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Int("tasks", len(cfg.Tasks)).Msg("vramd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		cancelWarmup()
		return err
	case <-stop:
	}
	cancelWarmup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	if err := mgr.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("manager shutdown")
	}
	return nil
}

func runValidate(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	table, err := registry.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	report, err := manager.BudgetReport(table, capacityProvider(cfg), cfg.OffloadThreshold)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if !report.Valid {
		return fmt.Errorf("budget invalid: %s declared, %s allowed",
			byteFigure(report.DeclaredTotalBytes), byteFigure(report.AllowedBytes))
	}
	return nil
}

func byteFigure(n uint64) string {
	return fmt.Sprintf("%.1f GiB", float64(n)/float64(uint64(1)<<30))
}
