package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/manthysbr/llmsender/internal/adapters/sqlite"
	"github.com/manthysbr/llmsender/internal/config"
	"github.com/manthysbr/llmsender/internal/core/ports"
	"github.com/manthysbr/llmsender/internal/core/services"
	"github.com/manthysbr/llmsender/internal/packs"
	"github.com/manthysbr/llmsender/internal/plugins"
	"github.com/manthysbr/llmsender/pkg/status"
)

func main() {
	var (
		configPath string
		logLevel   string
		logFile    string
		testMode   bool
	)

	root := &cobra.Command{
		Use:   "llmsender",
		Short: "Fetch, summarize and deliver content on a schedule",
		Long: `llmsender runs configured tasks on their schedules: each task fetches
content from a provider, summarizes it through an LLM backend, runs the
summary through an action chain and delivers it via one or more notifiers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := buildLogger(logLevel, logFile)
			if err != nil {
				return err
			}
			defer closeLog()
			return run(logger, configPath, testMode)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to the task configuration file")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.Flags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stdout")
	root.Flags().BoolVar(&testMode, "test", false, "fire every task once, ignoring schedules, then exit")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildLogger(level, file string) (*slog.Logger, func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q", level)
	}

	var out io.Writer = os.Stdout
	closeLog := func() {}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeLog = func() { f.Close() }
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})), closeLog, nil
}

func run(logger *slog.Logger, configPath string, testMode bool) error {
	// .env is optional; real deployments export credentials directly.
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		cancel()
	}()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	tasks, err := config.BuildTasks(cfg)
	if err != nil {
		return err
	}

	loc := time.Local
	if cfg.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
	}

	// Adapters
	var runs *sqlite.Repository
	if cfg.DatabasePath != "" {
		runs, err = sqlite.NewRepository(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to init run repository: %w", err)
		}
		defer runs.Close()
	}

	var loader *packs.Loader
	if cfg.PacksDir != "" {
		loader = packs.NewLoader(logger, cfg.PacksDir)
	}

	// Core services
	guard := services.NewDependencyGuard(logger)
	registry := services.NewPluginRegistry(logger, guard, resolverOrNil(loader))
	plugins.RegisterBuiltins(registry, loader)

	eventBus := services.NewEventBus(logger)
	executor := services.NewPipelineExecutor(logger, registry, repoOrNil(runs), eventBus)
	scheduler := services.NewScheduler(logger, executor, registry, services.SchedulerConfig{
		Location:             loc,
		MaxConcurrentFirings: cfg.MaxConcurrentFirings,
	})

	registered := 0
	for _, task := range tasks {
		if err := scheduler.Register(task); err != nil {
			logger.Warn("task excluded from scheduling", "error", err)
			continue
		}
		registered++
	}
	if registered == 0 {
		return fmt.Errorf("no runnable tasks")
	}

	if testMode {
		logger.Info("test mode: firing every task once", "tasks", registered)
		scheduler.FireAll(ctx)
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	if cfg.HTTPAddr != "" {
		api := status.NewServer(logger, scheduler, repoOrNil(runs), eventBus)
		g.Go(func() error {
			return api.Run(gctx, cfg.HTTPAddr)
		})
	}

	err = g.Wait()
	scheduler.Wait() // let in-flight firings finish
	return err
}

// resolverOrNil avoids handing the registry a typed nil interface.
func resolverOrNil(loader *packs.Loader) services.PackResolver {
	if loader == nil {
		return nil
	}
	return loader
}

func repoOrNil(runs *sqlite.Repository) ports.RunRepository {
	if runs == nil {
		return nil
	}
	return runs
}
