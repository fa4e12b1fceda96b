// Package main provides the semgen binary entry point.
// Semgen renders templates against merged RDF ontologies, either as a
// one-shot generation pass or continuously in watch mode.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/semgen/config"
	"github.com/c360studio/semgen/event"
	"github.com/c360studio/semgen/graph"
	"github.com/c360studio/semgen/metric"
	"github.com/c360studio/semgen/ontology"
	"github.com/c360studio/semgen/pipeline"
	"github.com/c360studio/semgen/watch"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semgen"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "semgen",
		Short: "Ontology-driven generation pipeline",
		Long: `Semgen loads RDF ontologies (Turtle, N-Triples, JSON-LD), merges them
into a queryable semantic context, and renders templates against that
context to generate code, documentation, or configuration.

Outputs are cached by content, so unchanged inputs never re-render, and
watch mode rebuilds incrementally as files change.`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Pipeline config path (default: "+config.DefaultConfigFile+" in this or a parent directory)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (debug, info, warn, error)")

	var (
		dumpFormat  string
		natsURL     string
		metricsAddr string
	)

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Run one generation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(logLevel)
			cfg, path, err := resolveConfig(configPath)
			if err != nil {
				return err
			}
			logger.Info("loaded pipeline config", "path", path, "pipeline", cfg.Name)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if dumpFormat != "" {
				return dumpContext(ctx, cfg, dumpFormat, logger)
			}

			nc, err := connectNATS(natsURL, logger)
			if err != nil {
				return err
			}
			if nc != nil {
				defer nc.Drain()
			}

			job, err := pipeline.ExecuteJob(ctx, cfg, buildDeps(logger, nc, nil))
			if err != nil {
				return err
			}
			fmt.Printf("generated %d files (%d rendered, %d from cache) in %s\n",
				job.Metrics.FilesGenerated,
				job.Metrics.TemplatesRendered,
				job.Metrics.CacheHits,
				job.Duration().Round(time.Millisecond))
			if n := len(job.Metrics.Errors); n > 0 {
				fmt.Printf("%d task(s) failed, see log for details\n", n)
			}
			return nil
		},
	}
	generate.Flags().StringVar(&dumpFormat, "dump-context", "",
		"Print the merged context in the given format (turtle, ntriples, jsonld) instead of generating")
	generate.Flags().StringVar(&natsURL, "nats-url", "",
		"Publish job events to NATS at this URL")

	watchCommand := &cobra.Command{
		Use:   "watch",
		Short: "Generate continuously as sources and templates change",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(logLevel)
			cfg, path, err := resolveConfig(configPath)
			if err != nil {
				return err
			}
			logger.Info("loaded pipeline config", "path", path, "pipeline", cfg.Name)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			nc, err := connectNATS(natsURL, logger)
			if err != nil {
				return err
			}
			if nc != nil {
				defer nc.Drain()
			}

			var metrics *metric.Metrics
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				metrics = metric.New(reg)
				srv := startMetricsServer(metricsAddr, reg, logger)
				defer srv.Shutdown(context.Background())
			}

			return watch.Start(ctx, cfg, buildDeps(logger, nc, metrics))
		},
	}
	watchCommand.Flags().StringVar(&natsURL, "nats-url", "",
		"Publish job events to NATS at this URL")
	watchCommand.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address (e.g. :9090)")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the pipeline config and report every violation",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(logLevel)
			cfg, path, err := resolveConfig(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				var verr *config.ValidationError
				if errors.As(err, &verr) {
					fmt.Fprintf(os.Stderr, "%s:\n", path)
					for _, v := range verr.Violations {
						fmt.Fprintf(os.Stderr, "  - %s\n", v)
					}
				}
				return err
			}
			fmt.Printf("%s: configuration valid (pipeline %q, %d sources, %d templates)\n",
				path, cfg.Name, len(cfg.Ontologies), len(cfg.Templates))
			return nil
		},
	}

	cmd.AddCommand(generate, watchCommand, validate, &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func setupLogging(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func resolveConfig(path string) (*config.PipelineConfig, string, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		path = config.Find(wd)
		if path == "" {
			return nil, "", fmt.Errorf("no %s found in this directory or any parent; use --config", config.DefaultConfigFile)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func buildDeps(logger *slog.Logger, nc *nats.Conn, metrics *metric.Metrics) pipeline.Deps {
	deps := pipeline.Deps{Logger: logger, Metrics: metrics}
	if nc != nil {
		deps.Listeners = append(deps.Listeners, event.NewNATSSink(nc, logger))
	}
	return deps
}

// connectNATS dials NATS when a URL is configured via flag or the
// SEMGEN_NATS_URL environment variable. No URL means no event sink.
func connectNATS(url string, logger *slog.Logger) (*nats.Conn, error) {
	if url == "" {
		url = os.Getenv("SEMGEN_NATS_URL")
	}
	if url == "" {
		return nil, nil
	}

	nc, err := nats.Connect(url,
		nats.Name(appName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf(`NATS connection failed: %w

NATS is not reachable at %s. Start a server or adjust --nats-url.`, err, url)
	}
	logger.Info("connected to NATS", "url", url)
	return nc, nil
}

func startMetricsServer(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

// dumpContext loads and merges every source, then writes the combined
// context to stdout for inspection.
func dumpContext(ctx context.Context, cfg *config.PipelineConfig, format string, logger *slog.Logger) error {
	f, err := graph.ParseFormat(format)
	if err != nil {
		return err
	}

	sources := make([]ontology.Source, 0, len(cfg.Ontologies))
	for _, src := range cfg.Ontologies {
		sources = append(sources, ontology.Source{
			Path:      src.Path,
			Format:    src.Format,
			Namespace: src.Namespace,
		})
	}
	res, err := ontology.NewLoader(ontology.NewRegistry(), logger).Load(ctx, sources)
	if err != nil {
		return err
	}
	if len(res.Errors) > 0 {
		return errors.Join(res.Errors...)
	}

	merged := graph.Merge(res.Fragments)
	for _, w := range merged.Warnings() {
		logger.Warn("merge conflict", "detail", w)
	}
	out, err := merged.Serialize(f)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
