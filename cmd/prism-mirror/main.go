package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"

	didprism "github.com/did-method-prism/go-didprism"
	"github.com/did-method-prism/go-didprism/mirror"
	"github.com/did-method-prism/go-didprism/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func main() {
	cmd := &cli.Command{
		Name:  "prism-mirror",
		Usage: "local mirror of prism DID documents, refreshed from a Prism Node resolver",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "postgres-url",
				Usage:   "PostgreSQL connection string (if set, uses Postgres instead of SQLite)",
				Sources: cli.EnvVars("POSTGRES_URL"),
			},
			&cli.StringFlag{
				Name:    "sqlite-path",
				Usage:   "SQLite database file path (used when --postgres-url is not set)",
				Value:   "mirror.db",
				Sources: cli.EnvVars("SQLITE_PATH"),
			},
			&cli.StringFlag{
				Name:    "bind",
				Usage:   "HTTP server listen address",
				Value:   ":8080",
				Sources: cli.EnvVars("MIRROR_BIND"),
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Metrics HTTP server listen address",
				Value:   ":9464",
				Sources: cli.EnvVars("METRICS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "resolver-url",
				Usage:   "Prism Node resolver base URL",
				Value:   "http://localhost:8085",
				Sources: cli.EnvVars("PRISM_RESOLVER_URL"),
			},
			&cli.StringFlag{
				Name:    "ledger",
				Usage:   "ledger (network) to mirror, e.g. mainnet or preprod",
				Value:   "mainnet",
				Sources: cli.EnvVars("PRISM_LEDGER"),
			},
			&cli.DurationFlag{
				Name:    "refresh-interval",
				Usage:   "How old a snapshot may get before it is re-resolved",
				Value:   15 * time.Minute,
				Sources: cli.EnvVars("REFRESH_INTERVAL"),
			},
			&cli.IntFlag{
				Name:    "num-workers",
				Usage:   "Number of refresh worker threads (0 = auto)",
				Value:   0,
				Sources: cli.EnvVars("NUM_WORKERS"),
			},
			&cli.StringSliceFlag{
				Name:    "seed-did",
				Usage:   "DID to register with the mirror on startup (repeatable)",
				Sources: cli.EnvVars("SEED_DIDS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "log-json",
				Usage:   "Output logs in JSON format",
				Sources: cli.EnvVars("LOG_JSON"),
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	// Parse configuration
	postgresURL := cmd.String("postgres-url")
	sqlitePath := cmd.String("sqlite-path")
	httpAddr := cmd.String("bind")
	metricsAddr := cmd.String("metrics-addr")
	resolverURL := cmd.String("resolver-url")
	ledger := cmd.String("ledger")
	refreshInterval := cmd.Duration("refresh-interval")
	numWorkers := cmd.Int("num-workers")
	seedDIDs := cmd.StringSlice("seed-did")
	logLevel := cmd.String("log-level")
	logJSON := cmd.Bool("log-json")

	// Initialize logger
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if logJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	otelShutdown, err := setupOTel(ctx)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer otelShutdown(context.Background())

	var st *store.GormSnapshotStore

	if postgresURL != "" {
		slog.Info("using database", "type", "postgres", "url", postgresURL)
		st, err = store.NewSnapshotStoreWithPostgres(postgresURL, logger)
		if err != nil {
			return fmt.Errorf("failed to create postgres store: %w", err)
		}
	} else {
		slog.Info("using database", "type", "sqlite", "path", sqlitePath)
		st, err = store.NewSnapshotStoreWithSqlite(sqlitePath, logger)
		if err != nil {
			return fmt.Errorf("failed to create sqlite store: %w", err)
		}
	}

	client := didprism.DefaultClient(didprism.ClientConfig{
		ResolverURL:   resolverURL,
		DefaultLedger: ledger,
		UserAgent:     "go-didprism/prism-mirror",
	})

	refresher := mirror.NewRefresher(st, client, ledger, refreshInterval, numWorkers, logger)
	if len(seedDIDs) > 0 {
		if err := refresher.Seed(ctx, seedDIDs); err != nil {
			return fmt.Errorf("failed to seed mirror: %w", err)
		}
	}

	server := mirror.NewServer(st, ledger, httpAddr, logger)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Run)

	g.Go(func() error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		slog.Info("metrics server listening", "addr", metricsAddr)
		return http.ListenAndServe(metricsAddr, mux)
	})

	g.Go(func() error {
		return refresher.Run(gctx)
	})

	return g.Wait()
}
