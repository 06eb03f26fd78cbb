package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/courttime/internal/adapters/repository"
	"github.com/okian/courttime/internal/adapters/repository/badgerstore"
	"github.com/okian/courttime/internal/adapters/repository/sqlitestore"
	"github.com/okian/courttime/internal/app"
	"github.com/okian/courttime/internal/config"
	"github.com/okian/courttime/pkg/logger"
	"github.com/okian/courttime/pkg/metrics"
)

var errUsage = errors.New("usage")

const usage = `usage: courttime [-debug] [-config FILE] <command> [args]

commands:
  new ID...           create a game with the starting lineup
  load_team FILE      load team members from a delimited file (number,name)
  start               start or resume the game clock
  stop                stop or pause the game clock
  replace OUT IN      check OUT out and IN in
  reset               clear the game and the team
  show                show who is on the court and on the bench
  history ID          list one player's check-ins and check-outs
  metrics             print this invocation's metrics
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "courttime: "+err.Error())
		}
		stop()
		os.Exit(1)
	}
}

// run executes one command. Presentation goes to stdout, logs to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("courttime", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	var (
		debug      = fs.Bool("debug", false, "Enable debug logging")
		configPath = fs.String("config", "", "YAML config file (default: $COURTTIME_CONFIG)")
	)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.WithWriter(stderr), logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Named("cli")

	if *debug {
		cfg.LogLevel = "debug"
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "failed to close store", logger.Error(err))
		}
	}()

	m := metrics.NewManager(
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.MetricsBuckets),
		metrics.WithCustomLabels(cfg.MetricsLabels),
	)
	svc := app.New(store,
		app.WithRoster(store),
		app.WithMetrics(m),
		app.WithLogger(logger.Named("tracker")),
	)

	cmd := &command{
		cfg:     cfg,
		svc:     svc,
		metrics: m,
		out:     stdout,
		log:     log,
	}
	runErr := cmd.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
	if errors.Is(runErr, errUsage) {
		fmt.Fprintln(stderr, "courttime: "+runErr.Error())
		fs.Usage()
	}

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn(ctx, "failed to write metrics file", logger.String("path", cfg.MetricsFile), logger.Error(err))
		}
	}
	return runErr
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverBadger:
		s, err := badgerstore.Open(cfg.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("open badger store %s: %w", cfg.BadgerDir, err)
		}
		return s, nil
	default:
		s, err := sqlitestore.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", cfg.DBPath, err)
		}
		return s, nil
	}
}
