// Facegate pushes employee identity records and face photos to the
// access-control terminals guarding site entrances, and removes them when
// employees leave.
//
// Usage:
//
//	facegate provision <employee-id> [--config <path>] [--verbose]
//	facegate provision-all [--config ...]        # full roster sweep
//	facegate replace-photo <employee-id> [...]   # photo refresh only
//	facegate remove <employee-id> [...]          # delete from all terminals
//	facegate roster-import <roster.yaml> [...]   # populate the sqlite roster
//	facegate version
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mpopa/facegate/internal/config"
	"github.com/mpopa/facegate/internal/isapi"
	"github.com/mpopa/facegate/internal/model"
	"github.com/mpopa/facegate/internal/roster"
	syncp "github.com/mpopa/facegate/internal/sync"
	"github.com/mpopa/facegate/internal/telemetry"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// run dispatches to the appropriate subcommand.
func run() error {
	if len(os.Args) < 2 {
		return printUsage()
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "provision":
		return runBatchCmd(cmd, args, func(ctx context.Context, e *syncp.Engine, id string) (model.BatchSummary, error) {
			return e.ProvisionOne(ctx, id)
		}, true)
	case "provision-all":
		return runBatchCmd(cmd, args, func(ctx context.Context, e *syncp.Engine, _ string) (model.BatchSummary, error) {
			return e.ProvisionAll(ctx)
		}, false)
	case "replace-photo":
		return runBatchCmd(cmd, args, func(ctx context.Context, e *syncp.Engine, id string) (model.BatchSummary, error) {
			return e.ReplacePhotoOne(ctx, id)
		}, true)
	case "remove":
		return runBatchCmd(cmd, args, func(ctx context.Context, e *syncp.Engine, id string) (model.BatchSummary, error) {
			return e.RemoveOne(ctx, id)
		}, true)
	case "roster-import":
		return runRosterImport(args)
	case "version":
		fmt.Println("facegate", version)
		return nil
	}

	return fmt.Errorf("unknown command %q - run 'facegate' for usage", cmd)
}

func printUsage() error {
	fmt.Fprintln(os.Stderr, "Facegate - employee sync for access-control terminals")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  facegate provision <employee-id>      Push one employee to all terminals")
	fmt.Fprintln(os.Stderr, "  facegate provision-all                Push every active employee")
	fmt.Fprintln(os.Stderr, "  facegate replace-photo <employee-id>  Replace one employee's photo")
	fmt.Fprintln(os.Stderr, "  facegate remove <employee-id>         Delete one employee everywhere")
	fmt.Fprintln(os.Stderr, "  facegate roster-import <roster.yaml>  Import a roster file (sqlite backend)")
	fmt.Fprintln(os.Stderr, "  facegate version                      Print version")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Common flags: --config <path> --verbose")

	os.Exit(1)
	return nil // unreachable
}

// --- Batch subcommands ---------------------------------------------------------

// batchFunc runs one engine entry point; id is empty for roster-wide commands.
type batchFunc func(ctx context.Context, e *syncp.Engine, id string) (model.BatchSummary, error)

// runBatchCmd parses common flags, builds the engine, runs one batch, and
// renders the summary.
func runBatchCmd(name string, args []string, fn batchFunc, wantsID bool) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var employeeID string
	if wantsID {
		if fs.NArg() != 1 {
			return fmt.Errorf("%s requires exactly one <employee-id> argument", name)
		}
		employeeID = fs.Arg(0)
	} else if fs.NArg() != 0 {
		return fmt.Errorf("%s takes no positional arguments", name)
	}

	logger := newLogger(*verbose)
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config from %q: %w", *cfgPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if cfg.Telemetry != nil {
		shutdownTel, err := telemetry.Setup(ctx, telemetry.Config{
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			Insecure:     cfg.Telemetry.Insecure,
			ServiceName:  cfg.Telemetry.ServiceName,
			Headers:      cfg.Telemetry.Headers,
		})
		if err != nil {
			logger.Error("telemetry setup failed, continuing without telemetry", "error", err)
		} else {
			logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTel(flushCtx); err != nil {
					logger.Error("telemetry shutdown error", "error", err)
				}
			}()
		}
	}

	directory, closeDir, err := buildDirectory(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDir()

	client := isapi.New(cfg.PhotoBaseURL, cfg.DeviceTimeout, logger)
	orch := syncp.NewOrchestrator(client, cfg.RateLimitDelay, logger)
	engine := syncp.NewEngine(directory, orch, logger)

	summary, err := fn(ctx, engine, employeeID)
	if err != nil {
		return err
	}

	renderSummary(summary)
	if summary.Halted {
		return fmt.Errorf("batch %s halted: %s", summary.ID, summary.FatalMessage)
	}
	return nil
}

// buildDirectory constructs the configured roster backend. The returned
// close function is a no-op for the gateway backend.
func buildDirectory(cfg *config.Config, logger *slog.Logger) (syncp.Directory, func(), error) {
	switch cfg.RosterBackend {
	case config.BackendGateway:
		return roster.NewClient(cfg.GatewayURL, cfg.GatewayAPIKey, logger), func() {}, nil
	case config.BackendSQLite:
		path, err := rosterDBPath(cfg)
		if err != nil {
			return nil, nil, err
		}
		store, err := roster.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening roster DB at %q: %w", path, err)
		}
		logger.Info("roster DB opened", "path", path)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("closing roster DB", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported roster backend %q", cfg.RosterBackend)
	}
}

func rosterDBPath(cfg *config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, nil
	}
	return roster.DefaultDBPath()
}

// renderSummary prints per-pair lines and the final counts to stdout.
func renderSummary(s model.BatchSummary) {
	for _, pr := range s.Results {
		fmt.Printf("  %-8d %-21s %-8s %-7s %s\n",
			pr.EmployeeNo, pr.Device, pr.Result.Step, pr.Result.Outcome, pr.Result.Message)
	}
	fmt.Printf("batch %s: %d success, %d partial, %d skipped",
		s.ID, s.Success, s.Partial, s.Skipped)
	if s.Halted {
		empNo, dev := s.HaltPoint()
		fmt.Printf(", halted at employee %d on %s: %s", empNo, dev, s.FatalMessage)
	}
	fmt.Println()
}

// --- Roster import --------------------------------------------------------------

// runRosterImport loads a YAML roster file into the sqlite roster database.
func runRosterImport(args []string) error {
	fs := flag.NewFlagSet("roster-import", flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("roster-import requires exactly one <roster.yaml> argument")
	}

	logger := newLogger(*verbose)
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config from %q: %w", *cfgPath, err)
	}
	if cfg.RosterBackend != config.BackendSQLite {
		return fmt.Errorf("roster-import requires roster_backend: sqlite (got %q)", cfg.RosterBackend)
	}

	employees, devices, err := roster.LoadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	path, err := rosterDBPath(cfg)
	if err != nil {
		return err
	}
	store, err := roster.Open(path)
	if err != nil {
		return fmt.Errorf("opening roster DB at %q: %w", path, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing roster DB", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := store.Import(ctx, employees, devices); err != nil {
		return fmt.Errorf("importing roster: %w", err)
	}
	logger.Info("roster imported", "employees", len(employees), "devices", len(devices), "db", path)
	fmt.Printf("imported %d employees and %d devices into %s\n", len(employees), len(devices), path)
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
