package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"unitfarm/config"
	"unitfarm/core"
	"unitfarm/core/events"
	"unitfarm/gateway/middleware"
	"unitfarm/observability/logging"
	telemetry "unitfarm/observability/otel"
	"unitfarm/rpc"
	"unitfarm/services/indexer"
	"unitfarm/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	memory := flag.Bool("memory", false, "DEV ONLY: keep ledger state in memory")
	flag.Parse()

	if err := run(*configFile, *memory); err != nil {
		fmt.Fprintf(os.Stderr, "farmd: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, memory bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	payeeFile, payeeList, err := config.LoadPayees(cfg.PayeesFile)
	if err != nil {
		return fmt.Errorf("load payees: %w", err)
	}
	network := payeeFile.NetworkLabel(cfg.NetworkName)

	env := strings.TrimSpace(os.Getenv("FARM_ENV"))
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup(logging.Options{
		Service:    "farmd",
		Env:        env,
		Network:    network,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "farmd",
		Environment: env,
		Network:     network,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Traces:      cfg.Telemetry.Traces,
		Metrics:     cfg.Telemetry.Metrics,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	admin, vault, distributor, err := cfg.Addresses()
	if err != nil {
		return err
	}
	genesis, err := cfg.GenesisBalances()
	if err != nil {
		return err
	}

	var db storage.Database
	if memory {
		logger.Warn("ledger state is held in memory and will not survive a restart")
		db = storage.NewMemDB()
	} else {
		level, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		db = level
	}
	defer db.Close()

	bus := events.NewBus()
	emitters := events.Multi{bus}

	var journal *indexer.Indexer
	if cfg.Indexer.Enabled {
		journal, err = indexer.Open(indexer.Config{
			DSN:     resolveDataPath(cfg.DataDir, cfg.Indexer.DSN),
			Network: network,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		emitters = append(emitters, journal)
		go func() {
			if err := journal.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("indexer stopped", slog.Any("error", err))
			}
		}()
	}

	node, err := core.NewNode(db, core.Options{
		Params:             cfg.Farm,
		Admin:              admin,
		Vault:              vault,
		DistributorAddress: distributor,
		Payees:             payeeList,
		Network:            network,
		Genesis:            genesis,
		Emitter:            emitters,
		Logger:             logger,
	})
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	if journal != nil {
		snapshots, err := indexer.NewSnapshotter(journal, node, cfg.Indexer.SnapshotSchedule)
		if err != nil {
			return err
		}
		if dir := strings.TrimSpace(cfg.Indexer.ExportDir); dir != "" {
			schedule := cfg.Indexer.ExportSchedule
			if strings.TrimSpace(schedule) == "" {
				schedule = "@daily"
			}
			if err := snapshots.ScheduleExport(schedule, resolveDataPath(cfg.DataDir, dir)); err != nil {
				return err
			}
		}
		snapshots.Start()
		defer snapshots.Stop()
	}

	var rpcJournal rpc.EventLog
	if journal != nil {
		rpcJournal = journal
	}
	server, err := rpc.NewServer(node, bus, rpcJournal, rpc.ServerConfig{
		ServiceName: "farmd",
		Auth: middleware.AuthConfig{
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  cfg.Auth.AllowedClockSkew.Duration,
		},
		RateLimit: middleware.RateLimit{
			RatePerSecond: cfg.RateLimit.RatePerSecond,
			Burst:         cfg.RateLimit.Burst,
		},
		LogRequests: strings.EqualFold(cfg.Log.Level, "debug"),
	}, logger)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Auth.HMACSecret) == "" {
		logger.Warn("Auth.HMACSecret is empty; state-changing RPC methods will reject every caller")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(cfg.ListenAddress) }()
	logger.Info("farmd started",
		slog.String("listen", cfg.ListenAddress),
		slog.String("vault", hexOrEmpty(vault)),
		slog.String("distributor", hexOrEmpty(distributor)),
		slog.Int("payees", len(payeeList)))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("rpc server: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("rpc shutdown", slog.Any("error", err))
	}
	if journal != nil {
		journal.Close()
	}
	logger.Info("farmd stopped")
	return nil
}

// resolveDataPath places relative file paths inside the data directory. URLs
// and sqlite "file:" DSNs are left alone.
func resolveDataPath(dataDir, dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" || strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, "://") || filepath.IsAbs(dsn) {
		return dsn
	}
	return filepath.Join(dataDir, dsn)
}

func hexOrEmpty(addr [20]byte) string {
	if addr == ([20]byte{}) {
		return ""
	}
	return fmt.Sprintf("0x%x", addr[:])
}
