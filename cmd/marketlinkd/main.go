// Command marketlinkd runs the marketlink daemon: the account-linking
// registry, the order orchestrator, and the background jobs (order status
// reconciliation, linking-session sweep).
package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/akozyrev/marketlink/internal/app"
	"github.com/akozyrev/marketlink/internal/automation"
	"github.com/akozyrev/marketlink/internal/config"
	"github.com/akozyrev/marketlink/internal/linker"
	"github.com/akozyrev/marketlink/internal/marketapi"
	"github.com/akozyrev/marketlink/internal/notifier"
	"github.com/akozyrev/marketlink/internal/order"
	"github.com/akozyrev/marketlink/internal/scheduler"
	"github.com/akozyrev/marketlink/internal/store"
	"github.com/akozyrev/marketlink/internal/types"
)

func main() {
	cfg := loadConfig()

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	dataDir, err := config.DataDir()
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot resolve data dir")
	}

	st, err := store.New(filepath.Join(dataDir, "marketlink.db"))
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot open store")
	}
	defer st.Close()

	notify := notifier.NewLogNotifier(logger)
	drivers := automation.NewFactory(automationConfig(cfg, dataDir), logger)
	clients := func(m types.Marketplace, creds *types.Credentials) (marketapi.Client, error) {
		return marketapi.ForCredentials(m, creds, apiConfig(cfg))
	}

	registry := linker.NewRegistry(drivers, st, notify,
		time.Duration(cfg.Linker.IdleTimeoutMinutes)*time.Minute, logger)
	orchestrator := order.NewOrchestrator(st, clients, drivers, notify, logger)
	reconciler := order.NewReconciler(st, clients, logger)

	core := app.New(registry, orchestrator, st)
	_ = core // handed to the chat frontend when one is attached

	sched := scheduler.New(logger)
	if err := sched.AddEvery("reconcile",
		time.Duration(cfg.Reconcile.EveryMinutes)*time.Minute, reconciler.Run); err != nil {
		logger.Fatal().Err(err).Msg("cannot schedule reconciler")
	}
	if err := sched.AddEvery("linker-sweep",
		time.Duration(cfg.Linker.SweepEveryMinutes)*time.Minute, registry.Sweep); err != nil {
		logger.Fatal().Err(err).Msg("cannot schedule linker sweep")
	}
	sched.Start()

	logger.Info().Msg("marketlinkd started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down")
	<-sched.Stop().Done()
	registry.Shutdown()
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Default()
			if err := cfg.Save(); err != nil {
				log.Warn().Err(err).Msg("could not save default config")
			} else if path, err := config.ConfigPath(); err == nil {
				log.Info().Str("path", path).Msg("created default config")
			}
		} else {
			log.Warn().Err(err).Msg("could not load config, using defaults")
			cfg = config.Default()
		}
	}
	return cfg
}

func automationConfig(cfg *config.Config, dataDir string) automation.Config {
	ac := automation.DefaultConfig()
	ac.Headless = cfg.Browser.Headless
	ac.ProfileDir = cfg.Browser.ProfileDir
	ac.DiagnosticsDir = cfg.Browser.DiagnosticsDir
	if ac.DiagnosticsDir == "" {
		ac.DiagnosticsDir = filepath.Join(dataDir, "diagnostics")
	}
	if cfg.Browser.NavTimeoutSeconds > 0 {
		ac.NavTimeout = time.Duration(cfg.Browser.NavTimeoutSeconds) * time.Second
	}
	if cfg.Browser.SelectorBudgetSeconds > 0 {
		ac.SelectorBudget = time.Duration(cfg.Browser.SelectorBudgetSeconds) * time.Second
	}
	if cfg.Browser.PerCandidateCapMillis > 0 {
		ac.PerCandidateCap = time.Duration(cfg.Browser.PerCandidateCapMillis) * time.Millisecond
	}
	if cfg.Browser.LoginBudgetSeconds > 0 {
		ac.LoginBudget = time.Duration(cfg.Browser.LoginBudgetSeconds) * time.Second
	}
	if cfg.Browser.CheckoutBudgetSeconds > 0 {
		ac.CheckoutBudget = time.Duration(cfg.Browser.CheckoutBudgetSeconds) * time.Second
	}
	return ac
}

func apiConfig(cfg *config.Config) marketapi.Config {
	mc := marketapi.DefaultConfig()
	if cfg.API.WildberriesBaseURL != "" {
		mc.WildberriesBaseURL = cfg.API.WildberriesBaseURL
	}
	if cfg.API.OzonBaseURL != "" {
		mc.OzonBaseURL = cfg.API.OzonBaseURL
	}
	return mc
}
