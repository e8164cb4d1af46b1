package main

import (
	"github.com/rs/zerolog"

	"github.com/metalit/metalit/internal/config"
	"github.com/metalit/metalit/internal/library"
	"github.com/metalit/metalit/internal/observability"
	"github.com/metalit/metalit/internal/sources"
	"github.com/metalit/metalit/internal/tracker"
)

// app bundles the pieces nearly every command needs: the environment
// config, the logger, and the loaded library index.
type app struct {
	cfg    config.Config
	logCfg observability.LoggerConfig
	log    zerolog.Logger
	index  *library.Index
}

// mustApp builds the app or exits with a config error.
func mustApp() *app {
	cfg := config.FromEnv(getProjectRoot())
	if err := cfg.EnsureDirs(); err != nil {
		exitWithError(ExitConfigError, "preparing data directories: %v", err)
	}

	logCfg := observability.FromEnv()
	log := observability.NewLogger(logCfg)

	return &app{
		cfg:    cfg,
		logCfg: logCfg,
		log:    log,
		index:  library.Load(cfg, log),
	}
}

// registry wires the full source registry from the environment config.
func (a *app) registry() *sources.Registry {
	return sources.DefaultRegistry(a.log, a.cfg.SemanticScholarKey, a.cfg.UnpaywallEmail)
}

// tracker loads the failed-download tracker.
func (a *app) tracker() *tracker.Tracker {
	return tracker.Load(a.cfg.FailedPath(), a.log)
}
