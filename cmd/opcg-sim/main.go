package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grandline/opcg-server-go/internal/config"
	"github.com/grandline/opcg-server-go/internal/game"
	"github.com/grandline/opcg-server-go/internal/game/catalog"
	"github.com/grandline/opcg-server-go/internal/game/scripts"
	"github.com/grandline/opcg-server-go/internal/sim"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath   = flag.String("config", "", "path to configuration file")
	catalogPath  = flag.String("catalog", "", "card catalog, overrides catalog.path")
	scenarioPath = flag.String("scenario", "", "scenario to run, overrides scenario.path")
	replayDir    = flag.String("replay-dir", "", "save the run as a replay here, overrides scenario.replay_dir")
	replayFile   = flag.String("replay", "", "print a saved replay and exit")
	version      = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *catalogPath != "" {
		cfg.Catalog.Path = *catalogPath
	}
	if *scenarioPath != "" {
		cfg.Scenario.Path = *scenarioPath
	}
	if *replayDir != "" {
		cfg.Scenario.ReplayDir = *replayDir
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting OPCG simulator",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	if *replayFile != "" {
		replay, err := sim.LoadReplayFromFile(*replayFile)
		if err != nil {
			logger.Fatal("failed to load replay", zap.String("path", *replayFile), zap.Error(err))
		}
		printReplay(replay)
		return
	}

	if cfg.Scenario.Path == "" {
		logger.Fatal("no scenario given; set scenario.path or pass -scenario")
	}

	registry := scripts.NewRegistry()
	labels := catalog.NewLabelCache(cfg.Engine.LabelCacheSize, nil)
	cat := catalog.New(registry, labels, logger)
	if err := cat.LoadFile(cfg.Catalog.Path); err != nil {
		logger.Fatal("failed to load card catalog", zap.String("path", cfg.Catalog.Path), zap.Error(err))
	}

	sc, err := sim.LoadScenario(cfg.Scenario.Path)
	if err != nil {
		logger.Fatal("failed to load scenario", zap.String("path", cfg.Scenario.Path), zap.Error(err))
	}

	runner := sim.NewRunner(cat, registry, engineOptions(cfg.Engine, labels), logger)
	report, err := runner.Run(sc)
	if err != nil {
		logger.Fatal("failed to run scenario", zap.Error(err))
	}

	hits, misses := labels.Stats()
	logger.Info("scenario finished",
		zap.String("scenario", report.Name),
		zap.Int("steps", len(report.Steps)),
		zap.Int("events", len(report.Events)),
		zap.Uint64("label_cache_hits", hits),
		zap.Uint64("label_cache_misses", misses),
		zap.Int("label_cache_size", labels.Len()),
	)

	if cfg.Scenario.ReplayDir != "" {
		recorder := sim.NewReplayRecorder(logger, cfg.Scenario.ReplayDir)
		if _, err := recorder.Save(report); err != nil {
			logger.Error("failed to save replay", zap.Error(err))
		}
	}

	for _, step := range report.Steps {
		status := "ok"
		if len(step.Failures) > 0 {
			status = "FAIL"
		}
		fmt.Printf("%-4s step %d %s\n", status, step.Index, step.Action)
		for _, f := range step.Failures {
			fmt.Printf("       %s\n", f)
		}
	}
	if report.Failed() {
		os.Exit(1)
	}
}

func printReplay(replay *sim.Replay) {
	fmt.Printf("replay %s (%d steps)\n", replay.Scenario, replay.Size())
	for frame := replay.Next(); frame != nil; frame = replay.Next() {
		fmt.Printf("step %d %s  %s\n", frame.Step, frame.Action, frame.Checksum)
		if frame.Error != "" {
			fmt.Printf("       error: %s\n", frame.Error)
		}
		for _, evt := range frame.Events {
			fmt.Printf("       %s %s\n", evt.Type, evt.SourceID)
		}
	}
}

func engineOptions(cfg config.EngineConfig, labels *catalog.LabelCache) game.Options {
	return game.Options{
		MaxTriggerSweeps: cfg.MaxTriggerSweeps,
		MaxStackSteps:    cfg.MaxStackSteps,
		TargetCache:      cfg.TargetCache,
		LabelParser:      labels,
	}
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
