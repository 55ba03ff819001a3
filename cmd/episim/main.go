// episim: an agent-based epidemic simulator.
//
// A model property file describes the population, the mixing groups, and
// the conditions; episim advances the model through discrete (day, hour)
// time and writes daily counters, reports, and network snapshots to a
// per-run output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/episim/episim/internal/config"
	"github.com/episim/episim/internal/monitor"
	"github.com/episim/episim/internal/props"
	"github.com/episim/episim/internal/report"
	"github.com/episim/episim/internal/results"
	"github.com/episim/episim/internal/sim"
)

// Build information (set via ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	var (
		modelFile   = flag.String("p", "", "Model property file (default model.fred, fallback params)")
		runNumber   = flag.Int("r", 0, "Run number")
		outputDir   = flag.String("d", "", "Output directory")
		checkOnly   = flag.Bool("c", false, "Check the model and exit")
		configPath  = flag.String("config", "", "Path to configuration file")
		watch       = flag.Bool("watch", false, "Show the live monitor while running")
		debugMode   = flag.Bool("debug", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("episim version %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *modelFile, *runNumber, *outputDir, *configPath, *checkOnly, *watch, *debugMode); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, modelFile string, runNumber int, outputDir, configPath string, checkOnly, watch, debugMode bool) error {
	cfg, cfgPath, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, logClose, err := setupLogging(cfg, debugMode)
	if err != nil {
		return err
	}
	if logClose != nil {
		defer logClose()
	}
	slog.SetDefault(logger)

	slog.Info("episim starting",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cfgPath,
	)

	if modelFile == "" {
		modelFile = cfg.Simulation.ModelFile
	}
	if _, err := os.Stat(modelFile); err != nil && cfg.Simulation.FallbackModel != "" {
		if _, ferr := os.Stat(cfg.Simulation.FallbackModel); ferr == nil {
			slog.Info("model file missing, using fallback",
				"model_file", modelFile,
				"fallback", cfg.Simulation.FallbackModel)
			modelFile = cfg.Simulation.FallbackModel
		}
	}
	p, err := props.Load(modelFile)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}

	if runNumber <= 0 {
		runNumber = cfg.Simulation.RunNumber
	}
	if outputDir != "" {
		cfg.Output.Directory = outputDir
	}

	s, err := sim.New(p, runNumber, logger)
	if err != nil {
		return err
	}
	if err := s.Setup(); err != nil {
		return err
	}
	if checkOnly {
		fmt.Printf("%s: model check passed (%d days, %d people, %d conditions)\n",
			modelFile, s.Days, s.Model.PopulationSize(), len(s.Model.Conditions))
		return nil
	}

	runDir, err := config.EnsureOutputDir(cfg, runNumber)
	if err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}
	s.Reporter = report.New(runDir)

	if cfg.Database.Enabled {
		closeStore, err := attachResults(ctx, s, cfg, runDir, modelFile)
		if err != nil {
			return err
		}
		defer closeStore()
	}

	if watch || cfg.Monitor.Enabled {
		return runWithMonitor(ctx, s, runNumber)
	}

	if err := s.Run(ctx); err != nil {
		return err
	}
	slog.Info("run complete", "run", runNumber, "output", runDir)
	return nil
}

// setupLogging builds the application logger per the config: JSON to the
// configured log file, text to stderr otherwise.
func setupLogging(cfg *config.Config, debugMode bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	} else {
		switch cfg.Logging.Level {
		case config.LogLevelDebug:
			level = slog.LevelDebug
		case config.LogLevelWarn:
			level = slog.LevelWarn
		case config.LogLevelError:
			level = slog.LevelError
		}
	}

	logPath, err := config.EnsureLogDir(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	if logPath == "" {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		return slog.New(handler), nil, nil
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	var handler slog.Handler
	if cfg.Logging.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler), func() { logFile.Close() }, nil
}

// attachResults opens the per-run results database and hooks daily count
// recording into the simulation. The returned func closes the store.
func attachResults(ctx context.Context, s *sim.Simulation, cfg *config.Config, runDir, modelFile string) (func(), error) {
	store, err := results.Open(config.DatabasePath(cfg, runDir))
	if err != nil {
		return nil, fmt.Errorf("opening results store: %w", err)
	}

	run := &results.Run{
		RunNumber:  s.RunNumber,
		Seed:       s.Seed,
		ModelFile:  filepath.Base(modelFile),
		Days:       s.Days,
		Population: s.Model.PopulationSize(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		store.Close()
		return nil, fmt.Errorf("recording run: %w", err)
	}

	s.AddDayHook(func(day int) error {
		return store.RecordDay(ctx, run.ID, day, s.Model.PopulationSize(), dailyCounts(s, day))
	})
	s.AddDayHook(func(day int) error {
		if day == s.Days-1 {
			return store.FinishRun(ctx, run.ID)
		}
		return nil
	})

	return func() {
		if err := store.Close(); err != nil {
			slog.Error("closing results store", "error", err)
		}
	}, nil
}

func dailyCounts(s *sim.Simulation, day int) []results.DailyCount {
	date := s.Calendar.DateOf(day)
	epiWeek := fmt.Sprintf("%d.%02d", date.EpiYear, date.EpiWeek)
	var counts []results.DailyCount
	for _, cond := range s.Model.Conditions {
		epidemic := cond.Epidemic()
		for state := 0; state < cond.History.StateCount(); state++ {
			counts = append(counts, results.DailyCount{
				Day:       day,
				Date:      date.String(),
				EpiWeek:   epiWeek,
				Condition: cond.Name,
				State:     cond.History.StateName(state),
				New:       epidemic.DailyIncidence(state),
				Current:   epidemic.CurrentCount(state),
				Total:     epidemic.TotalCount(state),
			})
		}
	}
	return counts
}

// runWithMonitor runs the simulation in a goroutine and the live monitor
// in the foreground. Snapshots the monitor cannot keep up with are
// dropped.
func runWithMonitor(ctx context.Context, s *sim.Simulation, runNumber int) error {
	m := monitor.New(fmt.Sprintf("episim run %d", runNumber), s.Days)
	feed := m.Feed()
	s.AddDayHook(func(day int) error {
		select {
		case feed <- daySnapshot(s, day):
		default:
		}
		return nil
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx)
		close(feed)
	}()

	program := tea.NewProgram(m, tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return <-errCh
}

func daySnapshot(s *sim.Simulation, day int) monitor.DaySnapshot {
	snap := monitor.DaySnapshot{
		Day:     day,
		Date:    s.Calendar.DateOf(day).String(),
		Popsize: s.Model.PopulationSize(),
	}
	for _, cond := range s.Model.Conditions {
		epidemic := cond.Epidemic()
		cc := monitor.ConditionCounts{Name: cond.Name}
		for state := 0; state < cond.History.StateCount(); state++ {
			cc.States = append(cc.States, monitor.StateCount{
				Name:    cond.History.StateName(state),
				New:     epidemic.DailyIncidence(state),
				Current: epidemic.CurrentCount(state),
				Total:   epidemic.TotalCount(state),
			})
		}
		snap.Conditions = append(snap.Conditions, cc)
	}
	return snap
}
