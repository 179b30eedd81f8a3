// fiberd runs a scripted actor scenario on the cooperative fiber scheduler.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/l1jgo/fiberd/internal/config"
	"github.com/l1jgo/fiberd/internal/data"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultConfigPath = "config/engine.toml"

var (
	cfgPath  string
	frames   int
	step     time.Duration
	logLevel string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fiberd",
		Short: "Run a scripted scenario on the fiber scheduler",
		Long: `fiberd loads config/engine.toml, the Lua scripts and the scenario file,
starts one fiber per actor and drives them from the frame loop.

Examples:
  # Real-time loop paced by engine.tick_rate
  fiberd --config config/engine.toml

  # Deterministic headless run: 200 frames of 50ms
  fiberd --frames 200 --step 50ms`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default $FIBERD_CONFIG or "+defaultConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug|info|warn|error)")
	rootCmd.Flags().IntVar(&frames, "frames", 0, "Run headless for at most N frames instead of real time")
	rootCmd.Flags().DurationVar(&step, "step", 50*time.Millisecond, "Frame delta in headless mode")

	rootCmd.AddCommand(validateCmd())
	return rootCmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check config, scripts and scenario without running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.engine.Close()

			sc, err := data.LoadScenario(cfg.Scenario.Path)
			if err != nil {
				return err
			}
			if err := a.check(sc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s, %d fibers\n", sc.Name, sc.Count())
			return nil
		},
	}
}

// setup resolves the config path, loads it and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	path := cfgPath
	if path == "" {
		path = defaultConfigPath
		if p := os.Getenv("FIBERD_CONFIG"); p != "" {
			path = p
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

func run() error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	sc, err := data.LoadScenario(cfg.Scenario.Path)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.start(sc); err != nil {
		return err
	}

	if frames > 0 {
		log.Info("headless run", zap.Int("frames", frames), zap.Duration("step", step))
		a.runHeadless(frames, step)
		return nil
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, shutdownSignals...)
	defer signal.Stop(shutdownCh)

	log.Info("frame loop started",
		zap.String("engine", cfg.Engine.Name),
		zap.Duration("tick", cfg.Engine.TickRate.Duration),
	)
	a.runRealtime(shutdownCh)
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
