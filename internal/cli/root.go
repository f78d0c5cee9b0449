// Package cli provides the command-line interface for stockwatch.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stockwatch/internal/analysis/scoring"
	"stockwatch/internal/config"
	"stockwatch/internal/logging"
	"stockwatch/internal/notify"
	"stockwatch/internal/quotes"
	"stockwatch/internal/service"
	"stockwatch/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2024-03-01"
)

// App holds the application dependencies. Fields left nil are built from
// configuration before a command runs.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.DataStore
	Provider quotes.Provider
	Breaker  *quotes.Breaker
	Service  *service.Service
	Notifier *notify.MultiNotifier

	closers []func() error
}

// skipSetup marks commands that need neither the store nor a provider.
const skipSetup = "skip-setup"

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stockwatch",
		Short: "Stock watchlist with technical analysis",
		Long: `stockwatch tracks Bursa Malaysia and US watchlists and scores every symbol
with RSI, MACD, Bollinger Bands, support/resistance and chart patterns.

Each analysis ends in a BUY, SELL or HOLD recommendation with a confidence
score and the reasons behind it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/stockwatch)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addAnalysisCommands(rootCmd, app)
	addMarketDataCommands(rootCmd, app)
	rootCmd.AddCommand(newWatchlistCmd(app))
	rootCmd.AddCommand(newAlertCmd(app))
	rootCmd.AddCommand(newPortfolioCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newServeCmd(app))

	return rootCmd
}

func (app *App) setup(cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")

	if app.Config == nil {
		dir, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		app.Config = cfg

		logCfg := logging.LogConfig{
			Level:      cfg.Logging.Level,
			Console:    true,
			File:       cfg.Logging.File,
			FilePath:   cfg.Logging.FilePath,
			MaxSize:    cfg.Logging.MaxSize,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAge,
		}
		if debug {
			logCfg.Level = "debug"
		}
		app.Logger = logging.NewLoggerWithConfig(logCfg)
	} else if debug {
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}

	if cmd.Annotations[skipSetup] == "true" {
		return nil
	}

	if app.Store == nil {
		if err := os.MkdirAll(filepath.Dir(app.Config.Store.Path), 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		st, err := store.NewSQLiteStore(app.Config.Store.Path)
		if err != nil {
			return err
		}
		app.Store = st
		app.closers = append(app.closers, st.Close)
		app.Logger.Debug().Str("path", app.Config.Store.Path).Msg("SQLite store initialized")
	}

	if app.Provider == nil {
		stack, err := quotes.NewStack(context.Background(), app.Config.Data, app.Store, app.Logger)
		if err != nil {
			return err
		}
		app.Provider = stack.Provider
		app.Breaker = stack.Breaker
		app.closers = append(app.closers, stack.Close)
	}

	if app.Service == nil {
		analyzer := scoring.NewAnalyzer(app.Config.Analysis, app.Logger)
		app.Service = service.New(app.Store, app.Provider, analyzer, app.Config.Data.Range, app.Config.Data.Interval, app.Logger)
	}

	if app.Notifier == nil {
		out := NewOutput(cmd)
		app.Notifier = notify.New(app.Config.Notifications, app.Logger, cmd.ErrOrStderr(), out.ColorEnabled())
		app.closers = append(app.closers, app.Notifier.Close)
	}
	return nil
}

// Close releases everything setup opened, newest first.
func (app *App) Close() error {
	var first error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	app.closers = nil
	return first
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipSetup: "true"},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("stockwatch v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Configuration management",
		Long:        "View and validate application configuration.",
		Annotations: map[string]string{skipSetup: "true"},
	}

	cmd.AddCommand(&cobra.Command{
		Use:         "show",
		Short:       "Show current configuration",
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config.Redacted())
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration file path",
		Annotations: map[string]string{skipSetup: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			path := config.Path(app.Config.Dir)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": path})
			} else {
				output.Println(path)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration",
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	a := cfg.Analysis
	output.Bold("Analysis")
	output.Printf("  RSI:             %d\n", a.RSIPeriod)
	output.Printf("  MACD:            %d/%d/%d\n", a.MACDFast, a.MACDSlow, a.MACDSignal)
	output.Printf("  SMA / EMA:       %d / %d\n", a.SMAPeriod, a.EMAPeriod)
	output.Printf("  Bollinger:       %d x %.1f\n", a.BBPeriod, a.BBStdDev)
	output.Printf("  Volume MA:       %d\n", a.VolumePeriod)
	output.Println()

	output.Bold("Data")
	output.Printf("  Range/Interval:  %s / %s\n", cfg.Data.Range, cfg.Data.Interval)
	output.Printf("  Cache TTL:       %s\n", cfg.Data.CacheTTL)
	if cfg.Data.RedisAddr != "" {
		output.Printf("  Redis:           %s\n", cfg.Data.RedisAddr)
	}
	output.Printf("  Offline:         %v\n", cfg.Data.Offline)
	output.Printf("  Store:           %s\n", cfg.Store.Path)
	output.Println()

	output.Bold("Watch")
	output.Printf("  Schedule:        %s\n", cfg.Watch.Schedule)
	output.Printf("  List:            %s\n", cfg.Watch.List)
	output.Printf("  Market only:     %v\n", cfg.Watch.MarketOnly)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:         %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:           %s\n", cfg.Notifications.Level)
	output.Printf("  Kafka:           %v\n", cfg.Notifications.Kafka.Enabled)
	output.Println()

	output.Bold("API")
	output.Printf("  Address:         %s\n", cfg.API.Addr)
}
