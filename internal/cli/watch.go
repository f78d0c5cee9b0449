package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stockwatch/internal/alerts"
	"stockwatch/internal/api"
	"stockwatch/internal/config"
	"stockwatch/internal/scheduler"
	"stockwatch/pkg/utils"
)

func newWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Periodically re-analyze a watchlist and check alerts",
		Long: `Re-run the analysis of every symbol in a watchlist on a cron schedule,
notify when a recommendation changes, and check price alerts against the
fresh quotes. By default refreshes are skipped while Bursa is closed.`,
		Example: `  stockwatch watch
  stockwatch watch --list us --always
  stockwatch watch --schedule "@every 1m" --once`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			watchCfg := app.Config.Watch

			if cmd.Flags().Changed("list") {
				watchCfg.List, _ = cmd.Flags().GetString("list")
			}
			if cmd.Flags().Changed("schedule") {
				watchCfg.Schedule, _ = cmd.Flags().GetString("schedule")
				if _, err := config.ScheduleParser.Parse(watchCfg.Schedule); err != nil {
					output.Error("Invalid schedule %q: %v", watchCfg.Schedule, err)
					return err
				}
			}
			if always, _ := cmd.Flags().GetBool("always"); always {
				watchCfg.MarketOnly = false
			}

			monitor := alerts.NewMonitor(app.Store, app.Notifier, app.Logger)
			sched := scheduler.New(app.Service, monitor, app.Notifier, watchCfg, app.Config.Data.Concurrency, app.Logger)

			if once, _ := cmd.Flags().GetBool("once"); once {
				summary, err := sched.RunOnce(cmd.Context())
				if err != nil {
					output.Error("Refresh failed: %v", err)
					return err
				}
				return printSummary(output, summary)
			}

			if err := sched.Register(watchCfg.Schedule); err != nil {
				return err
			}
			sched.OnRun(func(s scheduler.Summary, err error) {
				if err == nil {
					printSummary(output, s)
				}
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !output.IsJSON() {
				output.Info("Watching '%s' on schedule %q (Ctrl+C to stop)", watchCfg.List, watchCfg.Schedule)
				if watchCfg.MarketOnly {
					output.Dim("Market %s; refreshes run only while open", utils.GetMarketStatus())
				}
			}

			if serve, _ := cmd.Flags().GetBool("serve"); serve {
				handler := api.NewHandler(app.Service, app.Store, app.Logger).WithBreaker(app.Breaker)
				server := api.NewServer(app.Config.API, handler, app.Logger)
				go func() {
					if err := server.Run(ctx); err != nil {
						app.Logger.Error().Err(err).Msg("API server failed")
						stop()
					}
				}()
			}

			sched.Start(ctx)
			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}

	cmd.Flags().StringP("list", "l", "", "watchlist to monitor (default from config)")
	cmd.Flags().String("schedule", "", "cron schedule, seconds optional (default from config)")
	cmd.Flags().Bool("always", false, "refresh even while the market is closed")
	cmd.Flags().Bool("once", false, "run a single refresh and exit")
	cmd.Flags().Bool("serve", false, "also serve the HTTP API")
	return cmd
}

func printSummary(output *Output, s scheduler.Summary) error {
	if output.IsJSON() {
		return output.JSON(s)
	}
	if s.Skipped {
		output.Dim("[%s] Market closed, refresh skipped", FormatTime(s.At))
		return nil
	}

	output.Bold("[%s] %d/%d analyzed, %d signal(s), %d alert(s)", FormatTime(s.At), s.Analyzed, s.Symbols, s.Signals, len(s.Alerts))
	if len(s.Reports) > 0 {
		table := NewTable(output, "Symbol", "Price", "Change", "Trend", "Action", "Conf")
		for _, r := range s.Reports {
			price, change := "-", "-"
			if q := r.Quote; q != nil {
				price = utils.FormatPrice(r.Symbol, q.Price)
				change = output.Signed(q.ChangePercent, utils.FormatPercent(q.ChangePercent))
			}
			table.AddRow(r.Symbol, price, change, string(r.Trend.Trend), output.Action(r.Recommendation.Action), FormatConfidence(r.Recommendation.Confidence))
		}
		table.Render()
	}
	for _, e := range s.Alerts {
		output.Printf("%s %s\n", output.Yellow("🔔 "+e.Title), e.Message)
	}
	return nil
}

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analyses and watchlists over HTTP",
		Example: `  stockwatch serve
  stockwatch serve --addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiCfg := app.Config.API
			if cmd.Flags().Changed("addr") {
				apiCfg.Addr, _ = cmd.Flags().GetString("addr")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			handler := api.NewHandler(app.Service, app.Store, app.Logger).WithBreaker(app.Breaker)
			return api.NewServer(apiCfg, handler, app.Logger).Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from config)")
	return cmd
}
