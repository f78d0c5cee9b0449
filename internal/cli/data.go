package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stockwatch/internal/models"
	"stockwatch/internal/watchlist"
	"stockwatch/pkg/utils"
)

// addMarketDataCommands adds market data commands.
func addMarketDataCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newQuoteCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newMarketCmd())
}

func newQuoteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote <symbols...>",
		Short: "Get current quotes",
		Example: `  stockwatch quote 1155 5347
  stockwatch quote AAPL MSFT --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			symbols := make([]string, len(args))
			for i, a := range args {
				symbols[i] = strings.ToUpper(a)
			}

			quotes := app.Service.Quotes(ctx, symbols)
			if output.IsJSON() {
				return output.JSON(quotes)
			}

			table := NewTable(output, "Symbol", "Name", "Price", "Change", "High", "Low", "Volume")
			for _, q := range quotes {
				table.AddRow(
					q.Symbol,
					TruncateString(watchlist.DisplayName(q.Symbol), 16),
					utils.FormatPrice(q.Symbol, q.Price),
					output.Signed(q.Change, FormatChange(q.Change, q.ChangePercent)),
					utils.FormatPrice(q.Symbol, q.High),
					utils.FormatPrice(q.Symbol, q.Low),
					utils.FormatVolume(q.Volume),
				)
			}
			table.Render()
			if missing := len(symbols) - len(quotes); missing > 0 {
				output.Warning("%d symbol(s) could not be quoted", missing)
			}
			return nil
		},
	}
	return cmd
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <symbol>",
		Short: "Show historical OHLCV candles",
		Example: `  stockwatch history 1155 --range 1mo
  stockwatch history AAPL --interval 1wk --limit 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			rng, _ := cmd.Flags().GetString("range")
			interval, _ := cmd.Flags().GetString("interval")
			limit, _ := cmd.Flags().GetInt("limit")
			symbol := strings.ToUpper(args[0])

			candles, _, err := app.Service.Load(ctx, symbol, rng, interval)
			if err != nil {
				output.Error("Failed to get historical data: %v", err)
				return err
			}
			if limit > 0 && len(candles) > limit {
				candles = candles[len(candles)-limit:]
			}

			if output.IsJSON() {
				return output.JSON(candles)
			}

			table := NewTable(output, "Date", "Open", "High", "Low", "Close", "Volume")
			for _, c := range candles {
				table.AddRow(
					FormatDate(c.Timestamp()),
					utils.FormatPrice(symbol, c.Open),
					utils.FormatPrice(symbol, c.High),
					utils.FormatPrice(symbol, c.Low),
					utils.FormatPrice(symbol, c.Close),
					utils.FormatVolume(c.Volume),
				)
			}
			table.Render()
			return nil
		},
	}
	addRangeFlags(cmd)
	cmd.Flags().IntP("limit", "n", 20, "show only the most recent N candles (0 for all)")
	return cmd
}

func newMarketCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "market",
		Short:       "Show Bursa Malaysia market status",
		Annotations: map[string]string{skipSetup: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			status := utils.GetMarketStatus()
			next := utils.GetNextMarketOpen()

			if output.IsJSON() {
				output.JSON(map[string]interface{}{
					"status":    status,
					"next_open": next,
				})
				return
			}
			output.Printf("Bursa Malaysia: %s\n", output.MarketStatus(status))
			if status != models.MarketOpen {
				output.Dim("Next open: %s (in %s)", FormatDateTime(next), FormatDuration(time.Until(next)))
			}
		},
	}
}
