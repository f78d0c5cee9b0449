package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stockwatch/internal/analysis"
	"stockwatch/internal/analysis/indicators"
	"stockwatch/internal/analysis/mtf"
	"stockwatch/internal/analysis/scoring"
	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/watchlist"
	"stockwatch/pkg/utils"
)

// addAnalysisCommands adds analysis commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newIndicatorsCmd(app))
	rootCmd.AddCommand(newTrendCmd(app))
	rootCmd.AddCommand(newScreenCmd(app))
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("range", "r", "", "history range: 1mo, 3mo, 6mo, 1y, 2y, 5y, max (default from config)")
	cmd.Flags().StringP("interval", "i", "", "bar interval: 1h, 1d, 1wk, 1mo (default from config)")
}

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Full technical analysis for a symbol",
		Long: `Perform technical analysis including:
- RSI, MACD, SMA, EMA and Bollinger Bands
- Trend direction from a 20-bar regression
- Support/Resistance levels
- Chart patterns (breakouts, crosses, divergence, volume spikes)
- A BUY/SELL/HOLD recommendation with confidence and reasons`,
		Example: `  stockwatch analyze 1155
  stockwatch analyze AAPL --range 1y
  stockwatch analyze 5347 --interval 1wk --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			rng, _ := cmd.Flags().GetString("range")
			interval, _ := cmd.Flags().GetString("interval")

			report, err := app.Service.Analyze(ctx, args[0], rng, interval)
			if err != nil {
				output.Error("Analysis failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			printReport(output, report)
			return nil
		},
	}
	addRangeFlags(cmd)
	return cmd
}

func printReport(output *Output, r *scoring.Report) {
	output.Bold("%s %s", r.Symbol, output.DimText(watchlist.DisplayName(r.Symbol)))
	if q := r.Quote; q != nil {
		output.Printf("  Price:   %s  %s\n",
			utils.FormatPrice(r.Symbol, q.Price),
			output.Signed(q.Change, FormatChange(q.Change, q.ChangePercent)))
		output.Printf("  Volume:  %s\n", utils.FormatVolume(q.Volume))
	}
	output.Printf("  Candles: %d\n", r.Candles)
	output.Println()

	printIndicators(output, r.Indicators)

	output.Bold("Trend")
	output.Printf("  %s  (strength %.1f, slope %.3f%%/bar)\n", r.Trend.Trend, r.Trend.Strength, r.Trend.Slope)
	if r.Levels.Valid() {
		output.Printf("  Support:    %s\n", utils.FormatPrice(r.Symbol, *r.Levels.Support))
		output.Printf("  Resistance: %s\n", utils.FormatPrice(r.Symbol, *r.Levels.Resistance))
	}
	output.Println()

	if r.Metrics.High52w > 0 {
		output.Bold("Range")
		output.Printf("  High/Low:   %s / %s\n", utils.FormatPrice(r.Symbol, r.Metrics.High52w), utils.FormatPrice(r.Symbol, r.Metrics.Low52w))
		output.Printf("  Avg volume: %s\n", utils.FormatVolume(r.Metrics.AvgVolume))
		output.Printf("  Volatility: %.2f%%\n", r.Metrics.Volatility)
		output.Println()
	}

	if len(r.Patterns) > 0 {
		output.Bold("Patterns")
		for _, p := range r.Patterns {
			name := p.Name
			switch p.Type {
			case analysis.PatternBullish:
				name = output.Green(name)
			case analysis.PatternBearish:
				name = output.Red(name)
			}
			output.Printf("  %s (%d%%) %s\n", name, p.Confidence, output.DimText(p.Description))
		}
		output.Println()
	}

	rec := r.Recommendation
	output.Bold("Recommendation")
	output.Printf("  %s  confidence %s  (bullish %.0f / bearish %.0f)\n",
		output.Action(rec.Action), FormatConfidence(rec.Confidence), rec.BullishScore, rec.BearishScore)
	for _, reason := range rec.Reasons {
		output.Printf("  • %s\n", reason)
	}
}

func printIndicators(output *Output, b indicators.Bundle) {
	output.Bold("Indicators")
	rsi, ok := b.RSI.Last()
	rsiText := FormatValue(rsi, ok)
	if ok && rsi < 30 {
		rsiText = output.Green(rsiText + " oversold")
	} else if ok && rsi > 70 {
		rsiText = output.Red(rsiText + " overbought")
	}
	output.Printf("  RSI:       %s\n", rsiText)

	macd, mok := b.MACD.MACD.Last()
	signal, sok := b.MACD.Signal.Last()
	hist, hok := b.MACD.Histogram.Last()
	output.Printf("  MACD:      %s  signal %s  hist %s\n", FormatValue(macd, mok), FormatValue(signal, sok), output.Signed(hist, FormatValue(hist, hok)))

	sma, smaOK := b.SMA.Last()
	ema, emaOK := b.EMA.Last()
	output.Printf("  SMA/EMA:   %s / %s\n", FormatValue(sma, smaOK), FormatValue(ema, emaOK))

	upper, uok := b.BollingerBands.Upper.Last()
	lower, lok := b.BollingerBands.Lower.Last()
	output.Printf("  Bollinger: %s - %s\n", FormatValue(lower, lok), FormatValue(upper, uok))

	for _, s := range b.Signals {
		text := fmt.Sprintf("%s %s: %s", s.Type, s.Indicator, s.Reason)
		if s.Type == analysis.SignalBuy {
			text = output.Green(text)
		} else {
			text = output.Red(text)
		}
		output.Printf("  ⚡ %s\n", text)
	}
	output.Println()
}

func newIndicatorsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indicators <symbol>",
		Short: "Show the latest indicator values",
		Example: `  stockwatch indicators 1155
  stockwatch indicators AAPL --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			rng, _ := cmd.Flags().GetString("range")
			interval, _ := cmd.Flags().GetString("interval")
			symbol := strings.ToUpper(args[0])

			bundle, err := app.Service.Indicators(ctx, symbol, rng, interval)
			if err != nil {
				output.Error("Failed to compute indicators: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol":     symbol,
					"indicators": bundle,
				})
			}
			output.Bold("%s", symbol)
			printIndicators(output, bundle)
			return nil
		},
	}
	addRangeFlags(cmd)
	return cmd
}

func newTrendCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "trend <symbol>",
		Short: "Compare trend across daily, weekly and monthly bars",
		Example: `  stockwatch trend 1155
  stockwatch trend AAPL --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 90*time.Second)
			defer cancel()

			result, err := app.Service.Timeframes(ctx, args[0])
			if err != nil {
				output.Error("Trend analysis failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(result)
			}
			printTimeframes(output, result)
			return nil
		},
	}
}

func printTimeframes(output *Output, r *mtf.Result) {
	output.Bold("%s (%s)", r.Symbol, watchlist.DisplayName(r.Symbol))
	table := NewTable(output, "Interval", "Bars", "Trend", "Slope", "RSI", "Signal")
	for _, tf := range r.Timeframes {
		if tf.Error != "" {
			table.AddRow(tf.Interval, fmt.Sprintf("%d", tf.Candles), output.DimText("n/a"), "-", "-", "-")
			continue
		}
		rsi, ok := 0.0, tf.RSI != nil
		if ok {
			rsi = *tf.RSI
		}
		table.AddRow(
			tf.Interval,
			fmt.Sprintf("%d", tf.Candles),
			string(tf.Trend.Trend),
			output.Signed(tf.Trend.Slope, fmt.Sprintf("%+.2f%%", tf.Trend.Slope)),
			FormatValue(rsi, ok),
			fmt.Sprintf("%s %s", output.Action(tf.Action), FormatConfidence(tf.Confidence)),
		)
	}
	table.Render()
	output.Println()
	output.Printf("Confluence: %s (%d up, %d down, %d flat)\n", r.Confluence, r.Bullish, r.Bearish, r.Neutral)
	output.Printf("Overall:    %s\n", r.Overall)
	if r.Aligned {
		output.Success("All timeframes agree")
	}
}

func newScreenCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Screen a watchlist with filters or a preset",
		Long: `Analyze every symbol in a watchlist and keep those matching all filters.

Presets: "Top Gainers", "Top Losers", "High Volume", "Breakout Stocks".`,
		Example: `  stockwatch screen --preset "Top Gainers"
  stockwatch screen --list us --min-change 1 --sort volume
  stockwatch screen --action BUY --rsi-below 40`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			criteria, err := criteriaFromFlags(cmd)
			if err != nil {
				output.Error("%v", err)
				return err
			}

			list, _ := cmd.Flags().GetString("list")
			symbols, err := app.Store.GetWatchlist(ctx, list)
			if err != nil {
				return err
			}
			if len(symbols) == 0 {
				output.Warning("Watchlist '%s' is empty. Run 'stockwatch watchlist seed' first.", list)
				return apperrors.Wrapf(apperrors.ErrDataNotFound, "watchlist %s is empty", list)
			}

			rng, _ := cmd.Flags().GetString("range")
			interval, _ := cmd.Flags().GetString("interval")
			screener := scoring.NewScreener(app.Service.Analyzer, app.Service.Source(rng, interval), app.Config.Data.Concurrency)

			if !output.IsJSON() {
				output.Info("Screening %d symbols from '%s'...", len(symbols), list)
			}
			results, err := screener.Scan(ctx, symbols, criteria)
			if err != nil {
				return err
			}

			all, _ := cmd.Flags().GetBool("all")
			var shown []scoring.ScreenerResult
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
				if r.Passed || all {
					shown = append(shown, r)
				}
			}

			if output.IsJSON() {
				return output.JSON(shown)
			}

			table := NewTable(output, "Symbol", "Name", "Price", "Change", "Volume", "RSI", "Action", "Conf")
			for _, r := range shown {
				if r.Report == nil {
					table.AddRow(r.Symbol, "-", "-", "-", "-", "-", output.Red("error"), "-")
					continue
				}
				price, change, volume := "-", "-", "-"
				if q := r.Report.Quote; q != nil {
					price = utils.FormatPrice(r.Symbol, q.Price)
					change = output.Signed(q.ChangePercent, utils.FormatPercent(q.ChangePercent))
					volume = utils.FormatVolume(q.Volume)
				}
				rsi, ok := r.Report.Indicators.RSI.Last()
				table.AddRow(
					r.Symbol,
					TruncateString(watchlist.DisplayName(r.Symbol), 16),
					price,
					change,
					volume,
					FormatValue(rsi, ok),
					output.Action(r.Report.Recommendation.Action),
					FormatConfidence(r.Report.Recommendation.Confidence),
				)
			}
			table.Render()
			output.Println()
			output.Dim("%d of %d matched, %d failed", countPassed(results), len(results), failed)
			return nil
		},
	}

	cmd.Flags().StringP("list", "l", "default", "watchlist to screen")
	cmd.Flags().StringP("preset", "p", "", "preset name")
	cmd.Flags().Float64("min-price", 0, "minimum price")
	cmd.Flags().Float64("max-price", 0, "maximum price")
	cmd.Flags().Float64("min-change", 0, "minimum change %")
	cmd.Flags().Float64("max-change", 0, "maximum change %")
	cmd.Flags().Float64("min-volume", 0, "minimum volume (shares)")
	cmd.Flags().Float64("rsi-below", 0, "RSI below")
	cmd.Flags().Float64("rsi-above", 0, "RSI above")
	cmd.Flags().String("action", "", "recommendation: BUY, SELL or HOLD")
	cmd.Flags().String("sort", "", "sort by: change, price, volume, confidence")
	cmd.Flags().Bool("asc", false, "sort ascending")
	cmd.Flags().Bool("all", false, "show non-matching symbols too")
	addRangeFlags(cmd)
	return cmd
}

// criteriaFromFlags starts from the preset, if any, and applies explicitly
// set flags on top.
func criteriaFromFlags(cmd *cobra.Command) (scoring.Criteria, error) {
	var c scoring.Criteria
	if name, _ := cmd.Flags().GetString("preset"); name != "" {
		p, ok := scoring.FindPreset(name)
		if !ok {
			return c, apperrors.NewValidationError("preset", name, "unknown preset")
		}
		c = p.Criteria
	}

	bounds := map[string]**float64{
		"min-price":  &c.MinPrice,
		"max-price":  &c.MaxPrice,
		"min-change": &c.MinChange,
		"max-change": &c.MaxChange,
		"min-volume": &c.MinVolume,
		"rsi-below":  &c.RSIBelow,
		"rsi-above":  &c.RSIAbove,
	}
	for name, dst := range bounds {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetFloat64(name)
			*dst = &v
		}
	}

	if cmd.Flags().Changed("action") {
		a, _ := cmd.Flags().GetString("action")
		action := analysis.Action(strings.ToUpper(a))
		switch action {
		case analysis.ActionBuy, analysis.ActionSell, analysis.ActionHold:
			c.Action = action
		default:
			return c, apperrors.NewValidationError("action", a, "must be BUY, SELL or HOLD")
		}
	}

	if cmd.Flags().Changed("sort") {
		s, _ := cmd.Flags().GetString("sort")
		field := scoring.SortField(strings.ToLower(s))
		switch field {
		case scoring.SortChange, scoring.SortPrice, scoring.SortVolume, scoring.SortConfidence:
			c.SortBy = field
		default:
			return c, apperrors.NewValidationError("sort", s, "must be change, price, volume or confidence")
		}
	}
	if cmd.Flags().Changed("asc") {
		c.Ascending, _ = cmd.Flags().GetBool("asc")
	}
	return c, nil
}

func countPassed(results []scoring.ScreenerResult) int {
	n := 0
	for _, r := range results {
		if r.Passed {
			n++
		}
	}
	return n
}
