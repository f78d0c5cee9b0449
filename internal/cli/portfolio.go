package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"stockwatch/internal/portfolio"
	"stockwatch/pkg/utils"
)

func newPortfolioCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "portfolio",
		Aliases: []string{"pf"},
		Short:   "Track holdings and their gain/loss",
	}

	tracker := func() *portfolio.Tracker {
		return portfolio.NewTracker(app.Store, app.Service, app.Logger)
	}

	addCmd := &cobra.Command{
		Use:     "add <symbol> <quantity> <buy-price>",
		Short:   "Record a holding",
		Example: `  stockwatch portfolio add 1155 1000 9.45 --date 2024-01-15`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			date, _ := cmd.Flags().GetString("date")
			notes, _ := cmd.Flags().GetString("notes")

			h, err := tracker().Add(cmd.Context(), portfolio.Input{
				Symbol:   args[0],
				Quantity: args[1],
				BuyPrice: args[2],
				BuyDate:  date,
				Notes:    notes,
			})
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(h)
			}
			output.Success("✓ Holding %s added: %s x %s @ %s", shortID(h.ID), h.Symbol, h.Quantity.String(),
				utils.FormatPrice(h.Symbol, h.BuyPrice.InexactFloat64()))
			return nil
		},
	}
	addCmd.Flags().String("date", "", "buy date YYYY-MM-DD (default today)")
	addCmd.Flags().String("notes", "", "free-form notes")
	cmd.AddCommand(addCmd)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a holding's quantity, price, date or notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			t := tracker()
			id, err := t.ResolveID(cmd.Context(), args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}

			var u portfolio.Update
			flags := cmd.Flags()
			if flags.Changed("quantity") {
				v, _ := flags.GetString("quantity")
				u.Quantity = &v
			}
			if flags.Changed("price") {
				v, _ := flags.GetString("price")
				u.BuyPrice = &v
			}
			if flags.Changed("date") {
				v, _ := flags.GetString("date")
				u.BuyDate = &v
			}
			if flags.Changed("notes") {
				v, _ := flags.GetString("notes")
				u.Notes = &v
			}

			h, err := t.Update(cmd.Context(), id, u)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(h)
			}
			output.Success("✓ Holding %s updated", shortID(h.ID))
			return nil
		},
	}
	updateCmd.Flags().String("quantity", "", "new quantity")
	updateCmd.Flags().String("price", "", "new buy price")
	updateCmd.Flags().String("date", "", "new buy date YYYY-MM-DD")
	updateCmd.Flags().String("notes", "", "new notes")
	cmd.AddCommand(updateCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a holding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			t := tracker()
			id, err := t.ResolveID(cmd.Context(), args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if err := t.Remove(cmd.Context(), id); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": id})
			}
			output.Success("✓ Holding %s deleted", shortID(id))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Value holdings at current prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			stats, err := tracker().Summary(ctx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(stats)
			}
			if stats.TotalHoldings == 0 {
				output.Dim("No holdings")
				return nil
			}
			printPortfolio(output, stats)
			return nil
		},
	})

	return cmd
}

func printPortfolio(output *Output, stats portfolio.Stats) {
	table := NewTable(output, "ID", "Symbol", "Qty", "Buy", "Current", "Invested", "Value", "P/L", "P/L %")
	for _, h := range stats.Holdings {
		current := output.DimText("n/a")
		if !h.CurrentPrice.IsZero() {
			current = utils.FormatPrice(h.Symbol, h.CurrentPrice.InexactFloat64())
		}
		pct := h.GainLossPercent.InexactFloat64()
		table.AddRow(
			shortID(h.ID),
			h.Symbol,
			h.Quantity.String(),
			utils.FormatPrice(h.Symbol, h.BuyPrice.InexactFloat64()),
			current,
			h.InvestedAmount.StringFixed(2),
			h.CurrentValue.StringFixed(2),
			output.Signed(pct, h.GainLoss.StringFixed(2)),
			output.Signed(pct, utils.FormatPercent(pct)),
		)
	}
	table.Render()

	total := stats.TotalGainLossPercent.InexactFloat64()
	output.Println()
	output.Printf("Invested:  %s\n", stats.TotalInvestment.StringFixed(2))
	output.Printf("Value:     %s\n", stats.TotalCurrentValue.StringFixed(2))
	output.Printf("P/L:       %s (%s)\n",
		output.Signed(total, stats.TotalGainLoss.StringFixed(2)),
		output.Signed(total, utils.FormatPercent(total)))
}
