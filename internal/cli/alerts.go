package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stockwatch/internal/alerts"
	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/models"
	"stockwatch/internal/quotes"
	"stockwatch/internal/store"
	"stockwatch/pkg/utils"
)

func newAlertCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "alert",
		Aliases: []string{"alerts"},
		Short:   "Manage price alerts",
		Long: `Custom alerts fire once when their condition is met:
  price_above   price at or above target
  price_below   price at or below target
  percent_gain  daily change at or above +target%
  percent_loss  daily change at or below -target%`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <symbol> <type> <target>",
		Short: "Create an alert",
		Example: `  stockwatch alert add 1155 price_above 9.85
  stockwatch alert add AAPL percent_loss 3`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			a, err := alerts.New(args[0], models.AlertType(strings.ToLower(args[1])), args[2], time.Now())
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if err := app.Store.SaveAlert(cmd.Context(), a); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(a)
			}
			output.Success("✓ Alert %s created: %s %s %s", shortID(a.ID), a.Symbol, a.Type, a.Target.String())
			return nil
		},
	})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol, _ := cmd.Flags().GetString("symbol")
			active, _ := cmd.Flags().GetBool("active")

			list, err := app.Store.GetAlerts(cmd.Context(), store.AlertFilter{Symbol: strings.ToUpper(symbol), ActiveOnly: active})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(list)
			}
			if len(list) == 0 {
				output.Dim("No alerts")
				return nil
			}

			table := NewTable(output, "ID", "Symbol", "Type", "Target", "Status", "Created")
			for _, a := range list {
				status := output.Green("active")
				switch {
				case a.Triggered:
					status = output.Yellow("triggered")
				case !a.Enabled:
					status = output.DimText("disabled")
				}
				table.AddRow(shortID(a.ID), a.Symbol, string(a.Type), formatTarget(a), status, FormatDate(a.CreatedAt))
			}
			table.Render()
			return nil
		},
	}
	listCmd.Flags().StringP("symbol", "s", "", "only alerts for this symbol")
	listCmd.Flags().Bool("active", false, "only enabled, untriggered alerts")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Delete an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			id, err := resolveAlertID(cmd.Context(), app.Store, args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if err := app.Store.DeleteAlert(cmd.Context(), id); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": id})
			}
			output.Success("✓ Alert %s deleted", shortID(id))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <id>",
		Short: "Enable or disable an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			id, err := resolveAlertID(cmd.Context(), app.Store, args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}
			enabled, err := app.Store.ToggleAlert(cmd.Context(), id)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"id": id, "enabled": enabled})
			}
			state := "disabled"
			if enabled {
				state = "enabled"
			}
			output.Success("✓ Alert %s %s", shortID(id), state)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Check active alerts against current quotes",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			active, err := app.Store.GetAlerts(ctx, store.AlertFilter{ActiveOnly: true})
			if err != nil {
				return err
			}
			seen := make(map[string]bool)
			var symbols []string
			for _, a := range active {
				if !seen[a.Symbol] {
					seen[a.Symbol] = true
					symbols = append(symbols, a.Symbol)
				}
			}

			monitor := alerts.NewMonitor(app.Store, app.Notifier, app.Logger)
			events, err := monitor.Check(ctx, app.Service.Quotes(ctx, append(symbols, quotes.IndexSymbol)))
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(events)
			}
			if len(events) == 0 {
				output.Dim("No alerts triggered (%d active)", len(active))
				return nil
			}
			for _, e := range events {
				output.Printf("%s %s\n    %s\n", output.Yellow("🔔 "+e.Title), output.DimText(e.Symbol), e.Message)
			}
			return nil
		},
	})

	return cmd
}

func formatTarget(a models.Alert) string {
	switch a.Type {
	case models.AlertPercentGain:
		return "+" + a.Target.String() + "%"
	case models.AlertPercentLoss:
		return "-" + a.Target.String() + "%"
	}
	return utils.CurrencySymbol(a.Symbol) + a.Target.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveAlertID accepts a full ID or a unique prefix such as the one shown by
// 'alert list'.
func resolveAlertID(ctx context.Context, st store.DataStore, prefix string) (string, error) {
	if _, err := st.GetAlert(ctx, prefix); err == nil {
		return prefix, nil
	}
	all, err := st.GetAlerts(ctx, store.AlertFilter{})
	if err != nil {
		return "", err
	}
	var match string
	for _, a := range all {
		if strings.HasPrefix(a.ID, prefix) {
			if match != "" {
				return "", apperrors.NewValidationError("id", prefix, "ambiguous alert ID prefix")
			}
			match = a.ID
		}
	}
	if match == "" {
		return "", apperrors.Wrapf(apperrors.ErrAlertNotFound, "alert %s", prefix)
	}
	return match, nil
}
