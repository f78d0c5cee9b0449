package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"stockwatch/internal/watchlist"
)

func newWatchlistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"wl"},
		Short:   "Manage watchlists",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <symbol> [watchlist]",
		Short: "Add a symbol to a watchlist",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := strings.ToUpper(args[0])
			list := listArg(args, 1)

			if err := app.Store.AddToWatchlist(cmd.Context(), symbol, list); err != nil {
				output.Error("Failed to add to watchlist: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"symbol": symbol, "watchlist": list})
			}
			output.Success("✓ Added %s to '%s'", symbol, list)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <symbol> [watchlist]",
		Short: "Remove a symbol from a watchlist",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := strings.ToUpper(args[0])
			list := listArg(args, 1)

			if err := app.Store.RemoveFromWatchlist(cmd.Context(), symbol, list); err != nil {
				output.Error("Failed to remove from watchlist: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"removed": symbol, "watchlist": list})
			}
			output.Success("✓ Removed %s from '%s'", symbol, list)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list [watchlist]",
		Short: "List watchlists, or the symbols in one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			if len(args) == 1 {
				symbols, err := app.Store.GetWatchlist(ctx, args[0])
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(map[string]interface{}{"name": args[0], "symbols": symbols})
				}
				if len(symbols) == 0 {
					output.Warning("Watchlist '%s' is empty", args[0])
					return nil
				}
				table := NewTable(output, "Symbol", "Name", "Sector")
				for _, s := range symbols {
					sector := "-"
					if st, ok := watchlist.Lookup(s); ok && st.Sector != "" {
						sector = st.Sector
					}
					table.AddRow(s, watchlist.DisplayName(s), sector)
				}
				table.Render()
				return nil
			}

			lists, err := app.Store.GetAllWatchlists(ctx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(lists)
			}
			if len(lists) == 0 {
				output.Warning("No watchlists. Run 'stockwatch watchlist seed' to load the defaults.")
				return nil
			}
			names := make([]string, 0, len(lists))
			for name := range lists {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				output.Printf("%s %s\n", output.Cyan(PadRight(name, 12)), output.DimText(fmt.Sprintf("%d symbols", len(lists[name]))))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Load the default Bursa and US watchlists into an empty store",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			n, err := watchlist.Seed(cmd.Context(), app.Store)
			if err != nil {
				output.Error("Failed to seed watchlists: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]int{"added": n})
			}
			if n == 0 {
				output.Dim("Watchlists already exist, nothing seeded")
				return nil
			}
			output.Success("✓ Seeded %d symbols", n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Import watchlists from a YAML file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			n, err := watchlist.Import(cmd.Context(), app.Store, r)
			if err != nil {
				output.Error("Import failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]int{"imported": n})
			}
			output.Success("✓ Imported %d symbols", n)
			return nil
		},
	})

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export all watchlists as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("output")
			var w io.Writer = cmd.OutOrStdout()
			if path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return watchlist.Export(cmd.Context(), app.Store, w)
		},
	}
	exportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	cmd.AddCommand(exportCmd)

	return cmd
}

func listArg(args []string, i int) string {
	if len(args) > i && args[i] != "" {
		return args[i]
	}
	return watchlist.DefaultList
}
