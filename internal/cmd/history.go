package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skystats/skystats/internal/output"
)

var (
	historyLimit    int
	historyClearYes bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear recent city searches",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent searches, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		limit := historyLimit
		if limit <= 0 {
			limit = cfg.History.MaxItems
		}
		items, err := db.ListHistory(cmd.Context(), limit)
		if err != nil {
			return err
		}
		return writeDocument(cmd, "history", output.HistoryDocument(items))
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !historyClearYes {
			return errors.New("clear requires --yes")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		deleted, err := db.ClearHistory(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d search(es)\n", deleted)
		return err
	},
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 0, "maximum entries (default history.max_items)")
	addOutputFlags(historyListCmd)
	historyClearCmd.Flags().BoolVar(&historyClearYes, "yes", false, "confirm deletion")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
