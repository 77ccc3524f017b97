package cli

import (
	"github.com/spf13/cobra"

	"github.com/Lfy181/sea-daily-briefing/internal/app"
)

var historyPair string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display persisted baseline rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.HistoryOptions{
			Pair: historyPair,
		}
		return getApp().History(cmd.Context(), opts)
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyPair, "pair", "", "Restrict output to one pair, e.g. CNY/PHP")
}
