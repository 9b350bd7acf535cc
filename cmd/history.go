package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/naka-gawa/repo-history/internal/domain"
	"github.com/naka-gawa/repo-history/internal/histogram"
	"github.com/naka-gawa/repo-history/internal/usecase"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <stars|forks|watchers> [hour|day|week|SECONDS]",
	Short: "Buckets stored observations over time and outputs the chart as JSON",
	Long: `Reads every stored observation of one kind, counts them per hour, day,
week or fixed number of seconds from the first observation up to now, and
outputs the gap-free series in JSON format. The timespan defaults to "day".`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		kind, err := domain.ParseKind(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		token := histogram.DefaultTimespan
		if len(args) == 2 {
			token = args[1]
		}
		// Reject a bad timespan before touching the database.
		if _, err := histogram.ParseTimespan(token); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		e := setup(cmd, true)
		defer e.store.Close()

		historian := usecase.NewHistorian(e.store, e.logger)
		chart, err := historian.History(ctx, kind, token)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to build history: %v\n", err)
			os.Exit(1)
		}

		rowsOnly, _ := cmd.Flags().GetBool("rows")
		var payload any = chart
		if rowsOnly {
			payload = chart.Rows
		}

		// Marshal the results into a pretty-printed JSON string.
		jsonData, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal results to JSON: %v\n", err)
			os.Exit(1)
		}

		// Print the final JSON to standard output.
		fmt.Println(string(jsonData))
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Bool("rows", false, "Output only the histogram rows")
}
