package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/naka-gawa/repo-history/internal/domain"
	"github.com/naka-gawa/repo-history/internal/usecase"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <stars|forks|watchers>",
	Short: "Lists stored observations, oldest first",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := domain.ParseKind(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		e := setup(cmd, true)
		defer e.store.Close()

		observations, err := usecase.NewHistorian(e.store, e.logger).List(context.Background(), kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list %s: %v\n", kind.Path(), err)
			os.Exit(1)
		}
		for n, o := range observations {
			fmt.Printf("%4d %s %s\n", n, o.Timestamp.Format(time.DateTime), o.Login)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
