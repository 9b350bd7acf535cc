package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/naka-gawa/repo-history/internal/gateway"
	"github.com/naka-gawa/repo-history/internal/usecase"
	"github.com/spf13/cobra"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Snapshots the repository's stargazers, forks and watchers",
	Long: `Fetches the current stargazers, forks and watchers of the configured
repository from GitHub and stores the ones not seen before. The run summary
is output in JSON format.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		e := setup(cmd, true)
		defer e.store.Close()

		if repo, _ := cmd.Flags().GetString("repo"); repo != "" {
			e.cfg.GitHub.Repo = repo
		}
		if err := e.cfg.ValidateGitHub(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		collector, err := newCollector(e)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}

		run, err := collector.Collect(ctx, e.cfg.GitHub.Repo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to collect: %v\n", err)
			os.Exit(1)
		}

		jsonData, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal results to JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(jsonData))
	},
}

// newCollector injects the GitHub gateway and the store into a Collector.
func newCollector(e *env) (*usecase.Collector, error) {
	githubGateway, err := gateway.NewGitHubGateway(e.cfg.GitHub.Token, e.logger.With().Str("component", "gateway").Logger())
	if err != nil {
		return nil, err
	}
	return usecase.NewCollector(githubGateway, e.store, e.logger.With().Str("component", "collector").Logger()), nil
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().StringP("repo", "r", "", "Repository to collect as owner/name (overrides config)")
}
