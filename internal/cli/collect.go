package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	ghclient "github-repo-analyzer/internal/github"
	"github-repo-analyzer/internal/scraper"
	"github-repo-analyzer/internal/syncer"
)

var collectCmd = &cobra.Command{
	Use:   "collect <owner>/<name>",
	Short: "Run a collection pass for one repository",
	Long: `Fetches the repository's metadata, enumerates all of its pull requests,
completes new ones with the per-PR detail data, scrapes contributor
profiles, and merges everything into the local store. Re-running against
an unchanged repository is a no-op apart from refreshed mutable fields.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		owner, name, err := splitRepoArg(args[0])
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force-details")

		client, err := ghclient.NewClient(cfg.GithubToken, logger)
		if err != nil {
			return err
		}
		st, err := loadStore(cfg, logger)
		if err != nil {
			return err
		}

		engine := syncer.New(remoteAdapter{client}, scraper.New(logger), st, logger)

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		report, err := engine.Collect(ctx, owner, name, syncer.Options{ForceDetails: force})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Collected %s in %s\n", report.Repository, report.Duration.Round(time.Millisecond))
		fmt.Fprintf(out, "  repositories: %d created, %d updated\n", report.RepositoriesCreated, report.RepositoriesUpdated)
		fmt.Fprintf(out, "  pull requests: %d created, %d updated\n", report.PullRequestsCreated, report.PullRequestsUpdated)
		fmt.Fprintf(out, "  users: %d created, %d updated\n", report.UsersCreated, report.UsersUpdated)
		if len(report.Skipped) > 0 {
			fmt.Fprintf(out, "  skipped %d item(s):\n", len(report.Skipped))
			for _, item := range report.Skipped {
				fmt.Fprintf(out, "    - [%s] %s: %s\n", item.Kind, item.Item, item.Reason)
			}
		}
		return nil
	},
}

// remoteAdapter narrows the concrete client to the engine's RemoteClient
// interface.
type remoteAdapter struct {
	*ghclient.Client
}

func (a remoteAdapter) PullRequests(owner, name string) syncer.PullRequestIterator {
	return a.Client.PullRequests(owner, name)
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().Bool("force-details", false, "Re-fetch per-PR detail data even for already-known pull requests")
}
