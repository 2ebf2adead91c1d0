package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <owner>/<name>",
	Short: "Show aggregate pull request statistics for a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		owner, name, err := splitRepoArg(args[0])
		if err != nil {
			return err
		}
		st, err := loadStore(cfg, logger)
		if err != nil {
			return err
		}

		summary, err := st.Summary(owner, name)
		if err != nil {
			return err
		}

		oldest := "n/a"
		if summary.OldestPullRequest != nil {
			oldest = summary.OldestPullRequest.Format(time.DateOnly)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Summary for %s/%s\n", owner, name)
		fmt.Fprintf(out, "  open pull requests:   %d\n", summary.OpenCount)
		fmt.Fprintf(out, "  closed pull requests: %d\n", summary.ClosedCount)
		fmt.Fprintf(out, "  total pull requests:  %d\n", summary.OpenCount+summary.ClosedCount)
		fmt.Fprintf(out, "  distinct users:       %d\n", summary.DistinctUserCount)
		fmt.Fprintf(out, "  oldest pull request:  %s\n", oldest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
