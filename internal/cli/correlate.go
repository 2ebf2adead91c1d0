package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github-repo-analyzer/internal/analysis"
)

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Compute correlation matrices over the collected data",
}

var correlateUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Correlate user statistics across all collected contributors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		st, err := loadStore(cfg, logger)
		if err != nil {
			return err
		}

		matrix, err := analysis.UserCorrelation(st.Users())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), matrix)
		return nil
	},
}

var correlatePullsCmd = &cobra.Command{
	Use:   "pulls <owner>/<name>",
	Short: "Correlate pull request size measures for one repository",
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
		if _, err := st.Summary(owner, name); err != nil {
			return err
		}

		prs := st.PullRequests(owner, name)
		matrix, err := analysis.PullRequestCorrelation(prs)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, matrix)

		summaries, err := analysis.CommitSizeByState(prs)
		if err != nil {
			return nil // correlation printed; the size summary is best-effort
		}
		fmt.Fprintln(out)
		for _, s := range summaries {
			fmt.Fprintf(out, "%s (%d): mean %.1f commits, median %.1f, q1 %.1f, q3 %.1f\n",
				s.State, s.Count, s.Mean, s.Median, s.Q1, s.Q3)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(correlateCmd)
	correlateCmd.AddCommand(correlateUsersCmd)
	correlateCmd.AddCommand(correlatePullsCmd)
}
