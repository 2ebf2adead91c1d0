package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List all collected repositories",
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

		repos := st.Repositories()
		if len(repos) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No repositories have been collected yet.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "REPOSITORY\tLICENSE\tSTARS\tFORKS\tWATCHERS\tCOLLECTED")
		for _, repo := range repos {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
				repo.FullName(), repo.License, repo.Stars, repo.Forks, repo.Watchers,
				repo.CollectedAt.Format(time.DateOnly))
		}
		return w.Flush()
	},
}

var pullsCmd = &cobra.Command{
	Use:   "pulls <owner>/<name>",
	Short: "List the stored pull requests of a repository",
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
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "#\tSTATE\tAUTHOR\tCOMMITS\t+/-\tTITLE")
		for _, pr := range prs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t+%d/-%d\t%s\n",
				pr.Number, pr.State, pr.Author, pr.Commits, pr.Additions, pr.Deletions,
				truncate(pr.Title, 60))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d pull requests\n", len(prs))
		return nil
	},
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func init() {
	rootCmd.AddCommand(reposCmd)
	rootCmd.AddCommand(pullsCmd)
}
