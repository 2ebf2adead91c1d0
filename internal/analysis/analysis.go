// Package analysis derives summary statistics and correlations from the
// normalized views the store exposes. It renders numbers, not charts.
package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"

	"github-repo-analyzer/internal/model"
)

// ErrNotEnoughData is returned when fewer than two observations exist for
// a correlation or summary.
var ErrNotEnoughData = errors.New("not enough data points")

// Matrix is a labeled, symmetric correlation matrix.
type Matrix struct {
	Labels []string    `json:"labels"`
	Values [][]float64 `json:"values"`
}

// String renders the matrix as an aligned text table.
func (m Matrix) String() string {
	var b strings.Builder

	width := 0
	for _, label := range m.Labels {
		if len(label) > width {
			width = len(label)
		}
	}

	fmt.Fprintf(&b, "%*s", width, "")
	for _, label := range m.Labels {
		fmt.Fprintf(&b, "  %*s", width, label)
	}
	b.WriteByte('\n')

	for i, label := range m.Labels {
		fmt.Fprintf(&b, "%*s", width, label)
		for j := range m.Labels {
			fmt.Fprintf(&b, "  %*.3f", width, m.Values[i][j])
		}
		if i < len(m.Labels)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// UserCorrelation computes pairwise Pearson correlations between the
// numeric user statistics across all stored users.
func UserCorrelation(users []model.User) (Matrix, error) {
	labels := []string{"pull_requests", "public_repos", "followers", "following", "contributions"}
	series := make([][]float64, len(labels))
	for _, u := range users {
		values := []int{u.PullRequests, u.PublicRepos, u.Followers, u.Following, u.Contributions}
		for i, v := range values {
			series[i] = append(series[i], float64(v))
		}
	}
	return correlationMatrix(labels, series)
}

// PullRequestCorrelation computes pairwise Pearson correlations between
// the size measures of the given pull requests.
func PullRequestCorrelation(prs []model.PullRequest) (Matrix, error) {
	labels := []string{"commits", "additions", "deletions", "changed_files"}
	series := make([][]float64, len(labels))
	for _, pr := range prs {
		values := []int{pr.Commits, pr.Additions, pr.Deletions, pr.ChangedFiles}
		for i, v := range values {
			series[i] = append(series[i], float64(v))
		}
	}
	return correlationMatrix(labels, series)
}

func correlationMatrix(labels []string, series [][]float64) (Matrix, error) {
	if len(series[0]) < 2 {
		return Matrix{}, fmt.Errorf("%w: need at least 2 observations, have %d", ErrNotEnoughData, len(series[0]))
	}

	values := make([][]float64, len(labels))
	for i := range labels {
		values[i] = make([]float64, len(labels))
		values[i][i] = 1
	}
	for i := 0; i < len(labels); i++ {
		for j := i + 1; j < len(labels); j++ {
			r, err := stats.Pearson(series[i], series[j])
			if err != nil {
				return Matrix{}, fmt.Errorf("failed to correlate %s with %s: %w", labels[i], labels[j], err)
			}
			values[i][j] = r
			values[j][i] = r
		}
	}
	return Matrix{Labels: labels, Values: values}, nil
}

// StateSummary describes the commit-count distribution of pull requests in
// one lifecycle state.
type StateSummary struct {
	State  string  `json:"state"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
}

// CommitSizeByState summarizes commit counts per lifecycle state, the
// numeric form of an open-versus-closed size comparison.
func CommitSizeByState(prs []model.PullRequest) ([]StateSummary, error) {
	byState := map[string][]float64{}
	for _, pr := range prs {
		byState[pr.State] = append(byState[pr.State], float64(pr.Commits))
	}

	var summaries []StateSummary
	for _, state := range []string{"open", "closed"} {
		data := byState[state]
		if len(data) == 0 {
			continue
		}
		mean, err := stats.Mean(data)
		if err != nil {
			return nil, err
		}
		median, err := stats.Median(data)
		if err != nil {
			return nil, err
		}
		summary := StateSummary{State: state, Count: len(data), Mean: mean, Median: median}
		if quartiles, err := stats.Quartile(data); err == nil {
			summary.Q1 = quartiles.Q1
			summary.Q3 = quartiles.Q3
		}
		summaries = append(summaries, summary)
	}
	if len(summaries) == 0 {
		return nil, ErrNotEnoughData
	}
	return summaries, nil
}
