package model

import (
	"strconv"
	"time"

	apperrors "github-repo-analyzer/internal/errors"
)

// Row codecs for the delimited-text store. Every persisted table begins
// with the header returned by the matching RowHeader function, and
// Row/FromRow round-trip losslessly for well-formed rows.

const rowTimeLayout = time.RFC3339

// RepositoryRowHeader returns the column order of the repositories table.
// The order is part of the on-disk format and must stay stable.
func RepositoryRowHeader() []string {
	return []string{
		"owner", "name", "description", "homepage",
		"license_key", "license_name",
		"forks", "watchers", "stars", "collected_at",
	}
}

// Row serializes the repository in RepositoryRowHeader order.
func (r Repository) Row() []string {
	return []string{
		r.Owner, r.Name, r.Description, r.Homepage,
		r.License.Key, r.License.Name,
		strconv.Itoa(r.Forks), strconv.Itoa(r.Watchers), strconv.Itoa(r.Stars),
		r.CollectedAt.UTC().Format(rowTimeLayout),
	}
}

// RepositoryFromRow decodes a persisted repository row.
func RepositoryFromRow(row []string) (Repository, error) {
	const table = "repositories"
	if len(row) != len(RepositoryRowHeader()) {
		return Repository{}, &apperrors.CorruptRowError{Table: table, Field: "(row length)"}
	}
	if row[0] == "" || row[1] == "" {
		return Repository{}, &apperrors.CorruptRowError{Table: table, Field: "owner/name"}
	}

	forks, err := strconv.Atoi(row[6])
	if err != nil {
		return Repository{}, &apperrors.CorruptRowError{Table: table, Field: "forks", Cause: err}
	}
	watchers, err := strconv.Atoi(row[7])
	if err != nil {
		return Repository{}, &apperrors.CorruptRowError{Table: table, Field: "watchers", Cause: err}
	}
	stars, err := strconv.Atoi(row[8])
	if err != nil {
		return Repository{}, &apperrors.CorruptRowError{Table: table, Field: "stars", Cause: err}
	}
	collectedAt, err := time.Parse(rowTimeLayout, row[9])
	if err != nil {
		return Repository{}, &apperrors.CorruptRowError{Table: table, Field: "collected_at", Cause: err}
	}

	return Repository{
		Owner:       row[0],
		Name:        row[1],
		Description: row[2],
		Homepage:    row[3],
		License:     License{Key: row[4], Name: row[5]},
		Forks:       forks,
		Watchers:    watchers,
		Stars:       stars,
		CollectedAt: collectedAt.UTC(),
	}, nil
}

// PullRequestRowHeader returns the column order of a per-repository pull
// request table. The repository identity travels in the rows themselves,
// never in the filename.
func PullRequestRowHeader() []string {
	return []string{
		"owner", "name", "number", "title", "body", "state",
		"author", "author_association",
		"created_at", "updated_at", "closed_at",
		"commits", "additions", "deletions", "changed_files",
	}
}

// Row serializes the pull request in PullRequestRowHeader order.
func (p PullRequest) Row() []string {
	closedAt := ""
	if p.ClosedAt != nil {
		closedAt = p.ClosedAt.UTC().Format(rowTimeLayout)
	}
	return []string{
		p.Owner, p.Name, strconv.Itoa(p.Number),
		p.Title, p.Body, p.State,
		p.Author, p.AuthorAssociation,
		p.CreatedAt.UTC().Format(rowTimeLayout),
		p.UpdatedAt.UTC().Format(rowTimeLayout),
		closedAt,
		strconv.Itoa(p.Commits), strconv.Itoa(p.Additions),
		strconv.Itoa(p.Deletions), strconv.Itoa(p.ChangedFiles),
	}
}

// PullRequestFromRow decodes a persisted pull request row.
func PullRequestFromRow(row []string) (PullRequest, error) {
	const table = "pull_requests"
	if len(row) != len(PullRequestRowHeader()) {
		return PullRequest{}, &apperrors.CorruptRowError{Table: table, Field: "(row length)"}
	}
	if row[0] == "" || row[1] == "" {
		return PullRequest{}, &apperrors.CorruptRowError{Table: table, Field: "owner/name"}
	}
	number, err := strconv.Atoi(row[2])
	if err != nil || number <= 0 {
		return PullRequest{}, &apperrors.CorruptRowError{Table: table, Field: "number", Cause: err}
	}

	createdAt, err := time.Parse(rowTimeLayout, row[8])
	if err != nil {
		return PullRequest{}, &apperrors.CorruptRowError{Table: table, Field: "created_at", Cause: err}
	}
	updatedAt, err := time.Parse(rowTimeLayout, row[9])
	if err != nil {
		return PullRequest{}, &apperrors.CorruptRowError{Table: table, Field: "updated_at", Cause: err}
	}
	var closedAt *time.Time
	if row[10] != "" {
		t, err := time.Parse(rowTimeLayout, row[10])
		if err != nil {
			return PullRequest{}, &apperrors.CorruptRowError{Table: table, Field: "closed_at", Cause: err}
		}
		u := t.UTC()
		closedAt = &u
	}

	counts := make([]int, 4)
	for i, field := range []string{"commits", "additions", "deletions", "changed_files"} {
		n, err := strconv.Atoi(row[11+i])
		if err != nil {
			return PullRequest{}, &apperrors.CorruptRowError{Table: table, Field: field, Cause: err}
		}
		counts[i] = n
	}

	return PullRequest{
		Owner:             row[0],
		Name:              row[1],
		Number:            number,
		Title:             row[3],
		Body:              row[4],
		State:             row[5],
		Author:            row[6],
		AuthorAssociation: row[7],
		CreatedAt:         createdAt.UTC(),
		UpdatedAt:         updatedAt.UTC(),
		ClosedAt:          closedAt,
		Commits:           counts[0],
		Additions:         counts[1],
		Deletions:         counts[2],
		ChangedFiles:      counts[3],
	}, nil
}

// UserRowHeader returns the column order of the users table.
func UserRowHeader() []string {
	return []string{
		"login", "pull_requests", "public_repos",
		"followers", "following", "contributions",
	}
}

// Row serializes the user in UserRowHeader order.
func (u User) Row() []string {
	return []string{
		u.Login,
		strconv.Itoa(u.PullRequests), strconv.Itoa(u.PublicRepos),
		strconv.Itoa(u.Followers), strconv.Itoa(u.Following),
		strconv.Itoa(u.Contributions),
	}
}

// UserFromRow decodes a persisted user row.
func UserFromRow(row []string) (User, error) {
	const table = "users"
	if len(row) != len(UserRowHeader()) {
		return User{}, &apperrors.CorruptRowError{Table: table, Field: "(row length)"}
	}
	if row[0] == "" {
		return User{}, &apperrors.CorruptRowError{Table: table, Field: "login"}
	}

	counts := make([]int, 5)
	for i, field := range []string{"pull_requests", "public_repos", "followers", "following", "contributions"} {
		n, err := strconv.Atoi(row[1+i])
		if err != nil {
			return User{}, &apperrors.CorruptRowError{Table: table, Field: field, Cause: err}
		}
		counts[i] = n
	}

	return User{
		Login:         row[0],
		PullRequests:  counts[0],
		PublicRepos:   counts[1],
		Followers:     counts[2],
		Following:     counts[3],
		Contributions: counts[4],
	}, nil
}
