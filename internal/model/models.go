// Package model holds the in-memory records shared by every component and
// their conversions from the GitHub API response shape.
package model

import (
	"time"

	"github.com/google/go-github/v62/github"

	apperrors "github-repo-analyzer/internal/errors"
)

// License is a value object embedded in Repository. It has no identity or
// lifecycle of its own.
type License struct {
	Key  string
	Name string
}

func (l License) String() string {
	if l.Name == "" {
		return "No License"
	}
	return l.Name
}

// Repository is identified by its (owner, name) pair. All non-identity
// fields are overwritten on every successful re-collection.
type Repository struct {
	Owner       string
	Name        string
	Description string
	Homepage    string
	License     License
	Forks       int
	Watchers    int
	Stars       int
	CollectedAt time.Time
}

// FullName returns the "owner/name" form used in logs and lookups.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// PullRequest is identified by (owner, name, number). It belongs to exactly
// one repository by foreign key. State, dates and size counts are mutable
// across collection passes; the identity never is.
type PullRequest struct {
	Owner             string     `json:"owner"`
	Name              string     `json:"name"`
	Number            int        `json:"number"`
	Title             string     `json:"title"`
	Body              string     `json:"body,omitempty"`
	State             string     `json:"state"`
	Author            string     `json:"author"`
	AuthorAssociation string     `json:"author_association,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	ClosedAt          *time.Time `json:"closed_at,omitempty"`
	Commits           int        `json:"commits"`
	Additions         int        `json:"additions"`
	Deletions         int        `json:"deletions"`
	ChangedFiles      int        `json:"changed_files"`
}

// PullRequestDetail carries the fields the paginated list endpoint omits.
// Obtaining it costs one extra request per pull request.
type PullRequestDetail struct {
	Commits           int
	Additions         int
	Deletions         int
	ChangedFiles      int
	AuthorAssociation string
}

// User is identified by login, unique across all repositories.
// PullRequests is derived from the stored pull request rows and is
// recomputed after every merge batch, never trusted as authoritative input.
type User struct {
	Login         string `json:"login"`
	PullRequests  int    `json:"pull_requests"`
	PublicRepos   int    `json:"public_repos"`
	Followers     int    `json:"followers"`
	Following     int    `json:"following"`
	Contributions int    `json:"contributions"`
}

// Profile holds the attributes the scraper extracts from a public profile
// page.
type Profile struct {
	PublicRepos   int
	Followers     int
	Following     int
	Contributions int
}

// RepositoryFromGitHub translates an API repository object to the internal
// record. Identity fields are required; anything else defaults.
func RepositoryFromGitHub(r *github.Repository, collectedAt time.Time) (Repository, error) {
	if r == nil {
		return Repository{}, &apperrors.MalformedResponseError{Entity: "repository", Field: "(root)"}
	}
	if r.GetOwner().GetLogin() == "" {
		return Repository{}, &apperrors.MalformedResponseError{Entity: "repository", Field: "owner.login"}
	}
	if r.GetName() == "" {
		return Repository{}, &apperrors.MalformedResponseError{Entity: "repository", Field: "name"}
	}

	return Repository{
		Owner:       r.GetOwner().GetLogin(),
		Name:        r.GetName(),
		Description: r.GetDescription(),
		Homepage:    r.GetHomepage(),
		License: License{
			Key:  r.GetLicense().GetKey(),
			Name: r.GetLicense().GetName(),
		},
		Forks:       r.GetForksCount(),
		Watchers:    r.GetSubscribersCount(),
		Stars:       r.GetStargazersCount(),
		CollectedAt: collectedAt.UTC().Truncate(time.Second),
	}, nil
}

// PullRequestFromGitHub translates one element of the paginated list
// endpoint. The size counts stay zero until a detail fetch fills them in.
func PullRequestFromGitHub(owner, name string, pr *github.PullRequest) (PullRequest, error) {
	if pr == nil || pr.GetNumber() == 0 {
		return PullRequest{}, &apperrors.MalformedResponseError{Entity: "pull request", Field: "number"}
	}
	if pr.GetUser().GetLogin() == "" {
		return PullRequest{}, &apperrors.MalformedResponseError{Entity: "pull request", Field: "user.login"}
	}
	if pr.GetState() == "" {
		return PullRequest{}, &apperrors.MalformedResponseError{Entity: "pull request", Field: "state"}
	}

	p := PullRequest{
		Owner:             owner,
		Name:              name,
		Number:            pr.GetNumber(),
		Title:             pr.GetTitle(),
		Body:              pr.GetBody(),
		State:             pr.GetState(),
		Author:            pr.GetUser().GetLogin(),
		AuthorAssociation: pr.GetAuthorAssociation(),
		CreatedAt:         pr.GetCreatedAt().Time.UTC(),
		UpdatedAt:         pr.GetUpdatedAt().Time.UTC(),
	}
	if pr.ClosedAt != nil {
		t := pr.GetClosedAt().Time.UTC()
		p.ClosedAt = &t
	}
	return p, nil
}

// DetailFromGitHub extracts the expensive per-PR fields from a detail
// response.
func DetailFromGitHub(pr *github.PullRequest) (PullRequestDetail, error) {
	if pr == nil || pr.GetNumber() == 0 {
		return PullRequestDetail{}, &apperrors.MalformedResponseError{Entity: "pull request detail", Field: "number"}
	}
	return PullRequestDetail{
		Commits:           pr.GetCommits(),
		Additions:         pr.GetAdditions(),
		Deletions:         pr.GetDeletions(),
		ChangedFiles:      pr.GetChangedFiles(),
		AuthorAssociation: pr.GetAuthorAssociation(),
	}, nil
}

// ApplyDetail merges detail fields into a list-shaped record.
func (p *PullRequest) ApplyDetail(d PullRequestDetail) {
	p.Commits = d.Commits
	p.Additions = d.Additions
	p.Deletions = d.Deletions
	p.ChangedFiles = d.ChangedFiles
	if d.AuthorAssociation != "" {
		p.AuthorAssociation = d.AuthorAssociation
	}
}
