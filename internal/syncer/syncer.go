// Package syncer orchestrates a collection pass for one repository: fetch
// phases first, then a single merge into the local store, then persist.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github-repo-analyzer/internal/model"
	"github-repo-analyzer/internal/store"
)

// Phase is the engine's position in a collection pass. Only Merging and
// Persisted mutate the store.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetchingRepository
	PhaseFetchingPullRequestList
	PhaseFetchingPullRequestDetails
	PhaseFetchingUserProfiles
	PhaseMerging
	PhasePersisted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetchingRepository:
		return "fetching_repository"
	case PhaseFetchingPullRequestList:
		return "fetching_pull_request_list"
	case PhaseFetchingPullRequestDetails:
		return "fetching_pull_request_details"
	case PhaseFetchingUserProfiles:
		return "fetching_user_profiles"
	case PhaseMerging:
		return "merging"
	case PhasePersisted:
		return "persisted"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PullRequestIterator walks a paginated pull request list one item at a
// time. The bool result is false once the walk is exhausted.
type PullRequestIterator interface {
	Next(ctx context.Context) (model.PullRequest, bool, error)
}

// RemoteClient is the slice of the API client the engine depends on.
type RemoteClient interface {
	GetRepository(ctx context.Context, owner, name string) (model.Repository, error)
	PullRequests(owner, name string) PullRequestIterator
	GetPullRequestDetail(ctx context.Context, owner, name string, number int) (model.PullRequestDetail, error)
}

// ProfileFetcher is the slice of the scraper the engine depends on.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, login string) (model.Profile, error)
}

// Options tune a single collection pass.
type Options struct {
	// ForceDetails re-fetches the per-PR detail even for pull requests
	// the store already knows. Without it, a known PR is re-enumerated
	// for state changes but its size counts are kept from the store.
	ForceDetails bool
}

// SkippedItem records one optional element the pass gave up on.
type SkippedItem struct {
	Kind   string `json:"kind"` // "pull_request" or "user_profile"
	Item   string `json:"item"`
	Reason string `json:"reason"`
}

// Report summarizes a completed pass: what was created, what was updated,
// and what was skipped and why.
type Report struct {
	Repository string `json:"repository"`

	RepositoriesCreated int `json:"repositories_created"`
	RepositoriesUpdated int `json:"repositories_updated"`
	PullRequestsCreated int `json:"pull_requests_created"`
	PullRequestsUpdated int `json:"pull_requests_updated"`
	UsersCreated        int `json:"users_created"`
	UsersUpdated        int `json:"users_updated"`

	Skipped []SkippedItem `json:"skipped,omitempty"`

	Duration time.Duration `json:"duration"`
}

// Engine runs collection passes. One pass runs to completion (or terminal
// failure) before another may begin; the engine and its store are not safe
// for concurrent passes.
type Engine struct {
	client   RemoteClient
	profiles ProfileFetcher
	store    *store.Store
	logger   *slog.Logger

	phase Phase
}

// New creates an Engine over an already-loaded store.
func New(client RemoteClient, profiles ProfileFetcher, st *store.Store, logger *slog.Logger) *Engine {
	return &Engine{
		client:   client,
		profiles: profiles,
		store:    st,
		logger:   logger,
		phase:    PhaseIdle,
	}
}

// Phase returns the engine's current phase.
func (e *Engine) Phase() Phase { return e.phase }

func (e *Engine) setPhase(p Phase) {
	e.logger.Debug("phase transition", "from", e.phase.String(), "to", p.String())
	e.phase = p
}

// Collect runs a full collection pass for one repository. Prerequisite
// failures (repository missing, credential rejected) abort before any
// mutation; per-item failures are recorded in the report and skipped.
// Cancellation is honored at item boundaries.
func (e *Engine) Collect(ctx context.Context, owner, name string, opts Options) (*Report, error) {
	started := time.Now()
	logger := e.logger.With("owner", owner, "repo", name)
	report := &Report{Repository: owner + "/" + name}

	e.setPhase(PhaseFetchingRepository)
	repo, err := e.client.GetRepository(ctx, owner, name)
	if err != nil {
		e.setPhase(PhaseFailed)
		return nil, fmt.Errorf("failed to fetch repository %s/%s: %w", owner, name, err)
	}
	logger.Info("fetched repository", "stars", repo.Stars, "forks", repo.Forks)

	e.setPhase(PhaseFetchingPullRequestList)
	listed, err := e.fetchPullRequestList(ctx, owner, name, report)
	if err != nil {
		e.setPhase(PhaseFailed)
		return nil, err
	}
	logger.Info("enumerated pull requests", "count", len(listed))

	e.setPhase(PhaseFetchingPullRequestDetails)
	merged, err := e.fetchPullRequestDetails(ctx, owner, name, listed, opts, report, logger)
	if err != nil {
		e.setPhase(PhaseFailed)
		return nil, err
	}

	e.setPhase(PhaseFetchingUserProfiles)
	profiles, err := e.fetchUserProfiles(ctx, merged, report, logger)
	if err != nil {
		e.setPhase(PhaseFailed)
		return nil, err
	}

	e.setPhase(PhaseMerging)
	if e.store.UpsertRepository(repo) {
		report.RepositoriesCreated++
	} else {
		report.RepositoriesUpdated++
	}
	for _, pr := range merged {
		if e.store.UpsertPullRequest(pr) {
			report.PullRequestsCreated++
		} else {
			report.PullRequestsUpdated++
		}
	}
	for _, login := range authorLogins(merged) {
		profile, scraped := profiles[login]
		switch {
		case scraped && e.store.UpsertUser(login, profile):
			report.UsersCreated++
		case scraped:
			report.UsersUpdated++
		case e.store.EnsureUser(login):
			// Profile fetch failed for a brand-new author: the record
			// exists with defaults until a later pass fills it in.
			report.UsersCreated++
		}
	}
	e.store.RecomputeUserPullRequestCounts()

	e.setPhase(PhasePersisted)
	if err := e.store.Persist(); err != nil {
		e.setPhase(PhaseFailed)
		return nil, err
	}

	report.Duration = time.Since(started)
	logger.Info("collection pass complete",
		"pull_requests_created", report.PullRequestsCreated,
		"pull_requests_updated", report.PullRequestsUpdated,
		"users_created", report.UsersCreated,
		"skipped", len(report.Skipped),
		"duration", report.Duration)
	e.setPhase(PhaseIdle)
	return report, nil
}

// fetchPullRequestList walks every page of the pull request list. A page
// failure aborts the pass (the remainder of the list is unknowable); a
// single malformed element is skipped and recorded.
func (e *Engine) fetchPullRequestList(ctx context.Context, owner, name string, report *Report) ([]model.PullRequest, error) {
	var listed []model.PullRequest
	it := e.client.PullRequests(owner, name)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pr, ok, err := it.Next(ctx)
		if err != nil && ok {
			// Malformed element: skip it, keep walking.
			report.Skipped = append(report.Skipped, SkippedItem{
				Kind:   "pull_request",
				Item:   fmt.Sprintf("%s/%s (malformed list element)", owner, name),
				Reason: err.Error(),
			})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate pull requests for %s/%s: %w", owner, name, err)
		}
		if !ok {
			return listed, nil
		}
		listed = append(listed, pr)
	}
}

// fetchPullRequestDetails completes the listed records. Known PRs keep
// their stored size counts unless opts.ForceDetails; unknown PRs whose
// detail fetch fails are skipped entirely so no half-filled record is
// merged.
func (e *Engine) fetchPullRequestDetails(ctx context.Context, owner, name string, listed []model.PullRequest, opts Options, report *Report, logger *slog.Logger) ([]model.PullRequest, error) {
	known := e.store.KnownPullRequestNumbers(owner, name)
	merged := make([]model.PullRequest, 0, len(listed))

	for _, pr := range listed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_, isKnown := known[pr.Number]
		if isKnown && !opts.ForceDetails {
			if stored, ok := e.store.PullRequest(owner, name, pr.Number); ok {
				pr.ApplyDetail(model.PullRequestDetail{
					Commits:      stored.Commits,
					Additions:    stored.Additions,
					Deletions:    stored.Deletions,
					ChangedFiles: stored.ChangedFiles,
				})
			}
			merged = append(merged, pr)
			continue
		}

		detail, err := e.client.GetPullRequestDetail(ctx, owner, name, pr.Number)
		if err != nil {
			logger.Warn("skipping pull request, detail fetch failed", "number", pr.Number, "error", err)
			report.Skipped = append(report.Skipped, SkippedItem{
				Kind:   "pull_request",
				Item:   fmt.Sprintf("%s/%s#%d", owner, name, pr.Number),
				Reason: err.Error(),
			})
			continue
		}
		pr.ApplyDetail(detail)
		merged = append(merged, pr)
	}
	return merged, nil
}

// fetchUserProfiles scrapes each distinct author once. Scraper failures
// never abort the pass; they are recorded and the user keeps prior fields
// (or defaults).
func (e *Engine) fetchUserProfiles(ctx context.Context, merged []model.PullRequest, report *Report, logger *slog.Logger) (map[string]model.Profile, error) {
	profiles := make(map[string]model.Profile)
	for _, login := range authorLogins(merged) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		profile, err := e.profiles.FetchProfile(ctx, login)
		if err != nil {
			logger.Warn("profile unavailable", "login", login, "error", err)
			report.Skipped = append(report.Skipped, SkippedItem{
				Kind:   "user_profile",
				Item:   login,
				Reason: err.Error(),
			})
			continue
		}
		profiles[login] = profile
	}
	return profiles, nil
}

// authorLogins returns the distinct PR author logins in sorted order.
func authorLogins(prs []model.PullRequest) []string {
	seen := make(map[string]struct{})
	var logins []string
	for _, pr := range prs {
		if _, ok := seen[pr.Author]; ok {
			continue
		}
		seen[pr.Author] = struct{}{}
		logins = append(logins, pr.Author)
	}
	sort.Strings(logins)
	return logins
}
