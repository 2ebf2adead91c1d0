// Package github wraps the go-github client behind the operations the
// synchronization engine needs: repository metadata, the paginated pull
// request list and the per-PR detail fetch.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	apperrors "github-repo-analyzer/internal/errors"
	"github-repo-analyzer/internal/model"
)

const (
	perPage = 100

	// maxAttempts bounds the retry budget for transient failures
	// (timeouts, 5xx). Rate limits follow their own protocol: wait for
	// the reset, then retry the identical request exactly once.
	maxAttempts = 3

	requestTimeout = 30 * time.Second

	initialRetryInterval = 200 * time.Millisecond
)

// Client is a wrapper around the go-github client.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance. The token is
// optional; when present it raises the remote rate-limit ceiling but does
// not change the retry protocol.
func NewClient(token string, logger *slog.Logger) (*Client, error) {
	waiter, err := github_ratelimit.NewRateLimitWaiter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	var transport http.RoundTripper = waiter
	if token != "" {
		transport = &oauth2.Transport{
			Base:   waiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		}
	}

	httpClient := &http.Client{
		Timeout:   requestTimeout,
		Transport: transport,
	}

	return &Client{
		gh:     github.NewClient(httpClient),
		logger: logger,
	}, nil
}

// GetRepository fetches repository metadata and translates it to the
// internal model.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (model.Repository, error) {
	var repo *github.Repository
	err := c.call(ctx, func(ctx context.Context) error {
		r, _, err := c.gh.Repositories.Get(ctx, owner, name)
		if err != nil {
			return err
		}
		repo = r
		return nil
	})
	if err != nil {
		return model.Repository{}, err
	}
	return model.RepositoryFromGitHub(repo, time.Now())
}

// GetPullRequestDetail fetches the per-PR fields the list endpoint omits.
// This is the dominant cost of a collection pass.
func (c *Client) GetPullRequestDetail(ctx context.Context, owner, name string, number int) (model.PullRequestDetail, error) {
	var pr *github.PullRequest
	err := c.call(ctx, func(ctx context.Context) error {
		p, _, err := c.gh.PullRequests.Get(ctx, owner, name, number)
		if err != nil {
			return err
		}
		pr = p
		return nil
	})
	if err != nil {
		return model.PullRequestDetail{}, err
	}
	return model.DetailFromGitHub(pr)
}

// PullRequests returns a lazy walk over every pull request of the
// repository, open and closed. Each call starts a fresh walk from page 1.
func (c *Client) PullRequests(owner, name string) *PullRequestPages {
	return &PullRequestPages{
		client:   c,
		owner:    owner,
		name:     name,
		nextPage: 1,
	}
}

// PullRequestPages walks the paginated pull request list one item at a
// time, fetching pages on demand. It is finite and not safe for concurrent
// use.
type PullRequestPages struct {
	client *Client
	owner  string
	name   string

	nextPage int
	done     bool
	buf      []*github.PullRequest
}

// Next returns the next pull request in the walk. The second return value
// is false once the walk is exhausted. A malformed list element yields an
// error for that element only; the walk continues past it.
func (it *PullRequestPages) Next(ctx context.Context) (model.PullRequest, bool, error) {
	for len(it.buf) == 0 && !it.done {
		if err := it.fetchPage(ctx); err != nil {
			return model.PullRequest{}, false, err
		}
	}
	if len(it.buf) == 0 {
		return model.PullRequest{}, false, nil
	}

	raw := it.buf[0]
	it.buf = it.buf[1:]

	pr, err := model.PullRequestFromGitHub(it.owner, it.name, raw)
	if err != nil {
		return model.PullRequest{}, true, err
	}
	return pr, true, nil
}

func (it *PullRequestPages) fetchPage(ctx context.Context) error {
	opts := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{Page: it.nextPage, PerPage: perPage},
	}

	var page []*github.PullRequest
	var resp *github.Response
	err := it.client.call(ctx, func(ctx context.Context) error {
		p, r, err := it.client.gh.PullRequests.List(ctx, it.owner, it.name, opts)
		if err != nil {
			return err
		}
		page, resp = p, r
		return nil
	})
	if err != nil {
		return err
	}

	it.client.logger.Debug("fetched pull request page",
		"owner", it.owner, "repo", it.name, "page", it.nextPage, "items", len(page))

	it.buf = append(it.buf, page...)
	if resp.NextPage == 0 {
		it.done = true
	} else {
		it.nextPage = resp.NextPage
	}
	return nil
}

// call runs one logical request with the full failure policy: transient
// errors get the bounded backoff budget, a rate-limit signal suspends the
// caller until the limiter's reset and then retries exactly once.
func (c *Client) call(ctx context.Context, fn func(ctx context.Context) error) error {
	err := c.callWithBackoff(ctx, fn)

	if reset, limited := rateLimitReset(err); limited {
		c.logger.Warn("rate limited, waiting for reset", "reset_at", reset)
		if werr := sleepUntil(ctx, reset); werr != nil {
			return werr
		}
		err = c.callWithBackoff(ctx, fn)
		if reset, limited := rateLimitReset(err); limited {
			return &apperrors.RateLimitedError{ResetAt: reset}
		}
	}

	return mapRemoteError(err)
}

// callWithBackoff retries transient failures with exponential backoff up to
// maxAttempts total attempts. Everything else surfaces immediately.
func (c *Client) callWithBackoff(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := 0
	op := func() error {
		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if isTransient(err) {
			c.logger.Debug("transient fetch failure, will retry", "attempt", attempts, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialRetryInterval
	bo.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxAttempts-1), ctx))
	if err != nil && isTransient(err) {
		return &apperrors.TransientError{Attempts: attempts, Cause: err}
	}
	return err
}

// isTransient reports whether the error is worth a retry: a transport
// failure or a 5xx response. Rate limits and context cancellation are
// handled separately.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rle *github.RateLimitError
	var arle *github.AbuseRateLimitError
	if errors.As(err, &rle) || errors.As(err, &arle) {
		return false
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		return ghErr.Response != nil && ghErr.Response.StatusCode >= http.StatusInternalServerError
	}
	// Anything that never produced an HTTP status is a transport failure.
	return true
}

// rateLimitReset extracts the limiter's reset instant from either primary
// or secondary rate-limit errors.
func rateLimitReset(err error) (time.Time, bool) {
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return rle.Rate.Reset.Time, true
	}
	var arle *github.AbuseRateLimitError
	if errors.As(err, &arle) {
		return time.Now().Add(arle.GetRetryAfter()), true
	}
	return time.Time{}, false
}

// mapRemoteError translates terminal remote statuses into the shared error
// taxonomy.
func mapRemoteError(err error) error {
	if err == nil {
		return nil
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", apperrors.ErrNotFound, ghErr.Message)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", apperrors.ErrAuthRequired, ghErr.Message)
		}
	}
	return err
}

func sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
