package store

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github-repo-analyzer/internal/errors"
	"github-repo-analyzer/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRepository(stars int) model.Repository {
	return model.Repository{
		Owner:       "acme",
		Name:        "widgets",
		Description: "makes widgets",
		License:     model.License{Key: "mit", Name: "MIT License"},
		Forks:       2,
		Watchers:    4,
		Stars:       stars,
		CollectedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testPullRequest(number int, author, state string) model.PullRequest {
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(number) * time.Hour)
	return model.PullRequest{
		Owner:     "acme",
		Name:      "widgets",
		Number:    number,
		Title:     "change",
		State:     state,
		Author:    author,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestStore_LoadMissingTables(t *testing.T) {
	s := New(NewMemDriver(), testLogger())

	require.NoError(t, s.Load())

	assert.Empty(t, s.Repositories())
	assert.Empty(t, s.Users())
	assert.Zero(t, s.SkippedRows())
}

func TestStore_UpsertRepository(t *testing.T) {
	s := New(NewMemDriver(), testLogger())

	created := s.UpsertRepository(testRepository(3))
	assert.True(t, created)

	// Same identity with a new star count updates in place.
	created = s.UpsertRepository(testRepository(5))
	assert.False(t, created)

	repos := s.Repositories()
	require.Len(t, repos, 1)
	assert.Equal(t, 5, repos[0].Stars)
}

func TestStore_UpsertPullRequest(t *testing.T) {
	s := New(NewMemDriver(), testLogger())

	created := s.UpsertPullRequest(testPullRequest(7, "alice", "open"))
	assert.True(t, created)

	// The PR closes upstream; the refresh keeps the same identity.
	closedAt := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	pr := testPullRequest(7, "alice", "closed")
	pr.ClosedAt = &closedAt
	created = s.UpsertPullRequest(pr)
	assert.False(t, created)

	prs := s.PullRequests("acme", "widgets")
	require.Len(t, prs, 1)
	assert.Equal(t, "closed", prs[0].State)
	require.NotNil(t, prs[0].ClosedAt)
	assert.Equal(t, closedAt, *prs[0].ClosedAt)
}

func TestStore_RecomputeUserPullRequestCounts(t *testing.T) {
	s := New(NewMemDriver(), testLogger())

	s.UpsertPullRequest(testPullRequest(1, "alice", "open"))
	s.UpsertPullRequest(testPullRequest(2, "alice", "closed"))
	s.UpsertPullRequest(testPullRequest(3, "bob", "open"))
	s.EnsureUser("alice")
	s.EnsureUser("bob")
	s.EnsureUser("carol")

	s.RecomputeUserPullRequestCounts()

	alice, ok := s.User("alice")
	require.True(t, ok)
	assert.Equal(t, 2, alice.PullRequests)
	bob, _ := s.User("bob")
	assert.Equal(t, 1, bob.PullRequests)
	carol, _ := s.User("carol")
	assert.Equal(t, 0, carol.PullRequests)

	// Re-upserting the same PRs must not inflate the counts.
	s.UpsertPullRequest(testPullRequest(1, "alice", "open"))
	s.RecomputeUserPullRequestCounts()
	alice, _ = s.User("alice")
	assert.Equal(t, 2, alice.PullRequests)
}

func TestStore_UpsertUserKeepsDerivedCount(t *testing.T) {
	s := New(NewMemDriver(), testLogger())

	s.UpsertPullRequest(testPullRequest(1, "alice", "open"))
	s.EnsureUser("alice")
	s.RecomputeUserPullRequestCounts()

	created := s.UpsertUser("alice", model.Profile{PublicRepos: 10, Followers: 20})
	assert.False(t, created)

	alice, _ := s.User("alice")
	assert.Equal(t, 10, alice.PublicRepos)
	assert.Equal(t, 20, alice.Followers)
	assert.Equal(t, 1, alice.PullRequests, "profile refresh must not clear the derived count")
}

func TestStore_PersistAndReload(t *testing.T) {
	driver := NewMemDriver()
	s := New(driver, testLogger())

	s.UpsertRepository(testRepository(3))
	s.UpsertPullRequest(testPullRequest(1, "alice", "open"))
	s.UpsertPullRequest(testPullRequest(2, "bob", "closed"))
	s.EnsureUser("alice")
	s.EnsureUser("bob")
	s.RecomputeUserPullRequestCounts()
	require.NoError(t, s.Persist())

	reloaded := New(driver, testLogger())
	require.NoError(t, reloaded.Load())

	assert.Equal(t, s.Repositories(), reloaded.Repositories())
	assert.Equal(t, s.PullRequests("acme", "widgets"), reloaded.PullRequests("acme", "widgets"))
	assert.Equal(t, s.Users(), reloaded.Users())
	assert.Zero(t, reloaded.SkippedRows())
}

func TestStore_PersistFailure(t *testing.T) {
	driver := NewMemDriver()
	driver.FailWrite = errors.New("disk full")
	s := New(driver, testLogger())
	s.UpsertRepository(testRepository(3))

	err := s.Persist()

	var perr *apperrors.PersistError
	require.ErrorAs(t, err, &perr)

	// The driver must be untouched so the previous generation survives.
	records, rerr := driver.ReadTable("repositories")
	require.NoError(t, rerr)
	assert.Empty(t, records)
}

func TestStore_LoadSkipsCorruptRows(t *testing.T) {
	driver := NewMemDriver()
	good := testRepository(3)
	other := testRepository(1)
	other.Name = "gears"
	require.NoError(t, driver.WriteTables(map[string][][]string{
		"repositories": {
			model.RepositoryRowHeader(),
			good.Row(),
			{"acme", "broken"}, // wrong arity
			other.Row(),
		},
	}))

	s := New(driver, testLogger())
	require.NoError(t, s.Load())

	assert.Equal(t, 1, s.SkippedRows())
	assert.Len(t, s.Repositories(), 2)
}

func TestStore_Summary(t *testing.T) {
	s := New(NewMemDriver(), testLogger())
	s.UpsertRepository(testRepository(3))
	s.UpsertPullRequest(testPullRequest(1, "alice", "open"))
	s.UpsertPullRequest(testPullRequest(2, "alice", "closed"))
	s.UpsertPullRequest(testPullRequest(3, "bob", "closed"))

	summary, err := s.Summary("acme", "widgets")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.OpenCount)
	assert.Equal(t, 2, summary.ClosedCount)
	assert.Equal(t, 2, summary.DistinctUserCount)
	require.NotNil(t, summary.OldestPullRequest)
	assert.Equal(t, testPullRequest(1, "alice", "open").CreatedAt, *summary.OldestPullRequest)

	_, err = s.Summary("acme", "unknown")
	assert.ErrorIs(t, err, apperrors.ErrRepositoryNotFound)
}

func TestFileDriver_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	driver := NewFileDriver(dir)
	s := New(driver, testLogger())

	s.UpsertRepository(testRepository(3))
	s.UpsertPullRequest(testPullRequest(1, "alice", "open"))
	s.EnsureUser("alice")
	s.RecomputeUserPullRequestCounts()
	require.NoError(t, s.Persist())

	tables, err := driver.Tables()
	require.NoError(t, err)
	assert.Contains(t, tables, "repositories")
	assert.Contains(t, tables, "users")
	assert.Contains(t, tables, "pulls/acme-widgets")

	reloaded := New(NewFileDriver(dir), testLogger())
	require.NoError(t, reloaded.Load())
	assert.Equal(t, s.Repositories(), reloaded.Repositories())
	assert.Equal(t, s.PullRequests("acme", "widgets"), reloaded.PullRequests("acme", "widgets"))
	assert.Equal(t, s.Users(), reloaded.Users())
}

func TestFileDriver_ReadMissingTable(t *testing.T) {
	driver := NewFileDriver(t.TempDir())

	records, err := driver.ReadTable("repositories")
	require.NoError(t, err)
	assert.Nil(t, records)
}
