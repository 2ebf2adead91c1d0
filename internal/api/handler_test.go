package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-repo-analyzer/internal/model"
	"github-repo-analyzer/internal/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(store.NewMemDriver(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, st.Load())

	st.UpsertRepository(model.Repository{
		Owner:       "acme",
		Name:        "widgets",
		Description: "makes widgets",
		Stars:       3,
		CollectedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	st.UpsertPullRequest(model.PullRequest{
		Owner: "acme", Name: "widgets", Number: 1, State: "open", Author: "alice",
		Commits: 1, Additions: 10, Deletions: 5, ChangedFiles: 1,
		CreatedAt: created, UpdatedAt: created,
	})
	st.UpsertPullRequest(model.PullRequest{
		Owner: "acme", Name: "widgets", Number: 2, State: "closed", Author: "bob",
		Commits: 3, Additions: 30, Deletions: 2, ChangedFiles: 2,
		CreatedAt: created.Add(time.Hour), UpdatedAt: created.Add(time.Hour),
	})
	st.EnsureUser("alice")
	st.EnsureUser("bob")
	st.RecomputeUserPullRequestCounts()
	return st
}

func doRequest(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(seededStore(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealthCheck(t *testing.T) {
	rr := doRequest(t, "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rr.Body.String())
}

func TestListRepositories(t *testing.T) {
	rr := doRequest(t, "/v1/repos")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var repos []repositoryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &repos))
	require.Len(t, repos, 1)
	assert.Equal(t, "acme", repos[0].Owner)
	assert.Equal(t, "widgets", repos[0].Name)
	assert.Equal(t, 3, repos[0].Stars)
}

func TestListPullRequests(t *testing.T) {
	rr := doRequest(t, "/v1/repos/acme/widgets/pulls")

	require.Equal(t, http.StatusOK, rr.Code)
	var prs []model.PullRequest
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &prs))
	require.Len(t, prs, 2)
	assert.Equal(t, 1, prs[0].Number)
	assert.Equal(t, 2, prs[1].Number)
}

func TestListPullRequests_UnknownRepository(t *testing.T) {
	rr := doRequest(t, "/v1/repos/acme/unknown/pulls")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error": "Repository not found"}`, rr.Body.String())
}

func TestGetSummary(t *testing.T) {
	rr := doRequest(t, "/v1/repos/acme/widgets/summary")

	require.Equal(t, http.StatusOK, rr.Code)
	var summary store.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.OpenCount)
	assert.Equal(t, 1, summary.ClosedCount)
	assert.Equal(t, 2, summary.DistinctUserCount)
}

func TestGetSummary_UnknownRepository(t *testing.T) {
	rr := doRequest(t, "/v1/repos/nobody/nothing/summary")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetPullRequestCorrelation(t *testing.T) {
	rr := doRequest(t, "/v1/repos/acme/widgets/stats/pr-correlation")

	require.Equal(t, http.StatusOK, rr.Code)
	var matrix struct {
		Labels []string    `json:"labels"`
		Values [][]float64 `json:"values"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &matrix))
	assert.Equal(t, []string{"commits", "additions", "deletions", "changed_files"}, matrix.Labels)
	require.Len(t, matrix.Values, 4)
	assert.Equal(t, 1.0, matrix.Values[0][0])
}

func TestGetPullRequestCorrelation_NotEnoughData(t *testing.T) {
	st := store.New(store.NewMemDriver(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, st.Load())
	st.UpsertRepository(model.Repository{Owner: "acme", Name: "empty"})

	router := NewRouter(st, slog.New(slog.NewTextHandler(io.Discard, nil)))
	req := httptest.NewRequest(http.MethodGet, "/v1/repos/acme/empty/stats/pr-correlation", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestListUsers(t *testing.T) {
	rr := doRequest(t, "/v1/users")

	require.Equal(t, http.StatusOK, rr.Code)
	var users []model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Login)
	assert.Equal(t, 1, users[0].PullRequests)
	assert.Equal(t, "bob", users[1].Login)
}
