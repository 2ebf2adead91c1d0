// Package api exposes the loaded store over a small read-only HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github-repo-analyzer/internal/analysis"
	apperrors "github-repo-analyzer/internal/errors"
	"github-repo-analyzer/internal/store"
)

// Handler is the container for API dependencies.
type Handler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
// The store must already be loaded; the routes never mutate it.
func NewRouter(st *store.Store, logger *slog.Logger) http.Handler {
	h := &Handler{
		store:  st,
		logger: logger,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/repos", h.listRepositories)
		r.Get("/repos/{owner}/{name}/pulls", h.listPullRequests)
		r.Get("/repos/{owner}/{name}/summary", h.getSummary)
		r.Get("/repos/{owner}/{name}/stats/pr-correlation", h.getPullRequestCorrelation)
		r.Get("/users", h.listUsers)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /v1/repos
func (h *Handler) listRepositories(w http.ResponseWriter, r *http.Request) {
	repos := h.store.Repositories()
	out := make([]repositoryResponse, 0, len(repos))
	for _, repo := range repos {
		out = append(out, repositoryResponse{
			Owner:       repo.Owner,
			Name:        repo.Name,
			Description: repo.Description,
			Homepage:    repo.Homepage,
			LicenseKey:  repo.License.Key,
			LicenseName: repo.License.Name,
			Forks:       repo.Forks,
			Watchers:    repo.Watchers,
			Stars:       repo.Stars,
			CollectedAt: repo.CollectedAt,
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

// GET /v1/repos/{owner}/{name}/pulls
func (h *Handler) listPullRequests(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "name")

	if _, err := h.store.Summary(owner, name); err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, h.store.PullRequests(owner, name))
}

// GET /v1/repos/{owner}/{name}/summary
func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "name")

	summary, err := h.store.Summary(owner, name)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// GET /v1/repos/{owner}/{name}/stats/pr-correlation
func (h *Handler) getPullRequestCorrelation(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "name")

	if _, err := h.store.Summary(owner, name); err != nil {
		h.respondStoreError(w, err)
		return
	}

	matrix, err := analysis.PullRequestCorrelation(h.store.PullRequests(owner, name))
	if err != nil {
		if errors.Is(err, analysis.ErrNotEnoughData) {
			respondWithError(w, http.StatusUnprocessableEntity, "Not enough pull request data for correlation")
			return
		}
		h.logger.Error("failed to compute correlation", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, matrix)
}

// GET /v1/users
func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.store.Users())
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, apperrors.ErrRepositoryNotFound) {
		respondWithError(w, http.StatusNotFound, "Repository not found")
		return
	}
	h.logger.Error("store read failed", "error", err)
	respondWithError(w, http.StatusInternalServerError, "Internal server error")
}

type repositoryResponse struct {
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Homepage    string    `json:"homepage,omitempty"`
	LicenseKey  string    `json:"license_key,omitempty"`
	LicenseName string    `json:"license_name,omitempty"`
	Forks       int       `json:"forks"`
	Watchers    int       `json:"watchers"`
	Stars       int       `json:"stars"`
	CollectedAt time.Time `json:"collected_at"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}
