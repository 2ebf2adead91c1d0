package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	apperrors "github-repo-analyzer/internal/errors"
	"github-repo-analyzer/internal/model"
)

const (
	repositoriesTable = "repositories"
	usersTable        = "users"
	pullTablePrefix   = "pulls/"
)

// Store holds the three entity tables in memory between Load and Persist.
// It is not safe for concurrent mutation; one collection pass owns it at a
// time.
type Store struct {
	driver Driver
	logger *slog.Logger

	repos map[string]model.Repository          // keyed by owner/name
	pulls map[string]map[int]model.PullRequest // keyed by owner/name, then number
	users map[string]model.User                // keyed by login

	skippedRows int
}

// Summary aggregates the stored pull requests of one repository.
type Summary struct {
	OpenCount         int        `json:"open_count"`
	ClosedCount       int        `json:"closed_count"`
	DistinctUserCount int        `json:"distinct_user_count"`
	OldestPullRequest *time.Time `json:"oldest_pull_request,omitempty"`
}

// New creates an empty store over the given driver. Call Load before
// merging to pick up previously collected data.
func New(driver Driver, logger *slog.Logger) *Store {
	return &Store{
		driver: driver,
		logger: logger,
		repos:  make(map[string]model.Repository),
		pulls:  make(map[string]map[int]model.PullRequest),
		users:  make(map[string]model.User),
	}
}

func repoKey(owner, name string) string { return owner + "/" + name }

func pullTableName(owner, name string) string {
	return pullTablePrefix + owner + "-" + name
}

// Load reads all three logical tables. Missing tables are empty, not
// errors. Individual rows that fail to decode are skipped and counted;
// the count is available via SkippedRows.
func (s *Store) Load() error {
	s.repos = make(map[string]model.Repository)
	s.pulls = make(map[string]map[int]model.PullRequest)
	s.users = make(map[string]model.User)
	s.skippedRows = 0

	records, err := s.driver.ReadTable(repositoriesTable)
	if err != nil {
		return err
	}
	for _, row := range dataRows(records, model.RepositoryRowHeader()) {
		repo, err := model.RepositoryFromRow(row)
		if err != nil {
			s.skipRow(repositoriesTable, err)
			continue
		}
		s.repos[repoKey(repo.Owner, repo.Name)] = repo
	}

	records, err = s.driver.ReadTable(usersTable)
	if err != nil {
		return err
	}
	for _, row := range dataRows(records, model.UserRowHeader()) {
		user, err := model.UserFromRow(row)
		if err != nil {
			s.skipRow(usersTable, err)
			continue
		}
		s.users[user.Login] = user
	}

	tables, err := s.driver.Tables()
	if err != nil {
		return err
	}
	for _, table := range tables {
		if !strings.HasPrefix(table, pullTablePrefix) {
			continue
		}
		records, err := s.driver.ReadTable(table)
		if err != nil {
			return err
		}
		for _, row := range dataRows(records, model.PullRequestRowHeader()) {
			pr, err := model.PullRequestFromRow(row)
			if err != nil {
				s.skipRow(table, err)
				continue
			}
			s.insertPull(pr)
		}
	}

	if s.skippedRows > 0 {
		s.logger.Warn("skipped corrupt rows during load", "count", s.skippedRows)
	}
	return nil
}

func (s *Store) skipRow(table string, err error) {
	s.skippedRows++
	s.logger.Warn("skipping corrupt row", "table", table, "error", err)
}

// dataRows strips the header row when present. A file whose first row is
// not the expected header is treated as all data; malformed rows are
// caught at decode time.
func dataRows(records [][]string, header []string) [][]string {
	if len(records) > 0 && equalRow(records[0], header) {
		return records[1:]
	}
	return records
}

func equalRow(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *Store) insertPull(pr model.PullRequest) {
	key := repoKey(pr.Owner, pr.Name)
	if s.pulls[key] == nil {
		s.pulls[key] = make(map[int]model.PullRequest)
	}
	s.pulls[key][pr.Number] = pr
}

// SkippedRows reports how many persisted rows the last Load discarded as
// corrupt.
func (s *Store) SkippedRows() int { return s.skippedRows }

// UpsertRepository inserts the repository or, when the identity already
// exists, overwrites every non-identity field. It reports whether a new
// record was created.
func (s *Store) UpsertRepository(repo model.Repository) bool {
	key := repoKey(repo.Owner, repo.Name)
	_, exists := s.repos[key]
	s.repos[key] = repo
	return !exists
}

// UpsertPullRequest inserts the pull request or refreshes the mutable
// fields of an existing record with the same identity. It reports whether
// a new record was created.
func (s *Store) UpsertPullRequest(pr model.PullRequest) bool {
	key := repoKey(pr.Owner, pr.Name)
	_, exists := s.pulls[key][pr.Number]
	s.insertPull(pr)
	return !exists
}

// KnownPullRequestNumbers returns the set of PR numbers already stored for
// a repository. The synchronization engine uses it to skip the expensive
// per-PR detail fetch for records it already has.
func (s *Store) KnownPullRequestNumbers(owner, name string) map[int]struct{} {
	known := make(map[int]struct{}, len(s.pulls[repoKey(owner, name)]))
	for number := range s.pulls[repoKey(owner, name)] {
		known[number] = struct{}{}
	}
	return known
}

// PullRequest returns a stored pull request by identity.
func (s *Store) PullRequest(owner, name string, number int) (model.PullRequest, bool) {
	pr, ok := s.pulls[repoKey(owner, name)][number]
	return pr, ok
}

// EnsureUser creates a zero-valued user record for a login if none exists,
// leaving an existing record untouched. It reports whether a new record
// was created.
func (s *Store) EnsureUser(login string) bool {
	if _, exists := s.users[login]; exists {
		return false
	}
	s.users[login] = model.User{Login: login}
	return true
}

// UpsertUser inserts or updates the profile fields of a user. The derived
// pull request count is not touched here; call
// RecomputeUserPullRequestCounts after the merge batch.
func (s *Store) UpsertUser(login string, profile model.Profile) bool {
	user, exists := s.users[login]
	user.Login = login
	user.PublicRepos = profile.PublicRepos
	user.Followers = profile.Followers
	user.Following = profile.Following
	user.Contributions = profile.Contributions
	s.users[login] = user
	return !exists
}

// RecomputeUserPullRequestCounts rebuilds every user's derived PR count
// from the currently stored pull request rows. It runs after every merge
// batch so the field can never drift from the PR tables.
func (s *Store) RecomputeUserPullRequestCounts() {
	counts := make(map[string]int)
	for _, byNumber := range s.pulls {
		for _, pr := range byNumber {
			counts[pr.Author]++
		}
	}
	for login, user := range s.users {
		user.PullRequests = counts[login]
		s.users[login] = user
	}
}

// Persist writes all three tables back to the driver as a group.
func (s *Store) Persist() error {
	tables := map[string][][]string{
		repositoriesTable: s.repositoryRecords(),
		usersTable:        s.userRecords(),
	}
	for key, byNumber := range s.pulls {
		if len(byNumber) == 0 {
			continue
		}
		owner, name, _ := strings.Cut(key, "/")
		tables[pullTableName(owner, name)] = pullRecords(byNumber)
	}

	if err := s.driver.WriteTables(tables); err != nil {
		var perr *apperrors.PersistError
		if errors.As(err, &perr) {
			return err
		}
		return &apperrors.PersistError{Table: "(group)", Cause: err}
	}
	return nil
}

func (s *Store) repositoryRecords() [][]string {
	records := [][]string{model.RepositoryRowHeader()}
	for _, repo := range s.Repositories() {
		records = append(records, repo.Row())
	}
	return records
}

func (s *Store) userRecords() [][]string {
	records := [][]string{model.UserRowHeader()}
	for _, user := range s.Users() {
		records = append(records, user.Row())
	}
	return records
}

func pullRecords(byNumber map[int]model.PullRequest) [][]string {
	numbers := make([]int, 0, len(byNumber))
	for n := range byNumber {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	records := [][]string{model.PullRequestRowHeader()}
	for _, n := range numbers {
		records = append(records, byNumber[n].Row())
	}
	return records
}

// Summary computes aggregate counts over the stored pull requests of one
// repository. It is a pure read.
func (s *Store) Summary(owner, name string) (Summary, error) {
	key := repoKey(owner, name)
	if _, ok := s.repos[key]; !ok {
		return Summary{}, fmt.Errorf("%w: %s", apperrors.ErrRepositoryNotFound, key)
	}

	var summary Summary
	authors := make(map[string]struct{})
	for _, pr := range s.pulls[key] {
		switch pr.State {
		case "open":
			summary.OpenCount++
		case "closed":
			summary.ClosedCount++
		}
		authors[pr.Author] = struct{}{}
		created := pr.CreatedAt
		if summary.OldestPullRequest == nil || created.Before(*summary.OldestPullRequest) {
			summary.OldestPullRequest = &created
		}
	}
	summary.DistinctUserCount = len(authors)
	return summary, nil
}

// Repositories returns all stored repositories sorted by full name.
func (s *Store) Repositories() []model.Repository {
	repos := make([]model.Repository, 0, len(s.repos))
	for _, repo := range s.repos {
		repos = append(repos, repo)
	}
	sort.Slice(repos, func(i, j int) bool {
		return repos[i].FullName() < repos[j].FullName()
	})
	return repos
}

// PullRequests returns the stored pull requests of one repository sorted
// by number.
func (s *Store) PullRequests(owner, name string) []model.PullRequest {
	byNumber := s.pulls[repoKey(owner, name)]
	prs := make([]model.PullRequest, 0, len(byNumber))
	for _, pr := range byNumber {
		prs = append(prs, pr)
	}
	sort.Slice(prs, func(i, j int) bool { return prs[i].Number < prs[j].Number })
	return prs
}

// AllPullRequests returns every stored pull request across repositories.
func (s *Store) AllPullRequests() []model.PullRequest {
	var prs []model.PullRequest
	for _, byNumber := range s.pulls {
		for _, pr := range byNumber {
			prs = append(prs, pr)
		}
	}
	sort.Slice(prs, func(i, j int) bool {
		if prs[i].Owner != prs[j].Owner {
			return prs[i].Owner < prs[j].Owner
		}
		if prs[i].Name != prs[j].Name {
			return prs[i].Name < prs[j].Name
		}
		return prs[i].Number < prs[j].Number
	})
	return prs
}

// Users returns all stored users sorted by login.
func (s *Store) Users() []model.User {
	users := make([]model.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Login < users[j].Login })
	return users
}

// User returns a stored user by login.
func (s *Store) User(login string) (model.User, bool) {
	user, ok := s.users[login]
	return user, ok
}
