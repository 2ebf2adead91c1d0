// Package scraper extracts contributor statistics from public profile
// pages. The page layout is an external contract that changes without
// notice, so every extraction has fallbacks and failures surface as
// ErrProfileUnavailable rather than aborting a collection pass.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperrors "github-repo-analyzer/internal/errors"
	"github-repo-analyzer/internal/model"
)

const defaultBaseURL = "https://github.com"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

var (
	approxNumberRe  = regexp.MustCompile(`[\d.,]+\s*[km]?`)
	contributionsRe = regexp.MustCompile(`([\d,]+)\s+contributions?`)
)

// Scraper fetches and parses public profile pages.
type Scraper struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// New creates a Scraper against the public site.
func New(logger *slog.Logger) *Scraper {
	return &Scraper{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		logger:     logger,
	}
}

// FetchProfile retrieves follower/following/repository/contribution counts
// for a login. It returns ErrProfileUnavailable when the page is missing or
// none of the known markup patterns match.
func (s *Scraper) FetchProfile(ctx context.Context, login string) (model.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+login, nil)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return model.Profile{}, fmt.Errorf("%w: %v", apperrors.ErrProfileUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Profile{}, fmt.Errorf("%w: profile page for %q returned status %d",
			apperrors.ErrProfileUnavailable, login, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return model.Profile{}, fmt.Errorf("%w: %v", apperrors.ErrProfileUnavailable, err)
	}

	var profile model.Profile
	matched := 0
	if n, ok := extractRepositories(doc); ok {
		profile.PublicRepos = n
		matched++
	}
	if n, ok := extractSocialCount(doc, "followers"); ok {
		profile.Followers = n
		matched++
	}
	if n, ok := extractSocialCount(doc, "following"); ok {
		profile.Following = n
		matched++
	}
	if n, ok := extractContributions(doc); ok {
		profile.Contributions = n
		matched++
	}

	if matched == 0 {
		return model.Profile{}, fmt.Errorf("%w: no known markup pattern matched for %q",
			apperrors.ErrProfileUnavailable, login)
	}
	if matched < 4 {
		s.logger.Debug("profile page only partially parsed", "login", login, "matched", matched)
	}
	return profile, nil
}

// extractRepositories reads the repository count from the profile tab bar.
func extractRepositories(doc *goquery.Document) (int, bool) {
	selectors := []string{
		`a[data-tab-item="repositories"] span.Counter`,
		`a[href$="tab=repositories"] span.Counter`,
		`nav a[href*="repositories"] span.Counter`,
	}
	for _, sel := range selectors {
		if text := firstText(doc, sel); text != "" {
			return parseApproxNumber(text), true
		}
	}
	return 0, false
}

// extractSocialCount reads the follower or following count, trying the
// bolded count span first, then a number anywhere in the link text.
func extractSocialCount(doc *goquery.Document, tab string) (int, bool) {
	link := doc.Find(fmt.Sprintf(`a[href$="tab=%s"]`, tab)).First()
	if link.Length() == 0 {
		return 0, false
	}
	if bold := strings.TrimSpace(link.Find("span.text-bold").First().Text()); bold != "" {
		return parseApproxNumber(bold), true
	}
	if m := approxNumberRe.FindString(strings.ToLower(link.Text())); strings.TrimSpace(m) != "" {
		return parseApproxNumber(m), true
	}
	return 0, false
}

// extractContributions reads the yearly contribution heading.
func extractContributions(doc *goquery.Document) (int, bool) {
	headings := []string{"h2.f4", "div.js-yearly-contributions h2"}
	for _, sel := range headings {
		found := -1
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if m := contributionsRe.FindStringSubmatch(s.Text()); m != nil {
				n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
				if err == nil {
					found = n
					return false
				}
			}
			return true
		})
		if found >= 0 {
			return found, true
		}
	}
	return 0, false
}

func firstText(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

// parseApproxNumber parses counts as the profile page displays them:
// "42", "1,234", "1.2k", "3m".
func parseApproxNumber(text string) int {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(text, "k"):
		multiplier = 1_000
		text = strings.TrimSuffix(text, "k")
	case strings.HasSuffix(text, "m"):
		multiplier = 1_000_000
		text = strings.TrimSuffix(text, "m")
	}

	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return int(n * multiplier)
}
