// Package version holds build metadata and checks for newer releases.
package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Release lookup defaults.
const (
	DefaultReleasesURL = "https://api.github.com/repos/etenda/etenda/releases/latest"
	DefaultTimeout     = 10 * time.Second

	devVersion      = "dev"
	unknown         = "unknown"
	maxErrorBody    = 1024
	maxResponseBody = 64 * 1024
)

// ErrReleaseLookup is returned when the release endpoint answers with an error.
var ErrReleaseLookup = errors.New("release lookup failed")

// Build describes the running binary. Fields are set at link time.
type Build struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// String renders "v1.2.3 (commit: abc1234, built: 2026-01-15)".
func (b Build) String() string {
	v, c, d := b.Version, b.Commit, b.Date
	if v == "" {
		v = devVersion
	}
	if c == "" {
		c = unknown
	}
	if d == "" {
		d = unknown
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// IsDev reports whether b is an untagged build.
func (b Build) IsDev() bool {
	v := strings.TrimPrefix(b.Version, "v")
	return v == "" || v == devVersion || isCommitHash(v)
}

// Release is the part of a release record the checker reads.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	URL         string    `json:"html_url"`
}

// Checker looks up the latest published release.
type Checker struct {
	url       string
	http      *http.Client
	userAgent string
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithReleasesURL points the checker at another endpoint.
func WithReleasesURL(url string) CheckerOption {
	return func(c *Checker) { c.url = url }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) CheckerOption {
	return func(c *Checker) { c.http = hc }
}

// NewChecker returns a checker identifying itself as build.
func NewChecker(build Build, opts ...CheckerOption) *Checker {
	v := build.Version
	if v == "" {
		v = devVersion
	}
	c := &Checker{
		url:       DefaultReleasesURL,
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: fmt.Sprintf("etenda/%s (%s/%s)", v, runtime.GOOS, runtime.GOARCH),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Latest fetches the latest release.
func (c *Checker) Latest(ctx context.Context) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.http.Do(req) //nolint:gosec // URL comes from configuration, not user input
	if err != nil {
		return nil, fmt.Errorf("fetching release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrReleaseLookup, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var r Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding release: %w", err)
	}
	return &r, nil
}

// Compare orders two versions: 1 when a is newer, -1 when b is, 0 when
// equal. Development builds sort before every release.
func Compare(a, b string) int {
	aDev := Build{Version: a}.IsDev()
	bDev := Build{Version: b}.IsDev()
	switch {
	case aDev && bDev:
		return 0
	case aDev:
		return -1
	case bDev:
		return 1
	}

	pa, pb := parts(a), parts(b)
	for i := 0; i < 3; i++ {
		if pa[i] != pb[i] {
			if pa[i] > pb[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// IsNewer reports whether latest is newer than current.
func IsNewer(current, latest string) bool {
	return Compare(latest, current) > 0
}

// parts returns major, minor and patch, ignoring pre-release and build suffixes.
func parts(v string) [3]int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+"); i != -1 {
		v = v[:i]
	}
	var out [3]int
	for i, p := range strings.SplitN(v, ".", 3) {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		out[i] = n
	}
	return out
}

// isCommitHash matches 7-40 hex characters with at least one letter, so
// "1234567" stays a version.
func isCommitHash(s string) bool {
	s = strings.TrimSuffix(s, "-dirty")
	if len(s) < 7 || len(s) > 40 {
		return false
	}
	letter := false
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
			letter = true
		default:
			return false
		}
	}
	return letter
}
