// Package version checks the running bot against published release metadata:
// constraint matching for plugin compatibility gates, plus HTTP fetchers for
// the latest release and the latest fork commit.
package version

import (
	"context"
	"fmt"
	"time"

	goversion "github.com/hashicorp/go-version"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	internalhttp "github.com/finchbot/botkit/internal/http"
)

// Default endpoints queried by a zero-option Checker.
const (
	DefaultReleaseURL = "https://releases.finchbot.dev/finch/latest.json"
	DefaultCommitsURL = "https://api.github.com/repos/finchbot/finch/commits"
)

// ReleaseInfo is the published metadata for the newest release
type ReleaseInfo struct {
	Version    *goversion.Version
	RequiresGo string
}

// ForkCommit identifies the most recent commit on the tracked fork
type ForkCommit struct {
	SHA       string
	Committed time.Time
}

// Expected reports whether current satisfies constraint, e.g.
// Expected("3.5.1", ">= 3.5.0, < 4.0.0").
func Expected(current, constraint string) (bool, error) {
	v, err := goversion.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", current, err)
	}
	c, err := goversion.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid constraint %q: %w", constraint, err)
	}
	return c.Check(v), nil
}

// Checker fetches release and fork-update metadata.
type Checker struct {
	client     *internalhttp.Client
	releaseURL string
	commitsURL string
	logger     *zap.Logger
}

// Option configures a Checker
type Option func(*Checker)

// WithReleaseURL overrides the release metadata endpoint.
func WithReleaseURL(url string) Option {
	return func(c *Checker) { c.releaseURL = url }
}

// WithCommitsURL overrides the fork commits endpoint.
func WithCommitsURL(url string) Option {
	return func(c *Checker) { c.commitsURL = url }
}

// WithHTTPClient replaces the default retrying client.
func WithHTTPClient(client *internalhttp.Client) Option {
	return func(c *Checker) { c.client = client }
}

// WithTokenSource routes requests through an authenticating transport, for
// GitHub API calls that would otherwise hit anonymous rate limits.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Checker) {
		c.client = internalhttp.NewClient(internalhttp.Config{
			BaseClient: oauth2.NewClient(context.Background(), ts),
		})
	}
}

// WithLogger sets the logger used for fetch reporting.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Checker) { c.logger = logger }
}

// NewChecker creates a Checker with the default endpoints and client unless
// overridden.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		releaseURL: DefaultReleaseURL,
		commitsURL: DefaultCommitsURL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = internalhttp.NewClient(internalhttp.Config{})
	}
	return c
}

// releaseDocument is the wire shape of the release endpoint
type releaseDocument struct {
	Version    string `json:"version"`
	RequiresGo string `json:"requires_go"`
}

// LatestRelease fetches and parses the newest release metadata.
func (c *Checker) LatestRelease(ctx context.Context) (*ReleaseInfo, error) {
	var doc releaseDocument
	if err := c.client.GetJSON(ctx, c.releaseURL, &doc); err != nil {
		return nil, fmt.Errorf("failed to fetch release info: %w", err)
	}

	v, err := goversion.NewVersion(doc.Version)
	if err != nil {
		return nil, fmt.Errorf("release endpoint returned invalid version %q: %w", doc.Version, err)
	}

	c.logger.Debug("fetched latest release",
		zap.String("version", v.String()),
		zap.String("requires_go", doc.RequiresGo))
	return &ReleaseInfo{Version: v, RequiresGo: doc.RequiresGo}, nil
}

// commitDocument matches the GitHub commits list API shape
type commitDocument struct {
	SHA    string `json:"sha"`
	Commit struct {
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

// LatestForkCommit fetches the most recent commit on the tracked fork.
func (c *Checker) LatestForkCommit(ctx context.Context) (*ForkCommit, error) {
	var commits []commitDocument
	if err := c.client.GetJSON(ctx, c.commitsURL, &commits); err != nil {
		return nil, fmt.Errorf("failed to fetch fork commits: %w", err)
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("fork commits endpoint returned no commits")
	}

	latest := commits[0]
	return &ForkCommit{SHA: latest.SHA, Committed: latest.Commit.Committer.Date}, nil
}
