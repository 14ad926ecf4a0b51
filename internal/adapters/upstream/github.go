package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v80/github"
	"github.com/rs/zerolog"

	"github.com/ghinfo/ghinfo/internal/core/models"
	"github.com/ghinfo/ghinfo/internal/core/services"
)

const (
	userAgent       = "ghinfo"
	releasesPerPage = 100
)

// Options configures a GitHubClient.
type Options struct {
	// BaseURL is the REST API root. Empty means https://api.github.com/.
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is then ignored.
	HTTPClient *http.Client
}

// GitHubClient implements services.Upstream against the GitHub REST API.
type GitHubClient struct {
	client *github.Client
	logger zerolog.Logger
}

// NewGitHubClient creates a GitHubClient.
func NewGitHubClient(opts Options, logger zerolog.Logger) (*GitHubClient, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	client := github.NewClient(httpClient)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing base URL: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		client.BaseURL = u
	}
	client.UserAgent = userAgent

	return &GitHubClient{client: client, logger: logger}, nil
}

// RepoInfo fetches GET /repos/{owner}/{repo}.
func (c *GitHubClient) RepoInfo(ctx context.Context, owner, name string) (*models.RepoInfo, error) {
	repo, _, err := c.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, c.fail(err, "repository", owner, name)
	}

	return &models.RepoInfo{
		Repo:            owner + "/" + name,
		Name:            repo.GetName(),
		FullName:        repo.GetFullName(),
		HTMLURL:         repo.GetHTMLURL(),
		Description:     repo.Description,
		StargazersCount: repo.GetStargazersCount(),
		ForksCount:      repo.GetForksCount(),
		UpdatedAt:       repo.GetUpdatedAt().Time,
	}, nil
}

// Releases fetches every page of GET /repos/{owner}/{repo}/releases.
func (c *GitHubClient) Releases(ctx context.Context, owner, name string) ([]models.Release, error) {
	releases := make([]models.Release, 0)
	opts := &github.ListOptions{PerPage: releasesPerPage}
	for {
		page, resp, err := c.client.Repositories.ListReleases(ctx, owner, name, opts)
		if err != nil {
			return nil, c.fail(err, "releases", owner, name)
		}
		for _, r := range page {
			releases = append(releases, models.Release{
				TagName:     r.GetTagName(),
				Name:        r.Name,
				Changelog:   r.Body,
				PublishedAt: r.GetPublishedAt().Time,
				Attachments: attachments(r.Assets),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return releases, nil
}

// LatestRelease fetches GET /repos/{owner}/{repo}/releases/latest.
func (c *GitHubClient) LatestRelease(ctx context.Context, owner, name string) (*models.LatestRelease, error) {
	r, _, err := c.client.Repositories.GetLatestRelease(ctx, owner, name)
	if err != nil {
		return nil, c.fail(err, "latest release", owner, name)
	}

	return &models.LatestRelease{
		Repo:          owner + "/" + name,
		LatestVersion: r.GetTagName(),
		Changelog:     r.Body,
		PublishedAt:   r.GetPublishedAt().Time,
		Attachments:   attachments(r.Assets),
	}, nil
}

func (c *GitHubClient) fail(err error, what, owner, name string) error {
	uerr := toUpstreamError(err)
	c.logger.Debug().
		Err(err).
		Int("status", uerr.Status).
		Str("repo", owner+"/"+name).
		Msgf("fetching %s failed", what)
	return fmt.Errorf("fetching %s for %s/%s: %w", what, owner, name, uerr)
}

func attachments(assets []*github.ReleaseAsset) []models.Attachment {
	out := make([]models.Attachment, 0, len(assets))
	for _, a := range assets {
		out = append(out, models.Attachment{
			Name:        a.GetName(),
			DownloadURL: a.GetBrowserDownloadURL(),
		})
	}
	return out
}

// toUpstreamError extracts the HTTP status from go-github's error types.
// Transport and decode failures carry status 0.
func toUpstreamError(err error) *services.UpstreamError {
	var (
		rateErr  *github.RateLimitError
		abuseErr *github.AbuseRateLimitError
		respErr  *github.ErrorResponse
	)
	switch {
	case errors.As(err, &rateErr):
		return &services.UpstreamError{Status: statusOf(rateErr.Response), Message: rateErr.Message, Err: err}
	case errors.As(err, &abuseErr):
		return &services.UpstreamError{Status: statusOf(abuseErr.Response), Message: abuseErr.Message, Err: err}
	case errors.As(err, &respErr):
		msg := respErr.Message
		if msg == "" {
			msg = http.StatusText(statusOf(respErr.Response))
		}
		return &services.UpstreamError{Status: statusOf(respErr.Response), Message: msg, Err: err}
	default:
		return &services.UpstreamError{Message: err.Error(), Err: err}
	}
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
