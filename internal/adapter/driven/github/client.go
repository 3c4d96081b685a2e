// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"

	"github.com/ericfisherdev/prpoller/internal/domain/model"
	"github.com/ericfisherdev/prpoller/internal/domain/port/driven"
)

// UserAgent is sent with every API request.
const UserAgent = "prpoller"

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// Client implements the driven.GitHubClient port using the go-github library.
type Client struct {
	gh      *gh.Client
	timeout time.Duration // Bounds every call; the poller passes its poll interval.
}

// NewClient creates a GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. revalidate (every cached response is revalidated before use)
//  3. oauth2 (Authorization: Bearer header, only when token is non-empty)
//  4. go-github (REST API client pointed at baseURL)
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	return NewClientWithTransport(&revalidate{next: httpcache.NewMemoryCacheTransport()}, baseURL, token, timeout)
}

// revalidate marks every request as accepting only a zero-age response.
// httpcache then treats its stored copy as stale, sends If-None-Match and
// serves the cached body only when the server answers 304.
type revalidate struct {
	next http.RoundTripper
}

func (t *revalidate) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Cache-Control", "max-age=0")
	return t.next.RoundTrip(r)
}

// NewClientWithTransport creates a Client on top of a custom base transport.
// Tests use it to route requests to an httptest server.
func NewClientWithTransport(base http.RoundTripper, baseURL, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parsing base URL %q: scheme and host are required", baseURL)
	}

	transport := base
	if token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   base,
		}
	}

	client := gh.NewClient(&http.Client{Transport: transport})
	client.BaseURL = u
	client.UserAgent = UserAgent

	return &Client{gh: client, timeout: timeout}, nil
}

// ListPullRequests retrieves the open pull requests of owner/repo. Only the
// first page is read; the API's default ordering is preserved.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo string) ([]model.PullRequest, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	prs, resp, err := c.gh.PullRequests.List(ctx, owner, repo, nil)
	if err != nil {
		return nil, classify(err, "listing pull requests for %s/%s", owner, repo)
	}

	logRateLimit(resp, owner+"/"+repo+"/pulls", len(prs))

	result := make([]model.PullRequest, 0, len(prs))
	for _, pr := range prs {
		result = append(result, mapPullRequest(pr))
	}

	return result, nil
}

// ListChangedFiles retrieves the names of the files changed by a pull request.
func (c *Client) ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	slog.Debug("fetching changed files", "repo", owner+"/"+repo, "pr", number)

	files, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, repo, number, nil)
	if err != nil {
		return nil, classify(err, "listing files for %s/%s#%d", owner, repo, number)
	}

	logRateLimit(resp, fmt.Sprintf("%s/%s/pulls/%d/files", owner, repo, number), len(files))

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.GetFilename())
	}

	return names, nil
}

// GetUserEmail returns the public email of a user. A null or missing email
// yields "".
func (c *Client) GetUserEmail(ctx context.Context, login string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	user, resp, err := c.gh.Users.Get(ctx, login)
	if err != nil {
		return "", classify(err, "fetching user %s", login)
	}

	logRateLimit(resp, "users/"+login, 1)

	return user.GetEmail(), nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// classify wraps err with model.ErrTransport, adding model.ErrParse when the
// response body could not be decoded.
func classify(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w: %w: %w", msg, model.ErrTransport, model.ErrParse, err)
	}

	return fmt.Errorf("%s: %w: %w", msg, model.ErrTransport, err)
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapPullRequest converts a go-github PullRequest to a domain model PullRequest.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapPullRequest(pr *gh.PullRequest) model.PullRequest {
	return model.PullRequest{
		Number:     pr.GetNumber(),
		BaseBranch: pr.GetBase().GetRef(),
		HeadBranch: pr.GetHead().GetRef(),
		HeadSHA:    pr.GetHead().GetSHA(),
		Title:      pr.GetTitle(),
		Body:       pr.GetBody(),
		Author:     pr.GetUser().GetLogin(),
		URL:        pr.GetHTMLURL(),
		RepoName:   pr.GetHead().GetRepo().GetName(),
		UpdatedAt:  pr.GetUpdatedAt().Time,
	}
}
