// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"

	"github.com/ericfisherdev/prpoller/internal/domain/model"
)

// GitHubClient defines the driven port for the read-only GitHub REST calls
// the poller makes. Every call issues a single GET; failures wrap
// model.ErrTransport (and model.ErrParse for undecodable bodies).
type GitHubClient interface {
	// ListPullRequests returns the open pull requests of owner/repo in the
	// order the API returns them.
	ListPullRequests(ctx context.Context, owner, repo string) ([]model.PullRequest, error)
	// ListChangedFiles returns the file names touched by a pull request.
	ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]string, error)
	// GetUserEmail returns the public email of login, or "" when none is set.
	GetUserEmail(ctx context.Context, login string) (string, error)
}
