package application

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/prpoller/internal/domain/model"
	"github.com/ericfisherdev/prpoller/internal/domain/port/driven"
)

// ChangeBuilder turns a pull request with a new head revision into a change
// record and hands it to the change sink.
type ChangeBuilder struct {
	sink driven.ChangeSink
}

// NewChangeBuilder creates a ChangeBuilder that emits into sink.
func NewChangeBuilder(sink driven.ChangeSink) *ChangeBuilder {
	return &ChangeBuilder{sink: sink}
}

// Build fetches the changed files and the author email concurrently and
// assembles the change record. If either fetch fails, the first error
// observed is returned wrapped in model.ErrPartialFetch. pollTime is used as
// the change time unless cfg.UseTimestamps is set and the pull request
// carries an update time.
func (b *ChangeBuilder) Build(
	ctx context.Context,
	client driven.GitHubClient,
	cfg model.PollerConfig,
	pr model.PullRequest,
	pollTime time.Time,
) (model.ChangeRecord, error) {
	var (
		files []string
		email string
		g     errgroup.Group
	)

	// Plain Group: one failing fetch does not cancel the other.
	g.Go(func() error {
		var err error
		files, err = client.ListChangedFiles(ctx, cfg.Owner, cfg.Repo, pr.Number)
		return err
	})
	g.Go(func() error {
		var err error
		email, err = client.GetUserEmail(ctx, pr.Author)
		return err
	})

	if err := g.Wait(); err != nil {
		return model.ChangeRecord{}, fmt.Errorf("%w: pull request #%d: %w", model.ErrPartialFetch, pr.Number, err)
	}

	if files == nil {
		files = []string{}
	}

	return model.ChangeRecord{
		Author:       model.FormatAuthor(pr.Author, email),
		Revision:     pr.HeadSHA,
		RevisionLink: pr.URL,
		Comments:     model.PullRequestComments(pr),
		When:         changeTime(cfg, pr, pollTime),
		Branch:       pr.HeadBranch,
		Category:     cfg.Category.Resolve(pr),
		Project:      cfg.Project,
		Repository:   repositoryName(cfg, pr),
		Files:        files,
		Source:       model.ChangeSource,
	}, nil
}

// Emit builds the change for pr and adds it to the sink.
func (b *ChangeBuilder) Emit(
	ctx context.Context,
	client driven.GitHubClient,
	cfg model.PollerConfig,
	pr model.PullRequest,
	pollTime time.Time,
) (model.ChangeRecord, error) {
	change, err := b.Build(ctx, client, cfg, pr, pollTime)
	if err != nil {
		return model.ChangeRecord{}, err
	}

	if err := b.sink.AddChange(ctx, change); err != nil {
		return model.ChangeRecord{}, fmt.Errorf("add change for pull request #%d: %w", pr.Number, err)
	}

	return change, nil
}

func changeTime(cfg model.PollerConfig, pr model.PullRequest, pollTime time.Time) time.Time {
	if cfg.UseTimestamps && !pr.UpdatedAt.IsZero() {
		return pr.UpdatedAt
	}
	return pollTime
}

// repositoryName falls back to the configured repository when the head
// repository is gone, which happens once a fork is deleted.
func repositoryName(cfg model.PollerConfig, pr model.PullRequest) string {
	if pr.RepoName != "" {
		return pr.RepoName
	}
	return cfg.Repo
}
