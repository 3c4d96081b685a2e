package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// PollerName identifies the poller in descriptions and is the class name
// of its persisted state object.
const PollerName = "GitHubPullrequestPoller"

// Defaults applied by DefaultPollerConfig.
const (
	DefaultBaseURL      = "https://api.github.com"
	DefaultBranch       = "master"
	DefaultPollInterval = 10 * time.Minute
)

// PollerConfig is the read-only configuration of one poller instance. A new
// value replaces the old one on reconfiguration; it is never mutated while a
// poll cycle uses it.
type PollerConfig struct {
	Owner         string
	Repo          string
	Branches      []string
	PollInterval  time.Duration
	UseTimestamps bool
	Category      Resolver[string]
	Project       string
	Filter        Resolver[bool]
	Token         string
	BaseURL       string
	PollAtLaunch  bool
}

// DefaultPollerConfig returns the configuration for owner/repo with every
// optional setting at its default.
func DefaultPollerConfig(owner, repo string) PollerConfig {
	return PollerConfig{
		Owner:         owner,
		Repo:          repo,
		Branches:      []string{DefaultBranch},
		PollInterval:  DefaultPollInterval,
		UseTimestamps: true,
		Filter:        Constant(true),
		BaseURL:       DefaultBaseURL,
	}
}

// Validate checks the fields a poll cycle depends on.
func (c PollerConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.Owner) == "":
		return fmt.Errorf("%w: owner is required", ErrInvalidConfig)
	case strings.TrimSpace(c.Repo) == "":
		return fmt.Errorf("%w: repo is required", ErrInvalidConfig)
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll interval must be positive, got %s", ErrInvalidConfig, c.PollInterval)
	case c.BaseURL == "":
		return fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	return nil
}

// WatchedBranches returns the branch set, falling back to DefaultBranch
// when none is configured.
func (c PollerConfig) WatchedBranches() []string {
	if len(c.Branches) == 0 {
		return []string{DefaultBranch}
	}
	return c.Branches
}

// WatchesBranch reports whether base is one of the watched branches.
func (c PollerConfig) WatchesBranch(base string) bool {
	return slices.Contains(c.WatchedBranches(), base)
}

// FullName returns "owner/repo". It is also the namespace under which the
// poller's revision markers are stored.
func (c PollerConfig) FullName() string {
	return c.Owner + "/" + c.Repo
}

// Describe returns a one-line human description of what the poller watches.
func (c PollerConfig) Describe() string {
	return fmt.Sprintf("%s watching the GitHub repository %s, branches: [%s]",
		PollerName, c.FullName(), strings.Join(c.WatchedBranches(), ", "))
}

// Includes reports whether pr passes the inclusion filter. An unset filter
// includes every pull request.
func (c PollerConfig) Includes(pr PullRequest) bool {
	if !c.Filter.IsSet() {
		return true
	}
	return c.Filter.Resolve(pr)
}
