// Package model contains the domain types of the pull request poller.
package model

import "time"

// PullRequest is one entry of the open pull request list, parsed fresh on
// every poll cycle. Only its head revision is ever persisted.
type PullRequest struct {
	Number     int
	BaseBranch string
	HeadBranch string
	HeadSHA    string // Head revision at poll time.
	Title      string
	Body       string
	Author     string // Login of the pull request author.
	URL        string // HTML link, used as the change's revision link.
	RepoName   string // Name of the head repository; empty when the fork is gone.
	UpdatedAt  time.Time
}

// ShortRevisionLen is the number of leading characters compared when
// deciding whether a head revision has already been seen.
const ShortRevisionLen = 12

// SameRevision reports whether two revisions match on their first
// ShortRevisionLen characters. Shorter values are compared whole.
func SameRevision(a, b string) bool {
	return shortRevision(a) == shortRevision(b)
}

func shortRevision(rev string) string {
	if len(rev) > ShortRevisionLen {
		return rev[:ShortRevisionLen]
	}
	return rev
}
