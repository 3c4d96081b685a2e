package model

import (
	"fmt"
	"time"
)

// ChangeSource tags every change record produced by the pull request poller.
const ChangeSource = "git"

// ChangeRecord is the normalized unit handed to the change sink, one per
// newly observed pull request revision. It is not modified after it is built.
type ChangeRecord struct {
	ID           int64 // Assigned by the change journal; zero until stored.
	Author       string
	Revision     string
	RevisionLink string
	Comments     string
	When         time.Time
	Branch       string
	Category     string // Empty means no category.
	Project      string
	Repository   string
	Files        []string
	Source       string
}

// FormatAuthor renders the change author as "login <email>", or just the
// login when the email is empty.
func FormatAuthor(login, email string) string {
	if email == "" {
		return login
	}
	return fmt.Sprintf("%s <%s>", login, email)
}

// PullRequestComments synthesizes the commit-message equivalent of a pull
// request: a header line, the HTML link and the body.
func PullRequestComments(pr PullRequest) string {
	return fmt.Sprintf("pull-request #%d: %s\n%s\n%s", pr.Number, pr.Title, pr.URL, pr.Body)
}
