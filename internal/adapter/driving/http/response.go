package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/prpoller/internal/application"
	"github.com/ericfisherdev/prpoller/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// PollerResponse is the JSON representation of the poller status.
type PollerResponse struct {
	Owner               string   `json:"owner"`
	Repo                string   `json:"repo"`
	Branches            []string `json:"branches"`
	PollIntervalSeconds int64    `json:"poll_interval_seconds"`
	Description         string   `json:"description"`
	Running             bool     `json:"running"`
	LastPoll            string   `json:"last_poll,omitempty"`
	LastChange          string   `json:"last_change,omitempty"`
	LastError           string   `json:"last_error,omitempty"`
	Cycles              int64    `json:"cycles"`
	CycleFailures       int64    `json:"cycle_failures"`
	ChangesEmitted      int64    `json:"changes_emitted"`
	ChangeFailures      int64    `json:"change_failures"`
}

// ChangeResponse is the JSON representation of a recorded change.
type ChangeResponse struct {
	ID           int64    `json:"id"`
	Author       string   `json:"author"`
	Revision     string   `json:"revision"`
	RevisionLink string   `json:"revision_link"`
	Comments     string   `json:"comments"`
	When         string   `json:"when"`
	Branch       string   `json:"branch"`
	Category     *string  `json:"category"`
	Project      string   `json:"project"`
	Repository   string   `json:"repository"`
	Files        []string `json:"files"`
	Source       string   `json:"source"`
}

// PollResponse is returned by the manual poll endpoint.
type PollResponse struct {
	Status string `json:"status"`
}

// formatTime renders t as RFC 3339 in UTC, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// toPollerResponse converts a PollStatus to its JSON representation.
func toPollerResponse(s application.PollStatus) PollerResponse {
	branches := s.Branches
	if branches == nil {
		branches = []string{}
	}

	return PollerResponse{
		Owner:               s.Owner,
		Repo:                s.Repo,
		Branches:            branches,
		PollIntervalSeconds: int64(s.PollInterval.Seconds()),
		Description:         s.Description,
		Running:             s.Running,
		LastPoll:            formatTime(s.LastPoll),
		LastChange:          formatTime(s.LastChange),
		LastError:           s.LastError,
		Cycles:              s.Cycles,
		CycleFailures:       s.CycleFailures,
		ChangesEmitted:      s.ChangesEmitted,
		ChangeFailures:      s.ChangeFailures,
	}
}

// toChangeResponse converts a domain ChangeRecord to its JSON representation.
// An empty category is rendered as null.
func toChangeResponse(c model.ChangeRecord) ChangeResponse {
	files := c.Files
	if files == nil {
		files = []string{}
	}

	var category *string
	if c.Category != "" {
		category = &c.Category
	}

	return ChangeResponse{
		ID:           c.ID,
		Author:       c.Author,
		Revision:     c.Revision,
		RevisionLink: c.RevisionLink,
		Comments:     c.Comments,
		When:         formatTime(c.When),
		Branch:       c.Branch,
		Category:     category,
		Project:      c.Project,
		Repository:   c.Repository,
		Files:        files,
		Source:       c.Source,
	}
}
