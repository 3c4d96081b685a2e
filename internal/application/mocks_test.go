package application_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ericfisherdev/prpoller/internal/application"
	"github.com/ericfisherdev/prpoller/internal/domain/model"
	"github.com/ericfisherdev/prpoller/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockGitHubClient struct {
	mu sync.Mutex

	listPRs   func(ctx context.Context, owner, repo string) ([]model.PullRequest, error)
	listFiles func(ctx context.Context, owner, repo string, number int) ([]string, error)
	userEmail func(ctx context.Context, login string) (string, error)

	listCalls  int
	fileCalls  []int
	emailCalls []string
}

func (m *mockGitHubClient) ListPullRequests(ctx context.Context, owner, repo string) ([]model.PullRequest, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()

	if m.listPRs == nil {
		return []model.PullRequest{}, nil
	}
	return m.listPRs(ctx, owner, repo)
}

func (m *mockGitHubClient) ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]string, error) {
	m.mu.Lock()
	m.fileCalls = append(m.fileCalls, number)
	m.mu.Unlock()

	if m.listFiles == nil {
		return []string{}, nil
	}
	return m.listFiles(ctx, owner, repo, number)
}

func (m *mockGitHubClient) GetUserEmail(ctx context.Context, login string) (string, error) {
	m.mu.Lock()
	m.emailCalls = append(m.emailCalls, login)
	m.mu.Unlock()

	if m.userEmail == nil {
		return "", nil
	}
	return m.userEmail(ctx, login)
}

func (m *mockGitHubClient) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

func (m *mockGitHubClient) FileCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.fileCalls...)
}

type stateKey struct {
	objectID int64
	key      string
}

type memStateStore struct {
	mu      sync.Mutex
	objects map[string]int64
	values  map[stateKey]string
	setErr  error
	sets    []stateKey
}

func newMemStateStore() *memStateStore {
	return &memStateStore{
		objects: make(map[string]int64),
		values:  make(map[stateKey]string),
	}
}

func (m *memStateStore) GetObjectID(_ context.Context, name, className string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := className + "|" + name
	if id, ok := m.objects[k]; ok {
		return id, nil
	}
	id := int64(len(m.objects) + 1)
	m.objects[k] = id
	return id, nil
}

func (m *memStateStore) GetState(_ context.Context, objectID int64, key, def string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.values[stateKey{objectID, key}]; ok {
		return v, nil
	}
	return def, nil
}

func (m *memStateStore) SetState(_ context.Context, objectID int64, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.setErr != nil {
		return m.setErr
	}
	m.values[stateKey{objectID, key}] = value
	m.sets = append(m.sets, stateKey{objectID, key})
	return nil
}

// marker returns the stored marker for pr number in the owner/repo namespace.
func (m *memStateStore) marker(fullName string, number int) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.objects["GitHubPullrequestPoller|"+fullName]
	if !ok {
		return "", false
	}
	v, ok := m.values[stateKey{id, fmt.Sprintf("pull_request%d", number)}]
	return v, ok
}

type recordingSink struct {
	mu      sync.Mutex
	changes []model.ChangeRecord
	err     error
}

func (s *recordingSink) AddChange(_ context.Context, change model.ChangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.changes = append(s.changes, change)
	return nil
}

func (s *recordingSink) Changes() []model.ChangeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChangeRecord(nil), s.changes...)
}

// --- Fixtures ---

const sha4242 = "4c9a7f03e04e551a5e012064b581577f949dd3a4"

func pr4242() model.PullRequest {
	return model.PullRequest{
		Number:     4242,
		BaseBranch: "master",
		HeadBranch: "cmp3",
		HeadSHA:    sha4242,
		Title:      "Update the README with new information",
		Body:       "This is a pretty simple change that we need to pull into master.",
		Author:     "defunkt",
		URL:        "https://github.com/defunkt/buildbot/pull/4242",
		RepoName:   "buildbot",
		UpdatedAt:  time.Date(2017, 1, 25, 22, 36, 21, 0, time.UTC),
	}
}

func testConfig() model.PollerConfig {
	cfg := model.DefaultPollerConfig("defunkt", "buildbot")
	cfg.Project = "buildbot"
	return cfg
}

// staticFactory returns a ClientFactory that always hands out client.
func staticFactory(client *mockGitHubClient) application.ClientFactory {
	return func(model.PollerConfig) (driven.GitHubClient, error) { return client, nil }
}
