// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/prpoller/internal/domain/model"
	"github.com/ericfisherdev/prpoller/internal/domain/port/driven"
)

// ErrPollerStopped is returned by PollNow once the polling loop has exited.
var ErrPollerStopped = errors.New("poller stopped")

// pollRequest represents a manual poll trigger.
type pollRequest struct {
	done chan error
}

// PollStatus is a point-in-time view of the poller for the status API.
type PollStatus struct {
	Owner          string
	Repo           string
	Branches       []string
	PollInterval   time.Duration
	Description    string
	Running        bool
	LastPoll       time.Time
	LastChange     time.Time
	LastError      string
	Cycles         int64
	CycleFailures  int64
	ChangesEmitted int64
	ChangeFailures int64
}

// pollCounters is the mutable part of PollStatus, guarded by PollService.statusMu.
type pollCounters struct {
	running        bool
	lastPoll       time.Time
	lastChange     time.Time
	lastError      string
	cycles         int64
	cycleFailures  int64
	changesEmitted int64
	changeFailures int64
}

// cycleResult summarizes one poll cycle for logging and status.
type cycleResult struct {
	fetched  int
	emitted  int
	skipped  int
	excluded int
	failed   int
}

// PollService orchestrates periodic pull request polling, revision diffing
// and change emission for one repository.
type PollService struct {
	settings *SettingsProvider
	tracker  *RevisionTracker
	builder  *ChangeBuilder
	logger   *slog.Logger

	// cycleMu serializes poll cycles; a tick never overlaps a manual poll.
	cycleMu    sync.Mutex
	pollCh     chan pollRequest
	intervalCh chan time.Duration
	stopped    chan struct{}
	stopOnce   sync.Once

	statusMu sync.RWMutex
	counters pollCounters
}

// NewPollService creates a PollService for cfg. The factory builds the GitHub
// client now and again on every Reconfigure. A nil logger uses slog.Default().
func NewPollService(
	cfg model.PollerConfig,
	factory ClientFactory,
	state driven.StateStore,
	sink driven.ChangeSink,
	logger *slog.Logger,
) (*PollService, error) {
	settings, err := NewSettingsProvider(cfg, factory)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PollService{
		settings:   settings,
		tracker:    NewRevisionTracker(state),
		builder:    NewChangeBuilder(sink),
		logger:     logger,
		pollCh:     make(chan pollRequest),
		intervalCh: make(chan time.Duration, 1),
		stopped:    make(chan struct{}),
	}, nil
}

// Start runs the polling loop until ctx is canceled. It polls immediately
// when the configuration asks for a poll at launch, then on every interval
// tick. Manual PollNow requests are served by the same loop. Cycle failures
// are logged and never stop the loop. Once Start returns, PollNow fails
// with ErrPollerStopped.
func (s *PollService) Start(ctx context.Context) {
	defer s.stopOnce.Do(func() { close(s.stopped) })

	cfg := s.settings.Config()

	s.logger.Info("poll service started",
		"repo", cfg.FullName(),
		"interval", cfg.PollInterval,
		"poll_at_launch", cfg.PollAtLaunch,
		"category_computed", cfg.Category.IsComputed(),
		"filter_computed", cfg.Filter.IsComputed(),
	)

	if cfg.PollAtLaunch {
		_ = s.Poll(ctx)
	}

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("poll service stopped")
			return
		case <-ticker.C:
			_ = s.Poll(ctx)
		case req := <-s.pollCh:
			req.done <- s.Poll(ctx)
		case interval := <-s.intervalCh:
			ticker.Reset(interval)
			s.logger.Info("poll interval changed", "interval", interval)
		}
	}
}

// PollNow asks the running loop for an immediate poll and waits for it to
// finish. The request is queued behind any cycle already in flight. It
// blocks until ctx is canceled if Start has not been called yet, and
// returns ErrPollerStopped after Start has returned.
func (s *PollService) PollNow(ctx context.Context) error {
	done := make(chan error, 1)

	select {
	case s.pollCh <- pollRequest{done: done}:
	case <-s.stopped:
		return ErrPollerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll runs one poll cycle with the current settings. Concurrent calls are
// serialized. The returned error wraps model.ErrPollCycle when the cycle
// could not start; failures of individual pull requests are logged and
// counted but do not fail the cycle.
func (s *PollService) Poll(ctx context.Context) error {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	cfg, client := s.settings.Get()
	log := s.logger.With("cycle_id", uuid.NewString(), "repo", cfg.FullName())

	s.setRunning(true)
	start := time.Now()

	log.Info("poll cycle started", "branches", cfg.WatchedBranches())

	res, err := s.pollCycle(ctx, log, client, cfg, start)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", model.ErrPollCycle, cfg.FullName(), err)
		log.Error("poll cycle failed", "error", err)
		s.finishCycle(start, res, err)
		return err
	}

	log.Info("poll cycle complete",
		"fetched", res.fetched,
		"emitted", res.emitted,
		"skipped", res.skipped,
		"excluded", res.excluded,
		"failed", res.failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	s.finishCycle(start, res, nil)

	return nil
}

// pollCycle lists the open pull requests and processes them in list order.
// The first pull request whose base branch is not watched ends the cycle;
// the pull requests after it are not looked at.
func (s *PollService) pollCycle(
	ctx context.Context,
	log *slog.Logger,
	client driven.GitHubClient,
	cfg model.PollerConfig,
	pollTime time.Time,
) (cycleResult, error) {
	var res cycleResult

	prs, err := client.ListPullRequests(ctx, cfg.Owner, cfg.Repo)
	if err != nil {
		return res, err
	}
	res.fetched = len(prs)

	objectID, err := s.tracker.ObjectID(ctx, cfg)
	if err != nil {
		return res, err
	}

	for i, pr := range prs {
		if !cfg.WatchesBranch(pr.BaseBranch) {
			log.Warn("pull request targets an unwatched branch, ending cycle",
				"pr", pr.Number,
				"base", pr.BaseBranch,
				"unprocessed", len(prs)-i,
			)
			break
		}

		if !cfg.Includes(pr) {
			log.Debug("pull request excluded by filter", "pr", pr.Number)
			res.excluded++
			continue
		}

		isNew, err := s.tracker.Observe(ctx, objectID, pr)
		if err != nil {
			log.Error("revision marker update failed", "pr", pr.Number, "error", err)
			res.failed++
			continue
		}
		if !isNew {
			res.skipped++
			continue
		}

		change, err := s.builder.Emit(ctx, client, cfg, pr, pollTime)
		if err != nil {
			log.Error("change not emitted", "pr", pr.Number, "revision", pr.HeadSHA, "error", err)
			res.failed++
			continue
		}

		log.Info("change emitted",
			"pr", pr.Number,
			"revision", change.Revision,
			"branch", change.Branch,
			"files", len(change.Files),
		)
		res.emitted++
	}

	return res, nil
}

// Reconfigure swaps in a new configuration and client. The cycle in flight,
// if any, finishes with the settings it started with; the loop's ticker is
// reset when the interval changes. On error the old settings stay active.
func (s *PollService) Reconfigure(cfg model.PollerConfig) error {
	previous := s.settings.Config()

	if err := s.settings.Replace(cfg); err != nil {
		return err
	}

	s.logger.Info("poller reconfigured",
		"repo", cfg.FullName(),
		"branches", cfg.WatchedBranches(),
		"interval", cfg.PollInterval,
		"category_computed", cfg.Category.IsComputed(),
		"filter_computed", cfg.Filter.IsComputed(),
	)

	if cfg.PollInterval != previous.PollInterval {
		// Keep only the latest pending interval.
		select {
		case <-s.intervalCh:
		default:
		}
		select {
		case s.intervalCh <- cfg.PollInterval:
		default:
		}
	}

	return nil
}

// Describe returns a one-line description of what the poller watches.
func (s *PollService) Describe() string {
	return s.settings.Config().Describe()
}

// Status returns a snapshot of the poller's configuration and counters.
func (s *PollService) Status() PollStatus {
	cfg := s.settings.Config()

	s.statusMu.RLock()
	c := s.counters
	s.statusMu.RUnlock()

	return PollStatus{
		Owner:          cfg.Owner,
		Repo:           cfg.Repo,
		Branches:       cfg.WatchedBranches(),
		PollInterval:   cfg.PollInterval,
		Description:    cfg.Describe(),
		Running:        c.running,
		LastPoll:       c.lastPoll,
		LastChange:     c.lastChange,
		LastError:      c.lastError,
		Cycles:         c.cycles,
		CycleFailures:  c.cycleFailures,
		ChangesEmitted: c.changesEmitted,
		ChangeFailures: c.changeFailures,
	}
}

func (s *PollService) setRunning(running bool) {
	s.statusMu.Lock()
	s.counters.running = running
	s.statusMu.Unlock()
}

func (s *PollService) finishCycle(start time.Time, res cycleResult, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	c := &s.counters
	c.running = false
	c.lastPoll = start
	c.cycles++
	c.changesEmitted += int64(res.emitted)
	c.changeFailures += int64(res.failed)

	if res.emitted > 0 {
		c.lastChange = time.Now()
	}

	if err != nil {
		c.cycleFailures++
		c.lastError = err.Error()
		return
	}
	c.lastError = ""
}
