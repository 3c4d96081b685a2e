package application

import (
	"fmt"
	"sync/atomic"

	"github.com/ericfisherdev/prpoller/internal/domain/model"
	"github.com/ericfisherdev/prpoller/internal/domain/port/driven"
)

// ClientFactory builds the GitHub client for a configuration. It is called
// once at startup and again on every reconfiguration, so a changed base URL
// or token takes effect without a restart.
type ClientFactory func(cfg model.PollerConfig) (driven.GitHubClient, error)

// settingsSnapshot pairs a configuration with the client built for it.
// Snapshots are immutable; Replace swaps in a new one.
type settingsSnapshot struct {
	cfg    model.PollerConfig
	client driven.GitHubClient
}

// SettingsProvider enables runtime hot-swap of the poller configuration and
// its GitHub client. A poll cycle reads one snapshot at its start and uses it
// throughout, so a concurrent Replace never changes settings mid-cycle.
type SettingsProvider struct {
	current atomic.Pointer[settingsSnapshot]
	factory ClientFactory
}

// NewSettingsProvider validates cfg and builds its client.
func NewSettingsProvider(cfg model.PollerConfig, factory ClientFactory) (*SettingsProvider, error) {
	p := &SettingsProvider{factory: factory}
	if err := p.Replace(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the current configuration and client as one consistent pair.
func (p *SettingsProvider) Get() (model.PollerConfig, driven.GitHubClient) {
	snap := p.current.Load()
	return snap.cfg, snap.client
}

// Config returns the current configuration.
func (p *SettingsProvider) Config() model.PollerConfig {
	return p.current.Load().cfg
}

// Replace validates cfg, builds a client for it and swaps both in. On error
// the previous snapshot stays in place.
func (p *SettingsProvider) Replace(cfg model.PollerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := p.factory(cfg)
	if err != nil {
		return fmt.Errorf("build github client for %s: %w", cfg.FullName(), err)
	}

	p.current.Store(&settingsSnapshot{cfg: cfg, client: client})
	return nil
}
