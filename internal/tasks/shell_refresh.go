package tasks

import (
	"context"
	"fmt"
	"time"
)

// ShellCache is the part of shell.Cache the refresh task drives
type ShellCache interface {
	Install(ctx context.Context) error
	Activate(ctx context.Context) ([]string, error)
	Version() string
}

// ShellRefresh re-installs the offline asset cache and then activates it,
// dropping caches left behind by earlier versions
type ShellRefresh struct {
	cache    ShellCache
	interval time.Duration
}

// Default interval is 6 hours
func NewShellRefresh(cache ShellCache) *ShellRefresh {
	return &ShellRefresh{
		cache:    cache,
		interval: 6 * time.Hour,
	}
}

// NewShellRefreshWithInterval creates a refresh task with a custom interval
func NewShellRefreshWithInterval(cache ShellCache, interval time.Duration) *ShellRefresh {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &ShellRefresh{
		cache:    cache,
		interval: interval,
	}
}

func (t *ShellRefresh) Name() string { return "shell_refresh" }

func (t *ShellRefresh) Interval() time.Duration { return t.interval }

// Run installs the current version. Old versions are only removed once the
// new one is complete, so a failed install keeps the previous cache usable.
func (t *ShellRefresh) Run(ctx context.Context) error {
	if err := t.cache.Install(ctx); err != nil {
		return fmt.Errorf("failed to install shell cache %s: %w", t.cache.Version(), err)
	}
	if _, err := t.cache.Activate(ctx); err != nil {
		return fmt.Errorf("failed to activate shell cache %s: %w", t.cache.Version(), err)
	}
	return nil
}
