// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/raysh454/shieldsuite/internal/logging"
	"github.com/raysh454/shieldsuite/internal/riskscore"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount returns the number of recorded warnings.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── VPN backend ───────────────────────────────────────────────────────

// DummyVPNBackend implements vpn.Backend, failing every call when Err is set.
type DummyVPNBackend struct {
	Err    error
	Server string

	mu    sync.Mutex
	Calls []string
}

func (b *DummyVPNBackend) record(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Calls = append(b.Calls, op)
	return b.Err
}

func (b *DummyVPNBackend) Connect(context.Context) (string, error) {
	if err := b.record("connect"); err != nil {
		return "", err
	}
	return b.Server, nil
}

func (b *DummyVPNBackend) Disconnect(context.Context) error { return b.record("disconnect") }

func (b *DummyVPNBackend) BlockDomain(_ context.Context, d string) error {
	return b.record("block:" + d)
}

func (b *DummyVPNBackend) UnblockDomain(_ context.Context, d string) error {
	return b.record("unblock:" + d)
}

// CallCount returns the number of backend calls made.
func (b *DummyVPNBackend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Calls)
}

// ─── DetectionSource ───────────────────────────────────────────────────

// ErrDummyLookup is returned by DummyDetectionSource for identifiers in Fail.
var ErrDummyLookup = errors.New("dummy lookup failure")

// DummyDetectionSource implements riskscore.DetectionSource.
// Results are keyed by identifier; Default answers everything else.
// Set Delay to simulate a slow service (honours ctx cancellation).
type DummyDetectionSource struct {
	Results map[string]riskscore.Detections
	Default *riskscore.Detections
	Fail    map[string]bool
	FailAll bool
	Delay   time.Duration

	mu    sync.Mutex
	Calls []string
}

func (d *DummyDetectionSource) Lookup(ctx context.Context, id string) (riskscore.Detections, error) {
	d.mu.Lock()
	d.Calls = append(d.Calls, id)
	d.mu.Unlock()

	if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return riskscore.Detections{}, ctx.Err()
		}
	}

	if d.FailAll || d.Fail[id] {
		return riskscore.Detections{}, ErrDummyLookup
	}
	if det, ok := d.Results[id]; ok {
		return det, nil
	}
	if d.Default != nil {
		return *d.Default, nil
	}
	return riskscore.Detections{}, nil
}

// CallCount returns the number of lookups made.
func (d *DummyDetectionSource) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Calls)
}
