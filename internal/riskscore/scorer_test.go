package riskscore_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/shieldsuite/internal/riskscore"
	"github.com/raysh454/shieldsuite/internal/testutil"
)

const normalSize = 30_000_000

func newScorer(t *testing.T, source riskscore.DetectionSource) *riskscore.Scorer {
	t.Helper()
	cfg := riskscore.DefaultConfig()
	cfg.LookupTimeout = 50 * time.Millisecond
	s, err := riskscore.NewScorer(cfg, source, &testutil.DummyLogger{})
	require.NoError(t, err)
	return s
}

// ─── Concrete scenarios ────────────────────────────────────────────────

func TestAssess_Scenarios(t *testing.T) {
	t.Parallel()
	s := newScorer(t, nil)

	tests := []struct {
		name    string
		desc    riskscore.Descriptor
		threats []string
		score   int
		level   riskscore.Level
		safe    bool
	}{
		{
			name:    "modified app",
			desc:    riskscore.Descriptor{Name: "TikTok_Mod.apk", SizeBytes: 28_567_890},
			threats: []string{"Modified application detected"},
			score:   40,
			level:   riskscore.LevelMedium,
		},
		{
			name:    "banking hack",
			desc:    riskscore.Descriptor{Name: "Banking_Hack.apk", SizeBytes: 15_234_567},
			threats: []string{"Hacking tool identified", "CRITICAL: Banking app with modifications"},
			score:   180,
			level:   riskscore.LevelCritical,
		},
		{
			name:    "clean app",
			desc:    riskscore.Descriptor{Name: "Facebook.apk", SizeBytes: 67_890_123},
			threats: []string{},
			score:   0,
			level:   riskscore.LevelLow,
			safe:    true,
		},
		{
			name:    "tiny file",
			desc:    riskscore.Descriptor{Name: "tiny.apk", SizeBytes: 1_000},
			threats: []string{"Suspiciously small APK file"},
			score:   40,
			level:   riskscore.LevelMedium,
		},
		{
			name:    "huge file",
			desc:    riskscore.Descriptor{Name: "Game.apk", SizeBytes: 250_000_000},
			threats: []string{"Unusually large APK file"},
			score:   15,
			level:   riskscore.LevelLow,
		},
		{
			name:    "zero size counts as small",
			desc:    riskscore.Descriptor{Name: "empty.apk", SizeBytes: 0},
			threats: []string{"Suspiciously small APK file"},
			score:   40,
			level:   riskscore.LevelMedium,
		},
		{
			name:    "unknown size skips size heuristic",
			desc:    riskscore.Descriptor{Name: "Notes.apk", SizeUnknown: true},
			threats: []string{},
			score:   0,
			level:   riskscore.LevelLow,
			safe:    true,
		},
		{
			name: "bank and pay combinations both fire",
			desc: riskscore.Descriptor{Name: "PayBank_MOD.apk", SizeBytes: normalSize},
			threats: []string{
				"Modified application detected",
				"CRITICAL: Banking app with modifications",
				"WARNING: Payment app with modifications",
			},
			score: 220,
			level: riskscore.LevelCritical,
		},
		{
			name:    "bank name alone is not flagged",
			desc:    riskscore.Descriptor{Name: "MyBank.apk", SizeBytes: normalSize},
			threats: []string{},
			score:   0,
			level:   riskscore.LevelLow,
			safe:    true,
		},
		{
			name:    "small bank app triggers combination",
			desc:    riskscore.Descriptor{Name: "MyBank.apk", SizeBytes: 10},
			threats: []string{"Suspiciously small APK file", "CRITICAL: Banking app with modifications"},
			score:   140,
			level:   riskscore.LevelCritical,
		},
		{
			name: "several rules fire independently in table order",
			desc: riskscore.Descriptor{Name: "Spotify_Pro_Free_Crack.apk", SizeBytes: normalSize},
			threats: []string{
				"Cracked software found",
				"Suspicious Pro version",
				"Suspicious free version",
			},
			score: 95,
			level: riskscore.LevelHigh,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, err := s.Assess(context.Background(), tc.desc)
			require.NoError(t, err)
			assert.Equal(t, tc.threats, a.Threats)
			assert.Equal(t, tc.score, a.RiskScore)
			assert.Equal(t, tc.level, a.RiskLevel)
			assert.Equal(t, tc.safe, a.IsSafe)
			assert.False(t, a.ScanTime.IsZero())
		})
	}
}

// ─── Classification ────────────────────────────────────────────────────

func TestClassify_Boundaries(t *testing.T) {
	t.Parallel()
	cases := map[int]riskscore.Level{
		0:   riskscore.LevelLow,
		29:  riskscore.LevelLow,
		30:  riskscore.LevelMedium,
		59:  riskscore.LevelMedium,
		60:  riskscore.LevelHigh,
		99:  riskscore.LevelHigh,
		100: riskscore.LevelCritical,
		500: riskscore.LevelCritical,
	}
	for score, want := range cases {
		assert.Equal(t, want, riskscore.Classify(score), "score %d", score)
	}
}

func TestIsSafe_Formula(t *testing.T) {
	t.Parallel()
	assert.True(t, riskscore.IsSafe(nil, 29))
	assert.False(t, riskscore.IsSafe([]string{"x"}, 29))
	assert.False(t, riskscore.IsSafe(nil, 30))
	assert.False(t, riskscore.IsSafe([]string{"x"}, 0))
}

func TestLevel_Rank(t *testing.T) {
	t.Parallel()
	assert.Less(t, riskscore.LevelLow.Rank(), riskscore.LevelMedium.Rank())
	assert.Less(t, riskscore.LevelMedium.Rank(), riskscore.LevelHigh.Rank())
	assert.Less(t, riskscore.LevelHigh.Rank(), riskscore.LevelCritical.Rank())
	assert.Equal(t, 0, riskscore.Level("bogus").Rank())
}

// ─── Properties ────────────────────────────────────────────────────────

func TestAssess_Idempotent(t *testing.T) {
	t.Parallel()
	s := newScorer(t, nil)
	d := riskscore.Descriptor{Name: "WhatsApp_GB_Plus.apk", SizeBytes: normalSize}

	first, err := s.Assess(context.Background(), d)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := s.Assess(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, first.Threats, again.Threats)
		assert.Equal(t, first.RiskScore, again.RiskScore)
	}
	assert.Equal(t, 60, first.RiskScore)
}

func TestAssess_Monotonic(t *testing.T) {
	t.Parallel()
	s := newScorer(t, nil)

	base, err := s.Assess(context.Background(), riskscore.Descriptor{Name: "Instagram.apk", SizeBytes: normalSize})
	require.NoError(t, err)
	require.True(t, base.IsSafe)

	for _, r := range riskscore.DefaultRules() {
		name := fmt.Sprintf("Instagram_%s.apk", r.Pattern)
		a, err := s.Assess(context.Background(), riskscore.Descriptor{Name: name, SizeBytes: normalSize})
		require.NoError(t, err)
		assert.Greater(t, a.RiskScore, base.RiskScore, name)
		if a.RiskScore >= 30 {
			assert.False(t, a.IsSafe, name)
		}
	}
}

func TestAssess_ConcurrentCallers(t *testing.T) {
	t.Parallel()
	s := newScorer(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := s.Assess(context.Background(), riskscore.Descriptor{Name: "Banking_Hack.apk", SizeBytes: normalSize})
			assert.NoError(t, err)
			assert.Equal(t, 180, a.RiskScore)
		}()
	}
	wg.Wait()
}

// ─── Invalid input ─────────────────────────────────────────────────────

func TestAssess_InvalidInput(t *testing.T) {
	t.Parallel()
	s := newScorer(t, nil)

	cases := []riskscore.Descriptor{
		{Name: "neg.apk", SizeBytes: -1},
		{Name: "bad.apk", SizeBytes: normalSize, Detections: &riskscore.Detections{Positives: 5, Total: 3}},
		{Name: "bad.apk", SizeBytes: normalSize, Detections: &riskscore.Detections{Positives: -1, Total: 3}},
	}
	for _, d := range cases {
		a, err := s.Assess(context.Background(), d)
		assert.Nil(t, a)
		assert.True(t, errors.Is(err, riskscore.ErrInvalidInput), "expected ErrInvalidInput, got %v", err)
	}
}

func TestNewScorer_RejectsBadRules(t *testing.T) {
	t.Parallel()
	_, err := riskscore.NewScorer(&riskscore.Config{Rules: []riskscore.Rule{{Pattern: "x", Label: "x", Weight: 0}}}, nil, nil)
	assert.Error(t, err)

	_, err = riskscore.NewScorer(&riskscore.Config{Rules: []riskscore.Rule{{Pattern: "", Label: "x", Weight: 3}}}, nil, nil)
	assert.Error(t, err)
}

// ─── External detections ───────────────────────────────────────────────

func TestAssess_ExternalLookupAddsScore(t *testing.T) {
	t.Parallel()
	d := riskscore.Descriptor{Name: "Signal.apk", SizeBytes: normalSize}
	src := &testutil.DummyDetectionSource{
		Results: map[string]riskscore.Detections{d.Identifier(): {Positives: 5, Total: 60}},
	}
	s := newScorer(t, src)

	a, err := s.Assess(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 50, a.RiskScore)
	assert.Equal(t, riskscore.LevelMedium, a.RiskLevel)
	assert.Equal(t, []string{"VirusTotal: 5/60 engines flagged"}, a.Threats)
	assert.False(t, a.IsSafe)
	assert.Equal(t, 1, src.CallCount())
}

func TestAssess_InlineDetectionsSkipLookup(t *testing.T) {
	t.Parallel()
	src := &testutil.DummyDetectionSource{Default: &riskscore.Detections{Positives: 9, Total: 9}}
	s := newScorer(t, src)

	a, err := s.Assess(context.Background(), riskscore.Descriptor{
		Name: "Signal.apk", SizeBytes: normalSize,
		Detections: &riskscore.Detections{Positives: 2, Total: 70},
	})
	require.NoError(t, err)
	assert.Equal(t, 20, a.RiskScore)
	assert.Equal(t, riskscore.LevelLow, a.RiskLevel)
	assert.False(t, a.IsSafe, "a non-empty threat list is never safe")
	assert.Equal(t, 0, src.CallCount())
}

func TestAssess_ZeroPositivesAddsNothing(t *testing.T) {
	t.Parallel()
	src := &testutil.DummyDetectionSource{Default: &riskscore.Detections{Positives: 0, Total: 70}}
	s := newScorer(t, src)

	a, err := s.Assess(context.Background(), riskscore.Descriptor{Name: "Signal.apk", SizeBytes: normalSize})
	require.NoError(t, err)
	assert.Empty(t, a.Threats)
	assert.True(t, a.IsSafe)
}

func TestAssess_LookupFailuresAreSkipped(t *testing.T) {
	t.Parallel()

	tests := map[string]*testutil.DummyDetectionSource{
		"error":     {FailAll: true},
		"timeout":   {Delay: time.Second, Default: &riskscore.Detections{Positives: 10, Total: 10}},
		"malformed": {Default: &riskscore.Detections{Positives: 6, Total: 5}},
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			logger := &testutil.DummyLogger{}
			cfg := riskscore.DefaultConfig()
			cfg.LookupTimeout = 20 * time.Millisecond
			s, err := riskscore.NewScorer(cfg, src, logger)
			require.NoError(t, err)

			a, err := s.Assess(context.Background(), riskscore.Descriptor{Name: "TikTok_Mod.apk", SizeBytes: normalSize})
			require.NoError(t, err)
			assert.Equal(t, 40, a.RiskScore)
			assert.Equal(t, []string{"Modified application detected"}, a.Threats)
			assert.Equal(t, 1, logger.WarnCount())
		})
	}
}

func TestDescriptor_Identifier(t *testing.T) {
	t.Parallel()
	a := riskscore.Descriptor{Name: "x.apk", SizeBytes: 10}
	b := riskscore.Descriptor{Name: "x.apk", SizeBytes: 11}
	assert.Len(t, a.Identifier(), 64)
	assert.NotEqual(t, a.Identifier(), b.Identifier())
	assert.Equal(t, "abc", riskscore.Descriptor{Name: "x.apk", Hash: "abc"}.Identifier())
}

// ─── Bulk ──────────────────────────────────────────────────────────────

func TestAssessAll_PreservesOrderAndSummarizes(t *testing.T) {
	t.Parallel()
	src := &testutil.DummyDetectionSource{Delay: 5 * time.Millisecond}
	s := newScorer(t, src)

	ds := []riskscore.Descriptor{
		{Name: "WhatsApp.apk", SizeBytes: 45_234_567},
		{Name: "Instagram.apk", SizeBytes: 32_145_678},
		{Name: "TikTok_Mod.apk", SizeBytes: 28_567_890},
		{Name: "Banking_Hack.apk", SizeBytes: 15_234_567},
		{Name: "Facebook.apk", SizeBytes: 67_890_123},
		{Name: "TikTok_Mod.apk", SizeBytes: 28_567_890},
	}

	var mu sync.Mutex
	var calls []int
	res, err := s.AssessAllProgress(context.Background(), ds, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, len(ds), total)
		calls = append(calls, done)
	})
	require.NoError(t, err)
	require.Len(t, res.Results, len(ds))

	wantScores := []int{0, 0, 40, 180, 0, 40}
	for i, a := range res.Results {
		assert.Equal(t, wantScores[i], a.RiskScore, "item %d (%s)", i, ds[i].Name)
	}
	assert.Equal(t, riskscore.Summary{Total: 6, Safe: 3, Threats: 3, Critical: 1}, res.Summary)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, calls)
}

func TestAssessAll_InvalidItemFailsBatch(t *testing.T) {
	t.Parallel()
	s := newScorer(t, nil)

	_, err := s.AssessAll(context.Background(), []riskscore.Descriptor{
		{Name: "ok.apk", SizeBytes: normalSize},
		{Name: "bad.apk", SizeBytes: -5},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, riskscore.ErrInvalidInput)
	assert.Contains(t, err.Error(), "item 1")
}

func TestAssessAll_Empty(t *testing.T) {
	t.Parallel()
	s := newScorer(t, nil)

	res, err := s.AssessAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Equal(t, riskscore.Summary{}, res.Summary)
}
