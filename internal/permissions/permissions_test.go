package permissions_test

import (
	"testing"

	"github.com/raysh454/shieldsuite/internal/permissions"
)

func TestAnalyze_NoDangerous(t *testing.T) {
	a := permissions.Analyze([]string{"android.permission.INTERNET"})
	if a.RiskScore != 0 || a.RiskLevel != "low" {
		t.Fatalf("unexpected analysis: %+v", a)
	}
	if a.DangerousPermissions == nil || len(a.DangerousPermissions) != 0 {
		t.Errorf("expected empty, non-nil list, got %#v", a.DangerousPermissions)
	}
}

func TestAnalyze_Levels(t *testing.T) {
	tests := []struct {
		n     int
		score int
		level string
	}{
		{2, 20, "low"},
		{3, 30, "medium"},
		{5, 50, "medium"},
		{6, 60, "high"},
		{11, 110, "high"},
	}
	for _, tc := range tests {
		a := permissions.Analyze(permissions.Dangerous[:tc.n])
		if a.RiskScore != tc.score || a.RiskLevel != tc.level {
			t.Errorf("n=%d: got score=%d level=%s, want %d %s", tc.n, a.RiskScore, a.RiskLevel, tc.score, tc.level)
		}
	}
}

func TestAnalyze_RecommendationsAndDuplicates(t *testing.T) {
	a := permissions.Analyze([]string{
		"android.permission.CAMERA",
		"android.permission.INTERNET",
		"android.permission.CAMERA",
		"android.permission.READ_SMS",
	})
	if a.RiskScore != 30 || a.RiskLevel != "medium" {
		t.Fatalf("expected 30/medium, got %d/%s", a.RiskScore, a.RiskLevel)
	}
	if len(a.DangerousPermissions) != 3 {
		t.Errorf("expected every dangerous entry to be listed, got %v", a.DangerousPermissions)
	}
	want := []string{
		"Review why app needs: CAMERA",
		"Review why app needs: CAMERA",
		"Review why app needs: READ_SMS",
	}
	if len(a.Recommendations) != len(want) {
		t.Fatalf("expected %d recommendations, got %v", len(want), a.Recommendations)
	}
	for i, r := range want {
		if a.Recommendations[i] != r {
			t.Errorf("recommendation %d: got %q want %q", i, a.Recommendations[i], r)
		}
	}
}
