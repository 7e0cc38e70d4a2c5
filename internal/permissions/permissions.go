// Package permissions flags dangerous Android permissions requested by an APK.
package permissions

import (
	"fmt"
	"strings"
)

// Dangerous is the set of permissions that raise an app's risk.
var Dangerous = []string{
	"android.permission.SEND_SMS",
	"android.permission.CALL_PHONE",
	"android.permission.DEVICE_ADMIN",
	"android.permission.SYSTEM_ALERT_WINDOW",
	"android.permission.WRITE_SETTINGS",
	"android.permission.INSTALL_PACKAGES",
	"android.permission.READ_SMS",
	"android.permission.RECEIVE_SMS",
	"android.permission.CAMERA",
	"android.permission.RECORD_AUDIO",
	"android.permission.ACCESS_FINE_LOCATION",
}

const perPermissionScore = 10

var dangerousSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Dangerous))
	for _, p := range Dangerous {
		m[p] = struct{}{}
	}
	return m
}()

type Analysis struct {
	DangerousPermissions []string `json:"dangerousPermissions"`
	RiskScore            int      `json:"riskScore"`
	RiskLevel            string   `json:"riskLevel"`
	Recommendations      []string `json:"recommendations"`
}

// Analyze scores the requested permissions. Each dangerous entry is worth
// 10 points; more than 50 is high, more than 20 is medium. A permission
// listed twice is counted twice.
func Analyze(requested []string) Analysis {
	found := []string{}
	for _, p := range requested {
		if _, ok := dangerousSet[p]; ok {
			found = append(found, p)
		}
	}

	score := len(found) * perPermissionScore
	recs := make([]string, 0, len(found))
	for _, p := range found {
		recs = append(recs, fmt.Sprintf("Review why app needs: %s", shortName(p)))
	}

	return Analysis{
		DangerousPermissions: found,
		RiskScore:            score,
		RiskLevel:            level(score),
		Recommendations:      recs,
	}
}

func level(score int) string {
	switch {
	case score > 50:
		return "high"
	case score > 20:
		return "medium"
	default:
		return "low"
	}
}

func shortName(p string) string {
	if i := strings.LastIndex(p, "."); i >= 0 {
		return p[i+1:]
	}
	return p
}
