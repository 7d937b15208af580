// Package classify decides which screen a screenshot shows.
package classify

import (
	"path/filepath"
	"strings"

	"alliance-observatory/internal/domain"
)

type Method string

const (
	MethodAI          Method = "ai"
	MethodHeuristic   Method = "heuristic"
	MethodArbitration Method = "arbitration"
	MethodOverride    Method = "override"
)

type Detection struct {
	Type       domain.ScreenshotType `json:"type"`
	Confidence float64               `json:"confidence"`
	Method     Method                `json:"method"`
}

const (
	strongHint = 0.85
	weakHint   = 0.6
	noHint     = 0.1
)

// FromFilename guesses the type from words in the file name.
func FromFilename(name string) Detection {
	n := strings.ToLower(filepath.Base(name))
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(n, w) {
				return true
			}
		}
		return false
	}
	hint := func(t domain.ScreenshotType, confidence float64) Detection {
		return Detection{Type: t, Confidence: confidence, Method: MethodHeuristic}
	}

	switch {
	case has("alliance") && has("member"):
		return hint(domain.ScreenshotAllianceMembers, strongHint)
	case has("bear"):
		switch {
		case has("overview", "success"):
			return hint(domain.ScreenshotBearOverview, strongHint)
		case has("damage", "reward"):
			return hint(domain.ScreenshotBearDamage, strongHint)
		}
		return hint(domain.ScreenshotBearDamage, weakHint)
	case has("foundry"):
		switch {
		case has("signup", "combatant"):
			return hint(domain.ScreenshotFoundrySignup, strongHint)
		case has("result", "arsenal"):
			return hint(domain.ScreenshotFoundryResult, strongHint)
		}
		return hint(domain.ScreenshotFoundryResult, weakHint)
	case has("ac", "championship") && has("signup", "lane"):
		return hint(domain.ScreenshotACSignup, strongHint)
	case has("contribution"):
		return hint(domain.ScreenshotContribution, strongHint)
	case has("alliance") && has("power"):
		return hint(domain.ScreenshotAlliancePower, strongHint)
	}
	return hint(domain.ScreenshotUnknown, noHint)
}
