package classify

import (
	"path/filepath"
	"strings"

	"alliance-observatory/internal/domain"
)

const unknownType = domain.ScreenshotUnknown

const offlineConfidence = 0.4

var offlineKeywords = []struct {
	word string
	typ  domain.ScreenshotType
}{
	{"contribution", domain.ScreenshotContribution},
	{"member", domain.ScreenshotAllianceMembers},
	{"lane", domain.ScreenshotACSignup},
	{"bear", domain.ScreenshotBearDamage},
}

// Offline classifies curated samples from their file name and note. It has
// no external dependencies and is meant for the dataset tooling only.
func Offline(filename, note string) Detection {
	hints := strings.ToLower(note + filepath.Base(filename))
	for _, k := range offlineKeywords {
		if strings.Contains(hints, k.word) {
			return Detection{Type: k.typ, Confidence: offlineConfidence, Method: MethodHeuristic}
		}
	}
	return Detection{Type: unknownType, Confidence: noHint, Method: MethodHeuristic}
}

// Earlier entries win, so the more specific phrases come first.
var textKeywords = []struct {
	phrase string
	typ    domain.ScreenshotType
}{
	{"hunt successful", domain.ScreenshotBearOverview},
	{"hunting trap", domain.ScreenshotBearOverview},
	{"damage rewards", domain.ScreenshotBearDamage},
	{"combatants", domain.ScreenshotFoundrySignup},
	{"arsenal points", domain.ScreenshotFoundryResult},
	{"alliance member", domain.ScreenshotAllianceMembers},
	{"membership", domain.ScreenshotAllianceMembers},
	{"contribution", domain.ScreenshotContribution},
	{"alliance power", domain.ScreenshotAlliancePower},
	{"bear", domain.ScreenshotBearDamage},
	{"trap", domain.ScreenshotBearDamage},
	{"order of battle", domain.ScreenshotACSignup},
	{"championship", domain.ScreenshotACSignup},
	{"lane", domain.ScreenshotACSignup},
}

// InferFromText refines a type from recognised text and keeps current when
// no phrase matches.
func InferFromText(text string, current domain.ScreenshotType) domain.ScreenshotType {
	lowered := strings.ToLower(text)
	for _, k := range textKeywords {
		if strings.Contains(lowered, k.phrase) {
			return k.typ
		}
	}
	return current
}
