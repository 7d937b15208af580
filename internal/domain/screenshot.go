package domain

// ScreenshotType is the closed set of screens the ingestion path knows how
// to handle. Values outside the set decode to ScreenshotUnrecognized so that
// drift in an upstream classifier is visible instead of silently mapped.
type ScreenshotType int

const (
	ScreenshotUnknown ScreenshotType = iota
	ScreenshotAllianceMembers
	ScreenshotBearDamage
	ScreenshotBearOverview
	ScreenshotFoundrySignup
	ScreenshotFoundryResult
	ScreenshotACSignup
	ScreenshotContribution
	ScreenshotAlliancePower
	ScreenshotUnrecognized
)

var screenshotNames = map[ScreenshotType]string{
	ScreenshotUnknown:         "unknown",
	ScreenshotAllianceMembers: "alliance_members",
	ScreenshotBearDamage:      "bear_damage",
	ScreenshotBearOverview:    "bear_overview",
	ScreenshotFoundrySignup:   "foundry_signup",
	ScreenshotFoundryResult:   "foundry_result",
	ScreenshotACSignup:        "ac_signup",
	ScreenshotContribution:    "contribution",
	ScreenshotAlliancePower:   "alliance_power",
	ScreenshotUnrecognized:    "unrecognized",
}

func (t ScreenshotType) String() string {
	if name, ok := screenshotNames[t]; ok {
		return name
	}
	return "unrecognized"
}

// Processable reports whether a persistence routine exists for the type.
func (t ScreenshotType) Processable() bool {
	return t > ScreenshotUnknown && t < ScreenshotUnrecognized
}

// ParseScreenshotType maps a wire name to its type. The boolean is false for
// names outside the closed set, in which case ScreenshotUnrecognized is returned.
func ParseScreenshotType(s string) (ScreenshotType, bool) {
	for t, name := range screenshotNames {
		if t == ScreenshotUnrecognized {
			continue
		}
		if name == s {
			return t, true
		}
	}
	return ScreenshotUnrecognized, false
}

func (t ScreenshotType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ScreenshotType) UnmarshalText(b []byte) error {
	*t, _ = ParseScreenshotType(string(b))
	return nil
}

// ScreenshotTypes lists every processable type in a stable order.
func ScreenshotTypes() []ScreenshotType {
	return []ScreenshotType{
		ScreenshotAllianceMembers,
		ScreenshotBearDamage,
		ScreenshotBearOverview,
		ScreenshotFoundrySignup,
		ScreenshotFoundryResult,
		ScreenshotACSignup,
		ScreenshotContribution,
		ScreenshotAlliancePower,
	}
}

type FoundryStatus int

const (
	FoundryStatusUnrecognized FoundryStatus = iota
	FoundryStatusJoin
	FoundryStatusOtherLegion
	FoundryStatusNoEngagement
)

var foundryStatusNames = map[string]FoundryStatus{
	"join":                FoundryStatusJoin,
	"legion_2_dispatched": FoundryStatusOtherLegion,
	"legion_1_dispatched": FoundryStatusOtherLegion,
	"no_engagements":      FoundryStatusNoEngagement,
}

func ParseFoundryStatus(s string) FoundryStatus {
	if st, ok := foundryStatusNames[s]; ok {
		return st
	}
	return FoundryStatusUnrecognized
}

func (s FoundryStatus) String() string {
	switch s {
	case FoundryStatusJoin:
		return "join"
	case FoundryStatusOtherLegion:
		return "other_legion"
	case FoundryStatusNoEngagement:
		return "no_engagements"
	}
	return "unrecognized"
}
