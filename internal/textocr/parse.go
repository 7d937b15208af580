package textocr

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/identity"
)

var (
	trapPattern   = regexp.MustCompile(`(?i)\[Hunting\s+Trap\s+(\d+)\]`)
	rallyPattern  = regexp.MustCompile(`(?i)Rallies:\s*(\d+)`)
	damagePattern = regexp.MustCompile(`(?i)Total\s+Alliance\s+Damage:\s*([\d,]+)`)
)

// ParseBearOverview reads the hunt completion screen. Fields that are not
// found stay nil; the caller decides which are mandatory.
func ParseBearOverview(text string) domain.BearOverview {
	var out domain.BearOverview
	if m := trapPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			out.TrapID = &v
		}
	}
	if m := rallyPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			out.RallyCount = &v
		}
	}
	if m := damagePattern.FindStringSubmatch(text); m != nil {
		if v, err := ParseNumber(m[1]); err == nil {
			out.TotalDamage = &v
		}
	}
	return out
}

// ParseNumber accepts digits with thousands separators.
func ParseNumber(s string) (int64, error) {
	return strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 10, 64)
}

type Entry struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

var entryPattern = regexp.MustCompile(`(?P<prefix>[\d\)\(\.\-]{0,4})\s*(?P<name>[\w\[\]()'’\-]+(?:\s+[\w\[\]()'’\-]+)*)\s+(?P<value>\d[\d,]{2,})`)

var headerWords = map[string]bool{"ranking": true, "contribution": true, "rewards": true}

const maxNameLength = 64

// ParseRankedEntries pulls "name value" pairs out of leaderboard text,
// dropping header words and exact repeats.
func ParseRankedEntries(text string, limit int) []Entry {
	var entries []Entry
	seen := map[string]bool{}
	nameIdx := entryPattern.SubexpIndex("name")
	valueIdx := entryPattern.SubexpIndex("value")
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 4 {
			continue
		}
		m := entryPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := CleanName(strings.Trim(m[nameIdx], "[]():/"))
		value, err := ParseNumber(m[valueIdx])
		if err != nil || name == "" {
			continue
		}
		key := strings.ToLower(name) + "\x00" + strconv.FormatInt(value, 10)
		if seen[key] || headerWords[strings.ToLower(name)] {
			continue
		}
		seen[key] = true
		entries = append(entries, Entry{Name: truncate(name), Value: value})
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries
}

type RosterEntry struct {
	Name  string `json:"name"`
	Power *int64 `json:"power,omitempty"`
}

// ParseRoster reads member lines: name tokens followed by a power figure.
func ParseRoster(text string, limit int) []RosterEntry {
	var players []RosterEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.ContainsFunc(line, unicode.IsDigit) {
			continue
		}
		var (
			parts []string
			power *int64
		)
		for _, token := range strings.Fields(line) {
			if v, err := ParseNumber(token); err == nil {
				power = &v
				continue
			}
			parts = append(parts, identity.StripTag(token))
		}
		if len(parts) == 0 {
			continue
		}
		players = append(players, RosterEntry{Name: truncate(CleanName(strings.Join(parts, " "))), Power: power})
		if limit > 0 && len(players) >= limit {
			break
		}
	}
	return players
}

// CleanName strips a tag, leading digits and punctuation, short leading
// words left over from rank badges, and rejoins names OCR spaced out letter
// by letter ("D A D D Y" -> "DADDY").
func CleanName(name string) string {
	name = identity.StripTag(name)
	name = strings.TrimLeftFunc(name, func(r rune) bool { return !unicode.IsLetter(r) })
	tokens := strings.Fields(name)
	if len(tokens) >= 3 && allSingleRune(tokens) {
		return strings.Join(tokens, "")
	}
	for len(tokens) > 0 && len([]rune(tokens[0])) <= 2 && isAlpha(tokens[0]) {
		tokens = tokens[1:]
	}
	return strings.Join(tokens, " ")
}

func allSingleRune(tokens []string) bool {
	for _, t := range tokens {
		if len([]rune(t)) != 1 {
			return false
		}
	}
	return true
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > maxNameLength {
		return string(r[:maxNameLength])
	}
	return s
}
