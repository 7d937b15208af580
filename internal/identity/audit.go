package identity

import (
	"sort"

	"alliance-observatory/internal/domain"
)

// Audit scores each name against the roster at a diagnostic threshold,
// usually lower than the live one, so operators can review near misses.
func Audit(names []string, roster []domain.Player, threshold float64) []Match {
	out := make([]Match, 0, len(names))
	for _, raw := range names {
		cleaned := StripTag(raw)
		m := Match{Raw: raw, Cleaned: cleaned, Method: MethodNone}
		for _, p := range roster {
			if p.Name == cleaned {
				m.Matched, m.PlayerID, m.Score, m.Method = p.Name, p.ID, 1, MethodExact
				break
			}
		}
		if m.Method == MethodExact {
			out = append(out, m)
			continue
		}
		best, score, ok := BestMatch(cleaned, roster, threshold)
		m.Score = score
		if best != nil {
			m.Matched, m.PlayerID = best.Name, best.ID
		}
		if ok {
			m.Method = MethodFuzzy
		}
		out = append(out, m)
	}
	return out
}

type DuplicatePair struct {
	First  domain.Player `json:"first"`
	Second domain.Player `json:"second"`
	Score  float64       `json:"score"`
}

// Duplicates lists roster pairs whose names are at least threshold similar,
// highest similarity first. These are usually one player created twice from
// misread member screens.
func Duplicates(roster []domain.Player, threshold float64) []DuplicatePair {
	var out []DuplicatePair
	for i := 0; i < len(roster); i++ {
		for j := i + 1; j < len(roster); j++ {
			score := Similarity(roster[i].Name, roster[j].Name)
			if score >= threshold {
				out = append(out, DuplicatePair{First: roster[i], Second: roster[j], Score: score})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
