// Package identity maps OCR-read player names onto the canonical roster.
package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/store"

	"github.com/rs/zerolog"
	"github.com/xrash/smetrics"
	"golang.org/x/text/cases"
)

var tagPrefix = regexp.MustCompile(`^[\[\(]?[A-Za-z0-9]{1,4}[\]\)]\s*`)

type Method string

const (
	MethodExact Method = "exact"
	MethodFuzzy Method = "fuzzy"
	MethodNone  Method = "none"
)

// Match records how a name was resolved. It is kept for provenance logging
// and for offline audit output.
type Match struct {
	Raw      string  `json:"raw"`
	Cleaned  string  `json:"cleaned"`
	Matched  string  `json:"matched,omitempty"`
	PlayerID int64   `json:"player_id,omitempty"`
	Score    float64 `json:"score"`
	Method   Method  `json:"method"`
}

// StripTag removes one leading alliance tag such as "[HEI]" or "(ab1)".
func StripTag(raw string) string {
	return strings.TrimSpace(tagPrefix.ReplaceAllString(strings.TrimSpace(raw), ""))
}

// maxCompareRunes bounds each side so the distinct characters of a pair fit
// in the single-byte alphabet the distance runs over.
const maxCompareRunes = 64

// Similarity is a normalised indel ratio in [0,1] over the case-folded
// characters of a and b: 2*matching / (len(a)+len(b)), computed from the
// Wagner-Fischer distance with substitution cost 2.
func Similarity(a, b string) float64 {
	fold := cases.Fold()
	ra, rb := clip([]rune(fold.String(a))), clip([]rune(fold.String(b)))
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	ea, eb := encodePair(ra, rb)
	dist := smetrics.WagnerFischer(ea, eb, 1, 1, 2)
	return float64(total-dist) / float64(total)
}

func clip(rs []rune) []rune {
	if len(rs) > maxCompareRunes {
		return rs[:maxCompareRunes]
	}
	return rs
}

// encodePair gives every distinct rune of the pair its own ASCII byte, so a
// byte-wise edit distance counts characters rather than UTF-8 bytes.
func encodePair(a, b []rune) (string, string) {
	codes := make(map[rune]byte, len(a)+len(b))
	encode := func(rs []rune) string {
		out := make([]byte, len(rs))
		for i, r := range rs {
			c, ok := codes[r]
			if !ok {
				c = byte(len(codes))
				codes[r] = c
			}
			out[i] = c
		}
		return string(out)
	}
	return encode(a), encode(b)
}

// BestMatch returns the roster entry with the highest similarity to name and
// whether that similarity reaches threshold. The first entry wins ties.
func BestMatch(name string, roster []domain.Player, threshold float64) (*domain.Player, float64, bool) {
	var (
		best      *domain.Player
		bestScore float64
	)
	for i := range roster {
		score := Similarity(name, roster[i].Name)
		if best == nil || score > bestScore {
			best = &roster[i]
			bestScore = score
		}
	}
	if best == nil || bestScore < threshold {
		return best, bestScore, false
	}
	return best, bestScore, true
}

type Resolver struct {
	threshold float64
	logger    zerolog.Logger
}

func NewResolver(threshold float64, logger zerolog.Logger) *Resolver {
	return &Resolver{threshold: threshold, logger: logger}
}

func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Resolve looks up raw in the alliance roster: exact match on the tag-stripped
// name first, then the best fuzzy match at or above the threshold. It returns
// domain.ErrNotFound when neither succeeds. Resolution never creates players.
func (r *Resolver) Resolve(ctx context.Context, players store.PlayerStore, allianceID int64, raw, source string) (*domain.Player, Match, error) {
	cleaned := StripTag(raw)
	m := Match{Raw: raw, Cleaned: cleaned, Method: MethodNone}
	if cleaned == "" {
		r.logNotFound(m, "", allianceID, source)
		return nil, m, fmt.Errorf("empty name after tag strip: %w", domain.ErrNotFound)
	}

	player, err := players.FindPlayer(ctx, allianceID, cleaned)
	if err == nil {
		m.Matched, m.PlayerID, m.Score, m.Method = player.Name, player.ID, 1, MethodExact
		return player, m, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, m, fmt.Errorf("failed to look up player %q: %w", cleaned, err)
	}

	roster, err := players.ListPlayers(ctx, allianceID)
	if err != nil {
		return nil, m, fmt.Errorf("failed to list roster: %w", err)
	}

	best, score, ok := BestMatch(cleaned, roster, r.threshold)
	m.Score = score
	if !ok {
		candidate := ""
		if best != nil {
			candidate = best.Name
		}
		r.logNotFound(m, candidate, allianceID, source)
		return nil, m, domain.ErrNotFound
	}

	m.Matched, m.PlayerID, m.Method = best.Name, best.ID, MethodFuzzy
	r.logger.Info().
		Str("ocr_text", raw).
		Str("cleaned_name", cleaned).
		Str("matched_name", best.Name).
		Float64("similarity", score).
		Int64("alliance_id", allianceID).
		Str("source", source).
		Msg("fuzzy player match")
	return best, m, nil
}

// logNotFound keeps the OCR provenance of a dropped row. matched is the
// closest roster name, if any.
func (r *Resolver) logNotFound(m Match, matched string, allianceID int64, source string) {
	r.logger.Warn().
		Str("ocr_text", m.Raw).
		Str("cleaned_name", m.Cleaned).
		Str("matched_name", matched).
		Float64("similarity", m.Score).
		Float64("threshold", r.threshold).
		Int64("alliance_id", allianceID).
		Str("source", source).
		Msg("player not found")
}
