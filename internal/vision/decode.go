package vision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"alliance-observatory/internal/domain"
)

// flexInt accepts JSON numbers, numeric strings with thousands separators
// and null. Models are not consistent about which one they return.
type flexInt struct {
	v *int64
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	f.v = nil
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.ReplaceAll(strings.Trim(s, `"`), ",", "")
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		f.v = &i
		return nil
	}
	fl, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(fl) || math.IsInf(fl, 0) {
		return fmt.Errorf("not a number: %s", b)
	}
	i := int64(math.Round(fl))
	f.v = &i
	return nil
}

func (f flexInt) intPtr() *int {
	if f.v == nil {
		return nil
	}
	i := int(*f.v)
	return &i
}

type flexFloat struct {
	v *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	f.v = nil
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.ReplaceAll(strings.Trim(s, `"`), ",", "")
	if s == "" {
		return nil
	}
	fl, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	f.v = &fl
	return nil
}

// flexString accepts strings and numbers, furnace levels arrive as both.
type flexString struct {
	v *string
}

func (f *flexString) UnmarshalJSON(b []byte) error {
	f.v = nil
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		f.v = &s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("not a string: %s", b)
	}
	s = n.String()
	f.v = &s
	return nil
}

type classificationWire struct {
	Type       string   `json:"type"`
	Confidence *float64 `json:"confidence"`
}

type membersWire struct {
	CardCount flexInt           `json:"card_count"`
	Players   []json.RawMessage `json:"players"`
}

type memberRowWire struct {
	Name          string     `json:"name"`
	Power         flexInt    `json:"power"`
	PowerMillions flexFloat  `json:"power_millions"`
	Furnace       flexString `json:"furnace_level"`
}

type bearWire struct {
	TrapID  flexInt           `json:"trap_id"`
	Players []json.RawMessage `json:"players"`
}

type bearRowWire struct {
	Name   string  `json:"name"`
	Rank   flexInt `json:"rank"`
	Damage flexInt `json:"damage_points"`
}

type foundrySignupWire struct {
	Legion             flexInt           `json:"legion_number"`
	TotalTroopPower    flexInt           `json:"total_troop_power"`
	MaxParticipants    flexInt           `json:"max_participants"`
	ActualParticipants flexInt           `json:"actual_participants"`
	Players            []json.RawMessage `json:"players"`
}

type foundrySignupRowWire struct {
	Name         string  `json:"name"`
	FoundryPower flexInt `json:"foundry_power"`
	Status       string  `json:"status"`
	Voted        bool    `json:"voted"`
}

type foundryResultWire struct {
	Legion  flexInt           `json:"legion_number"`
	Players []json.RawMessage `json:"players"`
}

type rankedScoreWire struct {
	Name  string  `json:"name"`
	Rank  flexInt `json:"rank"`
	Score flexInt `json:"score"`
}

type acWire struct {
	TotalRegistered flexInt           `json:"total_registered"`
	TotalPower      flexInt           `json:"total_power"`
	Players         []json.RawMessage `json:"players"`
}

type acRowWire struct {
	Name    string  `json:"name"`
	ACPower flexInt `json:"ac_power"`
}

type contributionWire struct {
	Players []json.RawMessage `json:"players"`
}

type contributionRowWire struct {
	Name   string  `json:"name"`
	Rank   flexInt `json:"rank"`
	Amount flexInt `json:"contribution"`
}

type alliancePowerWire struct {
	Alliances []json.RawMessage `json:"alliances"`
}

type alliancePowerRowWire struct {
	NameWithTag string  `json:"alliance_name_with_tag"`
	Rank        flexInt `json:"rank"`
	TotalPower  flexInt `json:"total_power"`
}

func decodeEnvelope(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("vision reply is not the expected JSON object: %w: %w", domain.ErrExternalService, err)
	}
	return nil
}

// decodeRows decodes each row on its own so one malformed row only drops
// itself. convert returns false for rows missing a mandatory value.
func decodeRows[W any, R any](rows []json.RawMessage, convert func(W) (R, bool)) ([]R, int) {
	out := make([]R, 0, len(rows))
	dropped := 0
	for _, raw := range rows {
		var w W
		if err := json.Unmarshal(raw, &w); err != nil {
			dropped++
			continue
		}
		r, ok := convert(w)
		if !ok {
			dropped++
			continue
		}
		out = append(out, r)
	}
	return out, dropped
}

func DecodeMembers(raw []byte) (domain.MembersPayload, error) {
	var w membersWire
	if err := decodeEnvelope(raw, &w); err != nil {
		return domain.MembersPayload{}, err
	}
	rows, dropped := decodeRows(w.Players, func(r memberRowWire) (domain.MemberRow, bool) {
		return domain.MemberRow{
			Name:          r.Name,
			Power:         r.Power.v,
			PowerMillions: r.PowerMillions.v,
			Furnace:       r.Furnace.v,
		}, true
	})
	return domain.MembersPayload{CardCount: w.CardCount.intPtr(), Players: rows, Dropped: dropped}, nil
}

func DecodeBearDamage(raw []byte) (domain.BearDamagePayload, error) {
	var w bearWire
	if err := decodeEnvelope(raw, &w); err != nil {
		return domain.BearDamagePayload{}, err
	}
	rows, dropped := decodeRows(w.Players, func(r bearRowWire) (domain.BearScoreRow, bool) {
		if r.Damage.v == nil {
			return domain.BearScoreRow{}, false
		}
		return domain.BearScoreRow{Name: r.Name, Rank: r.Rank.intPtr(), Damage: *r.Damage.v}, true
	})
	return domain.BearDamagePayload{TrapID: w.TrapID.intPtr(), Players: rows, Dropped: dropped}, nil
}

func DecodeFoundrySignup(raw []byte) (domain.FoundrySignupPayload, error) {
	var w foundrySignupWire
	if err := decodeEnvelope(raw, &w); err != nil {
		return domain.FoundrySignupPayload{}, err
	}
	rows, dropped := decodeRows(w.Players, func(r foundrySignupRowWire) (domain.FoundrySignupRow, bool) {
		if r.FoundryPower.v == nil {
			return domain.FoundrySignupRow{}, false
		}
		return domain.FoundrySignupRow{
			Name:         r.Name,
			FoundryPower: *r.FoundryPower.v,
			Status:       strings.ToLower(strings.TrimSpace(r.Status)),
			Voted:        r.Voted,
		}, true
	})
	return domain.FoundrySignupPayload{
		Legion:             w.Legion.intPtr(),
		TotalTroopPower:    w.TotalTroopPower.v,
		MaxParticipants:    w.MaxParticipants.intPtr(),
		ActualParticipants: w.ActualParticipants.intPtr(),
		Players:            rows,
		Dropped:            dropped,
	}, nil
}

func DecodeFoundryResult(raw []byte) (domain.FoundryResultPayload, error) {
	var w foundryResultWire
	if err := decodeEnvelope(raw, &w); err != nil {
		return domain.FoundryResultPayload{}, err
	}
	rows, dropped := decodeRows(w.Players, func(r rankedScoreWire) (domain.FoundryResultRow, bool) {
		if r.Score.v == nil {
			return domain.FoundryResultRow{}, false
		}
		return domain.FoundryResultRow{Name: r.Name, Rank: r.Rank.intPtr(), Score: *r.Score.v}, true
	})
	return domain.FoundryResultPayload{Legion: w.Legion.intPtr(), Players: rows, Dropped: dropped}, nil
}

func DecodeACSignup(raw []byte) (domain.ACSignupPayload, error) {
	var w acWire
	if err := decodeEnvelope(raw, &w); err != nil {
		return domain.ACSignupPayload{}, err
	}
	rows, dropped := decodeRows(w.Players, func(r acRowWire) (domain.ACSignupRow, bool) {
		if r.ACPower.v == nil {
			return domain.ACSignupRow{}, false
		}
		return domain.ACSignupRow{Name: r.Name, ACPower: *r.ACPower.v}, true
	})
	return domain.ACSignupPayload{
		TotalRegistered: w.TotalRegistered.intPtr(),
		TotalPower:      w.TotalPower.v,
		Players:         rows,
		Dropped:         dropped,
	}, nil
}

func DecodeContribution(raw []byte) (domain.ContributionPayload, error) {
	var w contributionWire
	if err := decodeEnvelope(raw, &w); err != nil {
		return domain.ContributionPayload{}, err
	}
	rows, dropped := decodeRows(w.Players, func(r contributionRowWire) (domain.ContributionRow, bool) {
		if r.Amount.v == nil {
			return domain.ContributionRow{}, false
		}
		return domain.ContributionRow{Name: r.Name, Rank: r.Rank.intPtr(), Amount: *r.Amount.v}, true
	})
	return domain.ContributionPayload{Players: rows, Dropped: dropped}, nil
}

func DecodeAlliancePower(raw []byte) (domain.AlliancePowerPayload, error) {
	var w alliancePowerWire
	if err := decodeEnvelope(raw, &w); err != nil {
		return domain.AlliancePowerPayload{}, err
	}
	rows, dropped := decodeRows(w.Alliances, func(r alliancePowerRowWire) (domain.AlliancePowerRow, bool) {
		if r.TotalPower.v == nil {
			return domain.AlliancePowerRow{}, false
		}
		return domain.AlliancePowerRow{NameWithTag: r.NameWithTag, Rank: r.Rank.intPtr(), TotalPower: *r.TotalPower.v}, true
	})
	return domain.AlliancePowerPayload{Alliances: rows, Dropped: dropped}, nil
}

// Classification is the vision backend's guess at the screen type. Raw keeps
// the reply's type string so unrecognised values can be logged.
type Classification struct {
	Type       domain.ScreenshotType
	Raw        string
	Confidence float64
}

const defaultClassificationConfidence = 0.8

func DecodeClassification(raw []byte) (Classification, error) {
	var w classificationWire
	if err := decodeEnvelope(raw, &w); err != nil {
		return Classification{}, err
	}
	t, _ := domain.ParseScreenshotType(strings.TrimSpace(w.Type))
	c := Classification{Type: t, Raw: w.Type, Confidence: defaultClassificationConfidence}
	if w.Confidence != nil {
		c.Confidence = *w.Confidence
	}
	return c, nil
}
