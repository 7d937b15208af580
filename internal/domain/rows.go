package domain

// Rows extracted from a screenshot. Struct tags drive validation at the
// payload boundary; a row that fails validation is dropped on its own.

type MemberRow struct {
	Name          string   `json:"name" validate:"required"`
	Power         *int64   `json:"power,omitempty" validate:"omitempty,gte=0"`
	PowerMillions *float64 `json:"power_millions,omitempty" validate:"omitempty,gte=0"`
	Furnace       *string  `json:"furnace_level,omitempty"`
}

type MembersPayload struct {
	CardCount *int
	Players   []MemberRow
	Dropped   int
}

type BearScoreRow struct {
	Name   string `json:"name" validate:"required"`
	Rank   *int   `json:"rank,omitempty" validate:"omitempty,gte=1"`
	Damage int64  `json:"damage_points" validate:"gte=0"`
}

type BearDamagePayload struct {
	TrapID  *int
	Players []BearScoreRow
	Dropped int
}

type BearOverview struct {
	TrapID      *int
	RallyCount  *int64
	TotalDamage *int64
}

type FoundrySignupRow struct {
	Name         string `json:"name" validate:"required"`
	FoundryPower int64  `json:"foundry_power" validate:"gte=0"`
	Status       string `json:"status" validate:"required"`
	Voted        bool   `json:"voted"`
}

type FoundrySignupPayload struct {
	Legion             *int
	TotalTroopPower    *int64
	MaxParticipants    *int
	ActualParticipants *int
	Players            []FoundrySignupRow
	Dropped            int
}

type FoundryResultRow struct {
	Name  string `json:"name" validate:"required"`
	Rank  *int   `json:"rank,omitempty" validate:"omitempty,gte=1"`
	Score int64  `json:"score" validate:"gte=0"`
}

type FoundryResultPayload struct {
	Legion  *int
	Players []FoundryResultRow
	Dropped int
}

type ACSignupRow struct {
	Name    string `json:"name" validate:"required"`
	ACPower int64  `json:"ac_power" validate:"gte=0"`
}

type ACSignupPayload struct {
	TotalRegistered *int
	TotalPower      *int64
	Players         []ACSignupRow
	Dropped         int
}

type ContributionRow struct {
	Name   string `json:"name" validate:"required"`
	Rank   *int   `json:"rank,omitempty" validate:"omitempty,gte=1"`
	Amount int64  `json:"contribution" validate:"gte=0"`
}

type ContributionPayload struct {
	Players []ContributionRow
	Dropped int
}

type AlliancePowerRow struct {
	NameWithTag string `json:"alliance_name_with_tag" validate:"required"`
	Rank        *int   `json:"rank,omitempty" validate:"omitempty,gte=1"`
	TotalPower  int64  `json:"total_power" validate:"gte=0"`
}

type AlliancePowerPayload struct {
	Alliances []AlliancePowerRow
	Dropped   int
}
