package domain

import "time"

type PlayerStatus string

const (
	PlayerActive   PlayerStatus = "active"
	PlayerInactive PlayerStatus = "inactive"
	PlayerRetired  PlayerStatus = "retired"
)

type Alliance struct {
	ID        int64
	Name      string
	Tag       string
	CreatedAt time.Time
}

type Player struct {
	ID             int64
	AllianceID     int64
	Name           string
	Status         PlayerStatus
	CurrentPower   *int64
	CurrentFurnace *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MergeCounts tallies what a player merge did with the merged player's rows:
// Moved were re-pointed at the kept player, Folded collided with one of its
// rows and were combined into it or dropped.
type MergeCounts struct {
	Moved  int `json:"moved"`
	Folded int `json:"folded"`
}

type PowerHistory struct {
	ID         int64
	PlayerID   int64
	Power      int64
	CapturedAt time.Time
	Source     string
}

type FurnaceHistory struct {
	ID           int64
	PlayerID     int64
	FurnaceLevel int
	FurnaceLabel string
	CapturedAt   time.Time
	Source       string
}

type BearEvent struct {
	ID          int64
	AllianceID  int64
	TrapID      int
	StartedAt   time.Time
	EndedAt     *time.Time
	RallyCount  *int64
	TotalDamage *int64
}

type BearScore struct {
	ID         int64
	EventID    int64
	PlayerID   int64
	Score      int64
	Rank       *int
	RecordedAt time.Time
}

type FoundryEvent struct {
	ID                 int64
	AllianceID         int64
	Legion             int
	EventDate          time.Time
	TotalTroopPower    *int64
	MaxParticipants    *int
	ActualParticipants *int
	TotalScore         *int64
}

type FoundrySignup struct {
	ID           int64
	EventID      int64
	PlayerID     int64
	FoundryPower int64
	Voted        bool
	RecordedAt   time.Time
}

type FoundryResult struct {
	ID         int64
	EventID    int64
	PlayerID   int64
	Score      int64
	Rank       *int
	RecordedAt time.Time
}

type ACEvent struct {
	ID              int64
	AllianceID      int64
	WeekStart       time.Time
	TotalRegistered *int
	TotalPower      *int64
}

type ACSignup struct {
	ID         int64
	EventID    int64
	PlayerID   int64
	ACPower    int64
	RecordedAt time.Time
}

type ContributionSnapshot struct {
	ID           int64
	AllianceID   int64
	PlayerID     int64
	Amount       int64
	Rank         *int
	WeekStart    time.Time
	SnapshotDate time.Time
}

type AlliancePowerSnapshot struct {
	ID         int64
	AllianceID int64
	Name       string
	Tag        string
	TotalPower int64
	Rank       *int
	CapturedAt time.Time
}

// OCRResult is the raw payload returned by the vision backend for one
// screenshot, kept for later audit.
type OCRResult struct {
	ID             string
	ScreenshotPath string
	ModelName      string
	Kind           string
	CardCount      *int
	Payload        []byte
	CreatedAt      time.Time
}
