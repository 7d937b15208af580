package db

import "database/sql"

type Alliance struct {
	ID        int64
	Name      string
	Tag       string
	CreatedAt string
}

type Player struct {
	ID             int64
	AllianceID     int64
	Name           string
	Status         string
	CurrentPower   sql.NullInt64
	CurrentFurnace sql.NullString
	CreatedAt      string
	UpdatedAt      string
}

type BearEvent struct {
	ID          int64
	AllianceID  int64
	TrapID      int64
	StartedAt   string
	EndedAt     sql.NullString
	RallyCount  sql.NullInt64
	TotalDamage sql.NullInt64
}

type BearScore struct {
	ID          int64
	BearEventID int64
	PlayerID    int64
	Score       int64
	Rank        sql.NullInt64
	RecordedAt  string
}

type FoundryEvent struct {
	ID                 int64
	AllianceID         int64
	LegionNumber       int64
	EventDate          string
	TotalTroopPower    sql.NullInt64
	MaxParticipants    sql.NullInt64
	ActualParticipants sql.NullInt64
	TotalScore         sql.NullInt64
}

type AcEvent struct {
	ID              int64
	AllianceID      int64
	WeekStartDate   string
	TotalRegistered sql.NullInt64
	TotalPower      sql.NullInt64
}

type AcSignup struct {
	ID         int64
	AcEventID  int64
	PlayerID   int64
	AcPower    int64
	RecordedAt string
}
