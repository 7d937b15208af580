package constants

import "time"

const (
	VisionTimeout   = 60 * time.Second
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	FileTimeout     = 3 * time.Minute
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	BearEventListLimit = 20
	SamplePreviewChars = 200
	RankedEntryLimit   = 10
)
