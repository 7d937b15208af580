// Package upsert persists extracted screenshot rows with per-kind
// idempotency rules. Routines never commit: the caller owns the session.
package upsert

import (
	"context"
	"errors"
	"strings"
	"time"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/events"
	"alliance-observatory/internal/identity"
	"alliance-observatory/internal/store"
	"alliance-observatory/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Capture identifies where a payload came from.
type Capture struct {
	AllianceID int64
	At         time.Time
	Source     string
}

type Upserter struct {
	resolver *identity.Resolver
	locator  *events.Locator
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewUpserter(resolver *identity.Resolver, locator *events.Locator, logger zerolog.Logger) *Upserter {
	return &Upserter{
		resolver: resolver,
		locator:  locator,
		validate: validation.New(),
		logger:   logger,
	}
}

// usable validates one row and reports whether it should be persisted.
func (u *Upserter) usable(c Capture, name string, row any, counts *domain.RowCounts) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		counts.Invalid++
		return false
	}
	if err := u.validate.Struct(row); err != nil {
		u.logger.Warn().
			Str("name", name).
			Str("source", c.Source).
			Str("reason", validation.FormatError(err)).
			Msg("skipping invalid row")
		counts.Invalid++
		return false
	}
	return true
}

// resolve returns nil without error when the name is not on the roster.
func (u *Upserter) resolve(ctx context.Context, s store.PlayerStore, c Capture, name string, counts *domain.RowCounts) (*domain.Player, error) {
	player, _, err := u.resolver.Resolve(ctx, s, c.AllianceID, name, c.Source)
	if errors.Is(err, domain.ErrNotFound) {
		counts.Unresolved++
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return player, nil
}

func emptyPayload(rows, dropped int) bool {
	return rows == 0 && dropped == 0
}
