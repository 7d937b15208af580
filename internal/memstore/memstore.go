// Package memstore is an in-memory store.Store with the same unique keys as
// the SQLite schema. Sessions are serialised: Begin blocks until the previous
// session commits or rolls back.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"alliance-observatory/internal/domain"
	"alliance-observatory/internal/store"
)

var errSessionDone = errors.New("memstore: session already finished")

type Store struct {
	mu   sync.Mutex
	data *dataset

	ocrMu sync.Mutex
	ocr   []domain.OCRResult
}

// historyKey stores captured_at in whole seconds, the precision the
// database keeps.
type historyKey struct {
	playerID int64
	at       int64
}

type pairKey struct {
	eventID  int64
	playerID int64
}

type contributionKey struct {
	allianceID int64
	playerID   int64
	week       int64
	snapshot   int64
}

type dataset struct {
	nextID         int64
	alliances      map[int64]domain.Alliance
	players        map[int64]domain.Player
	power          map[historyKey]domain.PowerHistory
	furnace        map[historyKey]domain.FurnaceHistory
	bearEvents     map[int64]domain.BearEvent
	bearScores     map[int64]domain.BearScore
	foundryEvents  map[int64]domain.FoundryEvent
	foundrySignups map[pairKey]domain.FoundrySignup
	foundryResults map[pairKey]domain.FoundryResult
	acEvents       map[int64]domain.ACEvent
	acSignups      map[int64]domain.ACSignup
	contributions  map[contributionKey]domain.ContributionSnapshot
	alliancePower  []domain.AlliancePowerSnapshot
}

func New() *Store {
	return &Store{data: &dataset{
		alliances:      map[int64]domain.Alliance{},
		players:        map[int64]domain.Player{},
		power:          map[historyKey]domain.PowerHistory{},
		furnace:        map[historyKey]domain.FurnaceHistory{},
		bearEvents:     map[int64]domain.BearEvent{},
		bearScores:     map[int64]domain.BearScore{},
		foundryEvents:  map[int64]domain.FoundryEvent{},
		foundrySignups: map[pairKey]domain.FoundrySignup{},
		foundryResults: map[pairKey]domain.FoundryResult{},
		acEvents:       map[int64]domain.ACEvent{},
		acSignups:      map[int64]domain.ACSignup{},
		contributions:  map[contributionKey]domain.ContributionSnapshot{},
	}}
}

func (d *dataset) clone() *dataset {
	return &dataset{
		nextID:         d.nextID,
		alliances:      cloneMap(d.alliances),
		players:        cloneMap(d.players),
		power:          cloneMap(d.power),
		furnace:        cloneMap(d.furnace),
		bearEvents:     cloneMap(d.bearEvents),
		bearScores:     cloneMap(d.bearScores),
		foundryEvents:  cloneMap(d.foundryEvents),
		foundrySignups: cloneMap(d.foundrySignups),
		foundryResults: cloneMap(d.foundryResults),
		acEvents:       cloneMap(d.acEvents),
		acSignups:      cloneMap(d.acSignups),
		contributions:  cloneMap(d.contributions),
		alliancePower:  append([]domain.AlliancePowerSnapshot(nil), d.alliancePower...),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *dataset) id() int64 {
	d.nextID++
	return d.nextID
}

func (s *Store) Begin(ctx context.Context) (store.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &session{store: s, data: s.data.clone()}, nil
}

func (s *Store) RecordOCRResult(_ context.Context, r *domain.OCRResult) error {
	s.ocrMu.Lock()
	defer s.ocrMu.Unlock()
	s.ocr = append(s.ocr, *r)
	return nil
}

// OCRResults returns the recorded vision payloads in insertion order.
func (s *Store) OCRResults() []domain.OCRResult {
	s.ocrMu.Lock()
	defer s.ocrMu.Unlock()
	return append([]domain.OCRResult(nil), s.ocr...)
}

// Tally counts committed rows per table.
type Tally struct {
	Alliances      int
	Players        int
	PowerHistory   int
	FurnaceHistory int
	BearEvents     int
	BearScores     int
	FoundryEvents  int
	FoundrySignups int
	FoundryResults int
	ACEvents       int
	ACSignups      int
	Contributions  int
	AlliancePower  int
}

func (s *Store) Tally() Tally {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.data
	return Tally{
		Alliances:      len(d.alliances),
		Players:        len(d.players),
		PowerHistory:   len(d.power),
		FurnaceHistory: len(d.furnace),
		BearEvents:     len(d.bearEvents),
		BearScores:     len(d.bearScores),
		FoundryEvents:  len(d.foundryEvents),
		FoundrySignups: len(d.foundrySignups),
		FoundryResults: len(d.foundryResults),
		ACEvents:       len(d.acEvents),
		ACSignups:      len(d.acSignups),
		Contributions:  len(d.contributions),
		AlliancePower:  len(d.alliancePower),
	}
}

type session struct {
	store *Store
	data  *dataset
	done  bool
}

func (s *session) Commit() error {
	if s.done {
		return errSessionDone
	}
	s.done = true
	s.store.data = s.data
	s.store.mu.Unlock()
	return nil
}

func (s *session) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	s.store.mu.Unlock()
	return nil
}

func (s *session) EnsureAlliance(_ context.Context, a *domain.Alliance) error {
	if existing, ok := s.data.alliances[a.ID]; ok {
		existing.Name = a.Name
		existing.Tag = a.Tag
		s.data.alliances[a.ID] = existing
		*a = existing
		return nil
	}
	if a.ID == 0 {
		a.ID = s.data.id()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.data.alliances[a.ID] = *a
	return nil
}

func (s *session) FindPlayer(_ context.Context, allianceID int64, name string) (*domain.Player, error) {
	for _, p := range s.sortedPlayers(allianceID) {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *session) ListPlayers(_ context.Context, allianceID int64) ([]domain.Player, error) {
	return s.sortedPlayers(allianceID), nil
}

func (s *session) sortedPlayers(allianceID int64) []domain.Player {
	out := make([]domain.Player, 0, len(s.data.players))
	for _, p := range s.data.players {
		if p.AllianceID == allianceID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *session) CreatePlayer(_ context.Context, p *domain.Player) error {
	for _, existing := range s.data.players {
		if existing.AllianceID == p.AllianceID && existing.Name == p.Name {
			return errors.New("memstore: duplicate player name")
		}
	}
	p.ID = s.data.id()
	s.data.players[p.ID] = *p
	return nil
}

func (s *session) UpdatePlayer(_ context.Context, p *domain.Player) error {
	if _, ok := s.data.players[p.ID]; !ok {
		return domain.ErrNotFound
	}
	s.data.players[p.ID] = *p
	return nil
}

func (s *session) InsertPowerHistory(_ context.Context, h *domain.PowerHistory) (bool, error) {
	key := historyKey{h.PlayerID, h.CapturedAt.Unix()}
	if _, ok := s.data.power[key]; ok {
		return false, nil
	}
	h.ID = s.data.id()
	s.data.power[key] = *h
	return true, nil
}

func (s *session) InsertFurnaceHistory(_ context.Context, h *domain.FurnaceHistory) (bool, error) {
	key := historyKey{h.PlayerID, h.CapturedAt.Unix()}
	if _, ok := s.data.furnace[key]; ok {
		return false, nil
	}
	h.ID = s.data.id()
	s.data.furnace[key] = *h
	return true, nil
}

func (s *session) BearEventsBetween(_ context.Context, allianceID int64, trapID int, from, to time.Time) ([]domain.BearEvent, error) {
	var out []domain.BearEvent
	for _, e := range s.data.bearEvents {
		if e.AllianceID != allianceID || e.TrapID != trapID {
			continue
		}
		if e.StartedAt.Before(from) || e.StartedAt.After(to) {
			continue
		}
		out = append(out, e)
	}
	sortBearEvents(out)
	return out, nil
}

func (s *session) ListBearEvents(_ context.Context, allianceID int64, limit int) ([]domain.BearEvent, error) {
	var out []domain.BearEvent
	for _, e := range s.data.bearEvents {
		if e.AllianceID == allianceID {
			out = append(out, e)
		}
	}
	sortBearEvents(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortBearEvents(events []domain.BearEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartedAt.Equal(events[j].StartedAt) {
			return events[i].ID > events[j].ID
		}
		return events[i].StartedAt.After(events[j].StartedAt)
	})
}

func (s *session) GetBearEvent(_ context.Context, id int64) (*domain.BearEvent, error) {
	e, ok := s.data.bearEvents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (s *session) CreateBearEvent(_ context.Context, e *domain.BearEvent) error {
	e.ID = s.data.id()
	s.data.bearEvents[e.ID] = *e
	return nil
}

func (s *session) UpdateBearEvent(_ context.Context, e *domain.BearEvent) error {
	if _, ok := s.data.bearEvents[e.ID]; !ok {
		return domain.ErrNotFound
	}
	s.data.bearEvents[e.ID] = *e
	return nil
}

func (s *session) DeleteBearEvent(_ context.Context, id int64) error {
	for _, sc := range s.data.bearScores {
		if sc.EventID == id {
			return errors.New("memstore: bear event still has scores")
		}
	}
	delete(s.data.bearEvents, id)
	return nil
}

func (s *session) GetBearScore(_ context.Context, eventID, playerID int64) (*domain.BearScore, error) {
	for _, sc := range s.data.bearScores {
		if sc.EventID == eventID && sc.PlayerID == playerID {
			return &sc, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *session) ListBearScores(_ context.Context, eventID int64) ([]domain.BearScore, error) {
	var out []domain.BearScore
	for _, sc := range s.data.bearScores {
		if sc.EventID == eventID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *session) CreateBearScore(ctx context.Context, sc *domain.BearScore) error {
	if _, err := s.GetBearScore(ctx, sc.EventID, sc.PlayerID); err == nil {
		return errors.New("memstore: duplicate bear score")
	}
	sc.ID = s.data.id()
	s.data.bearScores[sc.ID] = *sc
	return nil
}

func (s *session) UpdateBearScore(_ context.Context, sc *domain.BearScore) error {
	if _, ok := s.data.bearScores[sc.ID]; !ok {
		return domain.ErrNotFound
	}
	s.data.bearScores[sc.ID] = *sc
	return nil
}

func (s *session) DeleteBearScore(_ context.Context, id int64) error {
	delete(s.data.bearScores, id)
	return nil
}

func (s *session) FindFoundryEvent(_ context.Context, allianceID int64, legion int, eventDate time.Time) (*domain.FoundryEvent, error) {
	for _, e := range s.data.foundryEvents {
		if e.AllianceID == allianceID && e.Legion == legion && e.EventDate.Equal(eventDate) {
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *session) CreateFoundryEvent(_ context.Context, e *domain.FoundryEvent) error {
	e.ID = s.data.id()
	s.data.foundryEvents[e.ID] = *e
	return nil
}

func (s *session) UpdateFoundryEvent(_ context.Context, e *domain.FoundryEvent) error {
	if _, ok := s.data.foundryEvents[e.ID]; !ok {
		return domain.ErrNotFound
	}
	s.data.foundryEvents[e.ID] = *e
	return nil
}

func (s *session) InsertFoundrySignup(_ context.Context, fs *domain.FoundrySignup) (bool, error) {
	key := pairKey{fs.EventID, fs.PlayerID}
	if _, ok := s.data.foundrySignups[key]; ok {
		return false, nil
	}
	fs.ID = s.data.id()
	s.data.foundrySignups[key] = *fs
	return true, nil
}

func (s *session) InsertFoundryResult(_ context.Context, r *domain.FoundryResult) (bool, error) {
	key := pairKey{r.EventID, r.PlayerID}
	if _, ok := s.data.foundryResults[key]; ok {
		return false, nil
	}
	r.ID = s.data.id()
	s.data.foundryResults[key] = *r
	return true, nil
}

func (s *session) FindACEvent(_ context.Context, allianceID int64, weekStart time.Time) (*domain.ACEvent, error) {
	for _, e := range s.data.acEvents {
		if e.AllianceID == allianceID && e.WeekStart.Equal(weekStart) {
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *session) CreateACEvent(_ context.Context, e *domain.ACEvent) error {
	e.ID = s.data.id()
	s.data.acEvents[e.ID] = *e
	return nil
}

func (s *session) UpdateACEvent(_ context.Context, e *domain.ACEvent) error {
	if _, ok := s.data.acEvents[e.ID]; !ok {
		return domain.ErrNotFound
	}
	s.data.acEvents[e.ID] = *e
	return nil
}

func (s *session) GetACSignup(_ context.Context, eventID, playerID int64) (*domain.ACSignup, error) {
	for _, sg := range s.data.acSignups {
		if sg.EventID == eventID && sg.PlayerID == playerID {
			return &sg, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *session) CreateACSignup(ctx context.Context, sg *domain.ACSignup) error {
	if _, err := s.GetACSignup(ctx, sg.EventID, sg.PlayerID); err == nil {
		return errors.New("memstore: duplicate ac signup")
	}
	sg.ID = s.data.id()
	s.data.acSignups[sg.ID] = *sg
	return nil
}

func (s *session) UpdateACSignup(_ context.Context, sg *domain.ACSignup) error {
	if _, ok := s.data.acSignups[sg.ID]; !ok {
		return domain.ErrNotFound
	}
	s.data.acSignups[sg.ID] = *sg
	return nil
}

func (s *session) InsertContribution(_ context.Context, c *domain.ContributionSnapshot) (bool, error) {
	key := contributionKey{c.AllianceID, c.PlayerID, c.WeekStart.Unix(), c.SnapshotDate.Unix()}
	if _, ok := s.data.contributions[key]; ok {
		return false, nil
	}
	c.ID = s.data.id()
	s.data.contributions[key] = *c
	return true, nil
}

func (s *session) InsertAlliancePower(_ context.Context, a *domain.AlliancePowerSnapshot) error {
	a.ID = s.data.id()
	s.data.alliancePower = append(s.data.alliancePower, *a)
	return nil
}
