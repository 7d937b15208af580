package memstore

import (
	"context"
	"errors"

	"alliance-observatory/internal/domain"
)

func (s *session) GetPlayer(_ context.Context, id int64) (*domain.Player, error) {
	p, ok := s.data.players[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *session) DeletePlayer(_ context.Context, id int64) error {
	if _, ok := s.data.players[id]; !ok {
		return domain.ErrNotFound
	}
	if s.data.referencesPlayer(id) {
		return errors.New("memstore: player still has rows")
	}
	delete(s.data.players, id)
	return nil
}

func (d *dataset) referencesPlayer(id int64) bool {
	for k := range d.power {
		if k.playerID == id {
			return true
		}
	}
	for k := range d.furnace {
		if k.playerID == id {
			return true
		}
	}
	for _, sc := range d.bearScores {
		if sc.PlayerID == id {
			return true
		}
	}
	for k := range d.foundrySignups {
		if k.playerID == id {
			return true
		}
	}
	for k := range d.foundryResults {
		if k.playerID == id {
			return true
		}
	}
	for _, sg := range d.acSignups {
		if sg.PlayerID == id {
			return true
		}
	}
	for k := range d.contributions {
		if k.playerID == id {
			return true
		}
	}
	return false
}

func (s *session) MovePlayerRecords(_ context.Context, fromID, toID int64) (domain.MergeCounts, error) {
	d := s.data
	counts := []domain.MergeCounts{
		rekey(d.power, fromID, toID, historyOwner, withHistoryPlayer,
			func(v domain.PowerHistory, id int64) domain.PowerHistory {
				v.PlayerID = id
				return v
			},
			keepExisting[domain.PowerHistory]),
		rekey(d.furnace, fromID, toID, historyOwner, withHistoryPlayer,
			func(v domain.FurnaceHistory, id int64) domain.FurnaceHistory {
				v.PlayerID = id
				return v
			},
			keepExisting[domain.FurnaceHistory]),
		rekey(d.foundrySignups, fromID, toID, pairOwner, withPairPlayer,
			func(v domain.FoundrySignup, id int64) domain.FoundrySignup {
				v.PlayerID = id
				return v
			},
			func(kept, other domain.FoundrySignup) domain.FoundrySignup {
				if other.RecordedAt.Before(kept.RecordedAt) {
					other.ID, other.PlayerID = kept.ID, kept.PlayerID
					return other
				}
				return kept
			}),
		rekey(d.foundryResults, fromID, toID, pairOwner, withPairPlayer,
			func(v domain.FoundryResult, id int64) domain.FoundryResult {
				v.PlayerID = id
				return v
			},
			func(kept, other domain.FoundryResult) domain.FoundryResult {
				if other.RecordedAt.Before(kept.RecordedAt) {
					other.ID, other.PlayerID = kept.ID, kept.PlayerID
					return other
				}
				return kept
			}),
		rekey(d.contributions, fromID, toID,
			func(k contributionKey) int64 { return k.playerID },
			func(k contributionKey, id int64) contributionKey {
				k.playerID = id
				return k
			},
			func(v domain.ContributionSnapshot, id int64) domain.ContributionSnapshot {
				v.PlayerID = id
				return v
			},
			keepExisting[domain.ContributionSnapshot]),
		d.moveBearScores(fromID, toID),
		d.moveACSignups(fromID, toID),
	}

	var total domain.MergeCounts
	for _, c := range counts {
		total.Moved += c.Moved
		total.Folded += c.Folded
	}
	return total, nil
}

func historyOwner(k historyKey) int64 { return k.playerID }

func withHistoryPlayer(k historyKey, id int64) historyKey {
	k.playerID = id
	return k
}

func pairOwner(k pairKey) int64 { return k.playerID }

func withPairPlayer(k pairKey, id int64) pairKey {
	k.playerID = id
	return k
}

func keepExisting[V any](kept, _ V) V { return kept }

// rekey moves fromID's entries of m onto toID. On a key collision fold
// decides which row stays under the existing key.
func rekey[K comparable, V any](
	m map[K]V,
	fromID, toID int64,
	owner func(K) int64,
	withKey func(K, int64) K,
	withRow func(V, int64) V,
	fold func(kept, other V) V,
) domain.MergeCounts {
	var counts domain.MergeCounts
	var keys []K
	for k := range m {
		if owner(k) == fromID {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		row := m[k]
		delete(m, k)
		nk := withKey(k, toID)
		if kept, ok := m[nk]; ok {
			m[nk] = fold(kept, row)
			counts.Folded++
			continue
		}
		m[nk] = withRow(row, toID)
		counts.Moved++
	}
	return counts
}

func (d *dataset) scoreOf(eventID, playerID int64) (domain.BearScore, bool) {
	for _, sc := range d.bearScores {
		if sc.EventID == eventID && sc.PlayerID == playerID {
			return sc, true
		}
	}
	return domain.BearScore{}, false
}

func (d *dataset) moveBearScores(fromID, toID int64) domain.MergeCounts {
	var counts domain.MergeCounts
	for id, sc := range d.bearScores {
		if sc.PlayerID != fromID {
			continue
		}
		kept, ok := d.scoreOf(sc.EventID, toID)
		if !ok {
			sc.PlayerID = toID
			d.bearScores[id] = sc
			counts.Moved++
			continue
		}
		newer, older := sc, kept
		if kept.RecordedAt.After(sc.RecordedAt) {
			newer, older = kept, sc
		}
		if sc.Score > kept.Score {
			kept.Score = sc.Score
		}
		kept.Rank = older.Rank
		if newer.Rank != nil {
			kept.Rank = newer.Rank
		}
		kept.RecordedAt = newer.RecordedAt
		d.bearScores[kept.ID] = kept
		delete(d.bearScores, id)
		counts.Folded++
	}
	return counts
}

func (d *dataset) moveACSignups(fromID, toID int64) domain.MergeCounts {
	var counts domain.MergeCounts
	for id, sg := range d.acSignups {
		if sg.PlayerID != fromID {
			continue
		}
		var kept *domain.ACSignup
		for _, other := range d.acSignups {
			if other.EventID == sg.EventID && other.PlayerID == toID {
				kept = &other
				break
			}
		}
		if kept == nil {
			sg.PlayerID = toID
			d.acSignups[id] = sg
			counts.Moved++
			continue
		}
		if sg.ACPower > kept.ACPower {
			kept.ACPower = sg.ACPower
			if sg.RecordedAt.After(kept.RecordedAt) {
				kept.RecordedAt = sg.RecordedAt
			}
			d.acSignups[kept.ID] = *kept
		}
		delete(d.acSignups, id)
		counts.Folded++
	}
	return counts
}
