package docstore

import (
	"sync"

	"dailyChallengesAPI/internal/types/stats"
)

// statsFanout delivers daily stats snapshots to per-user subscribers. Each
// subscriber holds at most one pending snapshot and a newer one replaces it,
// so a slow reader skips intermediate values but always sees the latest.
type statsFanout struct {
	mu   sync.Mutex
	subs map[string]map[chan stats.DailyStats]struct{}
}

func newStatsFanout() *statsFanout {
	return &statsFanout{subs: make(map[string]map[chan stats.DailyStats]struct{})}
}

func (f *statsFanout) subscribe(userID string) (<-chan stats.DailyStats, func()) {
	ch := make(chan stats.DailyStats, 1)

	f.mu.Lock()
	if f.subs[userID] == nil {
		f.subs[userID] = make(map[chan stats.DailyStats]struct{})
	}
	f.subs[userID][ch] = struct{}{}
	f.mu.Unlock()

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs[userID], ch)
		if len(f.subs[userID]) == 0 {
			delete(f.subs, userID)
		}
	}
}

func (f *statsFanout) publish(userID string, d stats.DailyStats) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.subs[userID] {
		offerLatest(ch, d)
	}
}

func (f *statsFanout) users() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.subs))
	for userID := range f.subs {
		out = append(out, userID)
	}
	return out
}

// offerLatest puts d into the single-slot ch, dropping whatever snapshot is
// still pending. Callers serialize sends to the same channel.
func offerLatest(ch chan stats.DailyStats, d stats.DailyStats) {
	for {
		select {
		case ch <- d:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
