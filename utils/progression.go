package utils

import (
	"math/rand"

	"dailyChallengesAPI/internal/types/challenge"
	"dailyChallengesAPI/internal/types/social"
	"dailyChallengesAPI/internal/types/stats"
)

func CalculatePoints(completedToday int) int {
	if completedToday < 0 {
		return 0
	}
	return completedToday * stats.PointsPerChallenge
}

func CalculateLevel(points int) int {
	if points < 0 {
		points = 0
	}
	return points/stats.PointsPerLevel + 1
}

type medalRule struct {
	medal    stats.Medal
	unlocked func(points, level int) bool
}

var medalRules = []medalRule{
	{
		medal: stats.Medal{ID: "level_5", Title: "Level 5", Description: "You reached level 5."},
		unlocked: func(points, level int) bool {
			return level >= 5
		},
	},
	{
		medal: stats.Medal{ID: "level_10", Title: "Level 10", Description: "Impressive! Level 10 unlocked."},
		unlocked: func(points, level int) bool {
			return level >= 10
		},
	},
	{
		medal: stats.Medal{ID: "5_challenges", Title: "5 Challenges Completed", Description: "You completed 5 challenges in a single day."},
		unlocked: func(points, level int) bool {
			return points >= 500
		},
	},
}

// EarnedMedals lists every medal whose threshold the given points and level meet.
func EarnedMedals(points, level int) []stats.Medal {
	var out []stats.Medal
	for _, rule := range medalRules {
		if rule.unlocked(points, level) {
			out = append(out, rule.medal)
		}
	}
	return out
}

// AwardMedals appends the earned medals missing from h and returns the new ones.
func AwardMedals(h *stats.HistoricalStats, points, level int) []stats.Medal {
	var added []stats.Medal
	for _, m := range EarnedMedals(points, level) {
		if h.HasMedal(m.ID) {
			continue
		}
		h.Medals = append(h.Medals, m)
		added = append(added, m)
	}
	return added
}

// TierForPoints is the ranking badge shown next to a group member.
func TierForPoints(points int) social.Tier {
	switch {
	case points >= 2000:
		return social.TierPlatinum
	case points >= 1000:
		return social.TierGold
	case points >= 500:
		return social.TierSilver
	case points > 0:
		return social.TierBronze
	default:
		return social.TierNone
	}
}

// DrawTemplates picks needed templates in uniformly random order. Templates
// whose id is in used are skipped unless allowRepeats is set and too few
// unused ones remain, in which case the whole catalog is the pool.
func DrawTemplates(rng *rand.Rand, catalog []challenge.Template, used map[string]bool, needed int, allowRepeats bool) []challenge.Template {
	if needed <= 0 || len(catalog) == 0 {
		return nil
	}

	pool := make([]challenge.Template, 0, len(catalog))
	for _, t := range catalog {
		if !used[t.ID] {
			pool = append(pool, t)
		}
	}
	if len(pool) < needed && allowRepeats {
		pool = append(pool[:0], catalog...)
	}

	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	if len(pool) > needed {
		pool = pool[:needed]
	}
	return pool
}
