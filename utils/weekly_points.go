package utils

import (
	"time"

	"dailyChallengesAPI/internal/types/challenge"
	"dailyChallengesAPI/internal/types/stats"
)

const WeeklyWindowDays = 7

// RecordWeeklyPoints stores points under day. With accumulate set the value is
// added to whatever the day already holds, so repeated refreshes on one day
// keep growing it.
func RecordWeeklyPoints(weekly stats.WeeklyPoints, day string, points int, accumulate bool) {
	if accumulate {
		weekly[day] += points
		return
	}
	weekly[day] = points
}

// PruneWeeklyPoints returns the entries whose day started at most seven days
// before now. Keys that are not calendar days are dropped.
func PruneWeeklyPoints(weekly stats.WeeklyPoints, now time.Time) stats.WeeklyPoints {
	out := make(stats.WeeklyPoints, len(weekly))
	for key, points := range weekly {
		day, err := time.ParseInLocation(challenge.DateLayout, key, now.Location())
		if err != nil {
			continue
		}
		if now.Sub(day) <= WeeklyWindowDays*24*time.Hour {
			out[key] = points
		}
	}
	return out
}

// WeeklyTotal sums the seven calendar days ending with now's day.
func WeeklyTotal(weekly stats.WeeklyPoints, now time.Time) int {
	total := 0
	for i := 0; i < WeeklyWindowDays; i++ {
		total += weekly[challenge.Day(now.AddDate(0, 0, -i))]
	}
	return total
}
