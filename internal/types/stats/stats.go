package stats

import "time"

const (
	PointsPerChallenge = 100
	PointsPerLevel     = 500
)

type DailyStats struct {
	Points    int       `json:"points" firestore:"points" db:"points"`
	Level     int       `json:"level" firestore:"level" db:"level"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt" db:"updated_at"`
}

type Medal struct {
	ID          string `json:"id" firestore:"id"`
	Title       string `json:"title" firestore:"title"`
	Description string `json:"description" firestore:"description"`
}

// WeeklyPoints maps a calendar day (YYYY-MM-DD) to the points recorded that day.
type WeeklyPoints map[string]int

type HistoricalStats struct {
	MaxPoints    int          `json:"max_points" firestore:"maxPoints" db:"max_points"`
	MaxLevel     int          `json:"max_level" firestore:"maxLevel" db:"max_level"`
	Medals       []Medal      `json:"medals" firestore:"medals" db:"medals"`
	WeeklyPoints WeeklyPoints `json:"weekly_points" firestore:"weeklyPoints" db:"weekly_points"`
}

// DefaultHistorical is the state of a user that has never been reconciled.
func DefaultHistorical() HistoricalStats {
	return HistoricalStats{
		MaxPoints:    0,
		MaxLevel:     1,
		Medals:       []Medal{},
		WeeklyPoints: WeeklyPoints{},
	}
}

// Normalize fills in defaults for fields missing from a stored document.
func (h *HistoricalStats) Normalize() {
	if h.MaxLevel < 1 {
		h.MaxLevel = 1
	}
	if h.MaxPoints < 0 {
		h.MaxPoints = 0
	}
	if h.Medals == nil {
		h.Medals = []Medal{}
	}
	if h.WeeklyPoints == nil {
		h.WeeklyPoints = WeeklyPoints{}
	}
}

func (h HistoricalStats) HasMedal(id string) bool {
	for _, m := range h.Medals {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Summary is what profile screens show for a user.
type Summary struct {
	Daily       DailyStats      `json:"daily"`
	Historical  HistoricalStats `json:"historical"`
	WeeklyTotal int             `json:"weekly_total"`
}
