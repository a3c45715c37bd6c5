package challenge

import (
	"time"
)

const DateLayout = "2006-01-02"

// Template is a catalog entry. Templates are authored out of band and never
// written by the engine.
type Template struct {
	ID            string `json:"id" firestore:"-" db:"id" toml:"id"`
	Title         string `json:"title" firestore:"title" db:"title" toml:"title"`
	ChallengeText string `json:"challenge_text" firestore:"challenge" db:"challenge_text" toml:"challenge"`
	ImageURL      string `json:"image_url" firestore:"image" db:"image_url" toml:"image"`
}

// Assignment binds a template to one user for one calendar day.
type Assignment struct {
	Key           string `json:"key" firestore:"-" db:"doc_key"`
	ID            string `json:"id" firestore:"id" db:"template_id"`
	Title         string `json:"title" firestore:"title" db:"title"`
	ChallengeText string `json:"challenge_text" firestore:"challenge" db:"challenge_text"`
	ImageURL      string `json:"image_url" firestore:"image" db:"image_url"`
	Completed     bool   `json:"completed" firestore:"completed" db:"completed"`
	Date          string `json:"date" firestore:"date" db:"date"`
}

func NewAssignment(t Template, date string) Assignment {
	return Assignment{
		Key:           AssignmentKey(date, t.ID),
		ID:            t.ID,
		Title:         t.Title,
		ChallengeText: t.ChallengeText,
		ImageURL:      t.ImageURL,
		Completed:     false,
		Date:          date,
	}
}

// AssignmentKey is the document id of the first assignment of a template on a day.
func AssignmentKey(date, templateID string) string {
	return date + "_" + templateID
}

// Matches reports whether ref names this assignment, either by document key
// or by template id.
func (a Assignment) Matches(ref string) bool {
	return a.Key == ref || a.ID == ref
}

// Day formats t as a calendar-day key in t's location.
func Day(t time.Time) string {
	return t.Format(DateLayout)
}
