package models

import "time"

// Answer directions
const (
	DirectionFromTerm        = "t2d"
	DirectionFromDescription = "d2t"
)

// FlashcardAnswer records a single user answer to a flashcard
type FlashcardAnswer struct {
	ID             int64     `json:"id" db:"id"`
	ItemID         int64     `json:"item_id" db:"item_id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	ItemAskedID    int64     `json:"item_asked_id" db:"item_asked_id"`
	ItemAnsweredID *int64    `json:"item_answered_id" db:"item_answered_id"` // nil when the user did not answer
	Direction      string    `json:"direction" db:"direction"`
	Meta           *string   `json:"meta" db:"meta"`
	ResponseTime   int64     `json:"response_time" db:"response_time"` // milliseconds
	Time           time.Time `json:"time" db:"answered_at"`

	// Options offered to the user, loaded on demand
	Options []Term `json:"-" db:"-"`
}

// Correct reports whether the answered item matches the asked one
func (a *FlashcardAnswer) Correct() bool {
	return a.ItemAnsweredID != nil && *a.ItemAnsweredID == a.ItemAskedID
}

// ValidDirection reports whether d is a known answer direction
func ValidDirection(d string) bool {
	return d == DirectionFromTerm || d == DirectionFromDescription
}

// ToJSON renders the answer; options are inlined only when not nested
func (a *FlashcardAnswer) ToJSON(nested bool) map[string]interface{} {
	json := map[string]interface{}{
		"id":               a.ID,
		"item_id":          a.ItemID,
		"object_type":      "fc_answer",
		"user_id":          a.UserID,
		"item_asked_id":    a.ItemAskedID,
		"item_answered_id": a.ItemAnsweredID,
		"time":             a.Time.Format(time.RFC3339),
		"response_time":    a.ResponseTime,
		"direction":        a.Direction,
		"meta":             a.Meta,
	}
	if !nested {
		options := make([]map[string]interface{}, 0, len(a.Options))
		for i := range a.Options {
			options = append(options, a.Options[i].ToJSON(true))
		}
		json["options"] = options
	}
	return json
}
