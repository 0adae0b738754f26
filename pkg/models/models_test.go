package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string {
	return &s
}

func TestTermToJSON(t *testing.T) {
	term := &Term{
		ID: 3, ItemID: 30, Identifier: "bw", Lang: "cs", Name: "Botswana", Type: strPtr("state"),
		Parents: []Category{{ID: 1, ItemID: 10, Lang: "cs", Name: "Afrika"}},
	}

	nested := term.ToJSON(true)
	assert.Equal(t, map[string]interface{}{
		"id":          int64(3),
		"item_id":     int64(30),
		"object_type": "fc_term",
		"lang":        "cs",
		"name":        "Botswana",
		"type":        strPtr("state"),
	}, nested)

	full := term.ToJSON(false)
	parents := full["parents"].([]map[string]interface{})
	assert.Len(t, parents, 1)
	assert.Equal(t, "fc_category", parents[0]["object_type"])
	assert.Equal(t, "Afrika", parents[0]["name"])

	empty := (&Term{ID: 1}).ToJSON(false)
	assert.Equal(t, []map[string]interface{}{}, empty["parents"])
}

func TestFlashcardToJSON(t *testing.T) {
	f := &Flashcard{
		ID: 5, ItemID: 50, Lang: "cs", Description: strPtr("desc"),
		Term:    &Term{ID: 3, ItemID: 30, Name: "Botswana", Parents: []Category{{ID: 1}}},
		Context: &Context{ID: 4, ItemID: 40, Content: strPtr("<svg/>")},
	}

	for _, nested := range []bool{true, false} {
		json := f.ToJSON(nested)
		assert.Equal(t, "fc_flashcard", json["object_type"])
		term := json["term"].(map[string]interface{})
		assert.NotContains(t, term, "parents")
		assert.Equal(t, "fc_context", json["context"].(map[string]interface{})["object_type"])
	}

	bare := (&Flashcard{ID: 1}).ToJSON(false)
	assert.NotContains(t, bare, "term")
	assert.NotContains(t, bare, "context")
}

func TestAnswerToJSON(t *testing.T) {
	answered := int64(30)
	a := &FlashcardAnswer{
		ID: 9, ItemID: 90, UserID: 2, ItemAskedID: 30, ItemAnsweredID: &answered,
		Direction: DirectionFromTerm, ResponseTime: 1200,
		Time:    time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Options: []Term{{ID: 3, Parents: []Category{{ID: 1}}}},
	}

	assert.True(t, a.Correct())

	nested := a.ToJSON(true)
	assert.Equal(t, "fc_answer", nested["object_type"])
	assert.Equal(t, "2024-03-01T12:30:00Z", nested["time"])
	assert.NotContains(t, nested, "options")

	options := a.ToJSON(false)["options"].([]map[string]interface{})
	assert.Len(t, options, 1)
	assert.NotContains(t, options[0], "parents")

	a.ItemAnsweredID = nil
	assert.False(t, a.Correct())
}

func TestValidDirection(t *testing.T) {
	assert.True(t, ValidDirection(DirectionFromTerm))
	assert.True(t, ValidDirection(DirectionFromDescription))
	assert.False(t, ValidDirection(""))
	assert.False(t, ValidDirection("t2t"))
}

func TestNewUserProgress(t *testing.T) {
	p := NewUserProgress(1, 2)
	assert.Equal(t, 2.5, p.EasinessFactor)
	assert.Equal(t, 1, p.Interval)
	assert.Equal(t, int64(2), p.ItemID)
}
