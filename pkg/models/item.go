package models

import "time"

// Item types
const (
	ItemTypeTerm      = "term"
	ItemTypeContext   = "context"
	ItemTypeFlashcard = "flashcard"
	ItemTypeCategory  = "category"
	ItemTypeAnswer    = "answer"
)

// Item is the generic vertex every domain entity is attached to
type Item struct {
	ID        int64     `json:"id" db:"id"`
	Type      string    `json:"type" db:"item_type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Item relation sources
const (
	// RelationSourceManual marks relations added through the item repository
	RelationSourceManual = "manual"
	// RelationSourceEnvironment marks relations copied from the environment "child" facts
	RelationSourceEnvironment = "environment"
)

// ItemRelation is a directed parent -> child edge between two items
type ItemRelation struct {
	ID       int64  `json:"id" db:"id"`
	ParentID int64  `json:"parent_id" db:"parent_id"`
	ChildID  int64  `json:"child_id" db:"child_id"`
	Source   string `json:"source" db:"source"`
}
