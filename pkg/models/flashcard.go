package models

// Flashcard pairs a term with a context
type Flashcard struct {
	ID          int64   `json:"id" db:"id"`
	Identifier  string  `json:"identifier" db:"identifier"`
	ItemID      int64   `json:"item_id" db:"item_id"`
	Lang        string  `json:"lang" db:"lang"`
	TermID      int64   `json:"term_id" db:"term_id"`
	ContextID   int64   `json:"context_id" db:"context_id"`
	Description *string `json:"description" db:"description"`

	Term    *Term    `json:"-" db:"-"`
	Context *Context `json:"-" db:"-"`
}

// ToJSON renders the flashcard. Term and context are always rendered nested.
func (f *Flashcard) ToJSON(nested bool) map[string]interface{} {
	json := map[string]interface{}{
		"id":          f.ID,
		"item_id":     f.ItemID,
		"object_type": "fc_flashcard",
		"lang":        f.Lang,
		"description": f.Description,
	}
	if f.Term != nil {
		json["term"] = f.Term.ToJSON(true)
	}
	if f.Context != nil {
		json["context"] = f.Context.ToJSON(true)
	}
	return json
}
