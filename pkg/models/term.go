package models

// Term represents a single thing to be learned, e.g. a country or a word
type Term struct {
	ID         int64   `json:"id" db:"id"`
	Identifier string  `json:"identifier" db:"identifier"`
	ItemID     int64   `json:"item_id" db:"item_id"`
	Lang       string  `json:"lang" db:"lang"`
	Name       string  `json:"name" db:"name"`
	Type       *string `json:"type" db:"type"`

	// Parents are the categories containing the term, loaded on demand
	Parents []Category `json:"-" db:"-"`
}

// ToJSON renders the term; parents are inlined only when not nested
func (t *Term) ToJSON(nested bool) map[string]interface{} {
	json := map[string]interface{}{
		"id":          t.ID,
		"item_id":     t.ItemID,
		"object_type": "fc_term",
		"lang":        t.Lang,
		"name":        t.Name,
		"type":        t.Type,
	}
	if !nested {
		parents := make([]map[string]interface{}, 0, len(t.Parents))
		for i := range t.Parents {
			parents = append(parents, t.Parents[i].ToJSON(true))
		}
		json["parents"] = parents
	}
	return json
}
