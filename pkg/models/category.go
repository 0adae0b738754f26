package models

// Category groups terms and other categories
type Category struct {
	ID         int64   `json:"id" db:"id"`
	Identifier string  `json:"identifier" db:"identifier"`
	ItemID     int64   `json:"item_id" db:"item_id"`
	Lang       string  `json:"lang" db:"lang"`
	Name       string  `json:"name" db:"name"`
	Type       *string `json:"type" db:"type"`
}

func (c *Category) ToJSON(nested bool) map[string]interface{} {
	return map[string]interface{}{
		"id":          c.ID,
		"item_id":     c.ItemID,
		"object_type": "fc_category",
		"lang":        c.Lang,
		"name":        c.Name,
		"type":        c.Type,
	}
}
