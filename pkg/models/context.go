package models

// Context is the situation a term is asked in, e.g. a map or a sentence
type Context struct {
	ID         int64   `json:"id" db:"id"`
	Identifier string  `json:"identifier" db:"identifier"`
	ItemID     int64   `json:"item_id" db:"item_id"`
	Lang       string  `json:"lang" db:"lang"`
	Name       *string `json:"name" db:"name"`
	Content    *string `json:"content" db:"content"`
}

func (c *Context) ToJSON(nested bool) map[string]interface{} {
	return map[string]interface{}{
		"id":          c.ID,
		"item_id":     c.ItemID,
		"object_type": "fc_context",
		"lang":        c.Lang,
		"name":        c.Name,
		"content":     c.Content,
	}
}
