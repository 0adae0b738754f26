package database

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidIdentifier is returned for identifiers not in the "type/slug" form
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrUnknownObjectType is returned for object types without a table
	ErrUnknownObjectType = errors.New("unknown object type")
	// ErrSelfRelation is returned when a category is added as its own subcategory
	ErrSelfRelation = errors.New("category cannot be its own subcategory")
	// ErrInvalidDirection is returned for answers with an unknown direction
	ErrInvalidDirection = errors.New("invalid answer direction")
)
