// Package environment provides the denormalized key/value store holding facts about
// items and pairs of items, e.g. the "child" and "parent" edges of the category graph.
package environment

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Keys of the graph facts mirrored from category relations
const (
	KeyChild  = "child"
	KeyParent = "parent"
)

// Edge is a single fact stored under a key for a pair of items
type Edge struct {
	Key           string  `json:"key" db:"env_key"`
	Item          int64   `json:"item" db:"item_primary"`
	ItemSecondary int64   `json:"item_secondary" db:"item_secondary"`
	Value         float64 `json:"value" db:"value"`
}

// Environment is the edge store consumed by the graph mirroring
type Environment interface {
	// Write stores value under (key, item, itemSecondary). Symmetric facts are
	// stored order-independent.
	Write(ctx context.Context, key string, value float64, item, itemSecondary int64, symmetric bool) error
	// Read returns the value stored under (key, item, itemSecondary), if any
	Read(ctx context.Context, key string, item, itemSecondary int64) (float64, bool, error)
	// Delete removes the fact; deleting a missing fact is not an error
	Delete(ctx context.Context, key string, item, itemSecondary int64) error
	// Edges lists all facts stored under key, ordered by (item, itemSecondary)
	Edges(ctx context.Context, key string) ([]Edge, error)
	Close() error
}

// pair orders a symmetric pair so that the smaller id comes first
func pair(item, itemSecondary int64, symmetric bool) (int64, int64) {
	if symmetric && itemSecondary < item {
		return itemSecondary, item
	}
	return item, itemSecondary
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Item != edges[j].Item {
			return edges[i].Item < edges[j].Item
		}
		return edges[i].ItemSecondary < edges[j].ItemSecondary
	})
}

// field encodes an item pair as a single string, used by the redis backend
func field(item, itemSecondary int64) string {
	return strconv.FormatInt(item, 10) + ":" + strconv.FormatInt(itemSecondary, 10)
}

func parseField(f string) (int64, int64, error) {
	parts := strings.SplitN(f, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed environment field %q", f)
	}
	item, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed environment field %q: %w", f, err)
	}
	secondary, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed environment field %q: %w", f, err)
	}
	return item, secondary, nil
}
