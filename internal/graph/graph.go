// Package graph holds the adjacency maps produced by the item graph traversals.
package graph

import "sort"

// Root is the key holding the starting vertices of a traversal. Item ids start
// at 1, so 0 never collides with a real vertex.
const Root int64 = 0

// Graph maps a vertex to its immediate neighbours in the traversal direction.
// Vertices without neighbours have no entry.
type Graph map[int64][]int64

// Edge is a directed pair of vertices
type Edge struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Vertices returns every vertex present in the graph, sorted
func (g Graph) Vertices() []int64 {
	seen := make(map[int64]struct{})
	for v, neighbours := range g {
		if v != Root {
			seen[v] = struct{}{}
		}
		for _, n := range neighbours {
			seen[n] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Edges returns all non-root edges sorted by (From, To)
func (g Graph) Edges() []Edge {
	edges := []Edge{}
	for v, neighbours := range g {
		if v == Root {
			continue
		}
		for _, n := range neighbours {
			edges = append(edges, Edge{From: v, To: n})
		}
	}
	SortEdges(edges)
	return edges
}

// Reverse flips every non-root edge
func (g Graph) Reverse() Graph {
	out := Graph{}
	for _, e := range g.Edges() {
		out[e.To] = append(out[e.To], e.From)
	}
	for v := range out {
		sortIDs(out[v])
	}
	return out
}

// Leaves returns the vertices of a children graph that have no children
func (g Graph) Leaves() map[int64]struct{} {
	leaves := make(map[int64]struct{})
	for _, v := range g.Vertices() {
		if len(g[v]) == 0 {
			leaves[v] = struct{}{}
		}
	}
	return leaves
}

// Reachable returns the vertices reachable from the root entry, root vertices included
func (g Graph) Reachable() map[int64]struct{} {
	seen := make(map[int64]struct{})
	queue := append([]int64{}, g[Root]...)
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		queue = append(queue, g[v]...)
	}
	return seen
}

// SortEdges orders edges by (From, To)
func SortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
}

// Unique drops duplicates while keeping the first occurrence order
func Unique(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortedKeys(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sortIDs(out)
	return out
}
