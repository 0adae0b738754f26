// Package consistency repairs the denormalized category edges kept in the
// environment when they drift from the category join tables.
package consistency

import (
	"context"
	"fmt"

	"github.com/example/flashcards/internal/environment"
	"github.com/example/flashcards/internal/graph"
	"github.com/example/flashcards/internal/logger"
	"github.com/example/flashcards/pkg/models"
)

// EdgeSource lists the (parent item, child item) pairs of the category relations
type EdgeSource interface {
	ListEdges(ctx context.Context) ([]models.ItemRelation, error)
}

// RelationSyncer rebuilds item relations from the environment
type RelationSyncer interface {
	SyncRelationsFromEnvironment(ctx context.Context, env environment.Environment) (added, removed int, err error)
}

// Report lists the facts that differ from the join tables. Child facts are
// (parent, child) pairs, parent facts are (child, parent) pairs.
type Report struct {
	MissingChildren []graph.Edge `json:"missing_children"`
	StaleChildren   []graph.Edge `json:"stale_children"`
	MissingParents  []graph.Edge `json:"missing_parents"`
	StaleParents    []graph.Edge `json:"stale_parents"`

	// Item relation changes made by Repair
	RelationsAdded   int `json:"relations_added"`
	RelationsRemoved int `json:"relations_removed"`
}

// Clean reports whether the environment matched the join tables
func (r Report) Clean() bool {
	return len(r.MissingChildren) == 0 && len(r.StaleChildren) == 0 &&
		len(r.MissingParents) == 0 && len(r.StaleParents) == 0
}

// Reconciler compares and repairs the environment edge facts
type Reconciler struct {
	source    EdgeSource
	env       environment.Environment
	relations RelationSyncer
	log       *logger.Logger
}

// New creates a reconciler. relations may be nil, in which case Repair
// leaves item relations untouched.
func New(source EdgeSource, env environment.Environment, relations RelationSyncer, log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.Nop()
	}
	return &Reconciler{source: source, env: env, relations: relations, log: log}
}

// Check diffs the join table edges against the environment facts
func (r *Reconciler) Check(ctx context.Context) (Report, error) {
	edges, err := r.source.ListEdges(ctx)
	if err != nil {
		return Report{}, err
	}

	wantChildren := make(map[graph.Edge]bool, len(edges))
	wantParents := make(map[graph.Edge]bool, len(edges))
	for _, e := range edges {
		wantChildren[graph.Edge{From: e.ParentID, To: e.ChildID}] = true
		wantParents[graph.Edge{From: e.ChildID, To: e.ParentID}] = true
	}

	var report Report
	report.MissingChildren, report.StaleChildren, err = r.diff(ctx, environment.KeyChild, wantChildren)
	if err != nil {
		return Report{}, err
	}
	report.MissingParents, report.StaleParents, err = r.diff(ctx, environment.KeyParent, wantParents)
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

func (r *Reconciler) diff(ctx context.Context, key string, want map[graph.Edge]bool) (missing, stale []graph.Edge, err error) {
	facts, err := r.env.Edges(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s facts: %w", key, err)
	}

	have := make(map[graph.Edge]bool, len(facts))
	for _, f := range facts {
		e := graph.Edge{From: f.Item, To: f.ItemSecondary}
		// a fact with another value is rewritten
		if want[e] && f.Value == 1 {
			have[e] = true
			continue
		}
		if !want[e] {
			stale = append(stale, e)
		}
	}
	for e := range want {
		if !have[e] {
			missing = append(missing, e)
		}
	}

	graph.SortEdges(missing)
	graph.SortEdges(stale)
	return missing, stale, nil
}

// Repair writes missing facts, deletes stale ones and then rebuilds item
// relations from the environment. The returned report describes the state
// found before the repair.
func (r *Reconciler) Repair(ctx context.Context) (Report, error) {
	report, err := r.Check(ctx)
	if err != nil {
		return Report{}, err
	}

	if err := r.apply(ctx, environment.KeyChild, report.MissingChildren, report.StaleChildren); err != nil {
		return report, err
	}
	if err := r.apply(ctx, environment.KeyParent, report.MissingParents, report.StaleParents); err != nil {
		return report, err
	}

	if r.relations != nil {
		report.RelationsAdded, report.RelationsRemoved, err = r.relations.SyncRelationsFromEnvironment(ctx, r.env)
		if err != nil {
			return report, err
		}
	}

	if !report.Clean() || report.RelationsAdded > 0 || report.RelationsRemoved > 0 {
		r.log.Warn("Repaired environment edges",
			"missing_children", len(report.MissingChildren),
			"stale_children", len(report.StaleChildren),
			"missing_parents", len(report.MissingParents),
			"stale_parents", len(report.StaleParents),
			"relations_added", report.RelationsAdded,
			"relations_removed", report.RelationsRemoved,
		)
	} else {
		r.log.Debug("Environment edges consistent")
	}
	return report, nil
}

func (r *Reconciler) apply(ctx context.Context, key string, missing, stale []graph.Edge) error {
	for _, e := range missing {
		if err := r.env.Write(ctx, key, 1, e.From, e.To, false); err != nil {
			return err
		}
	}
	for _, e := range stale {
		if err := r.env.Delete(ctx, key, e.From, e.To); err != nil {
			return err
		}
	}
	return nil
}
