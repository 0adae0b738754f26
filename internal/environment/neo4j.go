package environment

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4j stores facts as (:Item)-[:ENV {key, value, symmetric}]->(:Item) relationships
type Neo4j struct {
	driver   neo4j.DriverWithContext
	database string
}

// Neo4jOptions configures the neo4j environment
type Neo4jOptions struct {
	URI      string
	User     string
	Password string
	Database string
	Timeout  time.Duration
}

// NewNeo4j connects to neo4j, verifies connectivity and creates the item constraint
func NewNeo4j(ctx context.Context, opts Neo4jOptions) (*Neo4j, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("missing neo4j uri")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	auth := neo4j.BasicAuth(opts.User, opts.Password, "")
	driver, err := neo4j.NewDriverWithContext(opts.URI, auth, func(cfg *neo4j.Config) {
		cfg.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	n := &Neo4j{driver: driver, database: opts.Database}
	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	res, err := session.Run(ctx, `CREATE CONSTRAINT item_id_unique IF NOT EXISTS FOR (i:Item) REQUIRE i.id IS UNIQUE`, nil)
	if err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: create constraint: %w", err)
	}
	if _, err := res.Consume(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: create constraint: %w", err)
	}
	return n, nil
}

func (n *Neo4j) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return n.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: n.database,
	})
}

func (n *Neo4j) write(ctx context.Context, query string, params map[string]any) error {
	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

func (n *Neo4j) Write(ctx context.Context, key string, value float64, item, itemSecondary int64, symmetric bool) error {
	item, itemSecondary = pair(item, itemSecondary, symmetric)
	err := n.write(ctx, `
MERGE (a:Item {id: $item})
MERGE (b:Item {id: $secondary})
MERGE (a)-[r:ENV {key: $key, symmetric: $symmetric}]->(b)
SET r.value = $value
`, map[string]any{"item": item, "secondary": itemSecondary, "key": key, "symmetric": symmetric, "value": value})
	if err != nil {
		return fmt.Errorf("failed to write %s(%d, %d): %w", key, item, itemSecondary, err)
	}
	return nil
}

func (n *Neo4j) Read(ctx context.Context, key string, item, itemSecondary int64) (float64, bool, error) {
	a, b := pair(item, itemSecondary, true)
	session := n.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
OPTIONAL MATCH (:Item {id: $item})-[d:ENV {key: $key, symmetric: false}]->(:Item {id: $secondary})
OPTIONAL MATCH (:Item {id: $a})-[s:ENV {key: $key, symmetric: true}]->(:Item {id: $b})
RETURN coalesce(d.value, s.value) AS value
`, map[string]any{"item": item, "secondary": itemSecondary, "a": a, "b": b, "key": key})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		v, _ := rec.Get("value")
		return v, nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to read %s(%d, %d): %w", key, item, itemSecondary, err)
	}
	if out == nil {
		return 0, false, nil
	}
	value, ok := out.(float64)
	if !ok {
		return 0, false, fmt.Errorf("unexpected value type %T of %s(%d, %d)", out, key, item, itemSecondary)
	}
	return value, true, nil
}

func (n *Neo4j) Delete(ctx context.Context, key string, item, itemSecondary int64) error {
	a, b := pair(item, itemSecondary, true)
	err := n.write(ctx, `
OPTIONAL MATCH (:Item {id: $item})-[d:ENV {key: $key, symmetric: false}]->(:Item {id: $secondary})
OPTIONAL MATCH (:Item {id: $a})-[s:ENV {key: $key, symmetric: true}]->(:Item {id: $b})
DELETE d, s
`, map[string]any{"item": item, "secondary": itemSecondary, "a": a, "b": b, "key": key})
	if err != nil {
		return fmt.Errorf("failed to delete %s(%d, %d): %w", key, item, itemSecondary, err)
	}
	return nil
}

func (n *Neo4j) Edges(ctx context.Context, key string) ([]Edge, error) {
	session := n.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (a:Item)-[r:ENV {key: $key}]->(b:Item)
RETURN a.id AS item, b.id AS secondary, r.value AS value
ORDER BY item, secondary
`, map[string]any{"key": key})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		edges := make([]Edge, 0, len(records))
		for _, rec := range records {
			item, _, err := neo4j.GetRecordValue[int64](rec, "item")
			if err != nil {
				return nil, err
			}
			secondary, _, err := neo4j.GetRecordValue[int64](rec, "secondary")
			if err != nil {
				return nil, err
			}
			value, _, err := neo4j.GetRecordValue[float64](rec, "value")
			if err != nil {
				return nil, err
			}
			edges = append(edges, Edge{Key: key, Item: item, ItemSecondary: secondary, Value: value})
		}
		return edges, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s edges: %w", key, err)
	}
	return out.([]Edge), nil
}

func (n *Neo4j) Close() error {
	return n.driver.Close(context.Background())
}
