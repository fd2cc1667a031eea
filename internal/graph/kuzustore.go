//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(":memory:", cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path, so a large codebase's symbol graph survives across
// sessions. KuzuDB creates the leaf directory itself for new databases.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open file database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Unit(
		name STRING,
		kind STRING,
		tree_path STRING,
		external BOOLEAN,
		PRIMARY KEY(name)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Callable(
		key STRING,
		name STRING,
		kind STRING,
		unit_name STRING,
		parent STRING,
		num_args INT64,
		PRIMARY KEY(key)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Cluster(
		name STRING,
		cohesion_score DOUBLE,
		PRIMARY KEY(name)
	)`,
	`CREATE REL TABLE IF NOT EXISTS USES(FROM Unit TO Unit)`,
	`CREATE REL TABLE IF NOT EXISTS OWNS(FROM Unit TO Callable)`,
	`CREATE REL TABLE IF NOT EXISTS CALLS(FROM Callable TO Callable)`,
	`CREATE REL TABLE IF NOT EXISTS MEMBER(FROM Callable TO Callable)`,
	`CREATE REL TABLE IF NOT EXISTS BELONGS_TO(FROM Unit TO Cluster)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddUnit inserts a Unit node.
func (s *KuzuStore) AddUnit(_ context.Context, node UnitNode) error {
	return s.exec(
		"CREATE (u:Unit {name: $name, kind: $kind, tree_path: $tp, external: $ext})",
		map[string]any{
			"name": node.Name,
			"kind": string(node.Kind),
			"tp":   node.TreePath,
			"ext":  node.External,
		},
	)
}

// AddCallable inserts a Callable node.
func (s *KuzuStore) AddCallable(_ context.Context, node CallableNode) error {
	return s.exec(
		`CREATE (c:Callable {
			key: $key,
			name: $name,
			kind: $kind,
			unit_name: $un,
			parent: $parent,
			num_args: $na
		})`,
		map[string]any{
			"key":    node.Key,
			"name":   node.Name,
			"kind":   string(node.Kind),
			"un":     node.UnitName,
			"parent": node.Parent,
			"na":     int64(node.NumArgs),
		},
	)
}

// AddCluster inserts a Cluster node.
func (s *KuzuStore) AddCluster(_ context.Context, node ClusterNode) error {
	return s.exec(
		"CREATE (c:Cluster {name: $name, cohesion_score: $score})",
		map[string]any{
			"name":  node.Name,
			"score": node.CohesionScore,
		},
	)
}

// AddEdge inserts a relationship edge between two nodes.
// The Cypher statement is chosen based on the EdgeKind.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	cypher, err := edgeCypher(edge.Kind)
	if err != nil {
		return err
	}
	return s.exec(cypher, map[string]any{
		"src": edge.SourceID,
		"dst": edge.TargetID,
	})
}

// edgeCypher returns the MATCH-CREATE Cypher for the given edge kind.
func edgeCypher(kind EdgeKind) (string, error) {
	switch kind {
	case EdgeKindUses:
		return `MATCH (a:Unit {name: $src}), (b:Unit {name: $dst})
				CREATE (a)-[:USES]->(b)`, nil
	case EdgeKindOwns:
		return `MATCH (a:Unit {name: $src}), (b:Callable {key: $dst})
				CREATE (a)-[:OWNS]->(b)`, nil
	case EdgeKindCalls:
		return `MATCH (a:Callable {key: $src}), (b:Callable {key: $dst})
				CREATE (a)-[:CALLS]->(b)`, nil
	case EdgeKindMember:
		return `MATCH (a:Callable {key: $src}), (b:Callable {key: $dst})
				CREATE (a)-[:MEMBER]->(b)`, nil
	case EdgeKindBelongs:
		return `MATCH (a:Unit {name: $src}), (b:Cluster {name: $dst})
				CREATE (a)-[:BELONGS_TO]->(b)`, nil
	default:
		return "", fmt.Errorf("kuzu: unsupported edge kind: %s", kind)
	}
}

// ---------- Read operations ----------

// GetUnit retrieves a single Unit node by name, or returns nil if not found.
func (s *KuzuStore) GetUnit(_ context.Context, name string) (*UnitNode, error) {
	rows, err := s.query(
		"MATCH (u:Unit {name: $name}) RETURN u.name, u.kind, u.tree_path, u.external",
		map[string]any{"name": name},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	return &UnitNode{
		Name:     toString(r[0]),
		Kind:     UnitKind(toString(r[1])),
		TreePath: toString(r[2]),
		External: toBool(r[3]),
	}, nil
}

// GetCallable retrieves a single Callable node by composite key, or nil if
// not found.
func (s *KuzuStore) GetCallable(_ context.Context, key string) (*CallableNode, error) {
	rows, err := s.query(
		`MATCH (c:Callable {key: $key})
		 RETURN c.key, c.name, c.kind, c.unit_name, c.parent, c.num_args`,
		map[string]any{"key": key},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToCallable(rows[0]), nil
}

// QueryCallables returns callables whose name contains the query string.
// A non-positive limit means no limit.
func (s *KuzuStore) QueryCallables(_ context.Context, queryStr string, limit int) ([]CallableNode, error) {
	if limit <= 0 {
		limit = 1 << 30
	}
	rows, err := s.query(
		`MATCH (c:Callable) WHERE lower(c.name) CONTAINS lower($q)
		 RETURN c.key, c.name, c.kind, c.unit_name, c.parent, c.num_args
		 ORDER BY c.key
		 LIMIT $lim`,
		map[string]any{
			"q":   queryStr,
			"lim": int64(limit),
		},
	)
	if err != nil {
		return nil, err
	}
	out := make([]CallableNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToCallable(r))
	}
	return out, nil
}

// Callers returns the callables with a CALLS edge into key.
func (s *KuzuStore) Callers(_ context.Context, key string) ([]CallableNode, error) {
	return s.callNeighbors(
		`MATCH (a:Callable)-[:CALLS]->(b:Callable {key: $key})
		 RETURN a.key, a.name, a.kind, a.unit_name, a.parent, a.num_args
		 ORDER BY a.key`,
		key,
	)
}

// Callees returns the callables key has a CALLS edge into.
func (s *KuzuStore) Callees(_ context.Context, key string) ([]CallableNode, error) {
	return s.callNeighbors(
		`MATCH (a:Callable {key: $key})-[:CALLS]->(b:Callable)
		 RETURN b.key, b.name, b.kind, b.unit_name, b.parent, b.num_args
		 ORDER BY b.key`,
		key,
	)
}

func (s *KuzuStore) callNeighbors(cypher, key string) ([]CallableNode, error) {
	rows, err := s.query(cypher, map[string]any{"key": key})
	if err != nil {
		return nil, err
	}
	out := make([]CallableNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToCallable(r))
	}
	return out, nil
}

// ---------- Graph traversal ----------

// GetDependencies performs a BFS over USES edges starting from the given
// unit. It returns one DependencyChain per reachable unit.
func (s *KuzuStore) GetDependencies(_ context.Context, unitName string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	if maxDepth <= 0 {
		maxDepth = 10
	}

	type bfsEntry struct {
		path  []string
		depth int
	}
	visited := map[string]bool{unitName: true}
	queue := []bfsEntry{{path: []string{unitName}, depth: 0}}
	var chains []DependencyChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		tip := cur.path[len(cur.path)-1]
		neighbors, err := s.unitNeighbors(tip, dir)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			newPath := make([]string, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = nb
			chains = append(chains, DependencyChain{
				Nodes: newPath,
				Depth: cur.depth + 1,
			})
			queue = append(queue, bfsEntry{path: newPath, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

// unitNeighbors returns immediate unit neighbors along USES edges.
func (s *KuzuStore) unitNeighbors(name string, dir Direction) ([]string, error) {
	var cypher string
	switch dir {
	case DirectionUpstream:
		cypher = "MATCH (a:Unit {name: $name})-[:USES]->(b:Unit) RETURN b.name ORDER BY b.name"
	case DirectionDownstream:
		cypher = "MATCH (a:Unit)-[:USES]->(b:Unit {name: $name}) RETURN a.name ORDER BY a.name"
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}
	rows, err := s.query(cypher, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// GetClusters returns all Cluster nodes with their member units.
func (s *KuzuStore) GetClusters(_ context.Context) ([]ClusterNode, error) {
	rows, err := s.query(
		"MATCH (c:Cluster) RETURN c.name, c.cohesion_score ORDER BY c.name",
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]ClusterNode, 0, len(rows))
	for _, r := range rows {
		name := toString(r[0])
		score := toFloat64(r[1])

		memberRows, err := s.query(
			"MATCH (u:Unit)-[:BELONGS_TO]->(c:Cluster {name: $name}) RETURN u.name ORDER BY u.name",
			map[string]any{"name": name},
		)
		if err != nil {
			return nil, err
		}
		members := make([]string, 0, len(memberRows))
		for _, mr := range memberRows {
			members = append(members, toString(mr[0]))
		}

		out = append(out, ClusterNode{
			Name:          name,
			CohesionScore: score,
			Members:       members,
		})
	}
	return out, nil
}

// ---------- Edge enumeration ----------

// GetAllEdges returns all edges across all relationship tables.
func (s *KuzuStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	type relQuery struct {
		cypher string
		kind   EdgeKind
	}

	queries := []relQuery{
		{"MATCH (a:Unit)-[:USES]->(b:Unit) RETURN a.name, b.name", EdgeKindUses},
		{"MATCH (a:Unit)-[:OWNS]->(b:Callable) RETURN a.name, b.key", EdgeKindOwns},
		{"MATCH (a:Callable)-[:CALLS]->(b:Callable) RETURN a.key, b.key", EdgeKindCalls},
		{"MATCH (a:Callable)-[:MEMBER]->(b:Callable) RETURN a.key, b.key", EdgeKindMember},
		{"MATCH (a:Unit)-[:BELONGS_TO]->(b:Cluster) RETURN a.name, b.name", EdgeKindBelongs},
	}

	var edges []Edge
	for _, q := range queries {
		rows, err := s.query(q.cypher, nil)
		if err != nil {
			// Table may not exist yet; skip.
			continue
		}
		for _, r := range rows {
			edges = append(edges, Edge{
				SourceID: toString(r[0]),
				TargetID: toString(r[1]),
				Kind:     q.kind,
			})
		}
	}
	return edges, nil
}

// ---------- Stats ----------

// Stats returns counts of all node and edge tables.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	units, err := s.countTable("Unit")
	if err != nil {
		return nil, err
	}
	callables, err := s.countTable("Callable")
	if err != nil {
		return nil, err
	}
	clusters, err := s.countTable("Cluster")
	if err != nil {
		return nil, err
	}
	edges, err := s.countEdges()
	if err != nil {
		return nil, err
	}
	return &GraphStats{
		UnitCount:     units,
		CallableCount: callables,
		ClusterCount:  clusters,
		EdgeCount:     edges,
	}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// countTable returns the number of rows in a node table.
func (s *KuzuStore) countTable(table string) (int, error) {
	// Table name is a fixed internal constant, not user input.
	cypher := fmt.Sprintf("MATCH (n:%s) RETURN count(n)", table)
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// countEdges returns the total number of edges across all relationship tables.
func (s *KuzuStore) countEdges() (int, error) {
	tables := []string{"USES", "OWNS", "CALLS", "MEMBER", "BELONGS_TO"}
	total := 0
	for _, t := range tables {
		cypher := fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", t)
		rows, err := s.query(cypher, nil)
		if err != nil {
			// Table may not exist yet; treat as zero.
			continue
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			total += toInt(rows[0][0])
		}
	}
	return total, nil
}

// rowToCallable converts a 6-column result row into a CallableNode.
// Column order: key, name, kind, unit_name, parent, num_args.
func rowToCallable(r []any) *CallableNode {
	return &CallableNode{
		Key:      toString(r[0]),
		Name:     toString(r[1]),
		Kind:     CallableKind(toString(r[2])),
		UnitName: toString(r[3]),
		Parent:   toString(r[4]),
		NumArgs:  toInt(r[5]),
	}
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
