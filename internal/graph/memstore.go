package graph

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu        sync.RWMutex
	units     map[string]UnitNode
	callables map[string]CallableNode // key: composite callable key
	edges     []Edge
	clusters  []ClusterNode
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		units:     make(map[string]UnitNode),
		callables: make(map[string]CallableNode),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddUnit stores a unit node keyed by its name.
func (m *MemStore) AddUnit(_ context.Context, node UnitNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[node.Name] = node
	return nil
}

// AddCallable stores a callable node keyed by its composite key.
func (m *MemStore) AddCallable(_ context.Context, node CallableNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callables[node.Key] = node
	return nil
}

// AddCluster appends a cluster to the internal slice.
func (m *MemStore) AddCluster(_ context.Context, node ClusterNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusters = append(m.clusters, node)
	return nil
}

// AddEdge appends an edge to the internal slice.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, edge)
	return nil
}

// GetUnit returns the unit node for the given name, or nil if not found.
func (m *MemStore) GetUnit(_ context.Context, name string) (*UnitNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.units[name]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetCallable returns the callable for the given composite key, or nil if
// not found.
func (m *MemStore) GetCallable(_ context.Context, key string) (*CallableNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.callables[key]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// QueryCallables returns callables whose name contains query
// (case-insensitive), up to limit results. A limit <= 0 returns all matches.
// Results come back in key order.
func (m *MemStore) QueryCallables(_ context.Context, query string, limit int) ([]CallableNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lowerQuery := strings.ToLower(query)
	var results []CallableNode
	for _, key := range m.sortedCallableKeys() {
		c := m.callables[key]
		if strings.Contains(strings.ToLower(c.Name), lowerQuery) {
			results = append(results, c)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

// Callers returns the callables with a CALLS edge into key, in key order.
func (m *MemStore) Callers(_ context.Context, key string) ([]CallableNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []CallableNode
	for _, e := range m.edges {
		if e.Kind == EdgeKindCalls && e.TargetID == key {
			if c, ok := m.callables[e.SourceID]; ok {
				out = append(out, c)
			}
		}
	}
	sortCallables(out)
	return out, nil
}

// Callees returns the callables key has a CALLS edge into, in key order.
func (m *MemStore) Callees(_ context.Context, key string) ([]CallableNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []CallableNode
	for _, e := range m.edges {
		if e.Kind == EdgeKindCalls && e.SourceID == key {
			if c, ok := m.callables[e.TargetID]; ok {
				out = append(out, c)
			}
		}
	}
	sortCallables(out)
	return out, nil
}

// GetDependencies performs a BFS over USES edges from unitName in the given
// direction, up to maxDepth hops. It returns one DependencyChain per
// reachable unit.
func (m *MemStore) GetDependencies(_ context.Context, unitName string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if maxDepth <= 0 {
		return nil, nil
	}

	type bfsEntry struct {
		id   string
		path []string
	}

	visited := map[string]bool{unitName: true}
	queue := []bfsEntry{{id: unitName, path: []string{unitName}}}
	var chains []DependencyChain

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var nextQueue []bfsEntry
		for _, entry := range queue {
			for _, nb := range m.useNeighbors(entry.id, direction) {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				newPath := make([]string, len(entry.path), len(entry.path)+1)
				copy(newPath, entry.path)
				newPath = append(newPath, nb)
				chains = append(chains, DependencyChain{
					Nodes: newPath,
					Depth: len(newPath) - 1,
				})
				nextQueue = append(nextQueue, bfsEntry{id: nb, path: newPath})
			}
		}
		queue = nextQueue
	}

	return chains, nil
}

// useNeighbors returns units one USES hop away from id. Upstream follows the
// unit's own imports; downstream finds the importers.
func (m *MemStore) useNeighbors(id string, direction Direction) []string {
	var result []string
	for _, e := range m.edges {
		if e.Kind != EdgeKindUses {
			continue
		}
		switch direction {
		case DirectionUpstream:
			if e.SourceID == id {
				result = append(result, e.TargetID)
			}
		case DirectionDownstream:
			if e.TargetID == id {
				result = append(result, e.SourceID)
			}
		}
	}
	sort.Strings(result)
	return result
}

// GetClusters returns all stored clusters.
func (m *MemStore) GetClusters(_ context.Context) ([]ClusterNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ClusterNode, len(m.clusters))
	copy(out, m.clusters)
	return out, nil
}

// GetAllEdges returns a copy of all edges in the store.
func (m *MemStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

// Stats returns counts of all node and edge types in the graph.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &GraphStats{
		UnitCount:     len(m.units),
		CallableCount: len(m.callables),
		ClusterCount:  len(m.clusters),
		EdgeCount:     len(m.edges),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

func (m *MemStore) sortedCallableKeys() []string {
	keys := make([]string, 0, len(m.callables))
	for k := range m.callables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortCallables(cs []CallableNode) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Key < cs[j].Key })
}
