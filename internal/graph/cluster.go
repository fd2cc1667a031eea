package graph

import (
	"context"
	"sort"
	"strings"
)

// ComputeClusters finds connected components in the module-to-module graph
// (USES edges only) and stores them as ClusterNodes.
//
// Algorithm:
//  1. Build an undirected adjacency list from USES edges among the given units.
//  2. Find connected components via BFS.
//  3. For each component with >= 2 units, compute a cohesion score and store
//     the cluster.
//
// External units make poor cluster members since everything tends to use
// them; callers typically pass only the units defined by the analyzed dumps.
func ComputeClusters(ctx context.Context, store Store, units []UnitNode) ([]ClusterNode, error) {
	unitNames := make(map[string]bool, len(units))
	for _, u := range units {
		unitNames[u.Name] = true
	}

	adj := buildAdjacency(ctx, store, units)

	visited := make(map[string]bool, len(units))
	var clusters []ClusterNode

	for _, u := range units {
		if visited[u.Name] {
			continue
		}
		component := bfsComponent(u.Name, adj, visited)
		if len(component) < 2 {
			continue
		}
		sort.Strings(component)
		cohesion := computeCohesion(component, adj, unitNames)
		name := clusterName(component)
		cluster := ClusterNode{
			Name:          name,
			CohesionScore: cohesion,
			Members:       component,
		}
		if err := store.AddCluster(ctx, cluster); err != nil {
			return nil, err
		}
		for _, member := range component {
			edge := Edge{
				SourceID: member,
				TargetID: name,
				Kind:     EdgeKindBelongs,
			}
			if err := store.AddEdge(ctx, edge); err != nil {
				return nil, err
			}
		}
		clusters = append(clusters, cluster)
	}

	return clusters, nil
}

// buildAdjacency constructs a bidirectional adjacency list from USES edges
// using a single pass over all edges.
func buildAdjacency(ctx context.Context, store Store, units []UnitNode) map[string]map[string]bool {
	adj := make(map[string]map[string]bool, len(units))
	for _, u := range units {
		adj[u.Name] = make(map[string]bool)
	}

	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return adj
	}
	for _, e := range edges {
		if e.Kind != EdgeKindUses {
			continue
		}
		// Only include edges between known units.
		if adj[e.SourceID] != nil && adj[e.TargetID] != nil {
			adj[e.SourceID][e.TargetID] = true
			adj[e.TargetID][e.SourceID] = true
		}
	}

	return adj
}

// bfsComponent performs BFS from start on the adjacency list and returns
// all reachable nodes. It marks visited nodes as it goes.
func bfsComponent(start string, adj map[string]map[string]bool, visited map[string]bool) []string {
	var component []string
	queue := []string{start}
	visited[start] = true

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		component = append(component, node)
		for neighbor := range adj[node] {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}

	return component
}

// computeCohesion calculates internal_edges / (internal_edges + external_edges)
// for a connected component. Internal edges connect two members; external
// edges connect a member to a known unit outside the component.
func computeCohesion(component []string, adj map[string]map[string]bool, allUnits map[string]bool) float64 {
	memberSet := make(map[string]bool, len(component))
	for _, m := range component {
		memberSet[m] = true
	}

	internalEdges := 0
	externalEdges := 0

	// Count each undirected internal edge once.
	for _, m := range component {
		for neighbor := range adj[m] {
			if memberSet[neighbor] {
				if m < neighbor {
					internalEdges++
				}
			} else if allUnits[neighbor] {
				externalEdges++
			}
		}
	}

	total := internalEdges + externalEdges
	if total == 0 {
		return 0
	}
	return float64(internalEdges) / float64(total)
}

// clusterName derives a cluster's name from its members: the longest common
// name prefix when one exists, else the first member name.
func clusterName(members []string) string {
	if len(members) == 0 {
		return ""
	}
	prefix := members[0]
	for _, m := range members[1:] {
		for !strings.HasPrefix(m, prefix) && prefix != "" {
			prefix = prefix[:len(prefix)-1]
		}
	}
	prefix = strings.Trim(prefix, "_")
	if len(prefix) < 3 {
		return members[0]
	}
	return prefix
}
