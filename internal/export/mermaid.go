package export

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/alperaltuntas/flinspect/internal/graph"
)

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// Modules are grouped by cluster; USES edges become arrows. External modules
// are styled separately so library boundaries stand out.
func GenerateMermaid(ctx context.Context, store graph.Store) (string, error) {
	clusters, err := store.GetClusters(ctx)
	if err != nil {
		return "", fmt.Errorf("get clusters: %w", err)
	}

	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}

	// Build node -> ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(name string) string {
		if id, ok := nodeIDs[name]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[name] = id
		return id
	}

	clustered := make(map[string]string) // unit -> cluster name
	for _, c := range clusters {
		for _, member := range c.Members {
			clustered[member] = c.Name
		}
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	// Emit cluster subgraphs.
	for _, c := range clusters {
		if len(c.Members) == 0 {
			continue
		}
		sorted := make([]string, len(c.Members))
		copy(sorted, c.Members)
		sort.Strings(sorted)

		sb.WriteString(fmt.Sprintf("  subgraph %s[\"%.40s\"]\n", getID(c.Name+"_cluster"), c.Name))
		for _, member := range sorted {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID(member), member))
		}
		sb.WriteString("  end\n")
	}

	// Emit USES edges, sorted for stable output.
	var useEdges []graph.Edge
	for _, e := range edges {
		if e.Kind == graph.EdgeKindUses {
			useEdges = append(useEdges, e)
		}
	}
	sort.Slice(useEdges, func(i, j int) bool {
		if useEdges[i].SourceID != useEdges[j].SourceID {
			return useEdges[i].SourceID < useEdges[j].SourceID
		}
		return useEdges[i].TargetID < useEdges[j].TargetID
	})
	for _, e := range useEdges {
		sb.WriteString(fmt.Sprintf("  %s --> %s\n", getID(e.SourceID), getID(e.TargetID)))
	}

	// Style external modules.
	var externals []string
	for name := range nodeIDs {
		if strings.HasSuffix(name, "_cluster") {
			continue
		}
		u, err := store.GetUnit(ctx, name)
		if err == nil && u != nil && u.External {
			externals = append(externals, getID(name))
		}
	}
	if len(externals) > 0 {
		sort.Strings(externals)
		sb.WriteString("  classDef external stroke-dasharray: 5 5\n")
		sb.WriteString(fmt.Sprintf("  class %s external\n", strings.Join(externals, ",")))
	}

	return sb.String(), nil
}
