package export

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alperaltuntas/flinspect/internal/forest"
	"github.com/alperaltuntas/flinspect/internal/graph"
)

// analyzedStore runs the full pipeline over the ocean fixtures into a fresh
// in-memory store.
func analyzedStore(t *testing.T) (*forest.Forest, *graph.MemStore) {
	t.Helper()
	ctx := context.Background()

	dir, err := filepath.Abs(filepath.Join("..", "..", "testdata", "fixtures", "ocean"))
	require.NoError(t, err)
	f, err := forest.Analyze(ctx, dir)
	require.NoError(t, err)

	store := graph.NewMemStore()
	require.NoError(t, graph.Build(ctx, store, f.Registry))

	var defined []graph.UnitNode
	for _, m := range f.Registry.Modules() {
		if m.TreePath != "" {
			defined = append(defined, graph.UnitNode{Name: m.Name(), Kind: graph.UnitKindModule})
		}
	}
	_, err = graph.ComputeClusters(ctx, store, defined)
	require.NoError(t, err)
	return f, store
}

func TestBuildModel(t *testing.T) {
	f, store := analyzedStore(t)
	model, err := BuildModel(context.Background(), f, store)
	require.NoError(t, err)

	assert.Len(t, model.Files, 3)
	assert.NotEmpty(t, model.ExportedAt)

	var unitNames []string
	for _, u := range model.Units {
		unitNames = append(unitNames, u.Name)
	}
	assert.Contains(t, unitNames, "ocean_grid_mod")
	assert.Contains(t, unitNames, "ocean_driver")
	assert.Contains(t, unitNames, "netcdf")

	require.Len(t, model.Interfaces, 1)
	assert.Equal(t, "fill", model.Interfaces[0].Name)
	assert.Equal(t, []string{"ocean_grid_mod::fill_array", "ocean_grid_mod::fill_scalar"},
		model.Interfaces[0].Members)

	require.Len(t, model.Unresolved.SubroutineCalls, 1)
	assert.Equal(t, CallSiteExport{Caller: "step", Callee: "advect_tracers"},
		model.Unresolved.SubroutineCalls[0])
	assert.NotEmpty(t, model.Edges)
}

func TestWriteJSONRoundTrip(t *testing.T) {
	f, store := analyzedStore(t)
	model, err := BuildModel(context.Background(), f, store)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, model))

	var decoded ModelExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, model.Files, decoded.Files)
	assert.Len(t, decoded.Callables, len(model.Callables))
}

func TestGenerateMermaid(t *testing.T) {
	_, store := analyzedStore(t)
	diagram, err := GenerateMermaid(context.Background(), store)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(diagram, "graph TD\n"))
	assert.Contains(t, diagram, `subgraph`)
	assert.Contains(t, diagram, `["ocean_grid_mod"]`)
	assert.Contains(t, diagram, " --> ")
	assert.Contains(t, diagram, "classDef external stroke-dasharray: 5 5",
		"netcdf is external and must be dash-styled")
}

func TestGenerateMermaidEmptyStore(t *testing.T) {
	store := graph.NewMemStore()
	diagram, err := GenerateMermaid(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "graph TD\n", diagram)
}
