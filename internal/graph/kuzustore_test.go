//go:build cgo

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newKuzuTestStore creates a fresh in-memory KuzuStore with an initialized
// schema and registers a cleanup to close it.
func newKuzuTestStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func seedKuzuStore(t *testing.T, store *KuzuStore) {
	t.Helper()
	ctx := context.Background()

	units := []UnitNode{
		{Name: "ocean_grid_mod", Kind: UnitKindModule, TreePath: "a_ptree"},
		{Name: "ocean_state_mod", Kind: UnitKindModule, TreePath: "b_ptree"},
		{Name: "netcdf", Kind: UnitKindModule, External: true},
	}
	for _, u := range units {
		require.NoError(t, store.AddUnit(ctx, u))
	}

	callables := []CallableNode{
		{Key: "ocean_grid_mod::grid_init", Name: "grid_init", Kind: CallableKindSubroutine, UnitName: "ocean_grid_mod", NumArgs: 3},
		{Key: "ocean_grid_mod::cell_area", Name: "cell_area", Kind: CallableKindFunction, UnitName: "ocean_grid_mod", NumArgs: 2},
		{Key: "ocean_state_mod::step", Name: "step", Kind: CallableKindSubroutine, UnitName: "ocean_state_mod", NumArgs: 2},
	}
	for _, c := range callables {
		require.NoError(t, store.AddCallable(ctx, c))
	}

	edges := []Edge{
		{SourceID: "ocean_state_mod", TargetID: "ocean_grid_mod", Kind: EdgeKindUses},
		{SourceID: "ocean_state_mod", TargetID: "netcdf", Kind: EdgeKindUses},
		{SourceID: "ocean_grid_mod", TargetID: "ocean_grid_mod::grid_init", Kind: EdgeKindOwns},
		{SourceID: "ocean_state_mod::step", TargetID: "ocean_grid_mod::grid_init", Kind: EdgeKindCalls},
		{SourceID: "ocean_state_mod::step", TargetID: "ocean_grid_mod::cell_area", Kind: EdgeKindCalls},
	}
	for _, e := range edges {
		require.NoError(t, store.AddEdge(ctx, e))
	}
}

func TestKuzuStoreUnits(t *testing.T) {
	store := newKuzuTestStore(t)
	seedKuzuStore(t, store)
	ctx := context.Background()

	unit, err := store.GetUnit(ctx, "ocean_grid_mod")
	require.NoError(t, err)
	require.NotNil(t, unit)
	assert.Equal(t, UnitKindModule, unit.Kind)
	assert.Equal(t, "a_ptree", unit.TreePath)
	assert.False(t, unit.External)

	ext, err := store.GetUnit(ctx, "netcdf")
	require.NoError(t, err)
	require.NotNil(t, ext)
	assert.True(t, ext.External)

	missing, err := store.GetUnit(ctx, "no_such_mod")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestKuzuStoreCallables(t *testing.T) {
	store := newKuzuTestStore(t)
	seedKuzuStore(t, store)
	ctx := context.Background()

	c, err := store.GetCallable(ctx, "ocean_state_mod::step")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "step", c.Name)
	assert.Equal(t, CallableKindSubroutine, c.Kind)
	assert.Equal(t, 2, c.NumArgs)

	results, err := store.QueryCallables(ctx, "GRID", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ocean_grid_mod::grid_init", results[0].Key)
}

func TestKuzuStoreCallNeighbors(t *testing.T) {
	store := newKuzuTestStore(t)
	seedKuzuStore(t, store)
	ctx := context.Background()

	callees, err := store.Callees(ctx, "ocean_state_mod::step")
	require.NoError(t, err)
	require.Len(t, callees, 2)
	keys := []string{callees[0].Key, callees[1].Key}
	assert.ElementsMatch(t, []string{"ocean_grid_mod::grid_init", "ocean_grid_mod::cell_area"}, keys)

	callers, err := store.Callers(ctx, "ocean_grid_mod::grid_init")
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, "ocean_state_mod::step", callers[0].Key)
}

func TestKuzuStoreDependencies(t *testing.T) {
	store := newKuzuTestStore(t)
	seedKuzuStore(t, store)
	ctx := context.Background()

	up, err := store.GetDependencies(ctx, "ocean_state_mod", DirectionUpstream, 5)
	require.NoError(t, err)
	require.Len(t, up, 2)

	var tails []string
	for _, chain := range up {
		require.Equal(t, "ocean_state_mod", chain.Nodes[0])
		tails = append(tails, chain.Nodes[len(chain.Nodes)-1])
	}
	assert.ElementsMatch(t, []string{"ocean_grid_mod", "netcdf"}, tails)

	down, err := store.GetDependencies(ctx, "ocean_grid_mod", DirectionDownstream, 5)
	require.NoError(t, err)
	require.Len(t, down, 1)
	assert.Equal(t, []string{"ocean_grid_mod", "ocean_state_mod"}, down[0].Nodes)
}

func TestKuzuStoreClustersAndStats(t *testing.T) {
	store := newKuzuTestStore(t)
	seedKuzuStore(t, store)
	ctx := context.Background()

	require.NoError(t, store.AddCluster(ctx, ClusterNode{
		Name:          "ocean",
		CohesionScore: 1.0,
		Members:       []string{"ocean_grid_mod", "ocean_state_mod"},
	}))
	require.NoError(t, store.AddEdge(ctx, Edge{SourceID: "ocean_grid_mod", TargetID: "ocean", Kind: EdgeKindBelongs}))
	require.NoError(t, store.AddEdge(ctx, Edge{SourceID: "ocean_state_mod", TargetID: "ocean", Kind: EdgeKindBelongs}))

	clusters, err := store.GetClusters(ctx)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, "ocean", clusters[0].Name)
	assert.InDelta(t, 1.0, clusters[0].CohesionScore, 1e-9)
	assert.ElementsMatch(t, []string{"ocean_grid_mod", "ocean_state_mod"}, clusters[0].Members)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.UnitCount)
	assert.Equal(t, 3, stats.CallableCount)
	assert.Equal(t, 1, stats.ClusterCount)
	assert.Equal(t, 7, stats.EdgeCount)
}

func TestKuzuStoreGetAllEdges(t *testing.T) {
	store := newKuzuTestStore(t)
	seedKuzuStore(t, store)

	edges, err := store.GetAllEdges(context.Background())
	require.NoError(t, err)
	assert.Len(t, edges, 5)
}
