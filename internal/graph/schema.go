package graph

// --- Enums ---

// UnitKind classifies program-unit nodes in the symbol graph.
type UnitKind string

const (
	UnitKindModule     UnitKind = "module"
	UnitKindProgram    UnitKind = "program"
	UnitKindSubprogram UnitKind = "subprogram"
)

// CallableKind classifies callable nodes.
type CallableKind string

const (
	CallableKindSubroutine CallableKind = "subroutine"
	CallableKindFunction   CallableKind = "function"
	CallableKindInterface  CallableKind = "interface"
)

// EdgeKind classifies relationships between nodes.
type EdgeKind string

const (
	EdgeKindUses    EdgeKind = "USES"    // unit -> unit
	EdgeKindOwns    EdgeKind = "OWNS"    // unit -> callable
	EdgeKindCalls   EdgeKind = "CALLS"   // callable -> callable
	EdgeKindMember  EdgeKind = "MEMBER"  // interface -> member procedure
	EdgeKindBelongs EdgeKind = "BELONGS" // unit -> cluster
)

// --- Models ---

// UnitNode represents a program unit: a module, main program, or file-level
// subprogram.
type UnitNode struct {
	Name     string   `json:"name"`
	Kind     UnitKind `json:"kind"`
	TreePath string   `json:"treePath,omitempty"`
	// External marks units referenced by use statements but defined by no
	// dump file of the collection.
	External bool `json:"external,omitempty"`
}

// CallableNode represents a subroutine, function, or generic interface.
type CallableNode struct {
	// Key is the composite identifier "unit::name", or "unit::parent::name"
	// for nested routines.
	Key      string       `json:"key"`
	Name     string       `json:"name"`
	Kind     CallableKind `json:"kind"`
	UnitName string       `json:"unitName"`
	Parent   string       `json:"parent,omitempty"`
	NumArgs  int          `json:"numArgs"` // -1 when the signature was not recovered
}

// ClusterNode represents a group of tightly connected modules.
type ClusterNode struct {
	Name          string   `json:"name"`
	CohesionScore float64  `json:"cohesionScore"`
	Members       []string `json:"members"` // unit names
}

// Edge represents a relationship between two nodes, identified by unit name,
// callable key, or cluster name depending on the edge kind.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
}

// GraphStats summarizes a symbol graph.
type GraphStats struct {
	UnitCount     int `json:"unitCount"`
	CallableCount int `json:"callableCount"`
	ClusterCount  int `json:"clusterCount"`
	EdgeCount     int `json:"edgeCount"`
}

// DependencyChain is an ordered sequence of unit names forming a use-relation
// path.
type DependencyChain struct {
	Nodes []string `json:"nodes"`
	Depth int      `json:"depth"`
}
