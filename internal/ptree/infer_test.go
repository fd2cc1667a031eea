package ptree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// inferTree builds a tree with a known variable table and one caller routine
// for driving inferExpr directly.
func inferTree(t *testing.T) (*Tree, *Callable) {
	t.Helper()
	reg := NewRegistry()
	m := reg.Module("m")
	caller := reg.Subroutine("f", m, nil)
	tr := NewTreeFromLines("infer_ptree", nil, reg)

	tr.Vars.set("m::f", "temp", VariableInfo{Type: typeReal, Rank: 3, Kind: "r8"})
	tr.Vars.set("m::f", "n", VariableInfo{Type: typeInteger, Rank: 0})
	tr.Vars.set("m", "global_flag", VariableInfo{Type: typeLogical, Rank: 0})
	return tr, caller
}

func TestInferLiterals(t *testing.T) {
	tr, caller := inferTree(t)
	tests := []struct {
		name string
		line string
		want VariableInfo
	}{
		{"integer", "| | ActualArg -> Expr -> LiteralConstant -> IntLiteralConstant", VariableInfo{Type: typeInteger, Rank: 0}},
		{"real", "| | ActualArg -> Expr -> LiteralConstant -> RealLiteralConstant", VariableInfo{Type: typeReal, Rank: 0}},
		{"character", "| | ActualArg -> Expr -> LiteralConstant -> CharLiteralConstant", VariableInfo{Type: typeCharacter, Rank: 0}},
		{"logical", "| | ActualArg -> Expr -> LiteralConstant -> LogicalLiteralConstant", VariableInfo{Type: typeLogical, Rank: 0}},
		{"complex", "| | ActualArg -> Expr -> LiteralConstant -> ComplexLiteralConstant", VariableInfo{Type: typeComplex, Rank: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tr.inferExpr([]string{tt.line}, caller)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferOperators(t *testing.T) {
	tr, caller := inferTree(t)
	tests := []struct {
		name string
		line string
		want VariableInfo
	}{
		{"add", "| | Expr = 'n+1' -> Add", VariableInfo{Type: typeNumeric, Rank: rankUnknown}},
		{"negate", "| | Expr = '-n' -> Negate", VariableInfo{Type: typeNumeric, Rank: rankUnknown}},
		{"and", "| | Expr -> AND", VariableInfo{Type: typeLogical, Rank: rankUnknown}},
		{"relational", "| | Expr -> EQ", VariableInfo{Type: typeLogical, Rank: 0}},
		{"concat", "| | Expr -> Concat", VariableInfo{Type: typeCharacter, Rank: rankUnknown}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tr.inferExpr([]string{tt.line}, caller)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferVariableDesignator(t *testing.T) {
	tr, caller := inferTree(t)

	got := tr.inferExpr([]string{"| | | Designator -> DataRef -> Name = 'temp'"}, caller)
	assert.Equal(t, VariableInfo{Type: typeReal, Rank: 3, Kind: "r8"}, got)

	// Unit-scope variables resolve through the caller's enclosing unit.
	got = tr.inferExpr([]string{"| | | Designator -> DataRef -> Name = 'global_flag'"}, caller)
	assert.Equal(t, VariableInfo{Type: typeLogical, Rank: 0}, got)

	// Undeclared names degrade to fully unknown.
	got = tr.inferExpr([]string{"| | | Designator -> DataRef -> Name = 'mystery'"}, caller)
	assert.Equal(t, unknownVariable(), got)
}

func TestInferArraySection(t *testing.T) {
	tr, caller := inferTree(t)

	// temp(i,:,:) keeps two of three dimensions.
	lines := []string{
		"| | | Designator -> DataRef -> ArrayElement",
		"| | | | DataRef -> Name = 'temp'",
		"| | | | SectionSubscript -> Integer -> Expr = 'i'",
		"| | | | SectionSubscript -> SubscriptTriplet",
		"| | | | SectionSubscript -> SubscriptTriplet",
	}
	got := tr.inferExpr(lines, caller)
	assert.Equal(t, VariableInfo{Type: typeReal, Rank: 2, Kind: "r8"}, got)

	// Fully subscripted: a scalar element. Over-subscripting clamps at zero.
	lines = []string{
		"| | | Designator -> DataRef -> ArrayElement",
		"| | | | DataRef -> Name = 'temp'",
		"| | | | SectionSubscript -> Integer -> Expr = 'i'",
		"| | | | SectionSubscript -> Integer -> Expr = 'j'",
		"| | | | SectionSubscript -> Integer -> Expr = 'k'",
	}
	got = tr.inferExpr(lines, caller)
	assert.Equal(t, VariableInfo{Type: typeReal, Rank: 0, Kind: "r8"}, got)
}

func TestInferStructureComponentUnknown(t *testing.T) {
	tr, caller := inferTree(t)
	lines := []string{
		"| | | Designator -> DataRef -> StructureComponent",
		"| | | | DataRef -> Name = 'temp'",
		"| | | | Name = 'field'",
	}
	got := tr.inferExpr(lines, caller)
	assert.Equal(t, unknownVariable(), got, "component types are never tracked")
}

func TestInferArrayConstructor(t *testing.T) {
	tr, caller := inferTree(t)
	got := tr.inferExpr([]string{"| | | ArrayConstructor"}, caller)
	assert.Equal(t, VariableInfo{Type: typeUnknown, Rank: 1}, got)
}

func TestInferFunctionRefAsArrayAccess(t *testing.T) {
	tr, caller := inferTree(t)

	// An undifferentiated reference naming the declared array temp is an
	// array access: two subscripts reduce the rank accordingly.
	lines := []string{
		"| | | FunctionReference -> Call",
		"| | | | ProcedureDesignator -> Name = 'temp'",
		"| | | | ActualArgSpec",
		"| | | | | ActualArg -> Expr = 'i'",
		"| | | | ActualArgSpec",
		"| | | | | ActualArg -> Expr = 'j'",
	}
	got := tr.inferExpr(lines, caller)
	assert.Equal(t, VariableInfo{Type: typeReal, Rank: 1, Kind: "r8"}, got)

	// A reference naming no declared variable is a real call; its result is
	// not tracked.
	lines = []string{
		"| | | FunctionReference -> Call",
		"| | | | ProcedureDesignator -> Name = 'compute'",
	}
	got = tr.inferExpr(lines, caller)
	assert.Equal(t, unknownVariable(), got)
}

func TestExprOperator(t *testing.T) {
	assert.Equal(t, "Add", exprOperator("Expr = 'a+b' -> Add"))
	assert.Equal(t, "", exprOperator("Expr = 'f(x)'"))
	assert.Equal(t, "", exprOperator("ProcedureDesignator -> Name = 'f'"))
	assert.Equal(t, "Call", exprOperator("FunctionReference -> Call"))
}
