package ptree

import (
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"
)

// UnresolvedCall is a call site whose target could not be resolved to any
// known callable or interface.
type UnresolvedCall struct {
	Caller string
	Callee string
}

// Tree reads and parses one flang parse-tree dump file. The same Tree is
// walked once per pass (structure, then interfaces, then calls) against a
// registry that is usually shared with the other trees of a forest.
type Tree struct {
	Path string

	reg *Registry
	cur *cursor
	st  parseState

	// Vars is the per-file variable table, filled during the structure pass
	// and consulted during the call pass.
	Vars variableTable

	// Modules lists the modules defined (not merely referenced) in this file.
	Modules []*ProgramUnit

	// Unresolved call-site diagnostics, split by site kind.
	UnfoundSubroutineCalls []UnresolvedCall
	UnfoundFunctionCalls   []UnresolvedCall
}

// NewTree loads the dump file at path. The file's content is read once into
// memory; parsing passes rewind over the same buffer.
func NewTree(path string, reg *Registry) (*Tree, error) {
	lines, err := loadLines(path)
	if err != nil {
		return nil, err
	}
	return NewTreeFromLines(path, lines, reg), nil
}

// NewTreeFromLines builds a Tree over an already-loaded line buffer.
func NewTreeFromLines(path string, lines []string, reg *Registry) *Tree {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Tree{
		Path: path,
		reg:  reg,
		cur:  newCursor(lines),
		Vars: make(variableTable),
	}
}

// Registry returns the registry this tree interns symbols into.
func (t *Tree) Registry() *Registry { return t.reg }

// Stem is the dump file name without directory or extension; it names the
// implicit subprogram unit of a module-less file.
func (t *Tree) Stem() string {
	base := filepath.Base(t.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// outcome is the tri-state result of applying a recognizer to the current
// line.
type outcome int

const (
	// notApplicable: the line is not this recognizer's production.
	notApplicable outcome = iota
	// handled: the production was recognized and acted upon.
	handled
	// skipped: the production was recognized but is deliberately
	// unsupported; it was consumed without effect.
	skipped
)

// recognizer pairs a grammar production with its handler. Handlers may
// consume additional lines beyond the current one; they leave the cursor on
// the last line they consumed.
type recognizer struct {
	name string
	fn   func(*Tree) (outcome, error)
}

// ParseStructure is pass one: program units, callables and their signatures,
// use-relations, derived types and bindings, and variable declarations.
func (t *Tree) ParseStructure() error {
	return t.runPass([]recognizer{
		{"routine-begin", (*Tree).parseRoutineBegin},
		{"routine-end", (*Tree).parseRoutineEnd},
		{"only-clause", (*Tree).parseOnlyOrRename},
		{"use-stmt", (*Tree).parseUseStmt},
		{"derived-type-begin", (*Tree).parseDerivedTypeBegin},
		{"derived-type-end", (*Tree).parseDerivedTypeEnd},
		{"type-binding", (*Tree).parseTypeBinding},
		{"var-decl", (*Tree).parseVarDecl},
		{"module-begin", (*Tree).parseModuleStmt},
		{"module-end", (*Tree).parseEndModuleStmt},
		{"program-unit", (*Tree).parseProgramUnit},
	})
}

// ParseInterfaces is pass two: generic interface blocks and their member
// procedures. It requires the structure pass to have run over every file of
// the collection, since members may live in other files' modules.
func (t *Tree) ParseInterfaces() error {
	return t.runPass([]recognizer{
		{"routine-begin", (*Tree).parseRoutineBegin},
		{"routine-end", (*Tree).parseRoutineEnd},
		{"derived-type-begin", (*Tree).parseDerivedTypeBegin},
		{"derived-type-end", (*Tree).parseDerivedTypeEnd},
		{"module-begin", (*Tree).parseModuleStmt},
		{"module-end", (*Tree).parseEndModuleStmt},
		{"program-unit", (*Tree).parseProgramUnit},
		{"interface-block", (*Tree).parseInterfaceBlock},
	})
}

// ParseCalls is pass three: call-site resolution. It requires the interface
// pass to have run over every file of the collection.
func (t *Tree) ParseCalls() error {
	return t.runPass([]recognizer{
		{"routine-begin", (*Tree).parseRoutineBegin},
		{"routine-end", (*Tree).parseRoutineEnd},
		{"derived-type-begin", (*Tree).parseDerivedTypeBegin},
		{"derived-type-end", (*Tree).parseDerivedTypeEnd},
		{"module-begin", (*Tree).parseModuleStmt},
		{"module-end", (*Tree).parseEndModuleStmt},
		{"program-unit", (*Tree).parseProgramUnit},
		{"call-stmt", (*Tree).parseCallStmt},
		{"function-reference", (*Tree).parseFunctionReference},
	})
}

// runPass walks the whole file once, dispatching each line to the first
// recognizer that reports anything other than notApplicable. Cursor and
// parse state are unconditionally reset afterwards so a failed pass never
// leaks stale position into the next one.
func (t *Tree) runPass(recs []recognizer) (err error) {
	defer func() {
		t.st.reset()
		t.cur.Rewind()
	}()

	if !t.checkHeader() {
		return nil
	}

	for {
		if _, ok := t.cur.Current(); !ok {
			break
		}
		for _, rec := range recs {
			var out outcome
			out, err = rec.fn(t)
			if err != nil {
				return fmt.Errorf("ptree: %s: %w", rec.name, err)
			}
			if out != notApplicable {
				break
			}
		}
		if !t.cur.Advance() {
			break
		}
	}
	return nil
}

// checkHeader verifies the fixed banner on the first line. A file without it
// is not an error: it is skipped with a warning and contributes no symbols.
func (t *Tree) checkHeader() bool {
	t.cur.Rewind()
	first, ok := t.cur.Current()
	if !ok || !strings.HasPrefix(first, headerPrefix) {
		log.Printf("Warning: skipping %s: missing parse tree header", filepath.Base(t.Path))
		return false
	}
	return true
}

// collectBlock consumes every following line nested strictly deeper than
// level, returning them in order. The cursor is left on the last consumed
// line.
func (t *Tree) collectBlock(level int) []string {
	var out []string
	for {
		next, ok := t.cur.Peek()
		if !ok || Level(next) <= level {
			return out
		}
		t.cur.Advance()
		out = append(out, next)
	}
}

// advanceLine moves to the next line, failing with a syntax error at end of
// file.
func (t *Tree) advanceLine() (string, error) {
	if !t.cur.Advance() {
		return "", t.syntaxErrorf("unexpected end of parse tree")
	}
	line, _ := t.cur.Current()
	return line, nil
}

// Shared production patterns. The dump format identifies productions by
// literal node names; names are always single-quoted words.
var (
	reName            = regexp.MustCompile(`Name = '(\w+)'`)
	reBareName        = regexp.MustCompile(`^Name = '(\w+)'`)
	reModuleStmt      = regexp.MustCompile(`ModuleStmt -> Name = '(\w+)'`)
	reEndModuleStmt   = regexp.MustCompile(`EndModuleStmt -> Name = '(\w+)'`)
	reEndFunction     = regexp.MustCompile(`EndFunctionStmt -> Name = '(\w+)'`)
	reEndSubroutine   = regexp.MustCompile(`EndSubroutineStmt -> Name = '(\w+)'`)
	reProgramStmt     = regexp.MustCompile(`ProgramStmt -> Name = '(\w+)'`)
	reUseStmtTail     = regexp.MustCompile(`UseStmt *$`)
	reOnlyName        = regexp.MustCompile(`Only -> GenericSpec -> Name = '(\w+)'`)
	reOnlyOperator    = regexp.MustCompile(`Only -> GenericSpec -> DefinedOperator -> IntrinsicOperator = (\w+)`)
	rePrefix          = regexp.MustCompile(`\bPrefix`)
	reDummyArg        = regexp.MustCompile(`DummyArg -> Name = '(\w+)'`)
	reProcDesignator  = regexp.MustCompile(`ProcedureDesignator -> Name = '(\w+)'`)
	reKeyword         = regexp.MustCompile(`Keyword -> Name = '(\w+)'`)
	reDataRefName     = regexp.MustCompile(`DataRef -> Name = '(\w+)'`)
	reInterfaceStmt   = regexp.MustCompile(`InterfaceStmt -> GenericSpec -> Name = '(\w+)'`)
	reExtends         = regexp.MustCompile(`Extends -> Name = '(\w+)'`)
	reEndTypeStmt     = regexp.MustCompile(`EndTypeStmt -> Name = '(\w+)'`)
	reDerivedSpecName = regexp.MustCompile(`DerivedTypeSpec -> Name = '(\w+)'`)
	reDeferredShape   = regexp.MustCompile(`DeferredShapeSpecList -> int = '(\d+)'`)
	reExprText        = regexp.MustCompile(`Expr = '([^']*)'`)
)

// production strips the leading level markers from a dump line, leaving the
// grammar node text.
func production(line string) string {
	i := 0
	for i < len(line) && (line[i] == '|' || line[i] == ' ') {
		i++
	}
	return line[i:]
}
