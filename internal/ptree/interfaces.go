package ptree

import (
	"log"
	"strings"
)

// parseInterfaceBlock handles a named generic interface block during the
// interface pass. Member procedures are resolved immediately by full scoped
// name lookup, which is why this pass only runs after the structure pass has
// covered every file of the collection.
//
// Abstract interfaces, operator and assignment generics, and unnamed
// interface blocks are deliberately unsupported: their whole block is
// consumed without effect. A module-procedure list whose kind degrades to a
// plain Procedure entry aborts member collection early.
func (t *Tree) parseInterfaceBlock() (outcome, error) {
	line, _ := t.cur.Current()
	if !strings.Contains(line, "| InterfaceStmt") {
		return notApplicable, nil
	}

	switch {
	case strings.HasSuffix(line, "| InterfaceStmt"),
		strings.Contains(line, "InterfaceStmt -> Abstract"),
		strings.Contains(line, "GenericSpec -> DefinedOperator"),
		strings.Contains(line, "GenericSpec -> Assignment"):
		t.consumeInterfaceBody()
		return skipped, nil
	}

	m := reInterfaceStmt.FindStringSubmatch(line)
	if m == nil {
		return notApplicable, t.syntaxErrorf("InterfaceStmt syntax not recognized")
	}
	unit := t.st.programUnit()
	if unit == nil {
		return notApplicable, t.syntaxErrorf("interface %q outside any program unit", m[1])
	}
	iface := t.reg.Interface(m[1], unit)
	origin := t.st.scope()

	inProcedureList := false
	for {
		next, ok := t.cur.Peek()
		if !ok {
			return notApplicable, t.syntaxErrorf("unterminated interface block %q", iface.Name())
		}
		t.cur.Advance()
		if strings.Contains(next, "| EndInterfaceStmt") {
			return handled, nil
		}
		prod := production(next)
		switch {
		case strings.Contains(next, "Kind = ModuleProcedure"):
			inProcedureList = true
		case strings.Contains(next, "Kind = Procedure"):
			// External-procedure lists carry no resolvable members.
			return skipped, nil
		case inProcedureList:
			nm := reBareName.FindStringSubmatch(prod)
			if nm == nil {
				continue
			}
			entity := t.findNamedEntity(origin, nm[1])
			proc, ok := entity.(*Callable)
			if !ok {
				log.Printf("Warning: interface %s: cannot resolve member procedure %q", iface.Name(), nm[1])
				continue
			}
			iface.Procedures[proc] = struct{}{}
		}
	}
}

// consumeInterfaceBody advances past everything up to and including the
// closing EndInterfaceStmt, so unsupported interface bodies never leak
// phantom routines into the surrounding unit.
func (t *Tree) consumeInterfaceBody() {
	for {
		next, ok := t.cur.Peek()
		if !ok {
			return
		}
		t.cur.Advance()
		if strings.Contains(next, "| EndInterfaceStmt") {
			return
		}
	}
}
