package ptree

import (
	"strconv"
	"strings"
)

// parseVarDecl handles a type declaration statement: one declared type spec,
// optional attributes, and one or more entity declarations. Every declared
// entity lands in the file's variable table under the current scope; entities
// that are dummy arguments of the open routine additionally complete that
// routine's signature slices.
//
// Component declarations inside derived-type definitions are consumed without
// effect: component types are deliberately not tracked.
func (t *Tree) parseVarDecl() (outcome, error) {
	line, _ := t.cur.Current()
	if !strings.Contains(line, "TypeDeclarationStmt") {
		return notApplicable, nil
	}
	stmtLevel := Level(line)
	block := t.collectBlock(stmtLevel)
	if t.st.derivedType != nil {
		return skipped, nil
	}
	scopeKey := t.st.scopeKey()
	if scopeKey == "" || len(block) == 0 {
		return skipped, nil
	}
	childLevel := Level(block[0])

	baseType := typeUnknown
	baseKind := ""
	attrRank := 0
	attrRankKnown := true
	haveAttrRank := false
	optional := false

	i := 0
	for i < len(block) {
		bl := block[i]
		if Level(bl) != childLevel {
			i++
			continue
		}
		sub := subtreeAfter(block, i, childLevel)
		prod := production(bl)
		switch {
		case strings.Contains(prod, "DeclarationTypeSpec"):
			baseType, baseKind = declaredType(prod, sub)
		case strings.Contains(prod, "AttrSpec"):
			switch {
			case strings.Contains(prod, "Optional"):
				optional = true
			case strings.Contains(prod, "ArraySpec"):
				attrRank = arraySpecRank(prod, sub)
				attrRankKnown = attrRank != rankUnknown
				haveAttrRank = true
			}
		case strings.Contains(prod, "EntityDecl"):
			name, entRank, haveEntRank := entityDecl(prod, sub)
			if name == "" {
				break
			}
			info := VariableInfo{Type: baseType, Rank: 0, Kind: baseKind}
			switch {
			case haveEntRank:
				info.Rank = entRank
			case haveAttrRank && attrRankKnown:
				info.Rank = attrRank
			case haveAttrRank:
				info.Rank = rankUnknown
			}
			t.Vars.set(scopeKey, name, info)
			t.completeArg(name, info, optional)
		}
		i += 1 + len(sub)
	}
	return handled, nil
}

// completeArg fills the open routine's signature slot for a dummy argument.
func (t *Tree) completeArg(name string, info VariableInfo, optional bool) {
	r := t.st.routine
	if r == nil || !r.HasSignature() {
		return
	}
	idx := r.argIndex(name)
	if idx < 0 {
		return
	}
	r.ArgTypes[idx] = info.Type
	r.ArgRanks[idx] = info.Rank
	r.ArgKinds[idx] = info.Kind
	if optional {
		r.markOptional(idx)
	}
}

// declaredType classifies a DeclarationTypeSpec production and pulls the kind
// specifier text out of its KindSelector, when present.
func declaredType(prod string, sub []string) (typ, kind string) {
	switch {
	case strings.Contains(prod, "IntegerTypeSpec"):
		typ = typeInteger
	case strings.Contains(prod, "DoublePrecision"), strings.Contains(prod, "-> Real"):
		typ = typeReal
	case strings.Contains(prod, "Logical"):
		typ = typeLogical
	case strings.Contains(prod, "Character"):
		typ = typeCharacter
	case strings.Contains(prod, "DoubleComplex"), strings.Contains(prod, "Complex"):
		typ = typeComplex
	case strings.Contains(prod, "DerivedTypeSpec"), strings.Contains(prod, "-> Type"), strings.Contains(prod, "-> Class"):
		typ = typeUnknown
		if m := reDerivedSpecName.FindStringSubmatch(prod); m != nil {
			typ = typeDerivedPrefix + m[1]
		} else {
			for _, s := range sub {
				sp := production(s)
				if m := reDerivedSpecName.FindStringSubmatch(sp); m != nil {
					typ = typeDerivedPrefix + m[1]
					break
				}
				if m := reBareName.FindStringSubmatch(sp); m != nil {
					typ = typeDerivedPrefix + m[1]
					break
				}
			}
		}
	default:
		typ = typeUnknown
	}

	inKindSelector := false
	kindLevel := 0
	for _, s := range sub {
		if strings.Contains(s, "KindSelector") {
			if m := reExprText.FindStringSubmatch(s); m != nil {
				return typ, m[1]
			}
			inKindSelector = true
			kindLevel = Level(s)
			continue
		}
		if inKindSelector {
			if Level(s) <= kindLevel {
				inKindSelector = false
				continue
			}
			if m := reExprText.FindStringSubmatch(s); m != nil {
				return typ, m[1]
			}
		}
	}
	return typ, kind
}

// arraySpecRank derives the declared rank from an ArraySpec production:
// deferred-shape lists carry an explicit dimension count, assumed-rank is
// unknown, and otherwise each shape-spec child is one dimension.
func arraySpecRank(prod string, sub []string) int {
	if m := reDeferredShape.FindStringSubmatch(prod); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if strings.Contains(prod, "AssumedRank") {
		return rankUnknown
	}
	if strings.Contains(prod, "ShapeSpec") {
		return 1
	}
	if len(sub) == 0 {
		return rankUnknown
	}
	minLevel := Level(sub[0])
	for _, s := range sub {
		if l := Level(s); l < minLevel {
			minLevel = l
		}
	}
	count := 0
	for _, s := range sub {
		if Level(s) != minLevel {
			continue
		}
		if m := reDeferredShape.FindStringSubmatch(s); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n
		}
		if strings.Contains(s, "AssumedRank") {
			return rankUnknown
		}
		if strings.Contains(production(s), "ShapeSpec") {
			count++
		}
	}
	if count > 0 {
		return count
	}
	return rankUnknown
}

// entityDecl extracts the declared name and, when an inline array spec
// overrides the attribute list, the per-entity rank.
func entityDecl(prod string, sub []string) (name string, rank int, haveRank bool) {
	if m := reName.FindStringSubmatch(prod); m != nil {
		name = m[1]
	}
	for i := 0; i < len(sub); i++ {
		s := sub[i]
		sp := production(s)
		if name == "" {
			if m := reBareName.FindStringSubmatch(sp); m != nil {
				name = m[1]
				continue
			}
		}
		if strings.Contains(sp, "ArraySpec") {
			rank = arraySpecRank(sp, subtreeAfter(sub, i, Level(s)))
			haveRank = true
			break
		}
		if strings.Contains(sp, "Initialization") {
			break
		}
	}
	return name, rank, haveRank
}

// subtreeAfter returns the lines following index i that nest strictly deeper
// than parentLevel, i.e. the subtree of block[i].
func subtreeAfter(block []string, i, parentLevel int) []string {
	j := i + 1
	for j < len(block) && Level(block[j]) > parentLevel {
		j++
	}
	return block[i+1 : j]
}
