package ptree

import "fmt"

// SyntaxError reports a line the parser could not recognize at a point where
// a known production was required, or a cross-reference inconsistency such as
// a mismatched closing name. It aborts the current file's pass.
type SyntaxError struct {
	Path string
	Line int // 1-based
	Text string
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s in %s, line %d: %s", e.Msg, e.Path, e.Line, e.Text)
}

// syntaxErrorf builds a SyntaxError at the tree's current cursor position.
func (t *Tree) syntaxErrorf(format string, args ...any) error {
	line, _ := t.cur.Current()
	return &SyntaxError{
		Path: t.Path,
		Line: t.cur.LineNo(),
		Text: line,
		Msg:  fmt.Sprintf(format, args...),
	}
}
