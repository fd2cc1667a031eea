// Package ptree reads flang parse-tree dump files and builds a cross-file
// symbol model of the Fortran codebase they describe: program units, their
// subroutines and functions, generic interfaces, derived types, use-relations,
// and resolved call edges.
package ptree

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// headerPrefix is the banner every well-formed dump file starts with.
const headerPrefix = "======"

// cursor is a one-line-lookahead reader over an in-memory line buffer.
// All three parse passes walk the same buffer; Rewind resets between passes.
type cursor struct {
	lines []string
	idx   int // index of the current line; len(lines) means exhausted
}

// loadLines reads a dump file into trimmed lines.
func loadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ptree: open dump: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ptree: read dump: %w", err)
	}
	return lines, nil
}

func newCursor(lines []string) *cursor {
	return &cursor{lines: lines}
}

// Current returns the line under the cursor. ok is false once the buffer is
// exhausted.
func (c *cursor) Current() (string, bool) {
	if c.idx >= len(c.lines) {
		return "", false
	}
	return c.lines[c.idx], true
}

// Peek returns the line after the current one without advancing.
func (c *cursor) Peek() (string, bool) {
	if c.idx+1 >= len(c.lines) {
		return "", false
	}
	return c.lines[c.idx+1], true
}

// Advance moves to the next line. Returns false at end of buffer.
func (c *cursor) Advance() bool {
	if c.idx >= len(c.lines) {
		return false
	}
	c.idx++
	return c.idx < len(c.lines)
}

// Rewind resets the cursor to the first line.
func (c *cursor) Rewind() { c.idx = 0 }

// LineNo is the 1-based number of the current line, for error reporting.
func (c *cursor) LineNo() int { return c.idx + 1 }

// Level is the nesting depth of a dump line: the count of leading '|' markers
// before the first character that is neither a marker nor a space. An empty or
// marker-free line is level 0.
func Level(line string) int {
	n := 0
	for _, ch := range line {
		switch ch {
		case '|':
			n++
		case ' ':
			continue
		default:
			return n
		}
	}
	return n
}
