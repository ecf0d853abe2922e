package source

import (
	"fmt"
	"strings"
)

// Position is a human-readable location inside a stripped buffer.
type Position struct {
	Line   int    // 1-based
	Column int    // byte offset from the start of the line
	Text   string // the whole line, terminator excluded
}

// String renders the position as "<line>:<column> : <lineText>". Every error
// surfaced by the toolchain uses this form.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d : %s", p.Line, p.Column, p.Text)
}

// Locate converts a byte offset into buf into a Position using idx, which
// must have been built from buf.
func Locate(buf string, idx *Index, offset int) Position {
	line, start, end := idx.Locate(offset)
	if offset < start {
		offset = start
	}
	if offset > end {
		offset = end
	}
	text := strings.TrimSuffix(buf[start:end], "\r")
	return Position{Line: line, Column: offset - start, Text: text}
}
