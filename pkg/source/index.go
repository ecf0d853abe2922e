package source

import (
	"fmt"
	"sort"
)

// Index answers line queries over a fixed buffer. It is built once and is
// read-only afterwards, so a single Index may be shared between goroutines.
type Index struct {
	size   int
	starts []int // byte offset of the first byte of every line
	ends   []int // byte offset of every line terminator, or size for the last line
}

// NewIndex scans buf once and records where each line begins and ends.
func NewIndex(buf string) *Index {
	idx := &Index{size: len(buf), starts: []int{0}}
	for i := 0; i < len(buf); i++ {
		if buf[i] == '\n' {
			idx.ends = append(idx.ends, i)
			idx.starts = append(idx.starts, i+1)
		}
	}
	idx.ends = append(idx.ends, len(buf))
	return idx
}

// Locate returns the 1-based line number holding offset and the [start, end)
// byte range of that line, terminator excluded. An offset sitting on a "\n"
// belongs to the line the terminator ends. Offsets outside [0, len(buf)] are
// clamped.
func (idx *Index) Locate(offset int) (line, start, end int) {
	if offset < 0 {
		offset = 0
	}
	if offset > idx.size {
		offset = idx.size
	}
	// Last line whose start is <= offset.
	i := sort.Search(len(idx.starts), func(i int) bool { return idx.starts[i] > offset }) - 1
	return i + 1, idx.starts[i], idx.ends[i]
}

// Lines returns the number of lines, counting the (possibly empty) text after
// the last terminator as a line.
func (idx *Index) Lines() int {
	return len(idx.starts)
}

// Span returns the [start, end) byte range of the 1-based line n.
func (idx *Index) Span(n int) (start, end int, err error) {
	if n < 1 || n > len(idx.starts) {
		return 0, 0, fmt.Errorf("line %d out of range 1..%d", n, len(idx.starts))
	}
	return idx.starts[n-1], idx.ends[n-1], nil
}
