// Package grid lays text out on a fixed-width character grid.
package grid

// GetGridCoords converts a linear cell index into column x and row y of a
// grid cols cells wide.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// Wrap splits every line into rows of at most cols bytes. Empty lines keep
// one empty row. Tabs are expanded to the next multiple of tabWidth first.
func Wrap(lines []string, cols, tabWidth int) []string {
	if cols < 1 {
		cols = 1
	}
	var rows []string
	for _, line := range lines {
		line = expandTabs(line, tabWidth)
		if line == "" {
			rows = append(rows, "")
			continue
		}
		start := 0
		for i := 1; i < len(line); i++ {
			if x, _ := GetGridCoords(i, cols); x == 0 {
				rows = append(rows, line[start:i])
				start = i
			}
		}
		rows = append(rows, line[start:])
	}
	return rows
}

func expandTabs(s string, width int) string {
	if width < 1 {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\t' {
			out = append(out, s[i])
			continue
		}
		out = append(out, ' ')
		for len(out)%width != 0 {
			out = append(out, ' ')
		}
	}
	return string(out)
}
