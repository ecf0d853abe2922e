package driver

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
)

// Listing writes a human-readable view of the driver: every instruction and
// data directive with its source line, the symbol tables and a hexdump of the
// data segment. The entry instruction is marked with '>'.
func (d *Driver) Listing(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "code (%d instructions, entry %d):\n", len(d.Output.Code), d.EntryIndex)
	for i, text := range d.Output.Code {
		marker := ' '
		if i == d.EntryIndex {
			marker = '>'
		}
		line := 0
		if offset, ok := d.Positions.CodeOffset(i); ok {
			line, _, _ = d.Index.Locate(offset)
		}
		fmt.Fprintf(bw, "%c %5d  L%-5d %s\n", marker, i, line, text)
	}

	fmt.Fprintf(bw, "\nlabels:\n")
	for _, l := range sortedLabels(d.Exec.Labels) {
		fmt.Fprintf(bw, "  %-20s %-4s %d\n", l.Name, l.Kind, l.Target)
	}

	if len(d.Exec.Functions) > 0 {
		fmt.Fprintf(bw, "\nprocedures:\n")
		for _, p := range sortedProcedures(d.Exec.Functions) {
			fmt.Fprintf(bw, "  %-20s [%d, %d)\n", p.Name, p.Start, p.End)
		}
	}

	fmt.Fprintf(bw, "\ndata (%d bytes):\n", d.DataSize)
	for i, text := range d.Output.Data {
		line := 0
		if offset, ok := d.Positions.DataOffset(i); ok {
			line, _, _ = d.Index.Locate(offset)
		}
		fmt.Fprintf(bw, "  %5d  L%-5d %s\n", i, line, text)
	}
	if d.DataSize > 0 {
		mem, err := d.VM.Slice(0, d.DataSize)
		if err != nil {
			return err
		}
		bw.WriteString(hex.Dump(mem))
	}
	return bw.Flush()
}
