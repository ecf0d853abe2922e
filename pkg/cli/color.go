package cli

import (
	"errors"
	"io"
	"os"

	"golang.org/x/term"

	"sicasm/pkg/driver"
)

const (
	ansiReset   = "\x1b[0m"
	ansiBold    = "\x1b[1m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiMagenta = "\x1b[35m"
)

// useColor decides whether output written to w gets ANSI colours.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func paint(on bool, code, s string) string {
	if !on {
		return s
	}
	return code + s + ansiReset
}

// errorColor picks the colour of an assembly error by category.
func errorColor(err error) string {
	var de *driver.Error
	if !errors.As(err, &de) {
		return ansiRed
	}
	switch de.Kind.Category() {
	case "semantic":
		return ansiYellow
	case "internal":
		return ansiMagenta
	}
	return ansiRed
}
