package main

import (
	"bytes"
	"strings"
	"sync/atomic"

	"sicasm/pkg/driver"
	"sicasm/pkg/grid"
	"sicasm/pkg/utils"
)

const tabWidth = 8

// Viewer shows the listing of one source file, or the assembly error when
// the file does not assemble.
type Viewer struct {
	path string
	cfg  driver.Config

	doc    []string // document lines before wrapping
	rows   []string // doc wrapped to the current width
	failed bool

	cols, visible int // grid size in characters
	top           int // first visible row

	dirty       atomic.Bool // set by the file watcher
	clipboardOK bool
	status      string
	statusTTL   int // frames left to show status
}

func newViewer(path string, cfg driver.Config) *Viewer {
	return &Viewer{path: path, cfg: cfg, cols: 80, visible: 40}
}

// buildDocument assembles src and returns the lines to display.
func buildDocument(src string, cfg driver.Config) (lines []string, failed bool) {
	d, err := driver.New(cfg).Preprocess(src)
	if err != nil {
		return strings.Split(err.Error(), "\n"), true
	}
	var buf bytes.Buffer
	if err := d.Listing(&buf); err != nil {
		return []string{err.Error()}, true
	}
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n"), false
}

// reload re-reads the file and rebuilds the document, keeping the scroll
// position where possible.
func (v *Viewer) reload() {
	_, src, err := utils.ReadSource(v.path)
	if err != nil {
		v.doc, v.failed = []string{err.Error()}, true
	} else {
		v.doc, v.failed = buildDocument(src, v.cfg)
	}
	v.rewrap()
}

func (v *Viewer) rewrap() {
	v.rows = grid.Wrap(v.doc, v.cols, tabWidth)
	v.scroll(0)
}

// resize adapts the grid to a new window size in characters.
func (v *Viewer) resize(cols, visible int) {
	if cols < 1 {
		cols = 1
	}
	if visible < 1 {
		visible = 1
	}
	if cols == v.cols && visible == v.visible {
		return
	}
	v.cols, v.visible = cols, visible
	v.rewrap()
}

// scroll moves the view by delta rows, clamped to the document.
func (v *Viewer) scroll(delta int) {
	v.top += delta
	if last := len(v.rows) - v.visible; v.top > last {
		v.top = last
	}
	if v.top < 0 {
		v.top = 0
	}
}

// window returns the rows currently on screen.
func (v *Viewer) window() []string {
	end := v.top + v.visible
	if end > len(v.rows) {
		end = len(v.rows)
	}
	return v.rows[v.top:end]
}

func (v *Viewer) text() string {
	return strings.Join(v.doc, "\n") + "\n"
}

func (v *Viewer) flash(msg string) {
	v.status = msg
	v.statusTTL = 120
}
