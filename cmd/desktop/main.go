package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"

	"sicasm/pkg/cli"
	"sicasm/pkg/watch"
)

const (
	charWidth  = 7
	lineHeight = 14
	margin     = 4
)

var (
	background = color.RGBA{0x1e, 0x1e, 0x24, 0xff}
	foreground = color.RGBA{0xd8, 0xd8, 0xd8, 0xff}
	errorColor = color.RGBA{0xff, 0x6b, 0x6b, 0xff}
	statusBar  = color.RGBA{0x44, 0x44, 0x66, 0xff}
)

func (v *Viewer) Update() error {
	if v.dirty.CompareAndSwap(true, false) {
		v.reload()
		v.flash("reloaded " + filepath.Base(v.path))
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		v.scroll(1)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		v.scroll(-1)
	case inpututil.IsKeyJustPressed(ebiten.KeyPageDown):
		v.scroll(v.visible)
	case inpututil.IsKeyJustPressed(ebiten.KeyPageUp):
		v.scroll(-v.visible)
	case inpututil.IsKeyJustPressed(ebiten.KeyHome):
		v.scroll(-len(v.rows))
	case inpututil.IsKeyJustPressed(ebiten.KeyEnd):
		v.scroll(len(v.rows))
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		v.reload()
		v.flash("reloaded " + filepath.Base(v.path))
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		if v.clipboardOK {
			clipboard.Write(clipboard.FmtText, []byte(v.text()))
			v.flash("copied to clipboard")
		} else {
			v.flash("clipboard unavailable")
		}
	}

	if _, dy := ebiten.Wheel(); dy != 0 {
		v.scroll(-int(dy * 3))
	}
	if v.statusTTL > 0 {
		v.statusTTL--
	}
	return nil
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(background)

	fg := foreground
	if v.failed {
		fg = errorColor
	}
	face := basicfont.Face7x13
	for i, row := range v.window() {
		text.Draw(screen, row, face, margin, margin+(i+1)*lineHeight-3, fg)
	}

	if v.statusTTL > 0 {
		w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
		vector.DrawFilledRect(screen, 0, float32(h-lineHeight-2), float32(w), lineHeight+2, statusBar, false)
		text.Draw(screen, v.status, face, margin, h-4, foreground)
	}
}

func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	v.resize((outsideWidth-2*margin)/charWidth, (outsideHeight-2*margin)/lineHeight)
	return outsideWidth, outsideHeight
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] file.asm\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	defer glog.Flush()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	settings := cli.LoadSettings()
	if err := settings.Validate(); err != nil {
		glog.Exitf("invalid settings: %v", err)
	}

	v := newViewer(path, settings.DriverConfig())
	v.reload()
	v.clipboardOK = clipboard.Init() == nil

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if w, err := watch.New(path, func(string) { v.dirty.Store(true) }); err != nil {
		glog.Warningf("not watching %s: %v", path, err)
	} else {
		defer w.Close()
		go func() {
			if err := w.Run(ctx); err != nil {
				glog.Warningf("watch %s: %v", path, err)
			}
		}()
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(800, 600)
	ebiten.SetWindowTitle("sicasm - " + filepath.Base(path))

	if err := ebiten.RunGame(v); err != nil {
		glog.Exitf("viewer: %v", err)
	}
}
