package vip

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"time"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/nf/vip/chip8"
)

// GUI presents a Bridge in a window. Its Run method must be called from the
// main goroutine.
type GUI struct {
	Title   string
	Scale   int // window pixels per display pixel
	On, Off color.Color
}

// NewGUI returns a GUI with a 640x320 window.
func NewGUI() *GUI {
	return &GUI{
		Title: "vip",
		Scale: 10,
		On:    color.Gray{0xff},
		Off:   color.Gray{0x00},
	}
}

func (g *GUI) Run(ctx context.Context, b Bridge) error {
	var err error
	driver.Main(func(s screen.Screen) {
		err = g.run(ctx, s, b)
	})
	return err
}

func (g *GUI) run(ctx context.Context, s screen.Screen, b Bridge) error {
	scale := g.Scale
	if scale <= 0 {
		scale = 1
	}
	sz := image.Point{chip8.Width * scale, chip8.Height * scale}
	w, err := s.NewWindow(&screen.NewWindowOptions{
		Title:  g.Title,
		Width:  sz.X,
		Height: sz.Y,
	})
	if err != nil {
		return err
	}
	defer w.Release()

	v, err := newGUIView(s, sz, color.Palette{g.Off, g.On})
	if err != nil {
		return err
	}
	defer v.release()

	type update struct{}
	exit := make(chan struct{})
	go func() {
		t := time.NewTicker(chip8.TimerPeriod)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				w.Send(update{})
			case <-b.Done():
				close(exit)
				w.Send(update{})
				return
			case <-ctx.Done():
				close(exit)
				w.Send(update{})
				return
			}
		}
	}()

	var ws size.Event
	for {
		e := w.NextEvent()

		select {
		case <-exit:
			return nil
		default:
		}

		switch e := e.(type) {
		case size.Event:
			ws = e
			if ws.WidthPx+ws.HeightPx == 0 {
				return nil
			}
			v.dirty = true

		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				return nil
			}

		case paint.Event:
			v.dirty = true

		case mouse.Event:

		case key.Event:
			if e.Code == key.CodeEscape {
				return nil
			}
			k, ok := padKeyForCode(e.Code)
			if !ok {
				break
			}
			switch e.Direction {
			case key.DirPress:
				b.SetKey(k, true)
			case key.DirRelease:
				b.SetKey(k, false)
			}

		case update:
			if f, seq := b.Frame(); !v.drawn || v.seq != seq {
				v.seq = seq
				v.render(&f)
			}
			if v.dirty {
				r := ws.Bounds()
				if r.Empty() {
					r = image.Rectangle{Max: sz}
				}
				w.Scale(r, v.tex, v.tex.Bounds(), draw.Src, nil)
				w.Publish()
				v.dirty = false
			}

		case error:
			log.Print(e)

		default:
			format := "gui: got %#v"
			if _, ok := e.(fmt.Stringer); ok {
				format = "gui: got %v"
			}
			log.Printf(format, e)
		}
	}
}

// guiView holds the screen resources that show a frame.
type guiView struct {
	pix   *image.Paletted
	buf   screen.Buffer
	tex   screen.Texture
	seq   uint64
	drawn bool // whether tex holds a frame
	dirty bool // whether tex has changed since it was last published
}

func newGUIView(s screen.Screen, sz image.Point, p color.Palette) (*guiView, error) {
	v := &guiView{
		pix: image.NewPaletted(image.Rect(0, 0, chip8.Width, chip8.Height), p),
	}
	var err error
	if v.buf, err = s.NewBuffer(sz); err != nil {
		return nil, err
	}
	if v.tex, err = s.NewTexture(sz); err != nil {
		v.buf.Release()
		return nil, err
	}
	return v, nil
}

// render draws f into the texture.
func (v *guiView) render(f *chip8.Frame) {
	paintFrame(v.pix, f)
	xdraw.NearestNeighbor.Scale(v.buf.RGBA(), v.buf.Bounds(), v.pix, v.pix.Bounds(), xdraw.Src, nil)
	v.tex.Upload(image.Point{}, v.buf, v.buf.Bounds())
	v.drawn, v.dirty = true, true
}

func (v *guiView) release() {
	v.tex.Release()
	v.buf.Release()
}

// paintFrame sets each pixel of p to palette index 1 if lit and 0 if not.
func paintFrame(p *image.Paletted, f *chip8.Frame) {
	for y := 0; y < chip8.Height; y++ {
		row := p.Pix[y*p.Stride:]
		for x := 0; x < chip8.Width; x++ {
			row[x] = byte(f[y] >> (63 - x) & 1)
		}
	}
}
