package vip

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nf/vip/chip8"
)

// Terminal presents a Bridge in a text terminal, drawing two display rows
// per line of text. Log output is shown beneath the display while it runs.
type Terminal struct {
	// HoldTime is how long a key stays down after it is typed, as
	// terminals do not report key releases.
	HoldTime time.Duration
	// Screen, if set, is used in place of the terminal.
	Screen tcell.Screen

	On, Off tcell.Color

	afterDraw func(tcell.Screen) // called on the app goroutine after each draw
}

// NewTerminal returns a Terminal with a white on black display.
func NewTerminal() *Terminal {
	return &Terminal{
		HoldTime: 150 * time.Millisecond,
		On:       tcell.ColorWhite,
		Off:      tcell.ColorBlack,
	}
}

func (t *Terminal) Run(ctx context.Context, b Bridge) error {
	var (
		app     = tview.NewApplication()
		display = tview.NewBox()
		status  = tview.NewTextView().SetWrap(false)
		logView = tview.NewTextView().SetMaxLines(1000)
		rows    = tview.NewFlex().SetDirection(tview.FlexRow)
		keys    = newKeyHolder(b, t.HoldTime)
	)
	if t.Screen != nil {
		app.SetScreen(t.Screen)
	}
	if t.afterDraw != nil {
		app.SetAfterDrawFunc(t.afterDraw)
	}
	defer keys.releaseAll()

	display.SetBorder(true).SetTitle(" vip ")
	display.SetDrawFunc(func(s tcell.Screen, x, y, w, h int) (int, int, int, int) {
		f, _ := b.Frame()
		drawFrame(s, x+1, y+1, w-2, h-2, &f, t.On, t.Off)
		return x + 1, y + 1, w - 2, h - 2
	})
	status.SetBackgroundColor(tcell.ColorDarkGrey)
	status.SetTextColor(tcell.ColorBlack)
	// Log writes may come from any goroutine, including the one running
	// app, so they only mark the view for the next redraw.
	var logged atomic.Bool
	logView.SetChangedFunc(func() { logged.Store(true) })
	rows.
		AddItem(tview.NewFlex().
			AddItem(display, chip8.Width+2, 0, false).
			AddItem(nil, 0, 1, false), chip8.Height/2+2, 0, false).
		AddItem(status, 1, 0, false).
		AddItem(logView, 0, 1, false)
	app.SetRoot(rows, true)

	app.SetInputCapture(func(e *tcell.EventKey) *tcell.EventKey {
		switch e.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			app.Stop()
			return nil
		case tcell.KeyRune:
			if k, ok := padKeyForRune(e.Rune()); ok {
				keys.press(k)
				return nil
			}
		}
		return e
	})

	prevOut, prevPrefix := log.Writer(), log.Prefix()
	log.SetOutput(logView)
	log.SetPrefix("")
	defer func() {
		log.SetOutput(prevOut)
		log.SetPrefix(prevPrefix)
	}()

	stop := make(chan struct{})
	go func() {
		tick := time.NewTicker(chip8.TimerPeriod)
		defer tick.Stop()
		var last string
		for {
			select {
			case <-b.Updated():
			case <-tick.C:
			case <-b.Done():
				queue(app, stop, app.Stop)
				return
			case <-ctx.Done():
				queue(app, stop, app.Stop)
				return
			case <-stop:
				return
			}
			_, seq := b.Frame()
			line := statusLine(seq, b.Sounding())
			if line != last || logged.Swap(false) {
				last = line
				queue(app, stop, func() { status.SetText(line) })
			}
		}
	}()
	err := app.Run()
	close(stop)
	return err
}

// queue runs f on the goroutine running app and redraws, unless stop is
// closed first.
func queue(app *tview.Application, stop <-chan struct{}, f func()) {
	select {
	case <-stop:
		return
	default:
	}
	app.QueueUpdateDraw(f)
}

func statusLine(seq uint64, sounding bool) string {
	note := " "
	if sounding {
		note = "♪"
	}
	return fmt.Sprintf(" %s frame %d", note, seq)
}

// drawFrame draws f into the w by h cell region of s at x, y using upper
// half blocks, so that each cell shows two pixels.
func drawFrame(s tcell.Screen, x, y, w, h int, f *chip8.Frame, on, off tcell.Color) {
	pick := func(lit bool) tcell.Color {
		if lit {
			return on
		}
		return off
	}
	for cy := 0; cy < h && cy < chip8.Height/2; cy++ {
		for cx := 0; cx < w && cx < chip8.Width; cx++ {
			st := tcell.StyleDefault.
				Foreground(pick(f.Pixel(cx, 2*cy))).
				Background(pick(f.Pixel(cx, 2*cy+1)))
			s.SetContent(x+cx, y+cy, '▀', nil, st)
		}
	}
}

// keyHolder turns typed keys into presses that last for a hold time.
type keyHolder struct {
	b    Bridge
	hold time.Duration

	mu     sync.Mutex
	timers [chip8.NumKeys]*time.Timer
}

func newKeyHolder(b Bridge, hold time.Duration) *keyHolder {
	return &keyHolder{b: b, hold: hold}
}

// press holds k down, extending the hold if it is already down.
func (h *keyHolder) press(k byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.b.SetKey(k, true)
	if tm := h.timers[k]; tm != nil {
		tm.Stop()
	}
	var tm *time.Timer
	tm = time.AfterFunc(h.hold, func() { h.release(k, tm) })
	h.timers[k] = tm
}

// release lets go of k if tm is still the timer holding it down.
func (h *keyHolder) release(k byte, tm *time.Timer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timers[k] != tm {
		return
	}
	h.timers[k] = nil
	h.b.SetKey(k, false)
}

func (h *keyHolder) releaseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for k, tm := range h.timers {
		if tm != nil {
			tm.Stop()
			h.b.SetKey(byte(k), false)
			h.timers[k] = nil
		}
	}
}
