package vip

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/retroenv/retrogolib/assert"

	"github.com/nf/vip/chip8"
)

type keyEvent struct {
	key  byte
	down bool
}

// testBridge is a Bridge backed by a bare display that records key changes.
type testBridge struct {
	d     *chip8.Display
	keys  chan keyEvent
	sound bool
}

func newTestBridge() *testBridge {
	return &testBridge{d: chip8.NewDisplay(), keys: make(chan keyEvent, 64)}
}

func (b *testBridge) Frame() (chip8.Frame, uint64) { return b.d.Frame() }
func (b *testBridge) Updated() <-chan struct{}     { return b.d.Updated() }
func (b *testBridge) Done() <-chan struct{}        { return b.d.Done() }
func (b *testBridge) SetKey(key byte, down bool)   { b.keys <- keyEvent{key, down} }
func (b *testBridge) Sounding() bool               { return b.sound }

func (b *testBridge) nextKey(t *testing.T) keyEvent {
	t.Helper()
	select {
	case e := <-b.keys:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for key event")
		return keyEvent{}
	}
}

// waitFor polls cond until it holds or a deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDrawFrame(t *testing.T) {
	s := tcell.NewSimulationScreen("UTF-8")
	assert.NoError(t, s.Init())
	s.SetSize(80, 20)

	var f chip8.Frame
	f.Set(0, 0, true) // top half of cell 0,0
	f.Set(5, 3, true) // bottom half of cell 5,1
	f.Set(63, 30, true)
	f.Set(63, 31, true)
	drawFrame(s, 2, 1, chip8.Width, chip8.Height/2, &f, tcell.ColorWhite, tcell.ColorBlack)

	for _, c := range []struct {
		x, y   int
		fg, bg tcell.Color
	}{
		{0, 0, tcell.ColorWhite, tcell.ColorBlack},
		{1, 0, tcell.ColorBlack, tcell.ColorBlack},
		{5, 1, tcell.ColorBlack, tcell.ColorWhite},
		{63, 15, tcell.ColorWhite, tcell.ColorWhite},
	} {
		r, _, st, _ := s.GetContent(2+c.x, 1+c.y)
		fg, bg, _ := st.Decompose()
		assert.Equal(t, '▀', r)
		if fg != c.fg || bg != c.bg {
			t.Errorf("cell %d,%d has colours %v/%v, want %v/%v", c.x, c.y, fg, bg, c.fg, c.bg)
		}
	}
	r, _, _, _ := s.GetContent(1, 1)
	assert.Equal(t, ' ', r)
}

func TestDrawFrameClipped(t *testing.T) {
	s := tcell.NewSimulationScreen("UTF-8")
	assert.NoError(t, s.Init())
	s.SetSize(80, 20)
	var f chip8.Frame
	drawFrame(s, 0, 0, 10, 4, &f, tcell.ColorWhite, tcell.ColorBlack)
	r, _, _, _ := s.GetContent(9, 3)
	assert.Equal(t, '▀', r)
	r, _, _, _ = s.GetContent(10, 3)
	assert.Equal(t, ' ', r)
	r, _, _, _ = s.GetContent(9, 4)
	assert.Equal(t, ' ', r)
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "   frame 3", statusLine(3, false))
	assert.Equal(t, " ♪ frame 12", statusLine(12, true))
}

func TestKeyHolder(t *testing.T) {
	b := newTestBridge()
	h := newKeyHolder(b, 20*time.Millisecond)
	h.press(0xa)
	assert.Equal(t, keyEvent{0xa, true}, b.nextKey(t))
	assert.Equal(t, keyEvent{0xa, false}, b.nextKey(t))

	h.press(0x1)
	h.press(0x1)
	assert.Equal(t, keyEvent{0x1, true}, b.nextKey(t))
	assert.Equal(t, keyEvent{0x1, true}, b.nextKey(t))
	assert.Equal(t, keyEvent{0x1, false}, b.nextKey(t))
	select {
	case e := <-b.keys:
		t.Errorf("extra key event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}

	h = newKeyHolder(b, time.Hour)
	h.press(0x2)
	assert.Equal(t, keyEvent{0x2, true}, b.nextKey(t))
	h.releaseAll()
	assert.Equal(t, keyEvent{0x2, false}, b.nextKey(t))
}

// TestKeyHolderStaleRelease checks that a release scheduled by an earlier
// press does not let go of a key that has been pressed again since.
func TestKeyHolderStaleRelease(t *testing.T) {
	b := newTestBridge()
	h := newKeyHolder(b, time.Hour)
	timer := func() *time.Timer {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.timers[0x3]
	}

	h.press(0x3)
	first := timer()
	h.press(0x3)
	assert.Equal(t, keyEvent{0x3, true}, b.nextKey(t))
	assert.Equal(t, keyEvent{0x3, true}, b.nextKey(t))

	h.release(0x3, first)
	select {
	case e := <-b.keys:
		t.Fatalf("stale release sent %+v", e)
	default:
	}

	h.release(0x3, timer())
	assert.Equal(t, keyEvent{0x3, false}, b.nextKey(t))
	assert.Equal(t, (*time.Timer)(nil), timer())
	h.releaseAll()
	select {
	case e := <-b.keys:
		t.Errorf("releaseAll sent %+v for a released key", e)
	default:
	}
}

// cells holds the screen contents checked by the terminal tests.
type cells struct {
	pixel   rune
	pixelFg tcell.Color
	status  rune
}

// startTerminal runs a Terminal on a simulation screen. If drawn is not
// nil, it receives the cells of interest after each draw; the cells are
// read on the goroutine that draws them.
func startTerminal(t *testing.T, b Bridge, drawn chan<- cells) (tcell.SimulationScreen, <-chan error) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	term := NewTerminal()
	term.Screen = sim
	term.HoldTime = 10 * time.Millisecond
	if drawn != nil {
		term.afterDraw = func(s tcell.Screen) {
			var c cells
			r, _, st, _ := s.GetContent(1, 1)
			c.pixel = r
			c.pixelFg, _, _ = st.Decompose()
			c.status, _, _, _ = s.GetContent(1, chip8.Height/2+2)
			select {
			case drawn <- c:
			default:
			}
		}
	}
	errc := make(chan error, 1)
	go func() { errc <- term.Run(context.Background(), b) }()
	return sim, errc
}

// waitForCells waits for a draw whose cells satisfy cond.
func waitForCells(t *testing.T, what string, drawn <-chan cells, cond func(cells) bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case c := <-drawn:
			if cond(c) {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func TestTerminalRun(t *testing.T) {
	out := log.Writer()
	b := newTestBridge()
	b.sound = true
	var f chip8.Frame
	f.Set(0, 0, true)
	b.d.Publish(&f)

	drawn := make(chan cells, 1)
	sim, errc := startTerminal(t, b, drawn)
	waitForCells(t, "display and status", drawn, func(c cells) bool {
		return c.pixel == '▀' && c.pixelFg == tcell.ColorWhite && c.status == '♪'
	})

	sim.InjectKey(tcell.KeyRune, 'Q', tcell.ModNone)
	assert.Equal(t, keyEvent{0x4, true}, b.nextKey(t))
	assert.Equal(t, keyEvent{0x4, false}, b.nextKey(t))

	sim.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("terminal did not exit on escape")
	}
	if log.Writer() != out {
		t.Error("log output not restored")
	}
}

func TestTerminalExitsWhenDone(t *testing.T) {
	b := newTestBridge()
	_, errc := startTerminal(t, b, nil)
	b.d.Close()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("terminal did not exit when the bridge was done")
	}
}
