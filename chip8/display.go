package chip8

import (
	"math/bits"
	"strings"
	"sync"
	"sync/atomic"
)

// Display dimensions in pixels.
const (
	Width  = 64
	Height = 32
)

// Frame is a complete 64×32 monochrome picture. Each row is a uint64 whose
// most significant bit is column 0.
type Frame [Height]uint64

// Pixel reports whether the pixel at x, y is lit.
// Coordinates wrap modulo the display size.
func (f *Frame) Pixel(x, y int) bool {
	x, y = mod(x, Width), mod(y, Height)
	return f[y]&(1<<(Width-1-x)) != 0
}

// Set lights or clears the pixel at x, y.
func (f *Frame) Set(x, y int, on bool) {
	x, y = mod(x, Width), mod(y, Height)
	if on {
		f[y] |= 1 << (Width - 1 - x)
	} else {
		f[y] &^= 1 << (Width - 1 - x)
	}
}

// xorRow XORs the sprite byte b onto row y starting at column x and reports
// whether a lit pixel was cleared. Columns wrap within the row unless clip is
// set, in which case bits past the right edge are dropped.
func (f *Frame) xorRow(x, y int, b byte, clip bool) bool {
	var mask uint64
	if clip {
		mask = uint64(b) << (Width - 8) >> x
	} else {
		mask = bits.RotateLeft64(uint64(b)<<(Width-8), -x)
	}
	row := &f[y]
	hit := *row&mask != 0
	*row ^= mask
	return hit
}

// String renders the frame with '#' for lit and '.' for dark pixels.
func (f *Frame) String() string {
	var b strings.Builder
	b.Grow((Width + 1) * Height)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if f.Pixel(x, y) {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func mod(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// Display is the boundary between the goroutine that executes a Machine
// (the only writer) and any number of goroutines presenting its output.
//
// Published frames are immutable: Publish copies the writer's frame into a
// new snapshot and swaps it in atomically, so readers see either the old or
// the new frame in full and the writer never waits for a reader.
type Display struct {
	cur     atomic.Pointer[snapshot]
	updated chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

type snapshot struct {
	frame Frame
	seq   uint64
}

// NewDisplay returns a Display showing a blank frame with sequence zero.
func NewDisplay() *Display {
	d := &Display{
		updated: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	d.cur.Store(&snapshot{})
	return d
}

// Publish makes f the current frame.
func (d *Display) Publish(f *Frame) {
	s := &snapshot{frame: *f, seq: d.cur.Load().seq + 1}
	d.cur.Store(s)
	select {
	case d.updated <- struct{}{}:
	default:
	}
}

// Frame returns the most recently published frame and its sequence number.
// Sequence numbers increase by one with each Publish.
func (d *Display) Frame() (Frame, uint64) {
	s := d.cur.Load()
	return s.frame, s.seq
}

// Updated returns a channel that receives a value after one or more frames
// have been published. Frames published while no one is receiving are
// coalesced into a single notification.
func (d *Display) Updated() <-chan struct{} { return d.updated }

// Close signals readers that no more frames will be published.
// The last published frame remains readable.
func (d *Display) Close() { d.closeOnce.Do(func() { close(d.done) }) }

// Done returns a channel that is closed by Close.
func (d *Display) Done() <-chan struct{} { return d.done }
