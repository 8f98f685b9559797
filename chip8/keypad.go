package chip8

import (
	"math/bits"
	"sync/atomic"
)

// NumKeys is the number of keys on the hex keypad.
const NumKeys = 16

// Keypad holds the pressed state of the 16 keys. It may be written from any
// goroutine and is read by the goroutine executing the Machine.
type Keypad struct {
	state   atomic.Uint32
	pressed chan struct{}
}

// NewKeypad returns a Keypad with all keys released.
func NewKeypad() *Keypad {
	return &Keypad{pressed: make(chan struct{}, 1)}
}

// Set records key k as pressed or released. Keys above 0xF are ignored.
func (k *Keypad) Set(key byte, down bool) {
	if key >= NumKeys {
		return
	}
	bit := uint32(1) << key
	for {
		old := k.state.Load()
		v := old &^ bit
		if down {
			v |= bit
		}
		if old == v || k.state.CompareAndSwap(old, v) {
			break
		}
	}
	if down {
		select {
		case k.pressed <- struct{}{}:
		default:
		}
	}
}

// IsDown reports whether key is held down. Only the low nibble of key is
// used, matching how EX9E and EXA1 treat VX.
func (k *Keypad) IsDown(key byte) bool {
	return k.state.Load()&(1<<(key&0xf)) != 0
}

// State returns a bit mask of the keys held down, bit n for key n.
func (k *Keypad) State() uint16 { return uint16(k.state.Load()) }

// FirstDown returns the lowest numbered key held down.
func (k *Keypad) FirstDown() (byte, bool) {
	s := k.state.Load()
	if s == 0 {
		return 0, false
	}
	return byte(bits.TrailingZeros32(s)), true
}

// Pressed returns a channel that receives a value after a key goes down.
func (k *Keypad) Pressed() <-chan struct{} { return k.pressed }

// Reset releases all keys.
func (k *Keypad) Reset() { k.state.Store(0) }
