package chip8

import "time"

// TimerRate is the frequency at which the delay and sound timers decay.
const TimerRate = 60

// TimerPeriod is the real time between two timer ticks.
const TimerPeriod = time.Second / TimerRate

// Timers holds the delay and sound timers.
type Timers struct {
	Delay byte
	Sound byte

	carry time.Duration // elapsed time not yet converted to ticks
}

// Tick decrements both timers toward zero.
func (t *Timers) Tick() {
	if t.Delay > 0 {
		t.Delay--
	}
	if t.Sound > 0 {
		t.Sound--
	}
}

// Advance applies one Tick for every TimerPeriod in d, carrying any remainder
// over to the next call, and reports the number of ticks applied.
func (t *Timers) Advance(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	t.carry += d
	n := int(t.carry / TimerPeriod)
	t.carry -= time.Duration(n) * TimerPeriod
	// Past 255 ticks both timers are zero whatever they started at.
	for i := 0; i < n && i < 0x100; i++ {
		t.Tick()
	}
	return n
}

// Sounding reports whether the sound timer is running, which is when a tone
// should be emitted.
func (t *Timers) Sounding() bool { return t.Sound > 0 }
