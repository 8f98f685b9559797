package chip8

import (
	"testing"
	"time"
)

func TestTimersTick(t *testing.T) {
	tm := Timers{Delay: 5, Sound: 2}
	for i := 0; i < 5; i++ {
		if !tm.Sounding() && i < 2 {
			t.Errorf("tick %d: sound stopped early", i)
		}
		tm.Tick()
	}
	if tm.Delay != 0 || tm.Sound != 0 {
		t.Fatalf("after 5 ticks delay=%d sound=%d", tm.Delay, tm.Sound)
	}
	for i := 0; i < 3; i++ {
		tm.Tick()
	}
	if tm.Delay != 0 || tm.Sound != 0 || tm.Sounding() {
		t.Errorf("timers moved past zero: delay=%d sound=%d", tm.Delay, tm.Sound)
	}
}

func TestTimersAdvance(t *testing.T) {
	for _, c := range []struct {
		steps []time.Duration
		ticks int
		delay byte
	}{
		{[]time.Duration{0}, 0, 200},
		{[]time.Duration{-time.Second}, 0, 200},
		{[]time.Duration{TimerPeriod}, 1, 199},
		{[]time.Duration{5 * TimerPeriod}, 5, 195},
		{[]time.Duration{TimerPeriod / 2, TimerPeriod / 2}, 1, 199},
		{[]time.Duration{TimerPeriod - 1, 1, TimerPeriod - 1}, 1, 199},
		{[]time.Duration{time.Second}, 60, 140},
		{[]time.Duration{time.Hour}, 60 * 60 * 60, 0},
	} {
		tm := Timers{Delay: 200}
		n := 0
		for _, d := range c.steps {
			n += tm.Advance(d)
		}
		if n != c.ticks || tm.Delay != c.delay {
			t.Errorf("Advance(%v) applied %d ticks, delay %d; want %d ticks, delay %d",
				c.steps, n, tm.Delay, c.ticks, c.delay)
		}
	}
}
