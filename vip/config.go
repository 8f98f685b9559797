package vip

import (
	"time"

	"github.com/nf/vip/chip8"
)

// Config controls how a Runner executes programs.
type Config struct {
	Rate     int           // instructions per second
	Slice    time.Duration // interval at which due instructions run as a batch
	KeyPoll  time.Duration // how often a key wait checks the keypad
	Seed     int64         // seed for CXNN
	Quirks   chip8.Quirks
	KeepOpen bool // keep the frontend running after the program halts
}

// DefaultConfig returns the Config used by the vip command.
func DefaultConfig() Config {
	return Config{
		Rate:    1000,
		Slice:   2 * time.Millisecond,
		KeyPoll: chip8.TimerPeriod,
		Seed:    1,
	}
}

// normalize replaces unset pacing fields with their defaults.
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.Rate <= 0 {
		c.Rate = d.Rate
	}
	if c.Slice <= 0 {
		c.Slice = d.Slice
	}
	if c.KeyPoll <= 0 {
		c.KeyPoll = d.KeyPoll
	}
	return c
}
