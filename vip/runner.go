// Package vip drives chip8 machines in real time and presents them in a
// window or a terminal.
package vip

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nf/vip/chip8"
)

// Bridge is the view of a running machine given to a Frontend. Frontends
// only read the display and write the keypad.
type Bridge interface {
	// Frame returns the most recently published frame and its sequence
	// number.
	Frame() (chip8.Frame, uint64)
	// Updated receives a value after a new frame is published.
	Updated() <-chan struct{}
	// Done is closed when the frontend should exit.
	Done() <-chan struct{}
	SetKey(key byte, down bool)
	// Sounding reports whether the sound timer is running.
	Sounding() bool
}

// Frontend presents a Bridge to the user until ctx is cancelled, the
// Bridge is done, or the user asks to quit.
type Frontend interface {
	Run(ctx context.Context, b Bridge) error
}

// ErrStopped is returned by Reset after Run has returned.
var ErrStopped = errors.New("runner stopped")

// maxLag bounds how far execution may fall behind its rate before owed
// instructions are dropped.
const maxLag = 100 * time.Millisecond

// Runner executes one program at a time against a display and keypad that
// persist across resets.
type Runner struct {
	cfg     Config
	display *chip8.Display
	keys    *chip8.Keypad
	sound   atomic.Bool

	reset     chan *chip8.Machine
	resetDone chan bool
	stopOnce  sync.Once
	stopped   chan struct{}
}

// NewRunner returns a Runner configured by cfg. Zero pacing fields take the
// values from DefaultConfig.
func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:       cfg.normalize(),
		display:   chip8.NewDisplay(),
		keys:      chip8.NewKeypad(),
		reset:     make(chan *chip8.Machine),
		resetDone: make(chan bool),
		stopped:   make(chan struct{}),
	}
}

// Load returns a Machine for program wired to the runner's display and
// keypad.
func (r *Runner) Load(program []byte) (*chip8.Machine, error) {
	m, err := chip8.NewMachine(program)
	if err != nil {
		return nil, err
	}
	m.Quirks = r.cfg.Quirks
	m.Rand = rand.New(rand.NewSource(r.cfg.Seed))
	m.Display = r.display
	m.Keys = r.keys
	return m, nil
}

// Reset replaces the running program with program. It returns once the
// new program has started with a blank display and all keys released. Calls made before Run block until Run starts.
func (r *Runner) Reset(program []byte) error {
	m, err := r.Load(program)
	if err != nil {
		return err
	}
	select {
	case r.reset <- m:
		<-r.resetDone
		return nil
	case <-r.stopped:
		return ErrStopped
	}
}

// Run executes program while fe runs on the calling goroutine. If fe is
// nil Run waits for the program to halt. Unless the Config has KeepOpen
// set, a halt closes the display, which tells fe to exit, and the halt
// error is returned. Run may only be called once.
func (r *Runner) Run(ctx context.Context, program []byte, fe Frontend) error {
	m, err := r.Load(program)
	if err != nil {
		return err
	}
	defer r.stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	halted := make(chan error, 1)
	go func() { halted <- r.supervise(ctx, m) }()

	var feErr error
	if fe != nil {
		feErr = fe.Run(ctx, r)
	} else {
		select {
		case <-r.Done():
		case <-ctx.Done():
		}
	}
	cancel()
	err = <-halted
	if feErr != nil {
		return feErr
	}
	return err
}

func (r *Runner) stop() {
	r.stopOnce.Do(func() {
		close(r.stopped)
		r.display.Close()
	})
}

// supervise runs m and any machines passed to Reset, one at a time.
func (r *Runner) supervise(ctx context.Context, m *chip8.Machine) error {
	var (
		cancel  context.CancelFunc
		execErr = make(chan error, 1)
		running bool
		cur     *chip8.Machine
	)
	start := func(m *chip8.Machine) {
		var execCtx context.Context
		cur = m
		execCtx, cancel = context.WithCancel(ctx)
		m.Publish()
		running = true
		go func() { execErr <- r.Exec(execCtx, m) }()
	}
	halt := func() {
		if running {
			cancel()
			<-execErr
			running = false
		}
	}
	start(m)
	for {
		select {
		case m := <-r.reset:
			halt()
			r.keys.Reset()
			start(m)
			r.resetDone <- true
		case err := <-execErr:
			running = false
			cancel()
			if !r.cfg.KeepOpen {
				r.display.Close()
				return err
			}
			if err != nil {
				log.Printf("chip8: %v\n%v", err, cur)
			}
		case <-ctx.Done():
			halt()
			return nil
		}
	}
}

// Exec steps m at the configured rate and decays its timers at 60Hz until
// ctx is cancelled, in which case it returns nil, or until Step fails.
// While m waits for a key Exec checks the keypad every KeyPoll and after
// each key press.
func (r *Runner) Exec(ctx context.Context, m *chip8.Machine) error {
	defer r.sound.Store(false)

	perStep := time.Second / time.Duration(r.cfg.Rate)
	if perStep == 0 {
		perStep = 1
	}
	var (
		steps  = time.NewTicker(r.cfg.Slice)
		timers = time.NewTicker(chip8.TimerPeriod)
		poll   *time.Ticker

		stepC  = steps.C
		pollC  <-chan time.Time
		pressC <-chan struct{}

		now      = time.Now()
		lastStep = now
		lastTick = now
		owed     time.Duration
	)
	defer steps.Stop()
	defer timers.Stop()
	defer func() {
		if poll != nil {
			poll.Stop()
		}
	}()

	wait := func(on bool) {
		if on {
			poll = time.NewTicker(r.cfg.KeyPoll)
			stepC, pollC, pressC = nil, poll.C, m.Keys.Pressed()
			return
		}
		poll.Stop()
		poll = nil
		stepC, pollC, pressC = steps.C, nil, nil
		lastStep, owed = time.Now(), 0
	}
	waiting := false
	for {
		n := 0
		select {
		case <-ctx.Done():
			return nil
		case t := <-timers.C:
			m.Timers.Advance(t.Sub(lastTick))
			lastTick = t
		case t := <-stepC:
			owed += t.Sub(lastStep)
			lastStep = t
			if owed > maxLag {
				owed = maxLag
			}
			n = int(owed / perStep)
			owed -= time.Duration(n) * perStep
		case <-pollC:
			n = 1
		case <-pressC:
			n = 1
		}
		if n > 0 {
			w, err := run(m, n)
			if err != nil {
				return err
			}
			if w != waiting {
				wait(w)
				waiting = w
			}
		}
		r.sound.Store(m.Timers.Sounding())
	}
}

// run steps m up to n times, stopping early if m waits for a key.
func run(m *chip8.Machine, n int) (waiting bool, err error) {
	for i := 0; i < n; i++ {
		if err := m.Step(); err != nil {
			if errors.Is(err, chip8.ErrKeyWait) {
				return true, nil
			}
			return false, err
		}
	}
	return false, nil
}

func (r *Runner) Frame() (chip8.Frame, uint64) { return r.display.Frame() }
func (r *Runner) Updated() <-chan struct{}     { return r.display.Updated() }
func (r *Runner) Done() <-chan struct{}        { return r.display.Done() }
func (r *Runner) SetKey(key byte, down bool)   { r.keys.Set(key, down) }
func (r *Runner) Sounding() bool               { return r.sound.Load() }
