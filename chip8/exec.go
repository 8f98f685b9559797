// Package chip8 provides an implementation of a CHIP-8 virtual machine,
// called Machine, that can be used to execute CHIP-8 programs.
//
// A Machine is driven by calling Step, which executes one instruction; it
// does not pace itself. Its display output is published through a Display
// and its input is read from a Keypad, both of which are safe to share with
// other goroutines. Everything else in a Machine belongs to the goroutine
// calling Step.
package chip8

import (
	"errors"
	"fmt"
	"math/rand"
)

// Memory layout.
const (
	MemSize     = 0x1000
	ProgramAddr = 0x200
	MaxProgram  = MemSize - ProgramAddr

	// Every effective address is masked with addrMask, so programs that
	// run off the end of memory wrap around to 0x000.
	addrMask = MemSize - 1
)

// Machine is an implementation of a CHIP-8 CPU and its memory.
type Machine struct {
	Mem    [MemSize]byte
	V      [16]byte
	I      uint16
	PC     uint16
	Stack  Stack
	Timers Timers
	Quirks Quirks
	Rand   *rand.Rand

	Display *Display
	Keys    *Keypad

	frame Frame // drawn by DRW and CLS, published to Display
}

// ErrProgramTooLarge is returned by NewMachine if the program does not fit
// between ProgramAddr and the end of memory.
var ErrProgramTooLarge = errors.New("program too large")

// NewMachine returns a Machine with the font loaded at FontAddr and the
// given program loaded at ProgramAddr, with PC set to ProgramAddr.
// The Machine has its own Display and Keypad, which the caller may replace
// before the first call to Step.
func NewMachine(program []byte) (*Machine, error) {
	if len(program) > MaxProgram {
		return nil, fmt.Errorf("%w: %d bytes, limit is %d", ErrProgramTooLarge, len(program), MaxProgram)
	}
	m := &Machine{
		PC:      ProgramAddr,
		Rand:    rand.New(rand.NewSource(1)),
		Display: NewDisplay(),
		Keys:    NewKeypad(),
	}
	copy(m.Mem[FontAddr:], font[:])
	copy(m.Mem[ProgramAddr:], program)
	return m, nil
}

// ErrKeyWait is returned by Step when the instruction at PC is waiting for a
// key press. PC is left pointing at the instruction, so the next call to
// Step checks the Keypad again.
var ErrKeyWait = errors.New("waiting for key")

// Step executes the instruction at m.PC. It returns ErrKeyWait if that
// instruction is waiting for a key, and otherwise only returns a non-nil
// error if it encounters a halt condition. A halted instruction has no
// effect; PC still points at it.
func (m *Machine) Step() (err error) {
	var (
		opPC = m.PC & addrMask
		op   = Op(uint16(m.Mem[opPC])<<8 | uint16(m.Mem[(opPC+1)&addrMask]))
	)
	defer func() {
		if e := recover(); e != nil {
			if code, ok := e.(HaltCode); ok {
				m.PC = opPC
				err = HaltError{
					HaltCode: code,
					Op:       op,
					Addr:     opPC,
				}
			} else {
				panic(e)
			}
		}
	}()

	inst, err := Decode(op)
	if err != nil {
		return HaltError{HaltCode: Unimplemented, Op: op, Addr: opPC}
	}
	m.PC = (opPC + 2) & addrMask
	if inst.Kind == WAITK {
		k, ok := m.Keys.FirstDown()
		if !ok {
			m.PC = opPC
			return ErrKeyWait
		}
		m.V[op.X()] = k
		return nil
	}
	m.exec(inst)
	return nil
}

func (m *Machine) exec(in Inst) {
	var (
		op = in.Op
		x  = op.X()
		y  = op.Y()
		nn = op.NN()
		vx = m.V[x]
		vy = m.V[y]
	)
	switch in.Kind {
	case CLS:
		m.frame = Frame{}
		m.Display.Publish(&m.frame)
	case RET:
		m.PC = m.Stack.pop()
	case JP:
		m.PC = op.NNN()
	case CALL:
		m.Stack.push(m.PC)
		m.PC = op.NNN()
	case SE:
		m.skipIf(vx == nn)
	case SNE:
		m.skipIf(vx != nn)
	case SER:
		m.skipIf(vx == vy)
	case SNER:
		m.skipIf(vx != vy)
	case LD:
		m.V[x] = nn
	case ADD:
		m.V[x] = vx + nn
	case LDR:
		m.V[x] = vy
	case OR:
		m.V[x] = vx | vy
	case AND:
		m.V[x] = vx & vy
	case XOR:
		m.V[x] = vx ^ vy
	case ADDR:
		m.V[x] = vx + vy
		m.setFlag(uint16(vx)+uint16(vy) > 0xff)
	case SUB:
		m.V[x] = vx - vy
		m.setFlag(vx >= vy)
	case SUBN:
		m.V[x] = vy - vx
		m.setFlag(vy >= vx)
	case SHR:
		src := vy
		if m.Quirks.ShiftVX {
			src = vx
		}
		m.V[x] = src >> 1
		m.setFlag(src&0x01 != 0)
	case SHL:
		src := vy
		if m.Quirks.ShiftVX {
			src = vx
		}
		m.V[x] = src << 1
		m.setFlag(src&0x80 != 0)
	case LDI:
		m.I = op.NNN()
	case JPV:
		offs := m.V[0]
		if m.Quirks.JumpVX {
			offs = vx
		}
		m.PC = (op.NNN() + uint16(offs)) & addrMask
	case RND:
		m.V[x] = byte(m.Rand.Intn(0x100)) & nn
	case DRW:
		m.draw(vx, vy, op.N())
	case SKP:
		m.skipIf(m.Keys.IsDown(vx))
	case SKNP:
		m.skipIf(!m.Keys.IsDown(vx))
	case LDDT:
		m.V[x] = m.Timers.Delay
	case SETDT:
		m.Timers.Delay = vx
	case SETST:
		m.Timers.Sound = vx
	case ADDI:
		i := m.I + uint16(vx)
		m.I = i & addrMask
		if m.Quirks.IndexOverflow {
			m.setFlag(i > addrMask)
		}
	case FONT:
		m.I = FontAddr + uint16(vx&0xf)*GlyphSize
	case BCD:
		m.Mem[m.I&addrMask] = vx / 100
		m.Mem[(m.I+1)&addrMask] = vx / 10 % 10
		m.Mem[(m.I+2)&addrMask] = vx % 10
	case STORE:
		for i := uint16(0); i <= uint16(x); i++ {
			m.Mem[(m.I+i)&addrMask] = m.V[i]
		}
		if m.Quirks.LoadStoreIncI {
			m.I = (m.I + uint16(x) + 1) & addrMask
		}
	case LOAD:
		for i := uint16(0); i <= uint16(x); i++ {
			m.V[i] = m.Mem[(m.I+i)&addrMask]
		}
		if m.Quirks.LoadStoreIncI {
			m.I = (m.I + uint16(x) + 1) & addrMask
		}
	default:
		panic(fmt.Errorf("internal error: %v not implemented", in.Kind))
	}
}

func (m *Machine) skipIf(cond bool) {
	if cond {
		m.PC = (m.PC + 2) & addrMask
	}
}

// setFlag stores the carry, borrow, shift or collision flag in VF.
// It must be the last register write of an instruction.
func (m *Machine) setFlag(b bool) {
	if b {
		m.V[0xf] = 1
	} else {
		m.V[0xf] = 0
	}
}

// draw XORs the n byte sprite at I onto the frame with its top-left corner at
// (vx, vy), sets VF if any lit pixel was cleared, and publishes the frame.
func (m *Machine) draw(vx, vy, n byte) {
	var (
		x    = int(vx) % Width
		y    = int(vy) % Height
		clip = m.Quirks.ClipSprites
		hit  = false
	)
	for row := 0; row < int(n); row++ {
		ry := y + row
		if ry >= Height {
			if clip {
				break
			}
			ry -= Height
		}
		b := m.Mem[(m.I+uint16(row))&addrMask]
		if m.frame.xorRow(x, ry, b, clip) {
			hit = true
		}
	}
	m.setFlag(hit)
	m.Display.Publish(&m.frame)
}

// Publish publishes the Machine's current frame to its Display.
func (m *Machine) Publish() { m.Display.Publish(&m.frame) }

func (m *Machine) String() string {
	return fmt.Sprintf("pc=%.3x i=%.3x v=% x st=%v dt=%d snd=%d keys=%.4x",
		m.PC, m.I, m.V[:], m.Stack, m.Timers.Delay, m.Timers.Sound, m.Keys.State())
}

// HaltError is returned by Step if execution cannot continue.
type HaltError struct {
	HaltCode
	Op   Op
	Addr uint16
}

func (e HaltError) Error() string {
	return fmt.Sprintf("%s executing %s at %.3x", e.HaltCode, e.Op, e.Addr)
}

// HaltCode signifies the type of condition that halted execution.
type HaltCode byte

const (
	Unimplemented HaltCode = 0x01
	Overflow      HaltCode = 0x02
	Underflow     HaltCode = 0x03
)

func (c HaltCode) String() string {
	if s, ok := map[HaltCode]string{
		Unimplemented: "unimplemented instruction",
		Overflow:      "stack overflow",
		Underflow:     "stack underflow",
	}[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown (%.2x)", byte(c))
}
