package chip8

import "fmt"

// Op represents a raw CHIP-8 opcode.
type Op uint16

// Class returns the leading nibble of the opcode.
func (o Op) Class() byte { return byte(o >> 12) }

// X returns the second nibble, usually a register index.
func (o Op) X() byte { return byte(o>>8) & 0xf }

// Y returns the third nibble, usually a register index.
func (o Op) Y() byte { return byte(o>>4) & 0xf }

// N returns the lowest nibble.
func (o Op) N() byte { return byte(o) & 0xf }

// NN returns the low byte.
func (o Op) NN() byte { return byte(o) }

// NNN returns the low 12 bits, usually an address.
func (o Op) NNN() uint16 { return uint16(o) & 0xfff }

func (o Op) String() string { return fmt.Sprintf("%.4x", uint16(o)) }

// Kind identifies one instruction form.
type Kind byte

const (
	Invalid Kind = iota
	CLS          // 00E0
	RET          // 00EE
	JP           // 1NNN
	CALL         // 2NNN
	SE           // 3XNN
	SNE          // 4XNN
	SER          // 5XY0
	LD           // 6XNN
	ADD          // 7XNN
	LDR          // 8XY0
	OR           // 8XY1
	AND          // 8XY2
	XOR          // 8XY3
	ADDR         // 8XY4
	SUB          // 8XY5
	SHR          // 8XY6
	SUBN         // 8XY7
	SHL          // 8XYE
	SNER         // 9XY0
	LDI          // ANNN
	JPV          // BNNN
	RND          // CXNN
	DRW          // DXYN
	SKP          // EX9E
	SKNP         // EXA1
	LDDT         // FX07
	WAITK        // FX0A
	SETDT        // FX15
	SETST        // FX18
	ADDI         // FX1E
	FONT         // FX29
	BCD          // FX33
	STORE        // FX55
	LOAD         // FX65

	numKinds
)

var kindNames = [numKinds]string{
	Invalid: "???",
	CLS:     "CLS",
	RET:     "RET",
	JP:      "JP",
	CALL:    "CALL",
	SE:      "SE",
	SNE:     "SNE",
	SER:     "SER",
	LD:      "LD",
	ADD:     "ADD",
	LDR:     "LDR",
	OR:      "OR",
	AND:     "AND",
	XOR:     "XOR",
	ADDR:    "ADDR",
	SUB:     "SUB",
	SHR:     "SHR",
	SUBN:    "SUBN",
	SHL:     "SHL",
	SNER:    "SNER",
	LDI:     "LDI",
	JPV:     "JPV",
	RND:     "RND",
	DRW:     "DRW",
	SKP:     "SKP",
	SKNP:    "SKNP",
	LDDT:    "LDDT",
	WAITK:   "WAITK",
	SETDT:   "SETDT",
	SETST:   "SETST",
	ADDI:    "ADDI",
	FONT:    "FONT",
	BCD:     "BCD",
	STORE:   "STORE",
	LOAD:    "LOAD",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

// Inst is a decoded instruction.
type Inst struct {
	Kind Kind
	Op   Op
}

func (i Inst) String() string { return fmt.Sprintf("%s %s", i.Op, i.Kind) }

type pattern struct {
	mask, value Op
	kind        Kind
}

// decodeTable holds the instruction patterns for each leading nibble.
// Fields covered by a zero mask bit are operands.
var decodeTable = [16][]pattern{
	0x0: {
		{0xffff, 0x00e0, CLS},
		{0xffff, 0x00ee, RET},
	},
	0x1: {{0xf000, 0x1000, JP}},
	0x2: {{0xf000, 0x2000, CALL}},
	0x3: {{0xf000, 0x3000, SE}},
	0x4: {{0xf000, 0x4000, SNE}},
	0x5: {{0xf00f, 0x5000, SER}},
	0x6: {{0xf000, 0x6000, LD}},
	0x7: {{0xf000, 0x7000, ADD}},
	0x8: {
		{0xf00f, 0x8000, LDR},
		{0xf00f, 0x8001, OR},
		{0xf00f, 0x8002, AND},
		{0xf00f, 0x8003, XOR},
		{0xf00f, 0x8004, ADDR},
		{0xf00f, 0x8005, SUB},
		{0xf00f, 0x8006, SHR},
		{0xf00f, 0x8007, SUBN},
		{0xf00f, 0x800e, SHL},
	},
	0x9: {{0xf00f, 0x9000, SNER}},
	0xa: {{0xf000, 0xa000, LDI}},
	0xb: {{0xf000, 0xb000, JPV}},
	0xc: {{0xf000, 0xc000, RND}},
	0xd: {{0xf000, 0xd000, DRW}},
	0xe: {
		{0xf0ff, 0xe09e, SKP},
		{0xf0ff, 0xe0a1, SKNP},
	},
	0xf: {
		{0xf0ff, 0xf007, LDDT},
		{0xf0ff, 0xf00a, WAITK},
		{0xf0ff, 0xf015, SETDT},
		{0xf0ff, 0xf018, SETST},
		{0xf0ff, 0xf01e, ADDI},
		{0xf0ff, 0xf029, FONT},
		{0xf0ff, 0xf033, BCD},
		{0xf0ff, 0xf055, STORE},
		{0xf0ff, 0xf065, LOAD},
	},
}

// Decode returns the instruction form of op. It returns a HaltError with
// code Unimplemented if op matches no known form.
func Decode(op Op) (Inst, error) {
	for _, p := range decodeTable[op.Class()] {
		if op&p.mask == p.value {
			return Inst{Kind: p.kind, Op: op}, nil
		}
	}
	return Inst{Op: op}, HaltError{HaltCode: Unimplemented, Op: op}
}
