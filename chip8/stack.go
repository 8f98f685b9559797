package chip8

import (
	"fmt"
	"strings"
)

// StackDepth is the number of return addresses the stack can hold.
const StackDepth = 16

// Stack implements the CHIP-8 return address stack.
type Stack struct {
	Addrs [StackDepth]uint16
	Ptr   byte
}

func (s *Stack) push(addr uint16) {
	if int(s.Ptr) == len(s.Addrs) {
		panic(Overflow)
	}
	s.Addrs[s.Ptr] = addr
	s.Ptr++
}

func (s *Stack) pop() uint16 {
	if s.Ptr == 0 {
		panic(Underflow)
	}
	s.Ptr--
	return s.Addrs[s.Ptr]
}

func (s Stack) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for _, v := range s.Addrs[:s.Ptr] {
		fmt.Fprintf(&b, " %.3x", v)
	}
	b.WriteString(" )")
	return b.String()
}
