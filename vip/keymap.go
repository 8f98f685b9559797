package vip

import "golang.org/x/mobile/event/key"

// The COSMAC VIP hex keypad is laid out
//
//	1 2 3 C
//	4 5 6 D
//	7 8 9 E
//	A 0 B F
//
// and is mapped onto the left hand side of a QWERTY keyboard.
var (
	keyRows = [4]string{"1234", "qwer", "asdf", "zxcv"}
	padRows = [4][4]byte{
		{0x1, 0x2, 0x3, 0xc},
		{0x4, 0x5, 0x6, 0xd},
		{0x7, 0x8, 0x9, 0xe},
		{0xa, 0x0, 0xb, 0xf},
	}
	keyCodeRows = [4][4]key.Code{
		{key.Code1, key.Code2, key.Code3, key.Code4},
		{key.CodeQ, key.CodeW, key.CodeE, key.CodeR},
		{key.CodeA, key.CodeS, key.CodeD, key.CodeF},
		{key.CodeZ, key.CodeX, key.CodeC, key.CodeV},
	}
)

var (
	runeKeys = map[rune]byte{}
	codeKeys = map[key.Code]byte{}
)

func init() {
	for y, row := range keyRows {
		for x, r := range row {
			runeKeys[r] = padRows[y][x]
			codeKeys[keyCodeRows[y][x]] = padRows[y][x]
		}
	}
}

// padKeyForRune returns the keypad key for a typed character.
func padKeyForRune(r rune) (byte, bool) {
	if 'A' <= r && r <= 'Z' {
		r += 'a' - 'A'
	}
	k, ok := runeKeys[r]
	return k, ok
}

// padKeyForCode returns the keypad key for a physical key.
func padKeyForCode(c key.Code) (byte, bool) {
	k, ok := codeKeys[c]
	return k, ok
}
