package preprocess

import (
	"strconv"
	"strings"

	"sicasm/pkg/dataparse"
)

// HaltMnemonic ends every assembled program.
const HaltMnemonic = "hlt"

// operandKind is what an instruction accepts in one operand slot.
type operandKind int

const (
	opReg   operandKind = iota // register
	opValue                    // register, immediate, data label or memory reference
	opImm                      // immediate or data label
	opCode                     // code label or absolute instruction index
	opProc                     // procedure name
)

var zeroOperandOps = map[string]bool{
	"hlt":  true,
	"nop":  true,
	"ret":  true,
	"ei":   true,
	"di":   true,
	"reti": true,
	"wfi":  true,
}

var oneRegisterOps = map[string]bool{
	"not":  true,
	"push": true,
	"pop":  true,
	"ldsp": true,
	"stsp": true,
	"inc":  true,
	"dec":  true,
}

var registerValueOps = map[string]bool{
	"mov":  true,
	"ld":   true,
	"add":  true,
	"sub":  true,
	"and":  true,
	"or":   true,
	"xor":  true,
	"mul":  true,
	"div":  true,
	"idiv": true,
	"shl":  true,
	"shr":  true,
	"ldb":  true,
	"cmp":  true,
}

var valueRegisterOps = map[string]bool{
	"st":  true,
	"stb": true,
}

var threeRegisterOps = map[string]bool{
	"fill": true,
	"copy": true,
}

var regAndImmediateOps = map[string]bool{
	"ldi": true,
}

var jumpOps = map[string]bool{
	"jmp": true,
	"jz":  true,
	"jnz": true,
	"jn":  true,
	"jc":  true,
	"jnc": true,
}

var callOps = map[string]bool{
	"call": true,
}

var registers = map[string]bool{
	"r0": true, "r1": true, "r2": true, "r3": true,
	"r4": true, "r5": true, "r6": true, "r7": true,
	"sp": true,
}

const (
	keywordMacro = "macro"
	keywordDef   = "def"
)

// instructionShape returns the operand slots of mnemonic, which must be
// lowercase.
func instructionShape(mnemonic string) ([]operandKind, bool) {
	switch {
	case zeroOperandOps[mnemonic]:
		return nil, true
	case oneRegisterOps[mnemonic]:
		return []operandKind{opReg}, true
	case registerValueOps[mnemonic]:
		return []operandKind{opReg, opValue}, true
	case valueRegisterOps[mnemonic]:
		return []operandKind{opValue, opReg}, true
	case threeRegisterOps[mnemonic]:
		return []operandKind{opReg, opReg, opReg}, true
	case regAndImmediateOps[mnemonic]:
		return []operandKind{opReg, opImm}, true
	case jumpOps[mnemonic]:
		return []operandKind{opCode}, true
	case callOps[mnemonic]:
		return []operandKind{opProc}, true
	}
	return nil, false
}

// IsMnemonic reports whether word names an instruction.
func IsMnemonic(word string) bool {
	_, ok := instructionShape(strings.ToLower(word))
	return ok
}

// IsRegister reports whether word names a register.
func IsRegister(word string) bool {
	return registers[strings.ToLower(word)]
}

// IsReserved reports whether word cannot be used as a user-defined name.
func IsReserved(word string) bool {
	lower := strings.ToLower(word)
	return IsMnemonic(lower) || registers[lower] || dataparse.IsDirective(lower) ||
		lower == keywordMacro || lower == keywordDef
}

func (k operandKind) expected() []string {
	switch k {
	case opReg:
		return []string{"register"}
	case opValue:
		return []string{"register", "number", "character", "data label", "'['"}
	case opImm:
		return []string{"number", "character", "data label"}
	case opCode:
		return []string{"code label", "number"}
	default:
		return []string{"procedure name"}
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
