// Package isa decodes raw 32-bit MIPS I words into an Instruction with the
// classification predicates the register tracker, instruction analyzer,
// and preheater need (branch/jump shape, HI/LO-pairable, access type).
// Textual rendering of operands is explicitly out of scope (spec.md
// section 1) — this package only exposes the imm-override hook consumed
// by the display layer.
package isa

import (
	"encoding/binary"

	"github.com/jetsetilly/spimdisasm/config"
)

// opcode field values (bits 31:26).
const (
	opSpecial = 0x00
	opRegImm  = 0x01
	opJ       = 0x02
	opJal     = 0x03
	opBeq     = 0x04
	opBne     = 0x05
	opBlez    = 0x06
	opBgtz    = 0x07
	opAddiu   = 0x09
	opSlti    = 0x0A
	opSltiu   = 0x0B
	opAndi    = 0x0C
	opOri     = 0x0D
	opXori    = 0x0E
	opLui     = 0x0F
	opCop0    = 0x10
	opCop1    = 0x11
	opBeql    = 0x14
	opBnel    = 0x15
	opBlezl   = 0x16
	opBgtzl   = 0x17
	opLb      = 0x20
	opLh      = 0x21
	opLwl     = 0x22
	opLw      = 0x23
	opLbu     = 0x24
	opLhu     = 0x25
	opLwr     = 0x26
	opSb      = 0x28
	opSh      = 0x29
	opSwl     = 0x2A
	opSw      = 0x2B
	opSwr     = 0x2E
	opLwc1    = 0x31
	opLdc1    = 0x35
	opSwc1    = 0x39
	opSdc1    = 0x3D
)

// SPECIAL function field values (bits 5:0) when opcode == opSpecial.
const (
	fnSll  = 0x00
	fnSrl  = 0x02
	fnSra  = 0x03
	fnJr   = 0x08
	fnJalr = 0x09
	fnAddu = 0x21
	fnSubu = 0x23
	fnAnd  = 0x24
	fnOr   = 0x25
	fnXor  = 0x26
	fnNor  = 0x27
	fnSlt  = 0x2A
	fnSltu = 0x2B
)

// REGIMM rt field values (bits 20:16) when opcode == opRegImm.
const (
	riBltz   = 0x00
	riBgez   = 0x01
	riBltzl  = 0x02
	riBgezl  = 0x03
	riBltzal = 0x10
	riBgezal = 0x11
)

// Register is a MIPS general-purpose register number, 0-31.
type Register uint8

const (
	RegZero Register = 0
	RegAT   Register = 1
	RegV0   Register = 2
	RegA0   Register = 4
	RegGP   Register = 28
	RegSP   Register = 29
	RegFP   Register = 30
	RegRA   Register = 31
)

// Instruction is a decoded 32-bit MIPS word.
type Instruction struct {
	Raw  uint32
	Word uint32
}

// Decode reads a 4-byte-aligned word according to endian and returns the
// decoded Instruction.
func Decode(bytes4 []byte, endian config.Endian) Instruction {
	var word uint32
	if endian == config.LittleEndian {
		word = binary.LittleEndian.Uint32(bytes4)
	} else {
		word = binary.BigEndian.Uint32(bytes4)
	}
	return Instruction{Raw: word, Word: word}
}

func (i Instruction) opcode() uint32 { return (i.Word >> 26) & 0x3F }
func (i Instruction) funct() uint32  { return i.Word & 0x3F }

// Rs returns the rs field (bits 25:21).
func (i Instruction) Rs() Register { return Register((i.Word >> 21) & 0x1F) }

// Rt returns the rt field (bits 20:16).
func (i Instruction) Rt() Register { return Register((i.Word >> 16) & 0x1F) }

// Rd returns the rd field (bits 15:11).
func (i Instruction) Rd() Register { return Register((i.Word >> 11) & 0x1F) }

// ImmU16 returns the immediate field (bits 15:0) unsigned.
func (i Instruction) ImmU16() uint16 { return uint16(i.Word & 0xFFFF) }

// ImmS16 returns the immediate field sign-extended to 32 bits.
func (i Instruction) ImmS16() int32 { return int32(int16(i.ImmU16())) }

// JumpTarget returns the 26-bit target field (bits 25:0) of a J-type
// instruction, not yet combined with the PC's upper bits.
func (i Instruction) JumpTarget() uint32 { return i.Word & 0x03FFFFFF }

// IsNop reports whether this is the canonical `sll $0, $0, 0` encoding.
func (i Instruction) IsNop() bool { return i.Word == 0 }

// IsValid performs a best-effort check that the opcode/funct/regimm
// combination is one this decoder recognizes. Used by function-boundary
// detection's contains_invalid tracking.
func (i Instruction) IsValid() bool {
	switch i.opcode() {
	case opSpecial:
		switch i.funct() {
		case fnSll, fnSrl, fnSra, fnJr, fnJalr, fnAddu, fnSubu, fnAnd, fnOr, fnXor, fnNor, fnSlt, fnSltu:
			return true
		default:
			return i.funct() == 0x0C || i.funct() == 0x0D // syscall, break
		}
	case opRegImm:
		switch i.Word >> 16 & 0x1F {
		case riBltz, riBgez, riBltzl, riBgezl, riBltzal, riBgezal:
			return true
		}
		return false
	case opJ, opJal, opBeq, opBne, opBlez, opBgtz, opAddiu, opSlti, opSltiu,
		opAndi, opOri, opXori, opLui, opCop0, opCop1, opBeql, opBnel, opBlezl,
		opBgtzl, opLb, opLh, opLwl, opLw, opLbu, opLhu, opLwr, opSb, opSh,
		opSwl, opSw, opSwr, opLwc1, opLdc1, opSwc1, opSdc1:
		return true
	default:
		return false
	}
}

// IsUnconditionalBranch reports `b` pseudo-instructions, i.e. `beq $0, $0,
// offset`.
func (i Instruction) IsUnconditionalBranch() bool {
	return i.opcode() == opBeq && i.Rs() == RegZero && i.Rt() == RegZero
}

// IsBranch reports any conditional or unconditional PC-relative branch
// (not branch-likely).
func (i Instruction) IsBranch() bool {
	switch i.opcode() {
	case opBeq, opBne, opBlez, opBgtz:
		return true
	case opRegImm:
		rt := (i.Word >> 16) & 0x1F
		return rt == riBltz || rt == riBgez
	}
	return false
}

// IsBranchLikely reports a "likely" branch variant, which unconditionally
// executes its delay slot only when taken.
func (i Instruction) IsBranchLikely() bool {
	switch i.opcode() {
	case opBeql, opBnel, opBlezl, opBgtzl:
		return true
	case opRegImm:
		rt := (i.Word >> 16) & 0x1F
		return rt == riBltzl || rt == riBgezl
	}
	return false
}

// IsBranchLink reports bgezal/bltzal, which branch and set $ra.
func (i Instruction) IsBranchLink() bool {
	if i.opcode() != opRegImm {
		return false
	}
	rt := (i.Word >> 16) & 0x1F
	return rt == riBltzal || rt == riBgezal
}

// IsAnyBranch reports whether this instruction affects control flow via a
// PC-relative offset (branch, branch-likely, or branch-link).
func (i Instruction) IsAnyBranch() bool {
	return i.IsBranch() || i.IsBranchLikely() || i.IsBranchLink()
}

// BranchOffsetWords returns the signed word offset encoded in the
// immediate field of a branch instruction (relative to the delay slot).
func (i Instruction) BranchOffsetWords() int32 { return i.ImmS16() }

// IsJumpWithAddress reports the `j` and `jal` J-type instructions.
func (i Instruction) IsJumpWithAddress() bool {
	return i.opcode() == opJ || i.opcode() == opJal
}

// IsJal reports `jal`, a direct function-linking jump.
func (i Instruction) IsJal() bool { return i.opcode() == opJal }

// IsJ reports the non-linking `j`.
func (i Instruction) IsJ() bool { return i.opcode() == opJ }

// IsJumpRegister reports `jr`.
func (i Instruction) IsJumpRegister() bool {
	return i.opcode() == opSpecial && i.funct() == fnJr
}

// IsJumpAndLinkRegister reports `jalr`.
func (i Instruction) IsJumpAndLinkRegister() bool {
	return i.opcode() == opSpecial && i.funct() == fnJalr
}

// IsReturn reports `jr $ra`.
func (i Instruction) IsReturn() bool {
	return i.IsJumpRegister() && i.Rs() == RegRA
}

// IsFunctionCall reports any instruction that links $ra: jal, jalr,
// bgezal/bltzal.
func (i Instruction) IsFunctionCall() bool {
	return i.IsJal() || i.IsJumpAndLinkRegister() || i.IsBranchLink()
}

// IsAddu reports the SPECIAL `addu` R-type form, the second half of the
// standard .cpload $gp-recovery sequence.
func (i Instruction) IsAddu() bool {
	return i.opcode() == opSpecial && i.funct() == fnAddu
}

// CanBeHi reports `lui`, the instruction that seeds a HI/LO pair.
func (i Instruction) CanBeHi() bool { return i.opcode() == opLui }

// HasDelaySlot reports whether the word immediately after this
// instruction executes unconditionally before any control-flow effect
// takes place, true for every branch and jump form.
func (i Instruction) HasDelaySlot() bool {
	return i.IsAnyBranch() || i.IsJumpWithAddress() || i.IsJumpRegister() || i.IsJumpAndLinkRegister()
}

// AccessType classifies the width/signedness of a memory access, used both
// for type inference and for validating HI/LO pairing.
type AccessType int

const (
	AccessNone AccessType = iota
	AccessByte
	AccessByteUnsigned
	AccessShort
	AccessShortUnsigned
	AccessWord
	AccessWordLeft
	AccessWordRight
	AccessDoubleword
	AccessFloat
	AccessDouble
)

// MinSize returns the minimum byte width implied by the access type.
func (a AccessType) MinSize() uint32 {
	switch a {
	case AccessByte, AccessByteUnsigned:
		return 1
	case AccessShort, AccessShortUnsigned:
		return 2
	case AccessDoubleword, AccessDouble:
		return 8
	case AccessNone:
		return 0
	default:
		return 4
	}
}

// IsDerefLeftRight reports the LWL/LWR/SWL/SWR "unaligned access" forms,
// which the string guesser treats specially: they may legitimately target
// a string kept on the stack.
func (a AccessType) IsDerefLeftRight() bool {
	return a == AccessWordLeft || a == AccessWordRight
}

// CanBeLo reports whether this instruction's immediate can be paired with
// a preceding HI (i.e. it is an `addiu`/load/store using a base register),
// and returns the access type implied by the opcode.
func (i Instruction) CanBeLo() (AccessType, bool) {
	switch i.opcode() {
	case opAddiu:
		return AccessNone, true
	case opLb:
		return AccessByte, true
	case opLbu:
		return AccessByteUnsigned, true
	case opSb:
		return AccessByte, true
	case opLh:
		return AccessShort, true
	case opLhu:
		return AccessShortUnsigned, true
	case opSh:
		return AccessShort, true
	case opLw, opSw:
		return AccessWord, true
	case opLwl, opSwl:
		return AccessWordLeft, true
	case opLwr, opSwr:
		return AccessWordRight, true
	case opLwc1, opSwc1:
		return AccessFloat, true
	case opLdc1, opSdc1:
		return AccessDouble, true
	}
	return AccessNone, false
}

// IsGpRelCandidate reports the subset of CanBeLo instructions that also
// support %gp_rel small-data addressing (loads/stores with a base
// register, excluding addiu which the analyzer treats as pure address
// arithmetic).
func (i Instruction) IsGpRelCandidate() bool {
	_, ok := i.CanBeLo()
	return ok && i.opcode() != opAddiu
}

// IsFloatLoadStore reports instructions that load/store a float or
// double-precision coprocessor-1 register.
func (i Instruction) IsFloatLoadStore() bool {
	switch i.opcode() {
	case opLwc1, opSwc1, opLdc1, opSdc1:
		return true
	}
	return false
}

// BaseRegister returns the base register used by a load/store/addiu
// instruction (i.e. Rs for those forms).
func (i Instruction) BaseRegister() Register { return i.Rs() }

// DestRegister returns the register written by an addiu/load, or the
// source register for a store (the register whose tracked value could be
// an address).
func (i Instruction) DestRegister() Register { return i.Rt() }
