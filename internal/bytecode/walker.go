package bytecode

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOpcode is returned for an opcode byte outside the instruction set.
	ErrUnknownOpcode = errors.New("unknown opcode")

	// ErrTruncated is returned when an instruction runs past the end of the code.
	ErrTruncated = errors.New("truncated instruction")

	// ErrIllegalWide is returned when wide prefixes an opcode it cannot modify.
	ErrIllegalWide = errors.New("illegal wide instruction")

	// ErrBadSwitch is returned for a switch with an impossible bound or pair count.
	ErrBadSwitch = errors.New("malformed switch")
)

// Operand is one decoded immediate.
type Operand struct {
	Kind  OperandKind
	Width int
	// Offset is the position of the operand's first byte in the code array.
	Offset int
	Value  int32
}

// Switch is the body of a tableswitch or lookupswitch.
type Switch struct {
	Pad     int
	Default int32
	Low     int32
	High    int32
	// Keys holds the lookupswitch match values; nil for tableswitch.
	Keys    []int32
	Offsets []int32
}

// Instruction is a single decoded instruction.
type Instruction struct {
	PC int
	// Opcode is the effective opcode. For a wide pair this is the modified opcode.
	Opcode   byte
	Info     *OpInfo
	Wide     bool
	Operands []Operand
	Switch   *Switch
	Len      int
}

// Next returns the pc of the following instruction.
func (i Instruction) Next() int {
	return i.PC + i.Len
}

// Mnemonic returns the mnemonic of the effective opcode.
func (i Instruction) Mnemonic() string {
	return i.Info.Mnemonic
}

// ConstantOperands returns the operands that index the constant pool.
func (i Instruction) ConstantOperands() []Operand {
	var out []Operand
	for _, op := range i.Operands {
		if op.Kind == OperandConstant {
			out = append(out, op)
		}
	}
	return out
}

// Decode decodes the instruction that starts at pc. It never modifies code.
func Decode(code []byte, pc int) (Instruction, error) {
	if pc < 0 || pc >= len(code) {
		return Instruction{}, fmt.Errorf("pc %d outside code of length %d: %w", pc, len(code), ErrTruncated)
	}
	op := code[pc]
	info := table[op]
	if info == nil {
		return Instruction{}, fmt.Errorf("opcode 0x%02x at pc %d: %w", op, pc, ErrUnknownOpcode)
	}

	switch info.Form {
	case FormTableSwitch:
		return decodeTableSwitch(code, pc, info)
	case FormLookupSwitch:
		return decodeLookupSwitch(code, pc, info)
	case FormWide:
		return decodeWide(code, pc)
	}

	ins := Instruction{PC: pc, Opcode: op, Info: info}
	operands, next, err := decodeOperands(code, pc+1, info.Operands)
	if err != nil {
		return Instruction{}, fmt.Errorf("%s at pc %d: %w", info.Mnemonic, pc, err)
	}
	ins.Operands = operands
	ins.Len = next - pc
	return ins, nil
}

// Walk decodes every instruction in code in order and calls fn for each.
func Walk(code []byte, fn func(Instruction) error) error {
	for pc := 0; pc < len(code); {
		ins, err := Decode(code, pc)
		if err != nil {
			return err
		}
		if err := fn(ins); err != nil {
			return err
		}
		pc = ins.Next()
	}
	return nil
}

func decodeOperands(code []byte, pos int, specs []OperandSpec) ([]Operand, int, error) {
	if len(specs) == 0 {
		return nil, pos, nil
	}
	operands := make([]Operand, 0, len(specs))
	for _, spec := range specs {
		v, err := readImmediate(code, pos, spec.Width, spec.Kind == OperandSigned || spec.Kind == OperandBranch)
		if err != nil {
			return nil, 0, err
		}
		operands = append(operands, Operand{Kind: spec.Kind, Width: spec.Width, Offset: pos, Value: v})
		pos += spec.Width
	}
	return operands, pos, nil
}

func decodeWide(code []byte, pc int) (Instruction, error) {
	if pc+1 >= len(code) {
		return Instruction{}, fmt.Errorf("wide at pc %d: %w", pc, ErrTruncated)
	}
	op := code[pc+1]
	specs, ok := wideOperands(op)
	if !ok {
		return Instruction{}, fmt.Errorf("wide %s at pc %d: %w", Mnemonic(op), pc, ErrIllegalWide)
	}
	operands, next, err := decodeOperands(code, pc+2, specs)
	if err != nil {
		return Instruction{}, fmt.Errorf("wide %s at pc %d: %w", Mnemonic(op), pc, err)
	}
	return Instruction{
		PC:       pc,
		Opcode:   op,
		Info:     table[op],
		Wide:     true,
		Operands: operands,
		Len:      next - pc,
	}, nil
}

// switchPad is the number of padding bytes after the opcode at pc so the
// switch data begins at a multiple of four from the start of the code.
func switchPad(pc int) int {
	return (4 - (pc+1)%4) % 4
}

func decodeTableSwitch(code []byte, pc int, info *OpInfo) (Instruction, error) {
	pad := switchPad(pc)
	pos := pc + 1 + pad
	header, err := readWords(code, pos, 3)
	if err != nil {
		return Instruction{}, fmt.Errorf("tableswitch at pc %d: %w", pc, err)
	}
	sw := &Switch{Pad: pad, Default: header[0], Low: header[1], High: header[2]}
	if sw.High < sw.Low {
		return Instruction{}, fmt.Errorf("tableswitch at pc %d: low %d > high %d: %w", pc, sw.Low, sw.High, ErrBadSwitch)
	}
	count := int64(sw.High) - int64(sw.Low) + 1
	pos += 12
	if count > int64(len(code)-pos)/4 {
		return Instruction{}, fmt.Errorf("tableswitch at pc %d: %d offsets: %w", pc, count, ErrTruncated)
	}
	sw.Offsets, err = readWords(code, pos, int(count))
	if err != nil {
		return Instruction{}, fmt.Errorf("tableswitch at pc %d: %w", pc, err)
	}
	pos += 4 * int(count)
	return Instruction{PC: pc, Opcode: OpTableSwitch, Info: info, Switch: sw, Len: pos - pc}, nil
}

func decodeLookupSwitch(code []byte, pc int, info *OpInfo) (Instruction, error) {
	pad := switchPad(pc)
	pos := pc + 1 + pad
	header, err := readWords(code, pos, 2)
	if err != nil {
		return Instruction{}, fmt.Errorf("lookupswitch at pc %d: %w", pc, err)
	}
	sw := &Switch{Pad: pad, Default: header[0]}
	npairs := header[1]
	if npairs < 0 {
		return Instruction{}, fmt.Errorf("lookupswitch at pc %d: npairs %d: %w", pc, npairs, ErrBadSwitch)
	}
	pos += 8
	if int64(npairs) > int64(len(code)-pos)/8 {
		return Instruction{}, fmt.Errorf("lookupswitch at pc %d: %d pairs: %w", pc, npairs, ErrTruncated)
	}
	pairs, err := readWords(code, pos, 2*int(npairs))
	if err != nil {
		return Instruction{}, fmt.Errorf("lookupswitch at pc %d: %w", pc, err)
	}
	sw.Keys = make([]int32, npairs)
	sw.Offsets = make([]int32, npairs)
	for i := range sw.Keys {
		sw.Keys[i] = pairs[2*i]
		sw.Offsets[i] = pairs[2*i+1]
	}
	pos += 8 * int(npairs)
	return Instruction{PC: pc, Opcode: OpLookupSwitch, Info: info, Switch: sw, Len: pos - pc}, nil
}

func readWords(code []byte, pos, n int) ([]int32, error) {
	words := make([]int32, n)
	for i := range words {
		v, err := readImmediate(code, pos+4*i, 4, true)
		if err != nil {
			return nil, err
		}
		words[i] = v
	}
	return words, nil
}

// readImmediate reads a big-endian immediate of width 1, 2 or 4.
func readImmediate(code []byte, pos, width int, signed bool) (int32, error) {
	if pos+width > len(code) {
		return 0, ErrTruncated
	}
	var u uint32
	for _, b := range code[pos : pos+width] {
		u = u<<8 | uint32(b)
	}
	if !signed {
		return int32(u), nil
	}
	switch width {
	case 1:
		return int32(int8(u)), nil
	case 2:
		return int32(int16(u)), nil
	default:
		return int32(u), nil
	}
}

// PutOperand overwrites an operand in place with value, keeping its width.
func PutOperand(code []byte, op Operand, value uint32) error {
	if op.Offset+op.Width > len(code) {
		return ErrTruncated
	}
	if op.Width < 4 && value>>(8*op.Width) != 0 {
		return fmt.Errorf("value %d does not fit in %d byte operand", value, op.Width)
	}
	for i := op.Width - 1; i >= 0; i-- {
		code[op.Offset+i] = byte(value)
		value >>= 8
	}
	return nil
}
