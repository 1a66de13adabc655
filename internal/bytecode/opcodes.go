// Package bytecode describes the JVM instruction set and decodes method bodies
// one instruction at a time.
package bytecode

// OperandKind classifies an immediate operand.
type OperandKind uint8

const (
	// OperandRaw is an unsigned immediate (newarray type, dimension count).
	OperandRaw OperandKind = iota
	// OperandSigned is a signed immediate (bipush, sipush, iinc constant).
	OperandSigned
	// OperandLocal is a local variable slot.
	OperandLocal
	// OperandConstant is a constant pool index.
	OperandConstant
	// OperandBranch is a signed offset relative to the instruction start.
	OperandBranch
	// OperandZero is reserved padding that must be zero.
	OperandZero
)

// String returns the string representation of OperandKind.
func (k OperandKind) String() string {
	switch k {
	case OperandRaw:
		return "raw"
	case OperandSigned:
		return "signed"
	case OperandLocal:
		return "local"
	case OperandConstant:
		return "constant"
	case OperandBranch:
		return "branch"
	case OperandZero:
		return "zero"
	default:
		return "unknown"
	}
}

// OperandSpec is the shape of one fixed operand.
type OperandSpec struct {
	Kind  OperandKind
	Width int
}

// Form distinguishes fixed-length instructions from the variable-length ones.
type Form uint8

const (
	FormFixed Form = iota
	FormTableSwitch
	FormLookupSwitch
	FormWide
)

// OpInfo describes one opcode.
type OpInfo struct {
	Opcode   byte
	Mnemonic string
	Form     Form
	Operands []OperandSpec
}

// Size returns the encoded length of a fixed-form instruction, opcode included.
// Variable forms report 1.
func (o *OpInfo) Size() int {
	n := 1
	for _, spec := range o.Operands {
		n += spec.Width
	}
	return n
}

// Opcodes referenced by name elsewhere in the module.
const (
	OpNop             byte = 0x00
	OpAconstNull      byte = 0x01
	OpIconst0         byte = 0x03
	OpLconst0         byte = 0x09
	OpFconst0         byte = 0x0b
	OpDconst0         byte = 0x0e
	OpLdc             byte = 0x12
	OpLdcW            byte = 0x13
	OpLdc2W           byte = 0x14
	OpIinc            byte = 0x84
	OpRet             byte = 0xa9
	OpTableSwitch     byte = 0xaa
	OpLookupSwitch    byte = 0xab
	OpIreturn         byte = 0xac
	OpLreturn         byte = 0xad
	OpFreturn         byte = 0xae
	OpDreturn         byte = 0xaf
	OpAreturn         byte = 0xb0
	OpReturn          byte = 0xb1
	OpInvokeInterface byte = 0xb9
	OpInvokeDynamic   byte = 0xba
	OpWide            byte = 0xc4
	OpMultiANewArray  byte = 0xc5
	OpJsrW            byte = 0xc9
)

var mnemonics = [...]string{
	"nop", "aconst_null", "iconst_m1", "iconst_0", "iconst_1", "iconst_2", "iconst_3", "iconst_4",
	"iconst_5", "lconst_0", "lconst_1", "fconst_0", "fconst_1", "fconst_2", "dconst_0", "dconst_1",
	"bipush", "sipush", "ldc", "ldc_w", "ldc2_w", "iload", "lload", "fload",
	"dload", "aload", "iload_0", "iload_1", "iload_2", "iload_3", "lload_0", "lload_1",
	"lload_2", "lload_3", "fload_0", "fload_1", "fload_2", "fload_3", "dload_0", "dload_1",
	"dload_2", "dload_3", "aload_0", "aload_1", "aload_2", "aload_3", "iaload", "laload",
	"faload", "daload", "aaload", "baload", "caload", "saload", "istore", "lstore",
	"fstore", "dstore", "astore", "istore_0", "istore_1", "istore_2", "istore_3", "lstore_0",
	"lstore_1", "lstore_2", "lstore_3", "fstore_0", "fstore_1", "fstore_2", "fstore_3", "dstore_0",
	"dstore_1", "dstore_2", "dstore_3", "astore_0", "astore_1", "astore_2", "astore_3", "iastore",
	"lastore", "fastore", "dastore", "aastore", "bastore", "castore", "sastore", "pop",
	"pop2", "dup", "dup_x1", "dup_x2", "dup2", "dup2_x1", "dup2_x2", "swap",
	"iadd", "ladd", "fadd", "dadd", "isub", "lsub", "fsub", "dsub",
	"imul", "lmul", "fmul", "dmul", "idiv", "ldiv", "fdiv", "ddiv",
	"irem", "lrem", "frem", "drem", "ineg", "lneg", "fneg", "dneg",
	"ishl", "lshl", "ishr", "lshr", "iushr", "lushr", "iand", "land",
	"ior", "lor", "ixor", "lxor", "iinc", "i2l", "i2f", "i2d",
	"l2i", "l2f", "l2d", "f2i", "f2l", "f2d", "d2i", "d2l",
	"d2f", "i2b", "i2c", "i2s", "lcmp", "fcmpl", "fcmpg", "dcmpl",
	"dcmpg", "ifeq", "ifne", "iflt", "ifge", "ifgt", "ifle", "if_icmpeq",
	"if_icmpne", "if_icmplt", "if_icmpge", "if_icmpgt", "if_icmple", "if_acmpeq", "if_acmpne", "goto",
	"jsr", "ret", "tableswitch", "lookupswitch", "ireturn", "lreturn", "freturn", "dreturn",
	"areturn", "return", "getstatic", "putstatic", "getfield", "putfield", "invokevirtual", "invokespecial",
	"invokestatic", "invokeinterface", "invokedynamic", "new", "newarray", "anewarray", "arraylength", "athrow",
	"checkcast", "instanceof", "monitorenter", "monitorexit", "wide", "multianewarray", "ifnull", "ifnonnull",
	"goto_w", "jsr_w",
}

var (
	signed1   = []OperandSpec{{OperandSigned, 1}}
	signed2   = []OperandSpec{{OperandSigned, 2}}
	raw1      = []OperandSpec{{OperandRaw, 1}}
	local1    = []OperandSpec{{OperandLocal, 1}}
	local2    = []OperandSpec{{OperandLocal, 2}}
	const1    = []OperandSpec{{OperandConstant, 1}}
	const2    = []OperandSpec{{OperandConstant, 2}}
	branch2   = []OperandSpec{{OperandBranch, 2}}
	branch4   = []OperandSpec{{OperandBranch, 4}}
	iinc      = []OperandSpec{{OperandLocal, 1}, {OperandSigned, 1}}
	wideIinc  = []OperandSpec{{OperandLocal, 2}, {OperandSigned, 2}}
	multiNew  = []OperandSpec{{OperandConstant, 2}, {OperandRaw, 1}}
	invokeItf = []OperandSpec{{OperandConstant, 2}, {OperandRaw, 1}, {OperandZero, 1}}
	invokeDyn = []OperandSpec{{OperandConstant, 2}, {OperandZero, 2}}
)

var table [256]*OpInfo

func init() {
	for op, name := range mnemonics {
		table[op] = &OpInfo{Opcode: byte(op), Mnemonic: name}
	}

	set := func(lo, hi byte, operands []OperandSpec) {
		for op := int(lo); op <= int(hi); op++ {
			table[op].Operands = operands
		}
	}
	set(0x10, 0x10, signed1) // bipush
	set(0x11, 0x11, signed2) // sipush
	set(0x12, 0x12, const1)  // ldc
	set(0x13, 0x14, const2)  // ldc_w, ldc2_w
	set(0x15, 0x19, local1)  // iload..aload
	set(0x36, 0x3a, local1)  // istore..astore
	set(0x84, 0x84, iinc)    // iinc
	set(0x99, 0xa8, branch2) // if*, goto, jsr
	set(0xa9, 0xa9, local1)  // ret
	set(0xb2, 0xb8, const2)  // field access, invokevirtual..invokestatic
	set(0xb9, 0xb9, invokeItf)
	set(0xba, 0xba, invokeDyn)
	set(0xbb, 0xbb, const2)   // new
	set(0xbc, 0xbc, raw1)     // newarray
	set(0xbd, 0xbd, const2)   // anewarray
	set(0xc0, 0xc1, const2)   // checkcast, instanceof
	set(0xc5, 0xc5, multiNew) // multianewarray
	set(0xc6, 0xc7, branch2)  // ifnull, ifnonnull
	set(0xc8, 0xc9, branch4)  // goto_w, jsr_w

	table[OpTableSwitch].Form = FormTableSwitch
	table[OpLookupSwitch].Form = FormLookupSwitch
	table[OpWide].Form = FormWide
}

// Lookup returns the description of op, or nil when op is not defined.
func Lookup(op byte) *OpInfo {
	return table[op]
}

// Mnemonic returns the mnemonic of op, or "??" when op is not defined.
func Mnemonic(op byte) string {
	if info := table[op]; info != nil {
		return info.Mnemonic
	}
	return "??"
}

// wideOperands returns the operand layout of op when prefixed by wide.
func wideOperands(op byte) ([]OperandSpec, bool) {
	switch {
	case op >= 0x15 && op <= 0x19, op >= 0x36 && op <= 0x3a, op == OpRet:
		return local2, true
	case op == OpIinc:
		return wideIinc, true
	default:
		return nil, false
	}
}
