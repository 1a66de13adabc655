// Package disasm renders a decoded class file as text or as a JSON view.
package disasm

import (
	"fmt"
	"io"
	"strings"

	"github.com/stripclass/internal/bytecode"
	"github.com/stripclass/internal/classfile"
)

// Options configures a Printer.
type Options struct {
	// Verbose appends the resolved symbol to every pool index.
	Verbose bool
}

// Printer writes the line-oriented dump of a class file.
type Printer struct {
	w    io.Writer
	opts Options
	sym  symbols
	err  error
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer, opts Options) *Printer {
	return &Printer{w: w, opts: opts}
}

// PrintClass writes the whole model. Constant lines carry a {n} reference
// count prefix when the pool's counts are valid.
func (p *Printer) PrintClass(cf *classfile.ClassFile) error {
	p.sym = symbols{pool: cf.Pool, verbose: p.opts.Verbose}
	p.err = nil

	p.printf(0, "magic: %x  version: %d/%d", cf.Magic, cf.MajorVersion, cf.MinorVersion)
	if p.opts.Verbose {
		p.printf(0, "flags: %04x (%s)", uint16(cf.AccessFlags), cf.AccessFlags)
		p.printf(0, "thisClass: %s", p.sym.ref(cf.ThisClass))
		p.printf(0, "superClass: %s", p.sym.optRef(cf.SuperClass, "<none>"))
	} else {
		p.printf(0, "flags: %04x  thisClass: %d  superClass: %d", uint16(cf.AccessFlags), cf.ThisClass, cf.SuperClass)
	}

	p.constants(cf.Pool)

	p.printf(0, "%d interfaces:", len(cf.Interfaces))
	for i, idx := range cf.Interfaces {
		p.printf(1, "[%d]: %s", i, p.sym.ref(idx))
	}

	p.members("fields", cf.Fields)
	p.members("methods", cf.Methods)

	p.printf(0, "%d attributes:", len(cf.Attributes))
	p.attributes(1, cf.Attributes)
	return p.err
}

// PrintCode writes only the instruction listing of code.
func (p *Printer) PrintCode(pool *classfile.ConstantPool, code []byte) error {
	p.sym = symbols{pool: pool, verbose: p.opts.Verbose}
	p.err = nil
	p.listing(code)
	return p.err
}

func (p *Printer) printf(depth int, format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	if _, p.err = io.WriteString(p.w, strings.Repeat("  ", depth)); p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) constants(pool *classfile.ConstantPool) {
	p.printf(0, "%d constants:", pool.Count()-1)
	for i := 1; i < pool.Count(); i++ {
		var count string
		if n, ok := pool.RefCount(i); ok {
			count = fmt.Sprintf("{%d} ", n)
		}
		p.printf(1, "[%d]: %s%s", i, count, p.sym.constant(pool.At(i)))
	}
}

func (p *Printer) members(what string, members []*classfile.Member) {
	p.printf(0, "%d %s:", len(members), what)
	for i, m := range members {
		if p.opts.Verbose {
			p.printf(1, "[%d]:", i)
			p.printf(2, "flags: %04x (%s)", uint16(m.AccessFlags), m.AccessFlags)
			p.printf(2, "name: %s", p.sym.ref(m.NameIndex))
			p.printf(2, "descriptor: %s", p.sym.ref(m.DescriptorIndex))
			p.printf(2, "%d attributes", len(m.Attributes))
		} else {
			p.printf(1, "[%d]: flags: %04x  name: %d  descriptor: %d  %d attributes",
				i, uint16(m.AccessFlags), m.NameIndex, m.DescriptorIndex, len(m.Attributes))
		}
		p.attributes(2, m.Attributes)
	}
}

func (p *Printer) attributes(depth int, attrs []*classfile.Attribute) {
	for i, a := range attrs {
		p.printf(depth, "[%d]: name: %s  length: %d", i, p.sym.ref(a.NameIndex), a.Length)
		p.attribute(depth+1, a.Value)
	}
}

func (p *Printer) attribute(depth int, value classfile.AttributeValue) {
	switch v := value.(type) {
	case *classfile.ConstantValue:
		p.printf(depth, "constant value: %s", p.sym.ref(v.Index))
	case *classfile.Code:
		p.code(depth, v)
	case *classfile.Exceptions:
		p.printf(depth, "%d exceptions:", len(v.Classes))
		for i, idx := range v.Classes {
			p.printf(depth+1, "[%d]: %s", i, p.sym.ref(idx))
		}
	case *classfile.InnerClasses:
		p.printf(depth, "%d inner classes:", len(v.Classes))
		for i, ic := range v.Classes {
			p.printf(depth+1, "[%d]: inner: %s  outer: %s  name: %s  flags: 0x%04x (%s)", i,
				p.sym.ref(ic.InnerClassInfo),
				p.sym.optRef(ic.OuterClassInfo, "<none>"),
				p.sym.optRef(ic.InnerName, "<anon>"),
				uint16(ic.AccessFlags), ic.AccessFlags)
		}
	case *classfile.SourceFile:
		p.printf(depth, "source file: %s", p.sym.ref(v.Index))
	case *classfile.LineNumberTable:
		p.printf(depth, "%d line number entries:", len(v.Lines))
		for i, l := range v.Lines {
			p.printf(depth+1, "[%d]: start pc: %d  line number: %d", i, l.StartPC, l.Line)
		}
	case *classfile.LocalVariableTable:
		p.printf(depth, "%d local variables:", len(v.Vars))
		p.locals(depth+1, "descriptor", v.Vars)
	case *classfile.LocalVariableTypeTable:
		p.printf(depth, "%d local variable types:", len(v.Vars))
		p.locals(depth+1, "signature", v.Vars)
	case *classfile.Annotations:
		p.printf(depth, "%d annotations:", len(v.Annotations))
		for i, a := range v.Annotations {
			p.annotation(depth+1, fmt.Sprintf("[%d]: ", i), a)
		}
	case *classfile.EnclosingMethod:
		p.printf(depth, "class: %s  method: %s", p.sym.ref(v.ClassIndex), p.sym.optRef(v.MethodIndex, "<none>"))
	case *classfile.Signature:
		p.printf(depth, "signature: %s", p.sym.ref(v.Index))
	case *classfile.AnnotationDefault:
		p.printf(depth, "value:")
		p.element(depth+1, v.Value)
	case *classfile.StackMapTable:
		p.hexdump(depth, v.Raw)
	case *classfile.Unknown:
		p.hexdump(depth, v.Raw)
	}
}

func (p *Printer) code(depth int, c *classfile.Code) {
	p.printf(depth, "max_stack: %d  max_locals: %d", c.MaxStack, c.MaxLocals)
	p.printf(depth, "%d code bytes:", len(c.Bytecode))
	p.hexdump(depth, c.Bytecode)
	p.listing(c.Bytecode)
	p.printf(depth, "%d catches:", len(c.ExceptionTable))
	for i, h := range c.ExceptionTable {
		p.printf(depth+1, "[%d]: start: %d  end: %d  handler: %d  type: %s",
			i, h.StartPC, h.EndPC, h.HandlerPC, p.sym.optRef(h.CatchType, "finally"))
	}
	p.printf(depth, "%d attributes:", len(c.Attributes))
	p.attributes(depth+1, c.Attributes)
}

func (p *Printer) locals(depth int, typeLabel string, vars []classfile.LocalVariable) {
	for i, lv := range vars {
		p.printf(depth, "[%d]: start pc: %d  length: %d  name: %s  %s: %s  index: %d",
			i, lv.StartPC, lv.Length, p.sym.ref(lv.NameIndex), typeLabel, p.sym.ref(lv.DescriptorIndex), lv.Slot)
	}
}

func (p *Printer) annotation(depth int, head string, a *classfile.Annotation) {
	p.printf(depth, "%stype: %s  %d element value pairs:", head, p.sym.ref(a.TypeIndex), len(a.Pairs))
	for i, pair := range a.Pairs {
		p.printf(depth+1, "[%d]: name: %s", i, p.sym.ref(pair.NameIndex))
		p.element(depth+2, pair.Value)
	}
}

func (p *Printer) element(depth int, ev classfile.ElementValue) {
	switch v := ev.(type) {
	case *classfile.ConstElement:
		if v.Tag == 's' {
			p.printf(depth, "(const str) %s", p.sym.ref(v.Index))
		} else {
			p.printf(depth, "(const %c) %s", v.Tag, p.sym.ref(v.Index))
		}
	case *classfile.EnumElement:
		p.printf(depth, "(enum const) type: %s  const: %s", p.sym.ref(v.TypeNameIndex), p.sym.ref(v.ConstNameIndex))
	case *classfile.ClassElement:
		p.printf(depth, "(class) class: %s", p.sym.ref(v.ClassInfoIndex))
	case *classfile.AnnotationElement:
		p.annotation(depth, "(annotation) ", v.Annotation)
	case *classfile.ArrayElement:
		p.printf(depth, "(array) %d elements:", len(v.Values))
		for _, e := range v.Values {
			p.element(depth+1, e)
		}
	}
}

func (p *Printer) hexdump(depth int, data []byte) {
	for off := 0; off < len(data); off += 16 {
		var b strings.Builder
		fmt.Fprintf(&b, "%4x:", off)
		for _, c := range data[off:min(off+16, len(data))] {
			fmt.Fprintf(&b, " %02x", c)
		}
		p.printf(depth+1, "%s", b.String())
	}
}

func (p *Printer) listing(code []byte) {
	for _, line := range p.sym.listing(code) {
		p.printf(0, "%s", line)
	}
}

// listing renders one line per instruction, plus one per switch entry. An
// undecodable instruction ends the listing with a ?? line.
func (s symbols) listing(code []byte) []string {
	var lines []string
	for pc := 0; pc < len(code); {
		ins, err := bytecode.Decode(code, pc)
		if err != nil {
			lines = append(lines, fmt.Sprintf("    %4x ?? %v", pc, err))
			break
		}
		lines = append(lines, s.instruction(ins)...)
		pc = ins.Next()
	}
	return lines
}

func (s symbols) instruction(ins bytecode.Instruction) []string {
	var b strings.Builder
	fmt.Fprintf(&b, "    %4x ", ins.PC)
	if ins.Wide {
		b.WriteString("wide ")
	}
	b.WriteString(ins.Mnemonic())
	for _, op := range ins.Operands {
		switch op.Kind {
		case bytecode.OperandZero:
		case bytecode.OperandLocal:
			fmt.Fprintf(&b, " v%d", op.Value)
		case bytecode.OperandConstant:
			fmt.Fprintf(&b, " c%d", op.Value)
			if s.verbose {
				fmt.Fprintf(&b, " (%s)", s.name(uint16(op.Value)))
			}
		default:
			fmt.Fprintf(&b, " %d", op.Value)
		}
	}

	sw := ins.Switch
	if sw == nil {
		return []string{b.String()}
	}
	var entries []string
	if ins.Opcode == bytecode.OpTableSwitch {
		fmt.Fprintf(&b, " %d %d %d", sw.Default, sw.Low, sw.High)
		for k, off := range sw.Offsets {
			entries = append(entries, fmt.Sprintf("            [%d] %d", int64(sw.Low)+int64(k), off))
		}
	} else {
		fmt.Fprintf(&b, " %d %d", sw.Default, len(sw.Keys))
		for k, key := range sw.Keys {
			entries = append(entries, fmt.Sprintf("            %d %d", key, sw.Offsets[k]))
		}
	}
	return append([]string{b.String()}, entries...)
}
