package disasm

import (
	"fmt"
	"strconv"

	"github.com/stripclass/internal/classfile"
)

type symbols struct {
	pool    *classfile.ConstantPool
	verbose bool
}

// ref renders a pool index, followed by its symbol when verbose.
func (s symbols) ref(i uint16) string {
	if !s.verbose {
		return strconv.Itoa(int(i))
	}
	return fmt.Sprintf("%d (%s)", i, s.name(i))
}

// optRef is ref for fields where 0 means absent.
func (s symbols) optRef(i uint16, none string) string {
	if i != 0 {
		return s.ref(i)
	}
	if !s.verbose {
		return "0"
	}
	return "0 (" + none + ")"
}

func (s symbols) name(i uint16) string {
	return Symbol(s.pool, i)
}

// Symbol returns a readable form of the constant at index i: strings and
// class names as is, numbers in decimal, name-and-type as name:descriptor
// and member references as class.name:descriptor.
func Symbol(pool *classfile.ConstantPool, i uint16) string {
	c, err := pool.Entry(i)
	if err != nil {
		return "<invalid>"
	}
	switch v := c.(type) {
	case *classfile.ConstantUtf8:
		return v.String()
	case *classfile.ConstantClass:
		return utf8OrInvalid(pool, v.NameIndex)
	case *classfile.ConstantString:
		return utf8OrInvalid(pool, v.StringIndex)
	case *classfile.ConstantInteger:
		return strconv.FormatInt(int64(v.Value()), 10)
	case *classfile.ConstantFloat:
		return strconv.FormatFloat(float64(v.Value()), 'g', -1, 32)
	case *classfile.ConstantLong:
		return strconv.FormatInt(v.Value(), 10)
	case *classfile.ConstantDouble:
		return strconv.FormatFloat(v.Value(), 'g', -1, 64)
	case *classfile.ConstantNameAndType:
		return utf8OrInvalid(pool, v.NameIndex) + ":" + utf8OrInvalid(pool, v.DescriptorIndex)
	}
	class, nat, ok := classfile.MemberRef(c)
	if !ok {
		return "<invalid>"
	}
	owner, err := pool.ClassName(class)
	if err != nil {
		owner = "<invalid>"
	}
	name, desc, err := pool.NameAndType(nat)
	if err != nil {
		return owner + ".<invalid>"
	}
	return owner + "." + name + ":" + desc
}

func utf8OrInvalid(pool *classfile.ConstantPool, i uint16) string {
	s, err := pool.Utf8(i)
	if err != nil {
		return "<invalid>"
	}
	return s
}

// constant renders the body of one constant pool line.
func (s symbols) constant(c classfile.Constant) string {
	if c == nil || c.Tag() == 0 {
		return "<null>"
	}
	switch v := c.(type) {
	case *classfile.ConstantClass:
		return "class:: name: " + s.ref(v.NameIndex)
	case *classfile.ConstantFieldref:
		return fmt.Sprintf("fieldref:: class: %s  nameAndType: %s", s.ref(v.ClassIndex), s.ref(v.NameAndTypeIndex))
	case *classfile.ConstantMethodref:
		return fmt.Sprintf("methodref:: class: %s  nameAndType: %s", s.ref(v.ClassIndex), s.ref(v.NameAndTypeIndex))
	case *classfile.ConstantInterfaceMethodref:
		return fmt.Sprintf("interfaceMethodref:: class: %s  nameAndType: %s", s.ref(v.ClassIndex), s.ref(v.NameAndTypeIndex))
	case *classfile.ConstantString:
		return "string:: index: " + s.ref(v.StringIndex)
	case *classfile.ConstantInteger:
		return fmt.Sprintf("integer:: bytes: %08x (%d)", v.Bits, v.Value())
	case *classfile.ConstantFloat:
		return fmt.Sprintf("float:: bytes: %08x (%g)", v.Bits, v.Value())
	case *classfile.ConstantLong:
		return fmt.Sprintf("long:: bytes: %08x%08x (%d)", v.High, v.Low, v.Value())
	case *classfile.ConstantDouble:
		return fmt.Sprintf("double:: bytes: %08x%08x (%g)", v.High, v.Low, v.Value())
	case *classfile.ConstantNameAndType:
		return fmt.Sprintf("nameAndType:: name: %s  descriptor: %s", s.ref(v.NameIndex), s.ref(v.DescriptorIndex))
	case *classfile.ConstantUtf8:
		return "utf8:: '" + v.String() + "'"
	default:
		return "<null>"
	}
}
