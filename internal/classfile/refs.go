package classfile

import (
	"fmt"

	"github.com/stripclass/internal/bytecode"
)

// Role is the kind of constant an index is expected to denote.
type Role uint8

const (
	RoleUtf8 Role = iota
	RoleClass
	RoleNameAndType
	RoleFieldref
	// RoleMethodref accepts class and interface method references.
	RoleMethodref
	RoleInterfaceMethodref
	// RoleConstantValue accepts Integer, Float, Long, Double and String.
	RoleConstantValue
	// RoleLoadable accepts the single-slot constants ldc can push.
	RoleLoadable
	// RoleLoadable2 accepts Long and Double.
	RoleLoadable2
	RoleInteger
	RoleFloat
	RoleLong
	RoleDouble
	// RoleAny accepts any constant.
	RoleAny
)

var roleNames = [...]string{
	RoleUtf8:               "utf8",
	RoleClass:              "class",
	RoleNameAndType:        "nameandtype",
	RoleFieldref:           "field",
	RoleMethodref:          "method",
	RoleInterfaceMethodref: "interface method",
	RoleConstantValue:      "constant value",
	RoleLoadable:           "loadable constant",
	RoleLoadable2:          "long or double",
	RoleInteger:            "integer",
	RoleFloat:              "float",
	RoleLong:               "long",
	RoleDouble:             "double",
	RoleAny:                "any constant",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Accepts reports whether c may be denoted by an index with this role.
func (r Role) Accepts(c Constant) bool {
	t := c.Tag()
	switch r {
	case RoleUtf8:
		return t == TagUtf8
	case RoleClass:
		return t == TagClass
	case RoleNameAndType:
		return t == TagNameAndType
	case RoleFieldref:
		return t == TagFieldref
	case RoleMethodref:
		return t == TagMethodref || t == TagInterfaceMethodref
	case RoleInterfaceMethodref:
		return t == TagInterfaceMethodref
	case RoleConstantValue:
		return t == TagInteger || t == TagFloat || t == TagLong || t == TagDouble || t == TagString
	case RoleLoadable:
		return t == TagInteger || t == TagFloat || t == TagString || t == TagClass
	case RoleLoadable2:
		return t == TagLong || t == TagDouble
	case RoleInteger:
		return t == TagInteger
	case RoleFloat:
		return t == TagFloat
	case RoleLong:
		return t == TagLong
	case RoleDouble:
		return t == TagDouble
	case RoleAny:
		return t != 0
	default:
		return false
	}
}

// Ref is one index field somewhere in a class file model.
type Ref struct {
	Index uint16
	Role  Role
	// Optional is set where 0 means absent.
	Optional bool
	// Where describes the location for error messages.
	Where string
	set   func(uint16) error
}

// Absent reports whether the ref is an optional index holding 0.
func (r Ref) Absent() bool {
	return r.Optional && r.Index == 0
}

// Set stores a new index value at the ref's location.
func (r Ref) Set(v uint16) error {
	return r.set(v)
}

// RefFunc is called for every index field in a model.
type RefFunc func(Ref) error

func field(p *uint16, role Role, where string) Ref {
	return Ref{Index: *p, Role: role, Where: where, set: func(v uint16) error { *p = v; return nil }}
}

func optionalField(p *uint16, role Role, where string) Ref {
	r := field(p, role, where)
	r.Optional = true
	return r
}

func visit(fn RefFunc, refs ...Ref) error {
	for _, r := range refs {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// WalkRefs calls fn for every constant pool index in the model, in a fixed
// order: this, super, interfaces, fields, methods, class attributes, then
// the outgoing indices of every pool entry. Bytecode operands are included
// and Ref.Set rewrites them in place.
//
// This is the only code that enumerates raw index fields. Marking,
// remapping and validation are all built on it.
func (cf *ClassFile) WalkRefs(fn RefFunc) error {
	if err := visit(fn,
		field(&cf.ThisClass, RoleClass, "this_class"),
		optionalField(&cf.SuperClass, RoleClass, "super_class"),
	); err != nil {
		return err
	}
	for i := range cf.Interfaces {
		if err := fn(field(&cf.Interfaces[i], RoleClass, "interface")); err != nil {
			return err
		}
	}
	for _, m := range cf.Fields {
		if err := m.walkRefs(fn, "field"); err != nil {
			return err
		}
	}
	for _, m := range cf.Methods {
		if err := m.walkRefs(fn, "method"); err != nil {
			return err
		}
	}
	if err := walkAttributes(cf.Attributes, fn); err != nil {
		return err
	}
	return cf.Pool.walkRefs(fn)
}

func (m *Member) walkRefs(fn RefFunc, where string) error {
	if err := visit(fn,
		field(&m.NameIndex, RoleUtf8, where+" name"),
		field(&m.DescriptorIndex, RoleUtf8, where+" descriptor"),
	); err != nil {
		return err
	}
	return walkAttributes(m.Attributes, fn)
}

func walkAttributes(attrs []*Attribute, fn RefFunc) error {
	for _, a := range attrs {
		if err := fn(field(&a.NameIndex, RoleUtf8, "attribute name")); err != nil {
			return err
		}
		if a.Value == nil {
			continue
		}
		if err := a.Value.walkRefs(fn); err != nil {
			return fmt.Errorf("%s: %w", a.Kind(), err)
		}
	}
	return nil
}

func (p *ConstantPool) walkRefs(fn RefFunc) error {
	for i := 1; i < len(p.entries); i++ {
		var err error
		switch c := p.entries[i].(type) {
		case *ConstantClass:
			err = fn(field(&c.NameIndex, RoleUtf8, "class name"))
		case *ConstantString:
			err = fn(field(&c.StringIndex, RoleUtf8, "string value"))
		case *ConstantFieldref:
			err = visit(fn,
				field(&c.ClassIndex, RoleClass, "field class"),
				field(&c.NameAndTypeIndex, RoleNameAndType, "field name and type"))
		case *ConstantMethodref:
			err = visit(fn,
				field(&c.ClassIndex, RoleClass, "method class"),
				field(&c.NameAndTypeIndex, RoleNameAndType, "method name and type"))
		case *ConstantInterfaceMethodref:
			err = visit(fn,
				field(&c.ClassIndex, RoleClass, "interface method class"),
				field(&c.NameAndTypeIndex, RoleNameAndType, "interface method name and type"))
		case *ConstantNameAndType:
			err = visit(fn,
				field(&c.NameIndex, RoleUtf8, "name"),
				field(&c.DescriptorIndex, RoleUtf8, "descriptor"))
		}
		if err != nil {
			return fmt.Errorf("constant #%d: %w", i, err)
		}
	}
	return nil
}

func (v *ConstantValue) walkRefs(fn RefFunc) error {
	return fn(field(&v.Index, RoleConstantValue, "constant value"))
}

func (v *Code) walkRefs(fn RefFunc) error {
	err := bytecode.Walk(v.Bytecode, func(ins bytecode.Instruction) error {
		for _, op := range ins.ConstantOperands() {
			r := Ref{
				Index: uint16(op.Value),
				Role:  operandRole(ins.Opcode),
				Where: fmt.Sprintf("%s at pc %d", ins.Mnemonic(), ins.PC),
				set:   func(n uint16) error { return bytecode.PutOperand(v.Bytecode, op, uint32(n)) },
			}
			if err := fn(r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i := range v.ExceptionTable {
		if err := fn(optionalField(&v.ExceptionTable[i].CatchType, RoleClass, "catch type")); err != nil {
			return err
		}
	}
	return walkAttributes(v.Attributes, fn)
}

// operandRole is the expected constant kind for a pool operand of op.
func operandRole(op byte) Role {
	switch {
	case op == bytecode.OpLdc || op == bytecode.OpLdcW:
		return RoleLoadable
	case op == bytecode.OpLdc2W:
		return RoleLoadable2
	case op >= 0xb2 && op <= 0xb5:
		return RoleFieldref
	case op >= 0xb6 && op <= 0xb8:
		return RoleMethodref
	case op == bytecode.OpInvokeInterface:
		return RoleInterfaceMethodref
	case op == bytecode.OpInvokeDynamic:
		return RoleAny
	default:
		// new, anewarray, checkcast, instanceof, multianewarray
		return RoleClass
	}
}

func (v *Exceptions) walkRefs(fn RefFunc) error {
	for i := range v.Classes {
		if err := fn(field(&v.Classes[i], RoleClass, "exception")); err != nil {
			return err
		}
	}
	return nil
}

func (v *InnerClasses) walkRefs(fn RefFunc) error {
	for i := range v.Classes {
		ic := &v.Classes[i]
		if err := visit(fn,
			field(&ic.InnerClassInfo, RoleClass, "inner class"),
			optionalField(&ic.OuterClassInfo, RoleClass, "outer class"),
			optionalField(&ic.InnerName, RoleUtf8, "inner name"),
		); err != nil {
			return err
		}
	}
	return nil
}

func (*Synthetic) walkRefs(RefFunc) error       { return nil }
func (*Deprecated) walkRefs(RefFunc) error      { return nil }
func (*LineNumberTable) walkRefs(RefFunc) error { return nil }
func (*StackMapTable) walkRefs(RefFunc) error   { return nil }
func (*Unknown) walkRefs(RefFunc) error         { return nil }

func (v *SourceFile) walkRefs(fn RefFunc) error {
	return fn(field(&v.Index, RoleUtf8, "source file"))
}

func walkLocalVariables(vars []LocalVariable, fn RefFunc, second string) error {
	for i := range vars {
		if err := visit(fn,
			field(&vars[i].NameIndex, RoleUtf8, "local variable name"),
			field(&vars[i].DescriptorIndex, RoleUtf8, "local variable "+second),
		); err != nil {
			return err
		}
	}
	return nil
}

func (v *LocalVariableTable) walkRefs(fn RefFunc) error {
	return walkLocalVariables(v.Vars, fn, "descriptor")
}

func (v *LocalVariableTypeTable) walkRefs(fn RefFunc) error {
	return walkLocalVariables(v.Vars, fn, "signature")
}

func (v *Annotations) walkRefs(fn RefFunc) error {
	for _, a := range v.Annotations {
		if err := a.walkRefs(fn); err != nil {
			return err
		}
	}
	return nil
}

func (v *EnclosingMethod) walkRefs(fn RefFunc) error {
	return visit(fn,
		field(&v.ClassIndex, RoleClass, "enclosing class"),
		optionalField(&v.MethodIndex, RoleNameAndType, "enclosing method"),
	)
}

func (v *Signature) walkRefs(fn RefFunc) error {
	return fn(field(&v.Index, RoleUtf8, "signature"))
}

func (v *AnnotationDefault) walkRefs(fn RefFunc) error {
	return v.Value.walkRefs(fn)
}

func (a *Annotation) walkRefs(fn RefFunc) error {
	if err := fn(field(&a.TypeIndex, RoleUtf8, "annotation type")); err != nil {
		return err
	}
	for i := range a.Pairs {
		if err := fn(field(&a.Pairs[i].NameIndex, RoleUtf8, "element name")); err != nil {
			return err
		}
		if err := a.Pairs[i].Value.walkRefs(fn); err != nil {
			return err
		}
	}
	return nil
}

func constElementRole(tag byte) Role {
	switch tag {
	case 'D':
		return RoleDouble
	case 'F':
		return RoleFloat
	case 'J':
		return RoleLong
	case 's':
		return RoleUtf8
	default:
		return RoleInteger
	}
}

func (v *ConstElement) walkRefs(fn RefFunc) error {
	return fn(field(&v.Index, constElementRole(v.Tag), "element constant"))
}

func (v *EnumElement) walkRefs(fn RefFunc) error {
	return visit(fn,
		field(&v.TypeNameIndex, RoleUtf8, "enum type"),
		field(&v.ConstNameIndex, RoleUtf8, "enum constant"),
	)
}

func (v *ClassElement) walkRefs(fn RefFunc) error {
	return fn(field(&v.ClassInfoIndex, RoleUtf8, "class literal"))
}

func (v *AnnotationElement) walkRefs(fn RefFunc) error {
	return v.Annotation.walkRefs(fn)
}

func (v *ArrayElement) walkRefs(fn RefFunc) error {
	for _, ev := range v.Values {
		if err := ev.walkRefs(fn); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that every index in cf denotes a constant of the kind its
// use requires. Absent optional indices are skipped.
func Validate(cf *ClassFile) error {
	return cf.WalkRefs(func(r Ref) error {
		if r.Absent() {
			return nil
		}
		c, err := cf.Pool.Entry(r.Index)
		if err != nil {
			return fmt.Errorf("%s: %w", r.Where, err)
		}
		if !r.Role.Accepts(c) {
			return fmt.Errorf("%s: index %d is %s, want %s: %w", r.Where, r.Index, c.Tag(), r.Role, ErrWrongRole)
		}
		return nil
	})
}
