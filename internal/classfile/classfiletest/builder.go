// Package classfiletest builds class file models for tests.
package classfiletest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stripclass/internal/classfile"
)

// Builder assembles a ClassFile. Utf8, Class and NameAndType constants are
// shared by value; every other Add call appends a new slot.
type Builder struct {
	cf      *classfile.ClassFile
	utf8    map[string]uint16
	classes map[string]uint16
	nats    map[[2]string]uint16
}

// New starts a public class with the given name and superclass. An empty
// super leaves super_class 0.
func New(name, super string) *Builder {
	b := &Builder{
		cf: &classfile.ClassFile{
			Magic:        classfile.Magic,
			MajorVersion: 52,
			Pool:         classfile.NewConstantPool(),
			AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		},
		utf8:    make(map[string]uint16),
		classes: make(map[string]uint16),
		nats:    make(map[[2]string]uint16),
	}
	b.cf.ThisClass = b.Class(name)
	if super != "" {
		b.cf.SuperClass = b.Class(super)
	}
	return b
}

// Flags sets the class access flags.
func (b *Builder) Flags(f classfile.AccessFlags) *Builder {
	b.cf.AccessFlags = f
	return b
}

func (b *Builder) Utf8(s string) uint16 {
	if i, ok := b.utf8[s]; ok {
		return i
	}
	i := b.cf.Pool.Add(&classfile.ConstantUtf8{Bytes: []byte(s)})
	b.utf8[s] = i
	return i
}

func (b *Builder) Class(name string) uint16 {
	if i, ok := b.classes[name]; ok {
		return i
	}
	i := b.cf.Pool.Add(&classfile.ConstantClass{NameIndex: b.Utf8(name)})
	b.classes[name] = i
	return i
}

func (b *Builder) NameAndType(name, desc string) uint16 {
	key := [2]string{name, desc}
	if i, ok := b.nats[key]; ok {
		return i
	}
	i := b.cf.Pool.Add(&classfile.ConstantNameAndType{NameIndex: b.Utf8(name), DescriptorIndex: b.Utf8(desc)})
	b.nats[key] = i
	return i
}

func (b *Builder) String(s string) uint16 {
	return b.cf.Pool.Add(&classfile.ConstantString{StringIndex: b.Utf8(s)})
}

func (b *Builder) Integer(v int32) uint16 {
	return b.cf.Pool.Add(&classfile.ConstantInteger{Bits: uint32(v)})
}

func (b *Builder) Float(v float32) uint16 {
	return b.cf.Pool.Add(&classfile.ConstantFloat{Bits: math.Float32bits(v)})
}

func (b *Builder) Long(v int64) uint16 {
	u := uint64(v)
	return b.cf.Pool.Add(&classfile.ConstantLong{High: uint32(u >> 32), Low: uint32(u)})
}

func (b *Builder) Double(v float64) uint16 {
	u := math.Float64bits(v)
	return b.cf.Pool.Add(&classfile.ConstantDouble{High: uint32(u >> 32), Low: uint32(u)})
}

func (b *Builder) Fieldref(class, name, desc string) uint16 {
	return b.cf.Pool.Add(&classfile.ConstantFieldref{ClassIndex: b.Class(class), NameAndTypeIndex: b.NameAndType(name, desc)})
}

func (b *Builder) Methodref(class, name, desc string) uint16 {
	return b.cf.Pool.Add(&classfile.ConstantMethodref{ClassIndex: b.Class(class), NameAndTypeIndex: b.NameAndType(name, desc)})
}

func (b *Builder) InterfaceMethodref(class, name, desc string) uint16 {
	return b.cf.Pool.Add(&classfile.ConstantInterfaceMethodref{ClassIndex: b.Class(class), NameAndTypeIndex: b.NameAndType(name, desc)})
}

// Interface adds an implemented interface.
func (b *Builder) Interface(name string) *Builder {
	b.cf.Interfaces = append(b.cf.Interfaces, b.Class(name))
	return b
}

// Attr returns an attribute named name holding v.
func (b *Builder) Attr(name string, v classfile.AttributeValue) *classfile.Attribute {
	return &classfile.Attribute{NameIndex: b.Utf8(name), Value: v}
}

// ClassAttr appends a class-level attribute.
func (b *Builder) ClassAttr(name string, v classfile.AttributeValue) *Builder {
	b.cf.Attributes = append(b.cf.Attributes, b.Attr(name, v))
	return b
}

// Field appends a field and returns it.
func (b *Builder) Field(flags classfile.AccessFlags, name, desc string, attrs ...*classfile.Attribute) *classfile.Member {
	m := &classfile.Member{AccessFlags: flags, NameIndex: b.Utf8(name), DescriptorIndex: b.Utf8(desc), Attributes: attrs}
	b.cf.Fields = append(b.cf.Fields, m)
	return m
}

// Method appends a method. A non-nil code becomes its first attribute.
func (b *Builder) Method(flags classfile.AccessFlags, name, desc string, code *classfile.Code, attrs ...*classfile.Attribute) *classfile.Member {
	m := &classfile.Member{AccessFlags: flags, NameIndex: b.Utf8(name), DescriptorIndex: b.Utf8(desc)}
	if code != nil {
		m.Attributes = append(m.Attributes, b.Attr("Code", code))
	}
	m.Attributes = append(m.Attributes, attrs...)
	b.cf.Methods = append(b.cf.Methods, m)
	return m
}

// Build returns the model. The builder must not be used afterwards.
func (b *Builder) Build() *classfile.ClassFile {
	return b.cf
}

// Bytes encodes the model.
func (b *Builder) Bytes(t testing.TB) []byte {
	t.Helper()
	data, err := classfile.Encode(b.cf, nil)
	require.NoError(t, err)
	return data
}

// RoundTrip encodes cf and parses the result back.
func RoundTrip(t testing.TB, cf *classfile.ClassFile) *classfile.ClassFile {
	t.Helper()
	data, err := classfile.Encode(cf, nil)
	require.NoError(t, err)
	out, err := classfile.Parse(data, nil)
	require.NoError(t, err)
	return out
}

// Sample returns a class exercising most attribute kinds: a constant field,
// a method with code, exception table, line numbers and locals, annotations,
// inner classes and a Long/Double pair in the pool.
func Sample() *Builder {
	b := New("com/example/Sample", "java/lang/Object")
	b.Interface("java/lang/Runnable")

	b.Field(classfile.AccPublic|classfile.AccStatic|classfile.AccFinal, "MAX", "J",
		b.Attr("ConstantValue", &classfile.ConstantValue{Index: b.Long(1 << 40)}))
	b.Field(classfile.AccPrivate, "ratio", "D",
		b.Attr("ConstantValue", &classfile.ConstantValue{Index: b.Double(0.5)}))
	b.Field(classfile.AccProtected, "name", "Ljava/lang/String;",
		b.Attr("Signature", &classfile.Signature{Index: b.Utf8("Ljava/lang/String;")}),
		b.Attr("Deprecated", &classfile.Deprecated{}))

	initRef := b.Methodref("java/lang/Object", "<init>", "()V")
	b.Method(classfile.AccPublic, "<init>", "()V", &classfile.Code{
		MaxStack: 1, MaxLocals: 1,
		// aload_0; invokespecial #initRef; return
		Bytecode: []byte{0x2a, 0xb7, byte(initRef >> 8), byte(initRef), 0xb1},
		Attributes: []*classfile.Attribute{
			b.Attr("LineNumberTable", &classfile.LineNumberTable{Lines: []classfile.LineNumber{{StartPC: 0, Line: 3}}}),
			b.Attr("LocalVariableTable", &classfile.LocalVariableTable{Vars: []classfile.LocalVariable{
				{StartPC: 0, Length: 5, NameIndex: b.Utf8("this"), DescriptorIndex: b.Utf8("Lcom/example/Sample;")},
			}}),
		},
	})

	str := b.String("hello")
	fieldRef := b.Fieldref("com/example/Sample", "name", "Ljava/lang/String;")
	ioe := b.Class("java/io/IOException")
	b.Method(classfile.AccPublic, "run", "()V", &classfile.Code{
		MaxStack: 2, MaxLocals: 2,
		// aload_0; ldc str; putfield fieldRef; return; astore_1; return
		Bytecode: []byte{0x2a, 0x12, byte(str), 0xb5, byte(fieldRef >> 8), byte(fieldRef), 0xb1, 0x4c, 0xb1},
		ExceptionTable: []classfile.ExceptionHandler{
			{StartPC: 0, EndPC: 6, HandlerPC: 7, CatchType: ioe},
			{StartPC: 0, EndPC: 6, HandlerPC: 7, CatchType: 0},
		},
		Attributes: []*classfile.Attribute{
			b.Attr("StackMapTable", &classfile.StackMapTable{Raw: []byte{0x01, 0x47, 0x07, 0x00, byte(ioe)}}),
		},
	}, b.Attr("Exceptions", &classfile.Exceptions{Classes: []uint16{ioe}}),
		b.Attr("RuntimeVisibleAnnotations", &classfile.Annotations{Visible: true, Annotations: []*classfile.Annotation{{
			TypeIndex: b.Utf8("Ljava/lang/Override;"),
		}}}))

	b.Method(classfile.AccPrivate|classfile.AccStatic, "helper", "(I)I", &classfile.Code{
		MaxStack: 1, MaxLocals: 1,
		// iload_0; ireturn
		Bytecode: []byte{0x1a, 0xac},
	})

	b.ClassAttr("SourceFile", &classfile.SourceFile{Index: b.Utf8("Sample.java")})
	b.ClassAttr("InnerClasses", &classfile.InnerClasses{Classes: []classfile.InnerClass{{
		InnerClassInfo: b.Class("com/example/Sample$Inner"),
		OuterClassInfo: b.Class("com/example/Sample"),
		InnerName:      b.Utf8("Inner"),
		AccessFlags:    classfile.AccPublic | classfile.AccStatic,
	}, {
		InnerClassInfo: b.Class("com/example/Sample$1"),
	}}})
	b.ClassAttr("RuntimeInvisibleAnnotations", &classfile.Annotations{Annotations: []*classfile.Annotation{{
		TypeIndex: b.Utf8("Lcom/example/Marker;"),
		Pairs: []classfile.ElementPair{
			{NameIndex: b.Utf8("count"), Value: &classfile.ConstElement{Tag: 'I', Index: b.Integer(7)}},
			{NameIndex: b.Utf8("label"), Value: &classfile.ConstElement{Tag: 's', Index: b.Utf8("x")}},
			{NameIndex: b.Utf8("kind"), Value: &classfile.EnumElement{
				TypeNameIndex: b.Utf8("Lcom/example/Kind;"), ConstNameIndex: b.Utf8("FAST"),
			}},
			{NameIndex: b.Utf8("type"), Value: &classfile.ClassElement{ClassInfoIndex: b.Utf8("Ljava/lang/Void;")}},
			{NameIndex: b.Utf8("tags"), Value: &classfile.ArrayElement{Values: []classfile.ElementValue{
				&classfile.ConstElement{Tag: 'F', Index: b.Float(1.5)},
				&classfile.AnnotationElement{Annotation: &classfile.Annotation{TypeIndex: b.Utf8("Lcom/example/Tag;")}},
			}}},
		},
	}}})
	b.ClassAttr("com.example.Custom", &classfile.Unknown{Raw: []byte{1, 2, 3}})
	return b
}
