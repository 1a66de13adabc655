package classfile

import (
	"math"
	"strings"
)

// Magic is the first word of every class file.
const Magic uint32 = 0xCAFEBABE

// ConstantTag identifies the kind of a constant pool entry.
type ConstantTag uint8

const (
	TagUtf8               ConstantTag = 1
	TagInteger            ConstantTag = 3
	TagFloat              ConstantTag = 4
	TagLong               ConstantTag = 5
	TagDouble             ConstantTag = 6
	TagClass              ConstantTag = 7
	TagString             ConstantTag = 8
	TagFieldref           ConstantTag = 9
	TagMethodref          ConstantTag = 10
	TagInterfaceMethodref ConstantTag = 11
	TagNameAndType        ConstantTag = 12
)

// String returns the string representation of ConstantTag.
func (t ConstantTag) String() string {
	switch t {
	case TagUtf8:
		return "utf8"
	case TagInteger:
		return "integer"
	case TagFloat:
		return "float"
	case TagLong:
		return "long"
	case TagDouble:
		return "double"
	case TagClass:
		return "class"
	case TagString:
		return "string"
	case TagFieldref:
		return "field"
	case TagMethodref:
		return "method"
	case TagInterfaceMethodref:
		return "interface"
	case TagNameAndType:
		return "nameandtype"
	default:
		return "unusable"
	}
}

// Wide reports whether constants of this kind take two pool slots.
func (t ConstantTag) Wide() bool {
	return t == TagLong || t == TagDouble
}

// Constant is a constant pool entry. The set of implementations is closed.
type Constant interface {
	Tag() ConstantTag
}

// ConstantUtf8 holds modified UTF-8 bytes exactly as stored.
type ConstantUtf8 struct {
	Bytes []byte
}

// ConstantInteger holds the raw bits of an int constant.
type ConstantInteger struct {
	Bits uint32
}

// ConstantFloat holds the raw bits of a float constant.
type ConstantFloat struct {
	Bits uint32
}

// ConstantLong holds a long constant as two words.
type ConstantLong struct {
	High, Low uint32
}

// ConstantDouble holds a double constant as two words.
type ConstantDouble struct {
	High, Low uint32
}

type ConstantClass struct {
	NameIndex uint16
}

type ConstantString struct {
	StringIndex uint16
}

type ConstantFieldref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

type ConstantMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

type ConstantInterfaceMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

// placeholder occupies the slot after a Long or Double.
type placeholder struct{}

func (*ConstantUtf8) Tag() ConstantTag               { return TagUtf8 }
func (*ConstantInteger) Tag() ConstantTag            { return TagInteger }
func (*ConstantFloat) Tag() ConstantTag              { return TagFloat }
func (*ConstantLong) Tag() ConstantTag               { return TagLong }
func (*ConstantDouble) Tag() ConstantTag             { return TagDouble }
func (*ConstantClass) Tag() ConstantTag              { return TagClass }
func (*ConstantString) Tag() ConstantTag             { return TagString }
func (*ConstantFieldref) Tag() ConstantTag           { return TagFieldref }
func (*ConstantMethodref) Tag() ConstantTag          { return TagMethodref }
func (*ConstantInterfaceMethodref) Tag() ConstantTag { return TagInterfaceMethodref }
func (*ConstantNameAndType) Tag() ConstantTag        { return TagNameAndType }
func (placeholder) Tag() ConstantTag                 { return 0 }

// String returns the bytes as a Go string.
func (c *ConstantUtf8) String() string { return string(c.Bytes) }

func (c *ConstantInteger) Value() int32 { return int32(c.Bits) }

func (c *ConstantFloat) Value() float32 { return math.Float32frombits(c.Bits) }

func (c *ConstantLong) Value() int64 { return int64(uint64(c.High)<<32 | uint64(c.Low)) }

func (c *ConstantDouble) Value() float64 {
	return math.Float64frombits(uint64(c.High)<<32 | uint64(c.Low))
}

// MemberRef returns the class and name-and-type indices of a field, method
// or interface method reference.
func MemberRef(c Constant) (class, nameAndType uint16, ok bool) {
	switch v := c.(type) {
	case *ConstantFieldref:
		return v.ClassIndex, v.NameAndTypeIndex, true
	case *ConstantMethodref:
		return v.ClassIndex, v.NameAndTypeIndex, true
	case *ConstantInterfaceMethodref:
		return v.ClassIndex, v.NameAndTypeIndex, true
	default:
		return 0, 0, false
	}
}

// AccessFlags is a class, field, method or inner class access_flags word.
type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSuper        AccessFlags = 0x0020 // classes
	AccSynchronized AccessFlags = 0x0020 // methods
	AccVolatile     AccessFlags = 0x0040
	AccBridge       AccessFlags = 0x0040
	AccTransient    AccessFlags = 0x0080
	AccVarargs      AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
)

// Has reports whether any of the bits in f are set.
func (a AccessFlags) Has(f AccessFlags) bool {
	return a&f != 0
}

var flagNames = []struct {
	flag AccessFlags
	name string
}{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccSuper, "super"},
	{AccVolatile, "volatile"},
	{AccTransient, "transient"},
	{AccNative, "native"},
	{AccInterface, "interface"},
	{AccAbstract, "abstract"},
	{AccStrict, "strict"},
	{AccSynthetic, "synthetic"},
	{AccAnnotation, "annotation"},
	{AccEnum, "enum"},
}

// String lists the set flags by name, space separated.
func (a AccessFlags) String() string {
	var names []string
	for _, f := range flagNames {
		if a&f.flag != 0 {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, " ")
}
