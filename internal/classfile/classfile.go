// Package classfile reads, models and writes Java class files.
//
// A ClassFile is decoded by Read or Parse, may be edited in place, and is
// re-encoded by Write or Encode. Encoding regenerates every attribute
// payload from its decoded value, so an unmodified model reproduces its
// input byte for byte.
package classfile

import "github.com/stripclass/pkg/utils"

// ClassFile is the decoded form of one class file.
type ClassFile struct {
	Magic        uint32
	MinorVersion uint16
	MajorVersion uint16
	Pool         *ConstantPool
	AccessFlags  AccessFlags
	ThisClass    uint16
	// SuperClass is 0 for java/lang/Object.
	SuperClass uint16
	Interfaces []uint16
	Fields     []*Member
	Methods    []*Member
	Attributes []*Attribute
}

// Member is a field_info or method_info record.
type Member struct {
	AccessFlags     AccessFlags
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []*Attribute
}

// Options configures decoding and encoding.
type Options struct {
	// Endian converts on-disk fields. The zero value never swaps, so use
	// DefaultOptions or HostEndian on little-endian hosts.
	Endian Endian
	// Logger is used for debug logging. If nil, debug logs are suppressed.
	Logger utils.Logger
}

// DefaultOptions returns options for the running host.
func DefaultOptions() *Options {
	return &Options{Endian: HostEndian()}
}

func (o *Options) debugf(format string, args ...interface{}) {
	if o.Logger != nil {
		o.Logger.Debug(format, args...)
	}
}

// Name returns the internal name of this class.
func (cf *ClassFile) Name() (string, error) {
	return cf.Pool.ClassName(cf.ThisClass)
}

// SuperName returns the internal name of the superclass, or "" when absent.
func (cf *ClassFile) SuperName() (string, error) {
	if cf.SuperClass == 0 {
		return "", nil
	}
	return cf.Pool.ClassName(cf.SuperClass)
}

// Name returns the member name.
func (m *Member) Name(pool *ConstantPool) (string, error) {
	return pool.Utf8(m.NameIndex)
}

// Descriptor returns the member descriptor.
func (m *Member) Descriptor(pool *ConstantPool) (string, error) {
	return pool.Utf8(m.DescriptorIndex)
}

// Code returns the member's Code attribute value, or nil.
func (m *Member) Code() *Code {
	for _, a := range m.Attributes {
		if c, ok := a.Value.(*Code); ok {
			return c
		}
	}
	return nil
}

// FindAttribute returns the first attribute of the given kind in attrs.
func FindAttribute(attrs []*Attribute, kind AttributeKind) *Attribute {
	for _, a := range attrs {
		if a.Kind() == kind {
			return a
		}
	}
	return nil
}
