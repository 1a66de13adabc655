package classfile

import (
	"fmt"
	"io"
	"math"
)

// encoder appends on-disk fields to an in-memory buffer.
type encoder struct {
	buf     []byte
	endian  Endian
	scratch [4]byte
}

func newEncoder(endian Endian, capacity int) *encoder {
	return &encoder{buf: make([]byte, 0, capacity), endian: endian}
}

func (e *encoder) u1(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *encoder) u2(v uint16) {
	e.endian.PutUint16(e.scratch[:2], v)
	e.buf = append(e.buf, e.scratch[:2]...)
}

func (e *encoder) u4(v uint32) {
	e.endian.PutUint32(e.scratch[:4], v)
	e.buf = append(e.buf, e.scratch[:4]...)
}

func (e *encoder) raw(b []byte) {
	e.buf = append(e.buf, b...)
}

func (e *encoder) u2s(vs []uint16) {
	e.u2(uint16(len(vs)))
	for _, v := range vs {
		e.u2(v)
	}
}

// attributes writes a counted attribute list. Each payload is regenerated
// from its decoded value and stored back as the attribute's Info and Length.
func (e *encoder) attributes(attrs []*Attribute) error {
	if len(attrs) > math.MaxUint16 {
		return fmt.Errorf("%d attributes: %w", len(attrs), ErrTooLarge)
	}
	e.u2(uint16(len(attrs)))
	for i, a := range attrs {
		if err := EncodeAttribute(a, e.endian); err != nil {
			return fmt.Errorf("attribute %d: %w", i, err)
		}
		e.u2(a.NameIndex)
		e.u4(a.Length)
		e.raw(a.Info)
	}
	return nil
}

// EncodeAttribute regenerates a.Info and a.Length from a.Value.
func EncodeAttribute(a *Attribute, endian Endian) error {
	if a.Value == nil {
		return fmt.Errorf("attribute with name index %d has no value", a.NameIndex)
	}
	sub := newEncoder(endian, len(a.Info))
	if err := a.Value.encode(sub); err != nil {
		return fmt.Errorf("%s: %w", a.Kind(), err)
	}
	if uint64(len(sub.buf)) > math.MaxUint32 {
		return fmt.Errorf("%s payload of %d bytes: %w", a.Kind(), len(sub.buf), ErrTooLarge)
	}
	a.Info = sub.buf
	a.Length = uint32(len(sub.buf))
	return nil
}

// Encode serializes cf. Attribute payloads inside cf are refreshed as a side effect.
func Encode(cf *ClassFile, opts *Options) ([]byte, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	e := newEncoder(opts.Endian, 4096)

	e.u4(cf.Magic)
	e.u2(cf.MinorVersion)
	e.u2(cf.MajorVersion)
	if err := e.pool(cf.Pool); err != nil {
		return nil, fmt.Errorf("writing constant pool: %w", err)
	}
	e.u2(uint16(cf.AccessFlags))
	e.u2(cf.ThisClass)
	e.u2(cf.SuperClass)
	if len(cf.Interfaces) > math.MaxUint16 {
		return nil, fmt.Errorf("%d interfaces: %w", len(cf.Interfaces), ErrTooLarge)
	}
	e.u2s(cf.Interfaces)
	if err := e.members(cf.Fields); err != nil {
		return nil, fmt.Errorf("writing fields: %w", err)
	}
	if err := e.members(cf.Methods); err != nil {
		return nil, fmt.Errorf("writing methods: %w", err)
	}
	if err := e.attributes(cf.Attributes); err != nil {
		return nil, fmt.Errorf("writing class attributes: %w", err)
	}
	opts.debugf("encoded %d bytes", len(e.buf))
	return e.buf, nil
}

// Write serializes cf to w. Nothing is written if encoding fails.
func Write(w io.Writer, cf *ClassFile, opts *Options) error {
	data, err := Encode(cf, opts)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (e *encoder) pool(p *ConstantPool) error {
	if p.Count() > math.MaxUint16 {
		return fmt.Errorf("%d slots: %w", p.Count(), ErrTooLarge)
	}
	e.u2(uint16(p.Count()))
	for i := 1; i < p.Count(); i++ {
		c := p.entries[i]
		if _, ok := c.(placeholder); ok {
			continue
		}
		e.u1(uint8(c.Tag()))
		switch v := c.(type) {
		case *ConstantUtf8:
			if len(v.Bytes) > math.MaxUint16 {
				return fmt.Errorf("constant #%d: utf8 of %d bytes: %w", i, len(v.Bytes), ErrTooLarge)
			}
			e.u2(uint16(len(v.Bytes)))
			e.raw(v.Bytes)
		case *ConstantInteger:
			e.u4(v.Bits)
		case *ConstantFloat:
			e.u4(v.Bits)
		case *ConstantLong:
			e.u4(v.High)
			e.u4(v.Low)
		case *ConstantDouble:
			e.u4(v.High)
			e.u4(v.Low)
		case *ConstantClass:
			e.u2(v.NameIndex)
		case *ConstantString:
			e.u2(v.StringIndex)
		case *ConstantFieldref:
			e.u2(v.ClassIndex)
			e.u2(v.NameAndTypeIndex)
		case *ConstantMethodref:
			e.u2(v.ClassIndex)
			e.u2(v.NameAndTypeIndex)
		case *ConstantInterfaceMethodref:
			e.u2(v.ClassIndex)
			e.u2(v.NameAndTypeIndex)
		case *ConstantNameAndType:
			e.u2(v.NameIndex)
			e.u2(v.DescriptorIndex)
		default:
			return fmt.Errorf("constant #%d: %T: %w", i, c, ErrUnknownTag)
		}
	}
	return nil
}

func (e *encoder) members(members []*Member) error {
	if len(members) > math.MaxUint16 {
		return fmt.Errorf("%d members: %w", len(members), ErrTooLarge)
	}
	e.u2(uint16(len(members)))
	for i, m := range members {
		e.u2(uint16(m.AccessFlags))
		e.u2(m.NameIndex)
		e.u2(m.DescriptorIndex)
		if err := e.attributes(m.Attributes); err != nil {
			return fmt.Errorf("member %d: %w", i, err)
		}
	}
	return nil
}
