package classfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// decoder carries the state shared by nested decode steps.
type decoder struct {
	pool *ConstantPool
	opts *Options
}

// ReadFile decodes the class file at path.
func ReadFile(path string, opts *Options) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, opts)
}

// Read decodes a class file from a stream. The whole stream must be one
// class file. No partial model is returned on error.
func Read(r io.Reader, opts *Options) (*ClassFile, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	rd := NewReader(r, opts.Endian)
	cf, err := readClass(rd, opts)
	if err != nil {
		return nil, err
	}
	if !rd.AtEOF() {
		return nil, fmt.Errorf("offset %d: %w", rd.Offset(), ErrTrailingData)
	}
	return cf, nil
}

// Parse decodes a class file held in memory.
func Parse(data []byte, opts *Options) (*ClassFile, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	c := NewCursor(data, opts.Endian)
	cf, err := readClass(c, opts)
	if err != nil {
		return nil, err
	}
	if c.Remaining() != 0 {
		return nil, fmt.Errorf("offset %d: %d bytes: %w", c.Offset(), c.Remaining(), ErrTrailingData)
	}
	return cf, nil
}

func readClass(src source, opts *Options) (*ClassFile, error) {
	cf := &ClassFile{}
	var err error

	if cf.Magic, err = src.ReadUint32(); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if cf.Magic != Magic {
		return nil, fmt.Errorf("got 0x%08x: %w", cf.Magic, ErrBadMagic)
	}
	if cf.MinorVersion, err = src.ReadUint16(); err != nil {
		return nil, fmt.Errorf("reading minor version: %w", err)
	}
	if cf.MajorVersion, err = src.ReadUint16(); err != nil {
		return nil, fmt.Errorf("reading major version: %w", err)
	}
	opts.debugf("class file version %d.%d", cf.MajorVersion, cf.MinorVersion)

	if cf.Pool, err = readPool(src); err != nil {
		return nil, fmt.Errorf("reading constant pool: %w", err)
	}
	opts.debugf("read %d constant pool slots", cf.Pool.Count())
	d := &decoder{pool: cf.Pool, opts: opts}

	flags, err := src.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("reading access flags: %w", err)
	}
	cf.AccessFlags = AccessFlags(flags)
	if cf.ThisClass, err = src.ReadUint16(); err != nil {
		return nil, fmt.Errorf("reading this class: %w", err)
	}
	if cf.SuperClass, err = src.ReadUint16(); err != nil {
		return nil, fmt.Errorf("reading super class: %w", err)
	}
	if cf.Interfaces, err = readUint16s(src); err != nil {
		return nil, fmt.Errorf("reading interfaces: %w", err)
	}
	if cf.Fields, err = d.readMembers(src); err != nil {
		return nil, fmt.Errorf("reading fields: %w", err)
	}
	if cf.Methods, err = d.readMembers(src); err != nil {
		return nil, fmt.Errorf("reading methods: %w", err)
	}
	if cf.Attributes, err = d.readAttributes(src); err != nil {
		return nil, fmt.Errorf("reading class attributes: %w", err)
	}
	opts.debugf("read %d fields, %d methods, %d attributes", len(cf.Fields), len(cf.Methods), len(cf.Attributes))
	return cf, nil
}

func readPool(src source) (*ConstantPool, error) {
	count, err := src.ReadUint16()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("constant pool count 0: %w", ErrBadIndex)
	}
	pool := &ConstantPool{entries: make([]Constant, 1, count)}
	for i := 1; i < int(count); i++ {
		tag, err := src.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("constant #%d: %w", i, err)
		}
		c, err := readConstant(src, ConstantTag(tag))
		if err != nil {
			return nil, fmt.Errorf("constant #%d: %w", i, err)
		}
		pool.entries = append(pool.entries, c)
		if c.Tag().Wide() {
			if i+1 >= int(count) {
				return nil, fmt.Errorf("constant #%d: %s in last slot: %w", i, c.Tag(), ErrBadIndex)
			}
			pool.entries = append(pool.entries, placeholder{})
			i++
		}
	}
	return pool, nil
}

func readConstant(src source, tag ConstantTag) (Constant, error) {
	switch tag {
	case TagUtf8:
		n, err := src.ReadUint16()
		if err != nil {
			return nil, err
		}
		b, err := src.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		return &ConstantUtf8{Bytes: b}, nil
	case TagInteger, TagFloat:
		v, err := src.ReadUint32()
		if err != nil {
			return nil, err
		}
		if tag == TagInteger {
			return &ConstantInteger{Bits: v}, nil
		}
		return &ConstantFloat{Bits: v}, nil
	case TagLong, TagDouble:
		hi, err := src.ReadUint32()
		if err != nil {
			return nil, err
		}
		lo, err := src.ReadUint32()
		if err != nil {
			return nil, err
		}
		if tag == TagLong {
			return &ConstantLong{High: hi, Low: lo}, nil
		}
		return &ConstantDouble{High: hi, Low: lo}, nil
	case TagClass, TagString:
		idx, err := src.ReadUint16()
		if err != nil {
			return nil, err
		}
		if tag == TagClass {
			return &ConstantClass{NameIndex: idx}, nil
		}
		return &ConstantString{StringIndex: idx}, nil
	case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType:
		a, err := src.ReadUint16()
		if err != nil {
			return nil, err
		}
		b, err := src.ReadUint16()
		if err != nil {
			return nil, err
		}
		switch tag {
		case TagFieldref:
			return &ConstantFieldref{ClassIndex: a, NameAndTypeIndex: b}, nil
		case TagMethodref:
			return &ConstantMethodref{ClassIndex: a, NameAndTypeIndex: b}, nil
		case TagInterfaceMethodref:
			return &ConstantInterfaceMethodref{ClassIndex: a, NameAndTypeIndex: b}, nil
		default:
			return &ConstantNameAndType{NameIndex: a, DescriptorIndex: b}, nil
		}
	default:
		return nil, fmt.Errorf("tag %d: %w", uint8(tag), ErrUnknownTag)
	}
}

func (d *decoder) readMembers(src source) ([]*Member, error) {
	count, err := src.ReadUint16()
	if err != nil {
		return nil, err
	}
	members := make([]*Member, count)
	for i := range members {
		m := &Member{}
		flags, err := src.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		m.AccessFlags = AccessFlags(flags)
		if m.NameIndex, err = src.ReadUint16(); err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		if m.DescriptorIndex, err = src.ReadUint16(); err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		if m.Attributes, err = d.readAttributes(src); err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		members[i] = m
	}
	return members, nil
}

func (d *decoder) readAttributes(src source) ([]*Attribute, error) {
	count, err := src.ReadUint16()
	if err != nil {
		return nil, err
	}
	attrs := make([]*Attribute, count)
	for i := range attrs {
		if attrs[i], err = d.readAttribute(src); err != nil {
			return nil, fmt.Errorf("attribute %d: %w", i, err)
		}
	}
	return attrs, nil
}

// readAttribute reads one attribute_info and decodes its payload by name.
func (d *decoder) readAttribute(src source) (*Attribute, error) {
	nameIdx, err := src.ReadUint16()
	if err != nil {
		return nil, err
	}
	name, err := d.pool.Utf8(nameIdx)
	if err != nil {
		return nil, fmt.Errorf("name index %d: %w: %w", nameIdx, ErrBadAttributeName, err)
	}
	length, err := src.ReadUint32()
	if err != nil {
		return nil, err
	}
	info, err := src.ReadBytes(int(length))
	if err != nil {
		return nil, fmt.Errorf("%s payload: %w", name, err)
	}
	value, err := d.decodeValue(name, info)
	if err != nil {
		return nil, err
	}
	return &Attribute{NameIndex: nameIdx, Length: length, Info: info, Value: value}, nil
}

// decodeValue decodes an attribute payload that has already been read.
func (d *decoder) decodeValue(name string, info []byte) (AttributeValue, error) {
	codec, ok := attributeTable[name]
	if !ok {
		d.opts.debugf("keeping unknown attribute %q (%d bytes)", name, len(info))
		return &Unknown{Raw: bytes.Clone(info)}, nil
	}
	c := NewCursor(info, d.opts.Endian)
	value, err := codec.decode(d, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if c.Remaining() != 0 {
		return nil, fmt.Errorf("%s: %d bytes left over: %w", name, c.Remaining(), ErrAttributeLength)
	}
	return value, nil
}
