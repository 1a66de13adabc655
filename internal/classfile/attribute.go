package classfile

import "fmt"

// AttributeKind identifies a decoded attribute value.
type AttributeKind uint8

const (
	AttrUnknown AttributeKind = iota
	AttrConstantValue
	AttrCode
	AttrExceptions
	AttrInnerClasses
	AttrSynthetic
	AttrSourceFile
	AttrLineNumberTable
	AttrLocalVariableTable
	AttrDeprecated
	AttrRuntimeVisibleAnnotations
	AttrRuntimeInvisibleAnnotations
	AttrEnclosingMethod
	AttrStackMapTable
	AttrSignature
	AttrLocalVariableTypeTable
	AttrAnnotationDefault
)

var kindNames = [...]string{
	AttrUnknown:                     "Unknown",
	AttrConstantValue:               "ConstantValue",
	AttrCode:                        "Code",
	AttrExceptions:                  "Exceptions",
	AttrInnerClasses:                "InnerClasses",
	AttrSynthetic:                   "Synthetic",
	AttrSourceFile:                  "SourceFile",
	AttrLineNumberTable:             "LineNumberTable",
	AttrLocalVariableTable:          "LocalVariableTable",
	AttrDeprecated:                  "Deprecated",
	AttrRuntimeVisibleAnnotations:   "RuntimeVisibleAnnotations",
	AttrRuntimeInvisibleAnnotations: "RuntimeInvisibleAnnotations",
	AttrEnclosingMethod:             "EnclosingMethod",
	AttrStackMapTable:               "StackMapTable",
	AttrSignature:                   "Signature",
	AttrLocalVariableTypeTable:      "LocalVariableTypeTable",
	AttrAnnotationDefault:           "AnnotationDefault",
}

// String returns the attribute name for the kind.
func (k AttributeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("AttributeKind(%d)", uint8(k))
}

// Attribute is an attribute_info record. Info and Length hold the payload
// as last read or written; Value is authoritative and is re-encoded on write.
type Attribute struct {
	NameIndex uint16
	Length    uint32
	Info      []byte
	Value     AttributeValue
}

// Kind returns the kind of the decoded value.
func (a *Attribute) Kind() AttributeKind {
	if a.Value == nil {
		return AttrUnknown
	}
	return a.Value.Kind()
}

// AttributeValue is the decoded payload of an attribute. The set of
// implementations is closed.
type AttributeValue interface {
	Kind() AttributeKind
	encode(e *encoder) error
	walkRefs(fn RefFunc) error
}

// attributeCodec is one row of the attribute table.
type attributeCodec struct {
	kind   AttributeKind
	decode func(d *decoder, c *Cursor) (AttributeValue, error)
}

// attributeTable maps attribute names to their decoders. Encoding and index
// traversal are methods of the value types registered here.
var attributeTable map[string]attributeCodec

func init() {
	attributeTable = map[string]attributeCodec{
		"ConstantValue":               {AttrConstantValue, decodeConstantValue},
		"Code":                        {AttrCode, decodeCode},
		"Exceptions":                  {AttrExceptions, decodeExceptions},
		"InnerClasses":                {AttrInnerClasses, decodeInnerClasses},
		"Synthetic":                   {AttrSynthetic, decodeSynthetic},
		"SourceFile":                  {AttrSourceFile, decodeSourceFile},
		"LineNumberTable":             {AttrLineNumberTable, decodeLineNumberTable},
		"LocalVariableTable":          {AttrLocalVariableTable, decodeLocalVariableTable},
		"Deprecated":                  {AttrDeprecated, decodeDeprecated},
		"RuntimeVisibleAnnotations":   {AttrRuntimeVisibleAnnotations, decodeVisibleAnnotations},
		"RuntimeInvisibleAnnotations": {AttrRuntimeInvisibleAnnotations, decodeInvisibleAnnotations},
		"EnclosingMethod":             {AttrEnclosingMethod, decodeEnclosingMethod},
		"StackMapTable":               {AttrStackMapTable, decodeStackMapTable},
		"Signature":                   {AttrSignature, decodeSignature},
		"LocalVariableTypeTable":      {AttrLocalVariableTypeTable, decodeLocalVariableTypeTable},
		"AnnotationDefault":           {AttrAnnotationDefault, decodeAnnotationDefault},
	}
}

// KindOf returns the kind decoded for an attribute called name.
func KindOf(name string) AttributeKind {
	if codec, ok := attributeTable[name]; ok {
		return codec.kind
	}
	return AttrUnknown
}

// ConstantValue is the initial value of a static field.
type ConstantValue struct {
	Index uint16
}

// ExceptionHandler is one exception_table entry. CatchType 0 catches everything.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// Code is a method body.
type Code struct {
	MaxStack       uint16
	MaxLocals      uint16
	Bytecode       []byte
	ExceptionTable []ExceptionHandler
	Attributes     []*Attribute
}

// Exceptions lists the checked exceptions a method declares.
type Exceptions struct {
	Classes []uint16
}

// InnerClass is one InnerClasses entry. OuterClassInfo and InnerName may be 0.
type InnerClass struct {
	InnerClassInfo uint16
	OuterClassInfo uint16
	InnerName      uint16
	AccessFlags    AccessFlags
}

type InnerClasses struct {
	Classes []InnerClass
}

type Synthetic struct{}

type Deprecated struct{}

type SourceFile struct {
	Index uint16
}

type LineNumber struct {
	StartPC uint16
	Line    uint16
}

type LineNumberTable struct {
	Lines []LineNumber
}

// LocalVariable is one LocalVariableTable or LocalVariableTypeTable entry.
// In a type table DescriptorIndex holds the signature.
type LocalVariable struct {
	StartPC         uint16
	Length          uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Slot            uint16
}

type LocalVariableTable struct {
	Vars []LocalVariable
}

type LocalVariableTypeTable struct {
	Vars []LocalVariable
}

// Annotations is a RuntimeVisibleAnnotations or RuntimeInvisibleAnnotations value.
type Annotations struct {
	Visible     bool
	Annotations []*Annotation
}

// EnclosingMethod names the method of a local or anonymous class. MethodIndex may be 0.
type EnclosingMethod struct {
	ClassIndex  uint16
	MethodIndex uint16
}

// StackMapTable is kept opaque.
type StackMapTable struct {
	Raw []byte
}

type Signature struct {
	Index uint16
}

type AnnotationDefault struct {
	Value ElementValue
}

// Unknown is an attribute whose name is not in the attribute table.
type Unknown struct {
	Raw []byte
}

func (*ConstantValue) Kind() AttributeKind          { return AttrConstantValue }
func (*Code) Kind() AttributeKind                   { return AttrCode }
func (*Exceptions) Kind() AttributeKind             { return AttrExceptions }
func (*InnerClasses) Kind() AttributeKind           { return AttrInnerClasses }
func (*Synthetic) Kind() AttributeKind              { return AttrSynthetic }
func (*Deprecated) Kind() AttributeKind             { return AttrDeprecated }
func (*SourceFile) Kind() AttributeKind             { return AttrSourceFile }
func (*LineNumberTable) Kind() AttributeKind        { return AttrLineNumberTable }
func (*LocalVariableTable) Kind() AttributeKind     { return AttrLocalVariableTable }
func (*LocalVariableTypeTable) Kind() AttributeKind { return AttrLocalVariableTypeTable }
func (*EnclosingMethod) Kind() AttributeKind        { return AttrEnclosingMethod }
func (*StackMapTable) Kind() AttributeKind          { return AttrStackMapTable }
func (*Signature) Kind() AttributeKind              { return AttrSignature }
func (*AnnotationDefault) Kind() AttributeKind      { return AttrAnnotationDefault }
func (*Unknown) Kind() AttributeKind                { return AttrUnknown }

func (a *Annotations) Kind() AttributeKind {
	if a.Visible {
		return AttrRuntimeVisibleAnnotations
	}
	return AttrRuntimeInvisibleAnnotations
}

// Decoders. Each reads exactly the attribute payload from c.

func decodeConstantValue(_ *decoder, c *Cursor) (AttributeValue, error) {
	idx, err := c.ReadUint16()
	if err != nil {
		return nil, err
	}
	return &ConstantValue{Index: idx}, nil
}

func decodeCode(d *decoder, c *Cursor) (AttributeValue, error) {
	code := &Code{}
	var err error
	if code.MaxStack, err = c.ReadUint16(); err != nil {
		return nil, err
	}
	if code.MaxLocals, err = c.ReadUint16(); err != nil {
		return nil, err
	}
	n, err := c.ReadUint32()
	if err != nil {
		return nil, err
	}
	if code.Bytecode, err = c.ReadBytes(int(n)); err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}

	count, err := c.ReadUint16()
	if err != nil {
		return nil, err
	}
	code.ExceptionTable = make([]ExceptionHandler, count)
	for i := range code.ExceptionTable {
		h := &code.ExceptionTable[i]
		for _, p := range []*uint16{&h.StartPC, &h.EndPC, &h.HandlerPC, &h.CatchType} {
			if *p, err = c.ReadUint16(); err != nil {
				return nil, fmt.Errorf("exception table entry %d: %w", i, err)
			}
		}
	}

	if code.Attributes, err = d.readAttributes(c); err != nil {
		return nil, fmt.Errorf("code attributes: %w", err)
	}
	return code, nil
}

func decodeExceptions(_ *decoder, c *Cursor) (AttributeValue, error) {
	classes, err := readUint16s(c)
	if err != nil {
		return nil, err
	}
	return &Exceptions{Classes: classes}, nil
}

func decodeInnerClasses(_ *decoder, c *Cursor) (AttributeValue, error) {
	count, err := c.ReadUint16()
	if err != nil {
		return nil, err
	}
	v := &InnerClasses{Classes: make([]InnerClass, count)}
	for i := range v.Classes {
		ic := &v.Classes[i]
		var flags uint16
		for _, p := range []*uint16{&ic.InnerClassInfo, &ic.OuterClassInfo, &ic.InnerName, &flags} {
			if *p, err = c.ReadUint16(); err != nil {
				return nil, fmt.Errorf("inner class %d: %w", i, err)
			}
		}
		ic.AccessFlags = AccessFlags(flags)
	}
	return v, nil
}

func decodeSynthetic(_ *decoder, _ *Cursor) (AttributeValue, error) {
	return &Synthetic{}, nil
}

func decodeDeprecated(_ *decoder, _ *Cursor) (AttributeValue, error) {
	return &Deprecated{}, nil
}

func decodeSourceFile(_ *decoder, c *Cursor) (AttributeValue, error) {
	idx, err := c.ReadUint16()
	if err != nil {
		return nil, err
	}
	return &SourceFile{Index: idx}, nil
}

func decodeLineNumberTable(_ *decoder, c *Cursor) (AttributeValue, error) {
	count, err := c.ReadUint16()
	if err != nil {
		return nil, err
	}
	v := &LineNumberTable{Lines: make([]LineNumber, count)}
	for i := range v.Lines {
		if v.Lines[i].StartPC, err = c.ReadUint16(); err != nil {
			return nil, err
		}
		if v.Lines[i].Line, err = c.ReadUint16(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func readLocalVariables(c *Cursor) ([]LocalVariable, error) {
	count, err := c.ReadUint16()
	if err != nil {
		return nil, err
	}
	vars := make([]LocalVariable, count)
	for i := range vars {
		lv := &vars[i]
		for _, p := range []*uint16{&lv.StartPC, &lv.Length, &lv.NameIndex, &lv.DescriptorIndex, &lv.Slot} {
			if *p, err = c.ReadUint16(); err != nil {
				return nil, fmt.Errorf("local variable %d: %w", i, err)
			}
		}
	}
	return vars, nil
}

func decodeLocalVariableTable(_ *decoder, c *Cursor) (AttributeValue, error) {
	vars, err := readLocalVariables(c)
	if err != nil {
		return nil, err
	}
	return &LocalVariableTable{Vars: vars}, nil
}

func decodeLocalVariableTypeTable(_ *decoder, c *Cursor) (AttributeValue, error) {
	vars, err := readLocalVariables(c)
	if err != nil {
		return nil, err
	}
	return &LocalVariableTypeTable{Vars: vars}, nil
}

func decodeVisibleAnnotations(_ *decoder, c *Cursor) (AttributeValue, error) {
	list, err := readAnnotations(c)
	if err != nil {
		return nil, err
	}
	return &Annotations{Visible: true, Annotations: list}, nil
}

func decodeInvisibleAnnotations(_ *decoder, c *Cursor) (AttributeValue, error) {
	list, err := readAnnotations(c)
	if err != nil {
		return nil, err
	}
	return &Annotations{Annotations: list}, nil
}

func decodeEnclosingMethod(_ *decoder, c *Cursor) (AttributeValue, error) {
	v := &EnclosingMethod{}
	var err error
	if v.ClassIndex, err = c.ReadUint16(); err != nil {
		return nil, err
	}
	if v.MethodIndex, err = c.ReadUint16(); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeStackMapTable(_ *decoder, c *Cursor) (AttributeValue, error) {
	raw, err := c.ReadBytes(c.Remaining())
	if err != nil {
		return nil, err
	}
	return &StackMapTable{Raw: raw}, nil
}

func decodeSignature(_ *decoder, c *Cursor) (AttributeValue, error) {
	idx, err := c.ReadUint16()
	if err != nil {
		return nil, err
	}
	return &Signature{Index: idx}, nil
}

func decodeAnnotationDefault(_ *decoder, c *Cursor) (AttributeValue, error) {
	ev, err := readElementValue(c)
	if err != nil {
		return nil, err
	}
	return &AnnotationDefault{Value: ev}, nil
}

// Encoders mirror the decoders above.

func (v *ConstantValue) encode(e *encoder) error {
	e.u2(v.Index)
	return nil
}

func (v *Code) encode(e *encoder) error {
	e.u2(v.MaxStack)
	e.u2(v.MaxLocals)
	e.u4(uint32(len(v.Bytecode)))
	e.raw(v.Bytecode)
	e.u2(uint16(len(v.ExceptionTable)))
	for _, h := range v.ExceptionTable {
		e.u2(h.StartPC)
		e.u2(h.EndPC)
		e.u2(h.HandlerPC)
		e.u2(h.CatchType)
	}
	return e.attributes(v.Attributes)
}

func (v *Exceptions) encode(e *encoder) error {
	e.u2s(v.Classes)
	return nil
}

func (v *InnerClasses) encode(e *encoder) error {
	e.u2(uint16(len(v.Classes)))
	for _, ic := range v.Classes {
		e.u2(ic.InnerClassInfo)
		e.u2(ic.OuterClassInfo)
		e.u2(ic.InnerName)
		e.u2(uint16(ic.AccessFlags))
	}
	return nil
}

func (*Synthetic) encode(*encoder) error  { return nil }
func (*Deprecated) encode(*encoder) error { return nil }

func (v *SourceFile) encode(e *encoder) error {
	e.u2(v.Index)
	return nil
}

func (v *LineNumberTable) encode(e *encoder) error {
	e.u2(uint16(len(v.Lines)))
	for _, l := range v.Lines {
		e.u2(l.StartPC)
		e.u2(l.Line)
	}
	return nil
}

func encodeLocalVariables(e *encoder, vars []LocalVariable) {
	e.u2(uint16(len(vars)))
	for _, lv := range vars {
		e.u2(lv.StartPC)
		e.u2(lv.Length)
		e.u2(lv.NameIndex)
		e.u2(lv.DescriptorIndex)
		e.u2(lv.Slot)
	}
}

func (v *LocalVariableTable) encode(e *encoder) error {
	encodeLocalVariables(e, v.Vars)
	return nil
}

func (v *LocalVariableTypeTable) encode(e *encoder) error {
	encodeLocalVariables(e, v.Vars)
	return nil
}

func (v *Annotations) encode(e *encoder) error {
	e.u2(uint16(len(v.Annotations)))
	for _, a := range v.Annotations {
		if err := a.encode(e); err != nil {
			return err
		}
	}
	return nil
}

func (v *EnclosingMethod) encode(e *encoder) error {
	e.u2(v.ClassIndex)
	e.u2(v.MethodIndex)
	return nil
}

func (v *StackMapTable) encode(e *encoder) error {
	e.raw(v.Raw)
	return nil
}

func (v *Signature) encode(e *encoder) error {
	e.u2(v.Index)
	return nil
}

func (v *AnnotationDefault) encode(e *encoder) error {
	return v.Value.encode(e)
}

func (v *Unknown) encode(e *encoder) error {
	e.raw(v.Raw)
	return nil
}
