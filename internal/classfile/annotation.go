package classfile

import "fmt"

// Annotation is one annotation structure.
type Annotation struct {
	TypeIndex uint16
	Pairs     []ElementPair
}

// ElementPair is one element_value_pair.
type ElementPair struct {
	NameIndex uint16
	Value     ElementValue
}

// ElementValue is an annotation element value. The set of implementations is
// closed: ConstElement, EnumElement, ClassElement, AnnotationElement and
// ArrayElement.
type ElementValue interface {
	ElementTag() byte
	encode(e *encoder) error
	walkRefs(fn RefFunc) error
}

// ConstElement is a primitive or String constant. Tag is one of B C D F I J S Z s.
type ConstElement struct {
	Tag   byte
	Index uint16
}

// EnumElement is an enum constant ('e').
type EnumElement struct {
	TypeNameIndex  uint16
	ConstNameIndex uint16
}

// ClassElement is a class literal ('c').
type ClassElement struct {
	ClassInfoIndex uint16
}

// AnnotationElement is a nested annotation ('@').
type AnnotationElement struct {
	Annotation *Annotation
}

// ArrayElement is an array of values ('[').
type ArrayElement struct {
	Values []ElementValue
}

func (v *ConstElement) ElementTag() byte    { return v.Tag }
func (*EnumElement) ElementTag() byte       { return 'e' }
func (*ClassElement) ElementTag() byte      { return 'c' }
func (*AnnotationElement) ElementTag() byte { return '@' }
func (*ArrayElement) ElementTag() byte      { return '[' }

func isConstTag(tag byte) bool {
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		return true
	}
	return false
}

func readAnnotations(c *Cursor) ([]*Annotation, error) {
	count, err := c.ReadUint16()
	if err != nil {
		return nil, err
	}
	list := make([]*Annotation, count)
	for i := range list {
		if list[i], err = readAnnotation(c); err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
	}
	return list, nil
}

func readAnnotation(c *Cursor) (*Annotation, error) {
	typeIdx, err := c.ReadUint16()
	if err != nil {
		return nil, err
	}
	count, err := c.ReadUint16()
	if err != nil {
		return nil, err
	}
	a := &Annotation{TypeIndex: typeIdx, Pairs: make([]ElementPair, count)}
	for i := range a.Pairs {
		if a.Pairs[i].NameIndex, err = c.ReadUint16(); err != nil {
			return nil, err
		}
		if a.Pairs[i].Value, err = readElementValue(c); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return a, nil
}

func readElementValue(c *Cursor) (ElementValue, error) {
	tag, err := c.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch {
	case isConstTag(tag):
		idx, err := c.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ConstElement{Tag: tag, Index: idx}, nil
	case tag == 'e':
		v := &EnumElement{}
		if v.TypeNameIndex, err = c.ReadUint16(); err != nil {
			return nil, err
		}
		if v.ConstNameIndex, err = c.ReadUint16(); err != nil {
			return nil, err
		}
		return v, nil
	case tag == 'c':
		idx, err := c.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &ClassElement{ClassInfoIndex: idx}, nil
	case tag == '@':
		a, err := readAnnotation(c)
		if err != nil {
			return nil, err
		}
		return &AnnotationElement{Annotation: a}, nil
	case tag == '[':
		count, err := c.ReadUint16()
		if err != nil {
			return nil, err
		}
		v := &ArrayElement{Values: make([]ElementValue, count)}
		for i := range v.Values {
			if v.Values[i], err = readElementValue(c); err != nil {
				return nil, err
			}
		}
		return v, nil
	default:
		return nil, fmt.Errorf("tag %q at offset %d: %w", tag, c.Offset()-1, ErrUnknownElementTag)
	}
}

func (a *Annotation) encode(e *encoder) error {
	e.u2(a.TypeIndex)
	e.u2(uint16(len(a.Pairs)))
	for _, p := range a.Pairs {
		e.u2(p.NameIndex)
		if err := p.Value.encode(e); err != nil {
			return err
		}
	}
	return nil
}

func (v *ConstElement) encode(e *encoder) error {
	if !isConstTag(v.Tag) {
		return fmt.Errorf("tag %q: %w", v.Tag, ErrUnknownElementTag)
	}
	e.u1(v.Tag)
	e.u2(v.Index)
	return nil
}

func (v *EnumElement) encode(e *encoder) error {
	e.u1('e')
	e.u2(v.TypeNameIndex)
	e.u2(v.ConstNameIndex)
	return nil
}

func (v *ClassElement) encode(e *encoder) error {
	e.u1('c')
	e.u2(v.ClassInfoIndex)
	return nil
}

func (v *AnnotationElement) encode(e *encoder) error {
	e.u1('@')
	return v.Annotation.encode(e)
}

func (v *ArrayElement) encode(e *encoder) error {
	e.u1('[')
	e.u2(uint16(len(v.Values)))
	for _, ev := range v.Values {
		if err := ev.encode(e); err != nil {
			return err
		}
	}
	return nil
}
