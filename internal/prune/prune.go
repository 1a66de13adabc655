// Package prune reduces a class to its public surface: members that are
// neither public nor protected are removed, debug and verifier attributes
// are dropped, and every method body is replaced by a stub that returns the
// zero value of its return type.
//
// Prune never edits the constant pool. Entries it orphans are removed by a
// later reachability run.
package prune

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/stripclass/internal/bytecode"
	"github.com/stripclass/internal/classfile"
	"github.com/stripclass/pkg/utils"
)

var (
	// ErrBadDescriptor is returned for a method descriptor without a
	// parameter list or with an unknown return type.
	ErrBadDescriptor = errors.New("malformed method descriptor")

	// ErrMisplacedCode is returned for a Code attribute attached to anything
	// but a method.
	ErrMisplacedCode = errors.New("code attribute outside a method")
)

// visible are the flags that keep a member.
const visible = classfile.AccPublic | classfile.AccProtected

// dropped lists the attribute kinds removed at every level.
var dropped = map[classfile.AttributeKind]bool{
	classfile.AttrSourceFile:             true,
	classfile.AttrLineNumberTable:        true,
	classfile.AttrLocalVariableTable:     true,
	classfile.AttrLocalVariableTypeTable: true,
	classfile.AttrStackMapTable:          true,
}

// Dropped reports whether Prune removes attributes of kind k.
func Dropped(k classfile.AttributeKind) bool {
	return dropped[k]
}

// Report counts what Prune changed.
type Report struct {
	FieldsRemoved     int
	MethodsRemoved    int
	AttributesRemoved int
	MethodsStubbed    int
}

// Options configures Prune.
type Options struct {
	Logger utils.Logger
}

type pruner struct {
	cf     *classfile.ClassFile
	log    utils.Logger
	report Report
}

// Prune rewrites cf in place. On error cf may be partly pruned and must
// not be written.
func Prune(cf *classfile.ClassFile, opts *Options) (*Report, error) {
	if opts == nil {
		opts = &Options{}
	}
	p := &pruner{cf: cf, log: utils.OrNull(opts.Logger)}

	var err error
	if cf.Fields, err = p.members(cf.Fields, false); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	if cf.Methods, err = p.members(cf.Methods, true); err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}
	if cf.Attributes, err = p.attributes(cf.Attributes, nil); err != nil {
		return nil, fmt.Errorf("class attributes: %w", err)
	}

	r := p.report
	p.log.Debug("pruned %d fields, %d methods, %d attributes; stubbed %d methods",
		r.FieldsRemoved, r.MethodsRemoved, r.AttributesRemoved, r.MethodsStubbed)
	return &r, nil
}

func (p *pruner) members(members []*classfile.Member, methods bool) ([]*classfile.Member, error) {
	kept := members[:0]
	for _, m := range members {
		if !m.AccessFlags.Has(visible) {
			if methods {
				p.report.MethodsRemoved++
			} else {
				p.report.FieldsRemoved++
			}
			continue
		}
		var owner *classfile.Member
		if methods {
			owner = m
		}
		var err error
		if m.Attributes, err = p.attributes(m.Attributes, owner); err != nil {
			name, _ := m.Name(p.cf.Pool)
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		kept = append(kept, m)
	}
	clear(members[len(kept):])
	return kept, nil
}

// attributes filters attrs and stubs any Code value. method is the owner
// when attrs belong to a method, nil otherwise.
func (p *pruner) attributes(attrs []*classfile.Attribute, method *classfile.Member) ([]*classfile.Attribute, error) {
	kept := attrs[:0]
	for _, a := range attrs {
		if dropped[a.Kind()] {
			p.report.AttributesRemoved++
			continue
		}
		if code, ok := a.Value.(*classfile.Code); ok {
			if method == nil {
				return nil, ErrMisplacedCode
			}
			if err := p.stub(code, method); err != nil {
				return nil, err
			}
		}
		kept = append(kept, a)
	}
	clear(attrs[len(kept):])
	return kept, nil
}

func (p *pruner) stub(code *classfile.Code, method *classfile.Member) error {
	desc, err := method.Descriptor(p.cf.Pool)
	if err != nil {
		return err
	}
	body, err := StubFor(desc)
	if err != nil {
		return err
	}
	code.Bytecode = body
	code.ExceptionTable = nil
	if code.Attributes, err = p.attributes(code.Attributes, nil); err != nil {
		return err
	}
	p.report.MethodsStubbed++
	return nil
}

var (
	voidStub   = []byte{bytecode.OpReturn}
	intStub    = []byte{bytecode.OpIconst0, bytecode.OpIreturn}
	longStub   = []byte{bytecode.OpLconst0, bytecode.OpLreturn}
	floatStub  = []byte{bytecode.OpFconst0, bytecode.OpFreturn}
	doubleStub = []byte{bytecode.OpDconst0, bytecode.OpDreturn}
	nullStub   = []byte{bytecode.OpAconstNull, bytecode.OpAreturn}
)

// StubFor returns a fresh method body that returns the zero value of the
// return type named in descriptor.
func StubFor(descriptor string) ([]byte, error) {
	_, ret, ok := strings.Cut(descriptor, ")")
	if !ok || ret == "" {
		return nil, fmt.Errorf("%q: %w", descriptor, ErrBadDescriptor)
	}
	var stub []byte
	switch ret[0] {
	case 'V':
		stub = voidStub
	case 'B', 'C', 'I', 'S', 'Z':
		stub = intStub
	case 'J':
		stub = longStub
	case 'F':
		stub = floatStub
	case 'D':
		stub = doubleStub
	case 'L', '[':
		stub = nullStub
	default:
		return nil, fmt.Errorf("%q: return type %q: %w", descriptor, ret[0], ErrBadDescriptor)
	}
	return bytes.Clone(stub), nil
}
