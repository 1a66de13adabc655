package disasm

import (
	"fmt"
	"strings"

	"github.com/stripclass/internal/classfile"
)

// ClassView is a resolved summary of a class file for JSON output.
type ClassView struct {
	Name       string          `json:"name"`
	Super      string          `json:"super,omitempty"`
	Version    string          `json:"version"`
	Flags      []string        `json:"flags"`
	Interfaces []string        `json:"interfaces,omitempty"`
	Constants  []ConstantView  `json:"constants"`
	Fields     []MemberView    `json:"fields"`
	Methods    []MemberView    `json:"methods"`
	Attributes []AttributeView `json:"attributes,omitempty"`
}

// ConstantView is one pool slot. Refs is set only when reference counts
// are valid.
type ConstantView struct {
	Index int    `json:"index"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
	Refs  *int   `json:"refs,omitempty"`
}

type MemberView struct {
	Name       string          `json:"name"`
	Descriptor string          `json:"descriptor"`
	Flags      []string        `json:"flags"`
	Attributes []AttributeView `json:"attributes,omitempty"`
	Code       *CodeView       `json:"code,omitempty"`
}

type AttributeView struct {
	Name   string `json:"name"`
	Length uint32 `json:"length"`
}

type CodeView struct {
	MaxStack     uint16   `json:"max_stack"`
	MaxLocals    uint16   `json:"max_locals"`
	Length       int      `json:"length"`
	Handlers     int      `json:"handlers"`
	Instructions []string `json:"instructions"`
}

// Describe builds the view of cf with every index resolved.
func Describe(cf *classfile.ClassFile) (*ClassView, error) {
	name, err := cf.Name()
	if err != nil {
		return nil, fmt.Errorf("this class: %w", err)
	}
	super, err := cf.SuperName()
	if err != nil {
		return nil, fmt.Errorf("super class: %w", err)
	}

	sym := symbols{pool: cf.Pool, verbose: true}
	view := &ClassView{
		Name:    name,
		Super:   super,
		Version: fmt.Sprintf("%d.%d", cf.MajorVersion, cf.MinorVersion),
		Flags:   flagList(cf.AccessFlags),
	}

	for _, idx := range cf.Interfaces {
		view.Interfaces = append(view.Interfaces, Symbol(cf.Pool, idx))
	}

	for i := 1; i < cf.Pool.Count(); i++ {
		c := cf.Pool.At(i)
		if c == nil || c.Tag() == 0 {
			continue
		}
		cv := ConstantView{Index: i, Kind: c.Tag().String(), Value: Symbol(cf.Pool, uint16(i))}
		if n, ok := cf.Pool.RefCount(i); ok {
			cv.Refs = &n
		}
		view.Constants = append(view.Constants, cv)
	}

	if view.Fields, err = describeMembers(cf.Pool, sym, cf.Fields); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	if view.Methods, err = describeMembers(cf.Pool, sym, cf.Methods); err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}
	view.Attributes = describeAttributes(cf.Pool, cf.Attributes)
	return view, nil
}

func describeMembers(pool *classfile.ConstantPool, sym symbols, members []*classfile.Member) ([]MemberView, error) {
	views := make([]MemberView, 0, len(members))
	for i, m := range members {
		name, err := m.Name(pool)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		desc, err := m.Descriptor(pool)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		mv := MemberView{
			Name:       name,
			Descriptor: desc,
			Flags:      flagList(m.AccessFlags),
			Attributes: describeAttributes(pool, m.Attributes),
		}
		if code := m.Code(); code != nil {
			cv := &CodeView{
				MaxStack:  code.MaxStack,
				MaxLocals: code.MaxLocals,
				Length:    len(code.Bytecode),
				Handlers:  len(code.ExceptionTable),
			}
			for _, line := range sym.listing(code.Bytecode) {
				cv.Instructions = append(cv.Instructions, strings.TrimSpace(line))
			}
			mv.Code = cv
		}
		views = append(views, mv)
	}
	return views, nil
}

func describeAttributes(pool *classfile.ConstantPool, attrs []*classfile.Attribute) []AttributeView {
	var views []AttributeView
	for _, a := range attrs {
		views = append(views, AttributeView{Name: utf8OrInvalid(pool, a.NameIndex), Length: a.Length})
	}
	return views
}

func flagList(f classfile.AccessFlags) []string {
	flags := strings.Fields(f.String())
	if flags == nil {
		return []string{}
	}
	return flags
}
