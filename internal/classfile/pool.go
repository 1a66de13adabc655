package classfile

import "fmt"

// ConstantPool is the 1-indexed constant table of a class file. Slot 0 and
// the slot after each Long or Double hold no usable constant.
//
// The pool also carries a reference count per slot. Counts are only
// meaningful between ResetRefCounts and the next mutation.
type ConstantPool struct {
	entries   []Constant
	refs      []int
	refsValid bool
}

// NewConstantPool returns an empty pool (count 1).
func NewConstantPool() *ConstantPool {
	return &ConstantPool{entries: []Constant{nil}}
}

// Count returns the constant_pool_count value: one more than the last index.
func (p *ConstantPool) Count() int {
	return len(p.entries)
}

// Add appends c and returns its index. A Long or Double also takes the
// following slot.
func (p *ConstantPool) Add(c Constant) uint16 {
	idx := uint16(len(p.entries))
	p.entries = append(p.entries, c)
	if c.Tag().Wide() {
		p.entries = append(p.entries, placeholder{})
	}
	p.refsValid = false
	return idx
}

// At returns the raw slot i: nil for slot 0 or out of range, and a
// constant with tag 0 for a placeholder slot.
func (p *ConstantPool) At(i int) Constant {
	if i <= 0 || i >= len(p.entries) {
		return nil
	}
	return p.entries[i]
}

// IsPlaceholder reports whether slot i is the second half of a Long or Double.
func (p *ConstantPool) IsPlaceholder(i int) bool {
	_, ok := p.At(i).(placeholder)
	return ok
}

// Entry returns the constant at index i, or an error if i does not denote one.
func (p *ConstantPool) Entry(i uint16) (Constant, error) {
	c := p.At(int(i))
	if c == nil {
		return nil, fmt.Errorf("index %d of %d: %w", i, len(p.entries), ErrBadIndex)
	}
	if _, ok := c.(placeholder); ok {
		return nil, fmt.Errorf("index %d is the second slot of a wide constant: %w", i, ErrBadIndex)
	}
	return c, nil
}

// Utf8 returns the string held by the Utf8 constant at i.
func (p *ConstantPool) Utf8(i uint16) (string, error) {
	c, err := p.Entry(i)
	if err != nil {
		return "", err
	}
	u, ok := c.(*ConstantUtf8)
	if !ok {
		return "", fmt.Errorf("index %d is %s, want utf8: %w", i, c.Tag(), ErrWrongRole)
	}
	return u.String(), nil
}

// ClassName returns the internal name of the Class constant at i.
func (p *ConstantPool) ClassName(i uint16) (string, error) {
	c, err := p.Entry(i)
	if err != nil {
		return "", err
	}
	cls, ok := c.(*ConstantClass)
	if !ok {
		return "", fmt.Errorf("index %d is %s, want class: %w", i, c.Tag(), ErrWrongRole)
	}
	return p.Utf8(cls.NameIndex)
}

// NameAndType returns the name and descriptor of the NameAndType constant at i.
func (p *ConstantPool) NameAndType(i uint16) (name, descriptor string, err error) {
	c, err := p.Entry(i)
	if err != nil {
		return "", "", err
	}
	nat, ok := c.(*ConstantNameAndType)
	if !ok {
		return "", "", fmt.Errorf("index %d is %s, want nameandtype: %w", i, c.Tag(), ErrWrongRole)
	}
	if name, err = p.Utf8(nat.NameIndex); err != nil {
		return "", "", err
	}
	if descriptor, err = p.Utf8(nat.DescriptorIndex); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// ResetRefCounts zeroes every reference count and marks the counts valid.
func (p *ConstantPool) ResetRefCounts() {
	if cap(p.refs) >= len(p.entries) {
		p.refs = p.refs[:len(p.entries)]
		clear(p.refs)
	} else {
		p.refs = make([]int, len(p.entries))
	}
	p.refsValid = true
}

// AddRef counts one reference to index i.
func (p *ConstantPool) AddRef(i uint16) error {
	if !p.refsValid {
		return fmt.Errorf("reference counts not reset")
	}
	if _, err := p.Entry(i); err != nil {
		return err
	}
	p.refs[i]++
	return nil
}

// RefCount returns the reference count of slot i and whether counts are
// currently valid.
func (p *ConstantPool) RefCount(i int) (int, bool) {
	if !p.refsValid || i <= 0 || i >= len(p.refs) {
		return 0, false
	}
	return p.refs[i], true
}

// RefCountsValid reports whether reference counts reflect the current pool.
func (p *ConstantPool) RefCountsValid() bool {
	return p.refsValid
}

// Retain keeps the slots for which keep returns true, preserving their
// order, and drops the rest. A kept Long or Double keeps its second slot;
// keep is never asked about placeholder slots.
//
// The returned table maps each old index to its new index, with 0 for
// dropped slots. The second return value is the number of slots removed.
func (p *ConstantPool) Retain(keep func(i int) bool) ([]uint16, int) {
	remap := make([]uint16, len(p.entries))
	kept := make([]Constant, 1, len(p.entries))
	var keptRefs []int
	if p.refsValid {
		keptRefs = make([]int, 1, len(p.entries))
	}

	for i := 1; i < len(p.entries); i++ {
		c := p.entries[i]
		if _, ok := c.(placeholder); ok {
			continue
		}
		if !keep(i) {
			continue
		}
		remap[i] = uint16(len(kept))
		kept = append(kept, c)
		if keptRefs != nil {
			keptRefs = append(keptRefs, p.refs[i])
		}
		if c.Tag().Wide() && i+1 < len(p.entries) {
			remap[i+1] = uint16(len(kept))
			kept = append(kept, p.entries[i+1])
			if keptRefs != nil {
				keptRefs = append(keptRefs, 0)
			}
		}
	}

	removed := len(p.entries) - len(kept)
	p.entries = kept
	if removed > 0 {
		p.refsValid = false
		p.refs = nil
	} else if keptRefs != nil {
		p.refs = keptRefs
	}
	return remap, removed
}
