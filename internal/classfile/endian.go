package classfile

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"strings"
)

// Endian converts multi-byte fields between their big-endian on-disk form
// and host values. Loads and stores go through host-native order and are
// byte-swapped when the host is little-endian.
type Endian struct {
	swap bool
}

var hostEndian = detectHostEndian()

func detectHostEndian() Endian {
	var probe [2]byte
	binary.NativeEndian.PutUint16(probe[:], 1)
	return Endian{swap: probe[0] == 1}
}

// HostEndian returns the conversion for the running host, detected once.
func HostEndian() Endian {
	return hostEndian
}

// ParseByteOrder returns the conversion for a named host byte order:
// "auto" (or empty) detects, "big" never swaps, "little" always swaps.
func ParseByteOrder(s string) (Endian, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return hostEndian, nil
	case "big":
		return Endian{swap: false}, nil
	case "little":
		return Endian{swap: true}, nil
	default:
		return Endian{}, fmt.Errorf("unknown byte order %q (valid: auto, big, little)", s)
	}
}

// Swaps reports whether values are byte-swapped.
func (e Endian) Swaps() bool {
	return e.swap
}

// String returns the host order this conversion is for.
func (e Endian) String() string {
	if e.swap {
		return "little"
	}
	return "big"
}

// Uint16 decodes a 2-byte on-disk field.
func (e Endian) Uint16(b []byte) uint16 {
	v := binary.NativeEndian.Uint16(b)
	if e.swap {
		v = bits.ReverseBytes16(v)
	}
	return v
}

// Uint32 decodes a 4-byte on-disk field.
func (e Endian) Uint32(b []byte) uint32 {
	v := binary.NativeEndian.Uint32(b)
	if e.swap {
		v = bits.ReverseBytes32(v)
	}
	return v
}

// PutUint16 encodes v as a 2-byte on-disk field.
func (e Endian) PutUint16(b []byte, v uint16) {
	if e.swap {
		v = bits.ReverseBytes16(v)
	}
	binary.NativeEndian.PutUint16(b, v)
}

// PutUint32 encodes v as a 4-byte on-disk field.
func (e Endian) PutUint32(b []byte, v uint32) {
	if e.swap {
		v = bits.ReverseBytes32(v)
	}
	binary.NativeEndian.PutUint32(b, v)
}
