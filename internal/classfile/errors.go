package classfile

import "errors"

var (
	// ErrBadMagic is returned when the input does not start with 0xCAFEBABE.
	ErrBadMagic = errors.New("bad magic number")

	// ErrUnknownTag is returned for a constant pool tag outside the known set.
	ErrUnknownTag = errors.New("unknown constant pool tag")

	// ErrBadAttributeName is returned when an attribute name index does not
	// resolve to a Utf8 constant.
	ErrBadAttributeName = errors.New("attribute name is not a Utf8 constant")

	// ErrTruncated is returned when the input ends inside a structure.
	ErrTruncated = errors.New("truncated class file")

	// ErrAttributeLength is returned when a known attribute's payload length
	// disagrees with its decoded content.
	ErrAttributeLength = errors.New("attribute length mismatch")

	// ErrUnknownElementTag is returned for an annotation element value tag
	// outside the known set.
	ErrUnknownElementTag = errors.New("unknown element value tag")

	// ErrBadIndex is returned when an index does not denote a usable constant.
	ErrBadIndex = errors.New("invalid constant pool index")

	// ErrWrongRole is returned when an index denotes a constant of the wrong kind.
	ErrWrongRole = errors.New("constant has wrong kind for its use")
)

var (
	// ErrTrailingData is returned when bytes follow the last attribute of a class.
	ErrTrailingData = errors.New("trailing data after class file")

	// ErrTooLarge is returned when a count or length does not fit its field.
	ErrTooLarge = errors.New("structure too large for class file")
)
