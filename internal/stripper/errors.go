package stripper

import (
	"errors"

	"github.com/stripclass/internal/bytecode"
	"github.com/stripclass/internal/classfile"
	"github.com/stripclass/internal/prune"
	"github.com/stripclass/internal/reachability"
	apperrors "github.com/stripclass/pkg/errors"
)

var malformed = []error{
	classfile.ErrBadMagic,
	classfile.ErrUnknownTag,
	classfile.ErrBadAttributeName,
	classfile.ErrTruncated,
	classfile.ErrAttributeLength,
	classfile.ErrUnknownElementTag,
	classfile.ErrBadIndex,
	classfile.ErrWrongRole,
	classfile.ErrTrailingData,
	classfile.ErrTooLarge,
	bytecode.ErrUnknownOpcode,
	bytecode.ErrTruncated,
	bytecode.ErrIllegalWide,
	bytecode.ErrBadSwitch,
	prune.ErrBadDescriptor,
	prune.ErrMisplacedCode,
}

// classify returns the error code for a failure inside the class file
// packages. Invariant errors take precedence since they can wrap the
// index errors that caused them.
func classify(err error) string {
	if errors.Is(err, reachability.ErrInvariant) {
		return apperrors.CodeInvariant
	}
	for _, target := range malformed {
		if errors.Is(err, target) {
			return apperrors.CodeMalformedClass
		}
	}
	return apperrors.CodeUnknown
}

// wrap attaches the code for err, keeping an existing AppError as is.
func wrap(err error, format string, args ...interface{}) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrapf(classify(err), err, format, args...)
}
