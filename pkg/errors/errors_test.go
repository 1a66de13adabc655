package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodeDatabaseError, "connection failed"),
			expected: "[DATABASE_ERROR] connection failed",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeIOError, "unable to open class file A.class", errors.New("no such file")),
			expected: "[IO_ERROR] unable to open class file A.class: no such file",
		},
		{
			name:     "formatted",
			err:      Wrapf(CodeMalformedClass, errors.New("bad magic number"), "reading %s", "B.class"),
			expected: "[MALFORMED_CLASS] reading B.class: bad magic number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_UnwrapChain(t *testing.T) {
	sentinel := errors.New("truncated class file")
	err := fmt.Errorf("pipeline: %w", Wrap(CodeMalformedClass, "reading A.class", sentinel))

	assert.ErrorIs(t, err, sentinel)
	assert.True(t, IsMalformedClass(err))
	assert.False(t, IsIOError(err))
	assert.Equal(t, CodeMalformedClass, GetErrorCode(err))
	assert.Equal(t, "reading A.class", GetErrorMessage(err))
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsInvariant(Wrap(CodeInvariant, "x", nil)))
	assert.True(t, IsStorageError(New(CodeStorageError, "x")))
	assert.True(t, IsDatabaseError(New(CodeDatabaseError, "x")))
	assert.Equal(t, CodeUnknown, GetErrorCode(errors.New("plain")))
	assert.Equal(t, "plain", GetErrorMessage(errors.New("plain")))
	assert.Equal(t, "", GetErrorMessage(nil))
}
