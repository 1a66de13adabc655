package stripper

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stripclass/internal/bytecode"
	"github.com/stripclass/internal/classfile"
	"github.com/stripclass/internal/prune"
	"github.com/stripclass/internal/reachability"
	apperrors "github.com/stripclass/pkg/errors"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"dump", ModeDump, false},
		{"PRUNE", ModePrune, false},
		{"  write ", ModeWrite, false},
		{"strip", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "dump, prune, write")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllModes(t *testing.T) {
	modes := AllModes()
	require.Len(t, modes, 3)
	assert.Equal(t, ModeDump, modes[0].Mode)
	assert.False(t, modes[0].Writes)
	assert.True(t, modes[1].Prunes)
	assert.True(t, modes[2].Writes)
	assert.False(t, modes[2].Prunes)

	for _, m := range modes {
		info, ok := GetModeInfo(m.Mode)
		assert.True(t, ok)
		assert.NotEmpty(t, info.Description)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unknown tag", fmt.Errorf("constant 3: %w", classfile.ErrUnknownTag), apperrors.CodeMalformedClass},
		{"bad opcode", fmt.Errorf("method m: %w", bytecode.ErrUnknownOpcode), apperrors.CodeMalformedClass},
		{"bad descriptor", prune.ErrBadDescriptor, apperrors.CodeMalformedClass},
		{"invariant over index", fmt.Errorf("x: %w: %w", reachability.ErrInvariant, classfile.ErrBadIndex), apperrors.CodeInvariant},
		{"other", fmt.Errorf("boom"), apperrors.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestWrapKeepsAppError(t *testing.T) {
	inner := apperrors.New(apperrors.CodeStorageError, "sink down")
	assert.Same(t, inner, wrap(inner, "ignored"))

	err := wrap(classfile.ErrTruncated, "unable to read %s", "A.class")
	assert.Equal(t, apperrors.CodeMalformedClass, apperrors.GetErrorCode(err))
	assert.ErrorIs(t, err, classfile.ErrTruncated)
	assert.Contains(t, err.Error(), "unable to read A.class")
}
