package stripper

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stripclass/internal/classfile"
	"github.com/stripclass/internal/classfile/classfiletest"
	apperrors "github.com/stripclass/pkg/errors"
	"github.com/stripclass/pkg/filter"
)

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	a := writeClass(t, dir, "com/example/A.class", []byte{1})
	b := writeClass(t, dir, "com/example/sub/B.class.gz", []byte{1})
	writeClass(t, dir, "com/example/A.class.alt", []byte{1})
	writeClass(t, dir, "README.md", []byte{1})
	single := writeClass(t, t.TempDir(), "Single.bin", []byte{1})

	files, err := Collect([]string{dir, a, single})
	require.NoError(t, err)

	want := []string{a, b, single}
	assert.ElementsMatch(t, want, files)
	assert.IsIncreasing(t, files)

	_, err = Collect([]string{filepath.Join(dir, "missing")})
	require.Error(t, err)
	assert.True(t, apperrors.IsIOError(err))
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	store := newHistory(t)
	p := newProcessor(t, nil, store, nil)

	sample := writeClass(t, dir, "com/example/Sample.class", classfiletest.Sample().Bytes(t))
	hidden := writeClass(t, dir, "com/example/Hidden.class",
		classfiletest.New("com/example/Hidden", "java/lang/Object").Flags(classfile.AccSuper).Bytes(t))
	internal := writeClass(t, dir, "com/example/internal/Impl.class",
		classfiletest.New("com/example/internal/Impl", "java/lang/Object").Bytes(t))
	jdk := writeClass(t, dir, "java/util/List.class",
		classfiletest.New("java/util/List", "java/lang/Object").Bytes(t))
	broken := writeClass(t, dir, "com/example/Broken.class", []byte{0xca, 0xfe})

	files, err := Collect([]string{dir})
	require.NoError(t, err)
	require.Len(t, files, 5)

	var progressCalls atomic.Int64
	sum, err := p.Batch(context.Background(), files, BatchOptions{
		Mode:    ModePrune,
		Workers: 3,
		Filter: filter.NewClassFilter(filter.Config{
			Exclude: []string{"com/example/internal/"},
			SkipJDK: true,
		}),
		Progress: func(completed, total int64) { progressCalls.Add(1) },
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsMalformedClass(err))

	assert.Equal(t, 5, sum.Files)
	assert.Equal(t, 1, sum.Written)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 2, sum.Filtered)
	assert.Equal(t, 1, sum.Failed)
	assert.Greater(t, sum.Removed, 0)
	require.Len(t, sum.Results, 5)

	byFile := make(map[string]*Result)
	for _, r := range sum.Results {
		byFile[r.File] = r
	}
	assert.Equal(t, sample+".alt", byFile[sample].Output)
	assert.True(t, byFile[hidden].Skipped)
	assert.True(t, byFile[internal].Filtered)
	assert.True(t, byFile[jdk].Filtered)
	assert.Equal(t, apperrors.CodeMalformedClass, byFile[broken].ErrorCode)

	assert.FileExists(t, sample+".alt")
	assert.NoFileExists(t, hidden+".alt")
	assert.NoFileExists(t, internal+".alt")

	runs, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 5)
}

func TestBatch_RejectsDump(t *testing.T) {
	p := newProcessor(t, nil, nil, nil)
	_, err := p.Batch(context.Background(), []string{"A.class"}, BatchOptions{Mode: ModeDump, Workers: 1})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetErrorCode(err))
}

func TestBatch_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	p := newProcessor(t, nil, nil, nil)
	a := writeClass(t, dir, "A.class", classfiletest.New("A", "java/lang/Object").Bytes(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := p.Batch(ctx, []string{a}, BatchOptions{Mode: ModeWrite, Workers: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Failed)
	assert.NoFileExists(t, a+".alt")
}
