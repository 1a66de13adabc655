package stripper

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stripclass/internal/classfile"
	"github.com/stripclass/internal/classfile/classfiletest"
	"github.com/stripclass/internal/disasm"
	"github.com/stripclass/internal/history"
	"github.com/stripclass/pkg/compression"
	"github.com/stripclass/pkg/config"
	apperrors "github.com/stripclass/pkg/errors"
)

func newHistory(t *testing.T) *history.GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store := history.NewGormStore(db)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { store.Close() })
	return store
}

func newProcessor(t *testing.T, cfg *config.Config, store history.Store, stdout *bytes.Buffer) *Processor {
	t.Helper()
	pc := &ProcessorConfig{Config: cfg, History: store}
	if stdout != nil {
		pc.Stdout = stdout
	}
	p, err := NewProcessor(pc)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func writeClass(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestProcessFile_Prune(t *testing.T) {
	store := newHistory(t)
	p := newProcessor(t, nil, store, nil)
	path := writeClass(t, t.TempDir(), "Sample.class", classfiletest.Sample().Bytes(t))

	res, err := p.ProcessFile(context.Background(), path, ModePrune)
	require.NoError(t, err)

	assert.Equal(t, "com/example/Sample", res.Class)
	assert.Equal(t, path+".alt", res.Output)
	assert.Less(t, res.PoolAfter, res.PoolBefore)
	assert.GreaterOrEqual(t, res.Rounds, 2)
	require.NotNil(t, res.Prune)
	assert.Equal(t, 1, res.Prune.FieldsRemoved)
	assert.Equal(t, 1, res.Prune.MethodsRemoved)
	assert.Contains(t, res.Phases, "prune")
	assert.Contains(t, res.Phases, "compact")

	data, err := os.ReadFile(path + ".alt")
	require.NoError(t, err)
	out, err := classfile.Parse(data, nil)
	require.NoError(t, err)
	require.NoError(t, classfile.Validate(out))
	assert.Equal(t, res.PoolAfter, out.Pool.Count())

	for _, m := range append(out.Fields, out.Methods...) {
		assert.True(t, m.AccessFlags&(classfile.AccPublic|classfile.AccProtected) != 0)
	}
	assert.Nil(t, classfile.FindAttribute(out.Attributes, classfile.AttrSourceFile))

	runs, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "prune", runs[0].Mode)
	assert.Equal(t, res.Removed(), runs[0].Removed)
	assert.Equal(t, path+".alt", runs[0].Output)
	assert.False(t, runs[0].Failed())
}

func TestProcessFile_WriteIsIdentity(t *testing.T) {
	p := newProcessor(t, nil, nil, nil)
	input := classfiletest.Sample().Bytes(t)
	path := writeClass(t, t.TempDir(), "Sample.class", input)

	res, err := p.ProcessFile(context.Background(), path, ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, res.PoolBefore, res.PoolAfter)
	assert.Nil(t, res.Prune)

	output, err := os.ReadFile(path + ".alt")
	require.NoError(t, err)
	assert.Equal(t, input, output)
}

func TestProcessFile_NonPublicClassWritesNothing(t *testing.T) {
	p := newProcessor(t, nil, nil, nil)
	b := classfiletest.New("Hidden", "java/lang/Object").Flags(classfile.AccSuper)
	path := writeClass(t, t.TempDir(), "Hidden.class", b.Bytes(t))

	for _, mode := range []Mode{ModePrune, ModeWrite} {
		t.Run(mode.String(), func(t *testing.T) {
			res, err := p.ProcessFile(context.Background(), path, mode)
			require.NoError(t, err)
			assert.True(t, res.Skipped)
			assert.Empty(t, res.Output)
			assert.NoFileExists(t, path+".alt")
		})
	}
}

func TestProcessFile_AbstractClassIsWritten(t *testing.T) {
	p := newProcessor(t, nil, nil, nil)
	b := classfiletest.New("Base", "java/lang/Object").Flags(classfile.AccAbstract | classfile.AccSuper)
	path := writeClass(t, t.TempDir(), "Base.class", b.Bytes(t))

	res, err := p.ProcessFile(context.Background(), path, ModePrune)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.FileExists(t, path+".alt")
}

func TestProcessFile_Dump(t *testing.T) {
	var out bytes.Buffer
	p := newProcessor(t, nil, nil, &out)
	path := writeClass(t, t.TempDir(), "Sample.class", classfiletest.Sample().Bytes(t))

	res, err := p.ProcessFile(context.Background(), path, ModeDump)
	require.NoError(t, err)
	assert.Empty(t, res.Output)
	assert.NoFileExists(t, path+".alt")

	text := out.String()
	assert.Contains(t, text, "magic: cafebabe  version: 52/0")
	assert.Contains(t, text, "  [1]: {")
	assert.Contains(t, text, "methods:")
}

func TestProcessFile_DumpJSON(t *testing.T) {
	var out bytes.Buffer
	p, err := NewProcessor(&ProcessorConfig{Stdout: &out, JSON: true})
	require.NoError(t, err)
	path := writeClass(t, t.TempDir(), "Sample.class", classfiletest.Sample().Bytes(t))

	_, err = p.ProcessFile(context.Background(), path, ModeDump)
	require.NoError(t, err)

	var view disasm.ClassView
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	assert.Equal(t, "com/example/Sample", view.Name)
	assert.Equal(t, "java/lang/Object", view.Super)
	require.NotEmpty(t, view.Constants)
	assert.NotNil(t, view.Constants[0].Refs)
}

func TestProcessFile_Errors(t *testing.T) {
	dir := t.TempDir()
	store := newHistory(t)
	p := newProcessor(t, nil, store, nil)
	ctx := context.Background()

	t.Run("MissingFile", func(t *testing.T) {
		path := filepath.Join(dir, "Absent.class")
		res, err := p.ProcessFile(ctx, path, ModePrune)
		require.Error(t, err)
		assert.True(t, apperrors.IsIOError(err))
		assert.Contains(t, err.Error(), "unable to open class file "+path)
		assert.Equal(t, apperrors.CodeIOError, res.ErrorCode)
	})

	t.Run("BadMagic", func(t *testing.T) {
		path := writeClass(t, dir, "Bad.class", []byte{0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 52})
		_, err := p.ProcessFile(ctx, path, ModePrune)
		require.Error(t, err)
		assert.True(t, apperrors.IsMalformedClass(err))
		assert.ErrorIs(t, err, classfile.ErrBadMagic)
		assert.NoFileExists(t, path+".alt")
	})

	t.Run("Truncated", func(t *testing.T) {
		data := classfiletest.Sample().Bytes(t)
		path := writeClass(t, dir, "Short.class", data[:len(data)/2])
		_, err := p.ProcessFile(ctx, path, ModeWrite)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeMalformedClass, apperrors.GetErrorCode(err))
	})

	t.Run("UnknownMode", func(t *testing.T) {
		res, err := p.ProcessFile(ctx, "A.class", Mode("strip"))
		require.Error(t, err)
		assert.Nil(t, res)
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetErrorCode(err))
	})

	runs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for _, r := range runs {
		assert.True(t, r.Failed())
	}
}

func TestProcessFile_Compression(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Compress = "zstd"
	p := newProcessor(t, cfg, nil, nil)

	input := classfiletest.Sample().Bytes(t)
	gz, err := compression.NewGzipCompressor().Compress(input)
	require.NoError(t, err)
	path := writeClass(t, t.TempDir(), "Sample.class.gz", gz)

	res, err := p.ProcessFile(context.Background(), path, ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, "gzip", res.Compression)
	assert.Equal(t, path+".alt.zst", res.Output)

	stored, err := os.ReadFile(res.Output)
	require.NoError(t, err)
	assert.Equal(t, compression.TypeZstd, compression.DetectType(stored))

	plain, _, err := compression.AutoDecompress(stored)
	require.NoError(t, err)
	assert.Equal(t, input, plain)
}

func TestProcessFile_CustomSuffix(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Suffix = ".stub"
	p := newProcessor(t, cfg, nil, nil)
	path := writeClass(t, t.TempDir(), "A.class", classfiletest.New("A", "java/lang/Object").Bytes(t))

	res, err := p.ProcessFile(context.Background(), path, ModePrune)
	require.NoError(t, err)
	assert.Equal(t, path+".stub", res.Output)
	assert.FileExists(t, path+".stub")
}

func TestNewProcessor_InvalidConfig(t *testing.T) {
	t.Run("ByteOrder", func(t *testing.T) {
		cfg := config.Default()
		cfg.Codec.ByteOrder = "middle"
		_, err := NewProcessor(&ProcessorConfig{Config: cfg})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeConfigError, apperrors.GetErrorCode(err))
	})

	t.Run("Compression", func(t *testing.T) {
		cfg := config.Default()
		cfg.Output.Compress = "lz4"
		_, err := NewProcessor(&ProcessorConfig{Config: cfg})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeConfigError, apperrors.GetErrorCode(err))
	})

	t.Run("Storage", func(t *testing.T) {
		cfg := config.Default()
		cfg.Output.Storage.Type = "cos"
		_, err := NewProcessor(&ProcessorConfig{Config: cfg})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeStorageError, apperrors.GetErrorCode(err))
	})
}
