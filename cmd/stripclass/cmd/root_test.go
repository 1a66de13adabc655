package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stripclass/internal/classfile"
	"github.com/stripclass/internal/classfile/classfiletest"
	"github.com/stripclass/internal/disasm"
	"github.com/stripclass/internal/history"
	"github.com/stripclass/internal/stripper"
	apperrors "github.com/stripclass/pkg/errors"
)

// execute runs the root command with args and returns what it printed to
// stdout. Flag values are reset first since the commands are package
// globals.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	cleanup()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeClass(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func writeSample(t *testing.T, dir, name string) string {
	t.Helper()
	return writeClass(t, dir, name, classfiletest.Sample().Bytes(t))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stripclass.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRoot_BareFilePrunes(t *testing.T) {
	path := writeSample(t, t.TempDir(), "Sample.class")

	_, err := execute(t, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path + ".alt")
	require.NoError(t, err)
	out, err := classfile.Parse(data, nil)
	require.NoError(t, err)
	require.NoError(t, classfile.Validate(out))
	assert.Nil(t, classfile.FindAttribute(out.Attributes, classfile.AttrSourceFile))
}

func TestRoot_LegacyFlags(t *testing.T) {
	t.Run("Dump", func(t *testing.T) {
		path := writeSample(t, t.TempDir(), "Sample.class")
		out, err := execute(t, "-d", path)
		require.NoError(t, err)
		assert.Contains(t, out, "magic: cafebabe")
		assert.NoFileExists(t, path+".alt")
	})

	t.Run("Write", func(t *testing.T) {
		path := writeSample(t, t.TempDir(), "Sample.class")
		_, err := execute(t, "-w", path)
		require.NoError(t, err)

		in, err := os.ReadFile(path)
		require.NoError(t, err)
		out, err := os.ReadFile(path + ".alt")
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("Exclusive", func(t *testing.T) {
		path := writeSample(t, t.TempDir(), "Sample.class")
		_, err := execute(t, "-d", "-w", path)
		require.Error(t, err)
	})
}

func TestRoot_Errors(t *testing.T) {
	t.Run("NoFile", func(t *testing.T) {
		_, err := execute(t)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no class file specified!")
	})

	t.Run("MissingFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "Absent.class")
		_, err := execute(t, "prune", path)
		require.Error(t, err)
		assert.True(t, apperrors.IsIOError(err))
		assert.Contains(t, err.Error(), "unable to open class file "+path)
	})

	t.Run("BadConfig", func(t *testing.T) {
		path := writeSample(t, t.TempDir(), "Sample.class")
		conf := writeConfig(t, "codec:\n  byte_order: middle\n")
		_, err := execute(t, "--config", conf, path)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeConfigError, apperrors.GetErrorCode(err))
	})
}

func TestDump_JSON(t *testing.T) {
	path := writeSample(t, t.TempDir(), "Sample.class")

	out, err := execute(t, "dump", "--json", path)
	require.NoError(t, err)

	var view disasm.ClassView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "com/example/Sample", view.Name)
}

func TestPrune_ConfigSuffix(t *testing.T) {
	path := writeSample(t, t.TempDir(), "Sample.class")
	conf := writeConfig(t, "output:\n  suffix: .stub\n")

	_, err := execute(t, "--config", conf, "prune", path)
	require.NoError(t, err)
	assert.FileExists(t, path+".stub")
	assert.NoFileExists(t, path+".alt")
}

func TestBatch_Report(t *testing.T) {
	dir := t.TempDir()
	a := writeClass(t, dir, "com/example/A.class",
		classfiletest.New("com/example/A", "java/lang/Object").Bytes(t))
	b := writeClass(t, dir, "org/other/B.class",
		classfiletest.New("org/other/B", "java/lang/Object").Bytes(t))
	report := filepath.Join(t.TempDir(), "report.json")

	out, err := execute(t, "batch", "--include", "com/example/", "--workers", "2", "--report", report, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 files: 1 written, 0 skipped, 1 filtered, 0 failed")
	assert.FileExists(t, a+".alt")
	assert.NoFileExists(t, b+".alt")

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var sum stripper.Summary
	require.NoError(t, json.Unmarshal(data, &sum))
	assert.Equal(t, 2, sum.Files)
	assert.Len(t, sum.Results, 2)
}

func TestBatch_FailureExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "A.class")
	writeClass(t, dir, "Broken.class", []byte{0xca, 0xfe})

	out, err := execute(t, "batch", dir)
	require.Error(t, err)
	assert.True(t, apperrors.IsMalformedClass(err))
	assert.Contains(t, out, "1 failed")
	assert.FileExists(t, filepath.Join(dir, "A.class.alt"))
}

func TestBatch_RejectsDumpMode(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "A.class")
	_, err := execute(t, "batch", "--mode", "dump", dir)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetErrorCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "A.class.alt"))
}

func TestHistory(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	conf := writeConfig(t, "history:\n  enabled: true\n  type: sqlite\n  path: "+db+"\n")
	path := writeSample(t, t.TempDir(), "Sample.class")

	_, err := execute(t, "--config", conf, path)
	require.NoError(t, err)
	_, err = execute(t, "--config", conf, "prune", filepath.Join(t.TempDir(), "Absent.class"))
	require.Error(t, err)

	out, err := execute(t, "--config", conf, "history", "--json")
	require.NoError(t, err)
	var runs []history.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 2)
	assert.True(t, runs[0].Failed())
	assert.Equal(t, apperrors.CodeIOError, runs[0].ErrorCode)
	assert.Equal(t, "com/example/Sample", runs[1].ClassName)

	out, err = execute(t, "--config", conf, "history", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "RESULT")
	assert.Contains(t, out, apperrors.CodeIOError)
	assert.NotContains(t, out, "com/example/Sample")
}

func TestHistory_ByFile(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	conf := writeConfig(t, "history:\n  enabled: true\n  type: sqlite\n  path: "+db+"\n")
	dir := t.TempDir()
	first := writeSample(t, dir, "First.class")
	second := writeSample(t, dir, "Second.class")

	for _, path := range []string{first, second, first} {
		_, err := execute(t, "--config", conf, "prune", path)
		require.NoError(t, err)
	}

	out, err := execute(t, "--config", conf, "history", "--file", first, "--json")
	require.NoError(t, err)
	var runs []history.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.Equal(t, first, r.File)
	}
	assert.Greater(t, runs[0].ID, runs[1].ID)

	out, err = execute(t, "--config", conf, "history", "--file", first, "--limit", "1", "--json")
	require.NoError(t, err)
	runs = nil
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	assert.Len(t, runs, 1)

	out, err = execute(t, "--config", conf, "history", "--file", filepath.Join(dir, "Nope.class"), "--json")
	require.NoError(t, err)
	runs = nil
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	assert.Empty(t, runs)
}

func TestHistory_Disabled(t *testing.T) {
	_, err := execute(t, "history")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfigError, apperrors.GetErrorCode(err))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version "+Version)
}

func TestRoot_Profiling(t *testing.T) {
	path := writeSample(t, t.TempDir(), "Sample.class")
	dir := filepath.Join(t.TempDir(), "pprof")

	_, err := execute(t, "--pprof-dir", dir, "--pprof-profiles", "cpu,heap", path)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
