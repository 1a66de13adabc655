package reachability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stripclass/internal/classfile"
	"github.com/stripclass/internal/classfile/classfiletest"
)

func TestRunChainTakesDepthPlusOneRounds(t *testing.T) {
	b := classfiletest.New("A", "java/lang/Object")
	// Fieldref -> Class -> Utf8 and Fieldref -> NameAndType -> Utf8 x2,
	// referenced by nothing.
	b.Fieldref("x/Dead", "deadField", "Lx/Dead;")
	cf := b.Build()
	before := cf.Pool.Count()

	stats, err := Run(context.Background(), cf, &Options{Verify: true})
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Rounds)
	assert.Equal(t, []int{1, 2, 3, 0}, stats.Removed)
	assert.Equal(t, before, stats.Before)
	assert.Equal(t, before-6, stats.After)
	assert.Equal(t, 6, stats.TotalRemoved())

	// Only this, super and their names remain.
	assert.Equal(t, 5, cf.Pool.Count())
	name, err := cf.Name()
	require.NoError(t, err)
	assert.Equal(t, "A", name)
}

func TestRunNothingToRemove(t *testing.T) {
	cf := classfiletest.New("A", "java/lang/Object").Build()

	stats, err := Run(context.Background(), cf, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Rounds)
	assert.Equal(t, []int{0}, stats.Removed)

	n, valid := cf.Pool.RefCount(int(cf.ThisClass))
	assert.True(t, valid)
	assert.Equal(t, 1, n)
}

func TestRunKeepsWideConstantPairs(t *testing.T) {
	b := classfiletest.New("A", "java/lang/Object")
	b.Utf8("unused")
	b.Long(99)
	long := b.Long(1 << 50)
	b.Field(classfile.AccPublic|classfile.AccStatic|classfile.AccFinal, "BIG", "J",
		b.Attr("ConstantValue", &classfile.ConstantValue{Index: long}))
	cf := b.Build()

	_, err := Run(context.Background(), cf, &Options{Verify: true})
	require.NoError(t, err)

	cv := cf.Fields[0].Attributes[0].Value.(*classfile.ConstantValue)
	c, err := cf.Pool.Entry(cv.Index)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<50), c.(*classfile.ConstantLong).Value())
	assert.True(t, cf.Pool.IsPlaceholder(int(cv.Index)+1))

	for i := 1; i < cf.Pool.Count(); i++ {
		if l, ok := cf.Pool.At(i).(*classfile.ConstantLong); ok {
			assert.NotEqual(t, int64(99), l.Value())
		}
	}

	out := classfiletest.RoundTrip(t, cf)
	assert.NoError(t, classfile.Validate(out))
}

func TestRunRewritesBytecodeOperands(t *testing.T) {
	b := classfiletest.New("A", "java/lang/Object")
	for _, s := range []string{"a", "b", "c"} {
		b.String(s)
	}
	field := b.Fieldref("A", "count", "I")
	str := b.String("kept")
	b.Method(classfile.AccPublic|classfile.AccStatic, "get", "()I", &classfile.Code{
		MaxStack: 1,
		// ldc str; pop; getstatic field; ireturn
		Bytecode: []byte{0x12, byte(str), 0x57, 0xb2, byte(field >> 8), byte(field), 0xac},
	})
	cf := b.Build()

	_, err := Run(context.Background(), cf, &Options{Verify: true})
	require.NoError(t, err)

	code := cf.Methods[0].Code().Bytecode
	newStr := uint16(code[1])
	newField := uint16(code[4])<<8 | uint16(code[5])
	assert.Less(t, newStr, str)
	assert.Less(t, newField, field)

	c, err := cf.Pool.Entry(newStr)
	require.NoError(t, err)
	s, err := cf.Pool.Utf8(c.(*classfile.ConstantString).StringIndex)
	require.NoError(t, err)
	assert.Equal(t, "kept", s)

	class, nat, ok := classfile.MemberRef(mustEntry(t, cf.Pool, newField))
	require.True(t, ok)
	className, err := cf.Pool.ClassName(class)
	require.NoError(t, err)
	name, desc, err := cf.Pool.NameAndType(nat)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "count", "I"}, []string{className, name, desc})
}

func TestRunKeepsSampleValid(t *testing.T) {
	cf, err := classfile.Parse(classfiletest.Sample().Bytes(t), nil)
	require.NoError(t, err)

	stats, err := Run(context.Background(), cf, &Options{Verify: true})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalRemoved())
}

func TestMarkCountsReferences(t *testing.T) {
	b := classfiletest.New("A", "")
	obj := b.Class("java/lang/Object")
	b.Interface("java/lang/Object")
	b.Interface("java/lang/Object")
	cf := b.Build()

	require.NoError(t, Mark(cf))
	n, valid := cf.Pool.RefCount(int(obj))
	assert.True(t, valid)
	assert.Equal(t, 2, n)

	// Zero super is absent, not a reference to slot 0.
	n, _ = cf.Pool.RefCount(int(cf.ThisClass))
	assert.Equal(t, 1, n)
}

func TestMarkRejectsBadIndex(t *testing.T) {
	cf := classfiletest.New("A", "java/lang/Object").Build()
	cf.Interfaces = []uint16{500}

	err := Mark(cf)
	assert.ErrorIs(t, err, ErrInvariant)
	assert.ErrorIs(t, err, classfile.ErrBadIndex)

	_, err = Run(context.Background(), cf, nil)
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestCompactNeedsMark(t *testing.T) {
	cf := classfiletest.New("A", "java/lang/Object").Build()

	_, err := Compact(cf)
	assert.ErrorIs(t, err, ErrInvariant)

	require.NoError(t, Mark(cf))
	cf.Pool.Add(&classfile.ConstantUtf8{Bytes: []byte("late")})
	_, err = Compact(cf)
	assert.ErrorIs(t, err, ErrInvariant)
}

func mustEntry(t *testing.T, pool *classfile.ConstantPool, i uint16) classfile.Constant {
	t.Helper()
	c, err := pool.Entry(i)
	require.NoError(t, err)
	return c
}
