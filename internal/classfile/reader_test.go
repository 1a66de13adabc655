package classfile_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stripclass/internal/classfile"
	"github.com/stripclass/internal/classfile/classfiletest"
)

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// header is magic, version 0/52 and a pool count.
func header(count byte) []byte {
	return []byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 52, 0, count}
}

func TestDecodeErrors(t *testing.T) {
	sample := classfiletest.Sample().Bytes(t)

	tests := []struct {
		name string
		data func(t *testing.T) []byte
		want error
	}{
		{
			name: "bad magic",
			data: func(*testing.T) []byte { return []byte{0xca, 0xfe, 0xba, 0xbf, 0, 0, 0, 52} },
			want: classfile.ErrBadMagic,
		},
		{
			name: "empty input",
			data: func(*testing.T) []byte { return nil },
			want: classfile.ErrTruncated,
		},
		{
			name: "unknown pool tag",
			data: func(*testing.T) []byte { return append(header(2), 2, 0, 0) },
			want: classfile.ErrUnknownTag,
		},
		{
			name: "zero pool count",
			data: func(*testing.T) []byte { return header(0) },
			want: classfile.ErrBadIndex,
		},
		{
			name: "long in last slot",
			data: func(*testing.T) []byte { return append(header(2), 5, 0, 0, 0, 0, 0, 0, 0, 1) },
			want: classfile.ErrBadIndex,
		},
		{
			name: "truncated",
			data: func(*testing.T) []byte { return sample[:len(sample)-3] },
			want: classfile.ErrTruncated,
		},
		{
			name: "trailing data",
			data: func(*testing.T) []byte { return append(bytes.Clone(sample), 0) },
			want: classfile.ErrTrailingData,
		},
		{
			name: "attribute name not utf8",
			data: func(t *testing.T) []byte {
				b := classfiletest.New("A", "java/lang/Object")
				cf := b.Build()
				cf.Attributes = append(cf.Attributes, &classfile.Attribute{NameIndex: cf.ThisClass, Value: &classfile.Unknown{}})
				return b.Bytes(t)
			},
			want: classfile.ErrBadAttributeName,
		},
		{
			name: "attribute name out of range",
			data: func(t *testing.T) []byte {
				b := classfiletest.New("A", "java/lang/Object")
				cf := b.Build()
				cf.Attributes = append(cf.Attributes, &classfile.Attribute{NameIndex: 200, Value: &classfile.Unknown{}})
				return b.Bytes(t)
			},
			want: classfile.ErrBadAttributeName,
		},
		{
			name: "known attribute with extra bytes",
			data: func(t *testing.T) []byte {
				b := classfiletest.New("A", "java/lang/Object")
				b.ClassAttr("SourceFile", &classfile.Unknown{Raw: []byte{0, 1, 2}})
				return b.Bytes(t)
			},
			want: classfile.ErrAttributeLength,
		},
		{
			name: "unknown element tag",
			data: func(t *testing.T) []byte {
				b := classfiletest.New("A", "java/lang/Object")
				b.ClassAttr("RuntimeVisibleAnnotations", &classfile.Unknown{Raw: []byte{0, 1, 0, 1, 0, 1, 0, 1, 'x', 0, 1}})
				return b.Bytes(t)
			},
			want: classfile.ErrUnknownElementTag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data(t)

			cf, err := classfile.Parse(data, nil)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, cf)

			cf, err = classfile.Read(bytes.NewReader(data), nil)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, cf)
		})
	}
}

func TestCursor(t *testing.T) {
	c := classfile.NewCursor([]byte{0xca, 0xfe, 0x01, 0x02, 0x03}, classfile.HostEndian())

	v, err := c.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xcafe), v)
	assert.Equal(t, 3, c.Remaining())

	b, err := c.ReadBytes(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, b)
	assert.Equal(t, int64(4), c.Offset())

	_, err = c.ReadUint32()
	assert.ErrorIs(t, err, classfile.ErrTruncated)
	assert.Equal(t, int64(4), c.Offset())
}

func TestUnknownAttributePreserved(t *testing.T) {
	b := classfiletest.New("A", "java/lang/Object")
	b.ClassAttr("Module", &classfile.Unknown{Raw: []byte{9, 8, 7, 6}})

	cf := classfiletest.RoundTrip(t, b.Build())
	require.Len(t, cf.Attributes, 1)
	assert.Equal(t, classfile.AttrUnknown, cf.Attributes[0].Kind())
	assert.Equal(t, uint32(4), cf.Attributes[0].Length)
	assert.Equal(t, []byte{9, 8, 7, 6}, cf.Attributes[0].Info)
}
