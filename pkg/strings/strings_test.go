package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytesToStringAliases(t *testing.T) {
	b := []byte("hello")
	s := BytesToString(b)
	assert.Equal(t, "hello", s)
	assert.Equal(t, "", BytesToString(nil))

	back := StringToBytes(s)
	assert.Equal(t, b, back)
	assert.Nil(t, StringToBytes(""))
}

func TestViewAccessors(t *testing.T) {
	buf := []byte("alpha,beta,alpha")
	v := View{Off: 6, Len: 4}

	assert.Equal(t, []byte("beta"), v.Bytes(buf))
	assert.Equal(t, "beta", v.String(buf))
	assert.Equal(t, "beta", v.Clone(buf))
}

func TestViewCloneIsDetached(t *testing.T) {
	buf := []byte("abcdef")
	v := View{Off: 0, Len: 3}
	owned := v.Clone(buf)
	buf[0] = 'z'
	assert.Equal(t, "abc", owned)
	assert.Equal(t, "zbc", v.String(buf))
}

func TestViewHashAndEquality(t *testing.T) {
	buf := []byte("alpha,beta,alpha")
	first := View{Off: 0, Len: 5}
	last := View{Off: 11, Len: 5}
	mid := View{Off: 6, Len: 4}

	assert.Equal(t, first.Hash(buf), last.Hash(buf))
	assert.True(t, first.EqualContent(buf, last, buf))
	assert.False(t, first.EqualContent(buf, mid, buf))

	other := []byte("alpha")
	assert.True(t, first.EqualContent(buf, View{Off: 0, Len: 5}, other))
}

func TestClone(t *testing.T) {
	assert.Equal(t, "", Clone(""))
	b := []byte("shared")
	s := BytesToString(b)
	owned := Clone(s)
	b[0] = 'x'
	assert.Equal(t, "shared", owned)
}
