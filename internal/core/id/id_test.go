package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsVersion7AndOrdered(t *testing.T) {
	a := New()
	b := New()
	assert.Equal(t, 7, int(a.Version()))
	assert.False(t, IsNil(a))
	assert.NotEqual(t, a, b)
}

func TestParseOptional(t *testing.T) {
	got, err := ParseOptional("")
	require.NoError(t, err)
	assert.Nil(t, got)

	v := New()
	got, err = ParseOptional(v.String())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, v, *got)

	_, err = ParseOptional("not-a-uuid")
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	v := New()
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(Ptr(v), nil))
	assert.True(t, Equal(Ptr(v), Ptr(v)))
	assert.False(t, Equal(Ptr(v), Ptr(New())))
}
