package jsonx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `json:"name"`
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	var s sample
	require.NoError(t, Unmarshal([]byte(`{"name":"a","extra":1}`), &s))
	require.Equal(t, "a", s.Name)
}

func TestUnmarshalStrictRejectsUnknownFields(t *testing.T) {
	var s sample
	require.Error(t, UnmarshalStrict([]byte(`{"name":"a","extra":1}`), &s))
	require.NoError(t, UnmarshalStrict([]byte(`{"name":"a"}`), &s))
}

func TestMarshalSortsMapKeys(t *testing.T) {
	out, err := Marshal(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1,"b":2}`, string(out))
	require.Equal(t, `{"a":1,"b":2}`, string(out))
}

func TestKindAndNull(t *testing.T) {
	require.Equal(t, byte('{'), Kind([]byte("  {}")))
	require.Equal(t, byte('"'), Kind([]byte("\n\"x\"")))
	require.Equal(t, byte(0), Kind(nil))
	require.True(t, IsNull([]byte(" null ")))
	require.False(t, IsNull([]byte(`"null"`)))
}

func TestValid(t *testing.T) {
	require.True(t, Valid([]byte(`{"a":[1,2]}`)))
	require.False(t, Valid([]byte(`{"a":`)))
}

func TestCloneDoesNotAlias(t *testing.T) {
	src := []byte(`{"a":1}`)
	c := Clone(src)
	src[2] = 'b'
	require.Equal(t, json.RawMessage(`{"a":1}`), c)
	require.Nil(t, Clone(nil))
}
