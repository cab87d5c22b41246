// Package jsonx is the JSON engine used by the codec and the model types. It
// wraps frozen bytedance/sonic configurations that follow encoding/json
// semantics (Marshaler/Unmarshaler hooks, RawMessage, sorted map keys) so the
// rest of the module never depends on sonic directly.
package jsonx

import (
	"bytes"
	"encoding/json"

	"github.com/bytedance/sonic"
)

var (
	api = sonic.Config{
		EscapeHTML:       true,
		SortMapKeys:      true,
		CompactMarshaler: true,
		CopyString:       true, // decoded strings must not alias the input buffer
		ValidateString:   true,
	}.Froze()

	strictAPI = sonic.Config{
		EscapeHTML:            true,
		SortMapKeys:           true,
		CompactMarshaler:      true,
		CopyString:            true,
		ValidateString:        true,
		DisallowUnknownFields: true,
	}.Froze()
)

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) { return api.Marshal(v) }

// Unmarshal parses data into v. Unknown object keys are ignored.
func Unmarshal(data []byte, v any) error { return api.Unmarshal(data, v) }

// UnmarshalStrict parses data into v and rejects object keys that do not map
// to a field of v.
func UnmarshalStrict(data []byte, v any) error { return strictAPI.Unmarshal(data, v) }

// Valid reports whether data is a well-formed JSON value.
func Valid(data []byte) bool { return api.Valid(data) }

// IsNull reports whether data is the JSON literal null.
func IsNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// Kind returns the first significant byte of data: '{', '[', '"', 't', 'f',
// 'n', a digit or '-'. It returns 0 for empty input.
func Kind(data []byte) byte {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

// Clone returns a copy of data that shares no memory with the input.
func Clone(data []byte) json.RawMessage {
	if data == nil {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
