package toolbind

import "github.com/bytedance/sonic"

// Codec encodes and decodes JSON. The same codec decodes call input, re-encodes
// composite values for coercion and encodes structured results.
type Codec interface {
	Marshal(v any) ([]byte, error)
	MarshalIndent(v any, prefix, indent string) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// sonicCodec is std-compatible sonic with numbers decoded as json.Number, so a
// field's text survives untouched until it is parsed into the parameter type.
var sonicCodec = sonic.Config{
	EscapeHTML:       true,
	SortMapKeys:      true,
	CompactMarshaler: true,
	CopyString:       true,
	ValidateString:   true,
	UseNumber:        true,
}.Froze()

// DefaultCodec returns the codec used when WithCodec is not given.
func DefaultCodec() Codec { return sonicCodec }
