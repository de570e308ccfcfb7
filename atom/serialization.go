package atom

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Method identifies one of the pluggable serialization methods named by
// the reserved "ser" key (section 4.5).
type Method string

const (
	// MethodNone passes values through as raw bytes; decode is identity.
	MethodNone Method = "none"
	// MethodMsgpack is the required baseline: values are msgpack-encoded,
	// including nested containers and the Variant sum type.
	MethodMsgpack Method = "msgpack"
	// MethodArrow is reserved for a columnar encoding and is not
	// implemented; encoding/decoding with it returns *Unsupported.
	MethodArrow Method = "arrow"
)

// serKey is the reserved entry key naming an entry's serialization method.
const serKey = "ser"

// Variant is the sum type msgpack encoding supports for section 4.5's
// "variant" requirement: exactly one of the fields is meaningful,
// discriminated by Tag.
type Variant struct {
	Tag   string
	Str   string
	Int   int64
	Float float64
	Bytes []byte
	Bool  bool
}

// Encode serializes v according to method, for use as one user value in an
// entry_write call.
func Encode(method Method, v interface{}) ([]byte, *Error) {
	switch method {
	case MethodNone, "":
		b, ok := v.([]byte)
		if !ok {
			if s, ok := v.(string); ok {
				return []byte(s), nil
			}
			return nil, newKindError(KindInvalidCommand, "MethodNone requires a []byte or string value")
		}
		return b, nil
	case MethodMsgpack:
		b, err := msgpack.Marshal(v)
		if err != nil {
			return nil, newKindError(KindInvalidCommand, "msgpack encode failed: "+err.Error())
		}
		return b, nil
	case MethodArrow:
		return nil, newKindError(KindUnsupportedCommand, "arrow serialization is not implemented")
	default:
		return nil, newKindError(KindInvalidCommand, "unknown serialization method: "+string(method))
	}
}

// Decode deserializes b according to method into out, which must be a
// pointer (as required by msgpack.Unmarshal) when method is MethodMsgpack.
//
// force_serialization support (section 4.5): callers that want to override
// an entry's declared ser value simply pass the override Method here
// instead of the one parsed from the entry -- the override is applied
// unconditionally, with no check against what the entry actually declared.
// Misuse yields garbage values, not errors, exactly as documented.
func Decode(method Method, b []byte, out interface{}) *Error {
	switch method {
	case MethodNone, "":
		switch o := out.(type) {
		case *[]byte:
			*o = b
		case *string:
			*o = string(b)
		default:
			return newKindError(KindInvalidCommand, "MethodNone requires a *[]byte or *string destination")
		}
		return nil
	case MethodMsgpack:
		if err := msgpack.Unmarshal(b, out); err != nil {
			return newKindError(KindInvalidCommand, "msgpack decode failed: "+err.Error())
		}
		return nil
	case MethodArrow:
		return newKindError(KindUnsupportedCommand, "arrow serialization is not implemented")
	default:
		return newKindError(KindInvalidCommand, "unknown serialization method: "+string(method))
	}
}

// methodFromFields returns the declared serialization method of an entry's
// fields, defaulting to MethodNone if the reserved ser key is absent.
func methodFromFields(fields []KVPair) Method {
	for _, f := range fields {
		if f.Key == serKey {
			return Method(f.Value)
		}
	}
	return MethodNone
}
