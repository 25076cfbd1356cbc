package adapter

import (
	"fmt"
	"reflect"

	apperrors "github.com/kbukum/tapioca/errors"
)

// CodecKind identifies the wire format a codec handles.
type CodecKind int

const (
	// CodecForm passes request bodies through and wraps responses as {"text": body}.
	CodecForm CodecKind = iota + 1
	// CodecJSON encodes and decodes JSON bodies.
	CodecJSON
	// CodecXML encodes mappings as XML documents and decodes XML responses.
	CodecXML
	// CodecCustom is any user-supplied format.
	CodecCustom
)

// String returns the string representation of the codec kind.
func (k CodecKind) String() string {
	switch k {
	case CodecForm:
		return "form"
	case CodecJSON:
		return "json"
	case CodecXML:
		return "xml"
	case CodecCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// ParseCodecKind maps a configuration name to a built-in codec kind.
func ParseCodecKind(name string) (CodecKind, error) {
	switch name {
	case "form":
		return CodecForm, nil
	case "json", "":
		return CodecJSON, nil
	case "xml":
		return CodecXML, nil
	default:
		return 0, apperrors.InvalidConfig(fmt.Sprintf("unknown codec %q", name))
	}
}

// CodecFuncs is the function table behind a codec.
type CodecFuncs struct {
	// Prepare moves codec options out of kw.Extra into kw.Codec. Optional.
	Prepare func(kw *RequestKwargs) error
	// Encode turns serialized request data into a body. Required.
	Encode func(data any, opts CodecOptions) (any, error)
	// Decode turns a response body into a native value. Required.
	Decode func(resp *Response, opts CodecOptions) (any, error)
	// ErrorMessage extracts a readable message from an error payload. Optional.
	ErrorMessage func(data any, resp *Response) string
	// Headers returns request headers the format requires. Optional.
	Headers func() map[string]string
}

// Codec is a content codec: a kind plus a validated function table.
type Codec struct {
	kind  CodecKind
	funcs CodecFuncs
}

// NewCodec validates funcs for kind. Missing required functions fail here
// rather than on the first request.
func NewCodec(kind CodecKind, funcs CodecFuncs) (*Codec, error) {
	if kind < CodecForm || kind > CodecCustom {
		return nil, apperrors.InvalidConfig(fmt.Sprintf("unknown codec kind %d", kind))
	}
	if funcs.Encode == nil {
		return nil, apperrors.NotImplemented("format_data_to_request").WithDetail("codec", kind.String())
	}
	if funcs.Decode == nil {
		return nil, apperrors.NotImplemented("response_to_native").WithDetail("codec", kind.String())
	}
	return &Codec{kind: kind, funcs: funcs}, nil
}

func mustCodec(kind CodecKind, funcs CodecFuncs) *Codec {
	c, err := NewCodec(kind, funcs)
	if err != nil {
		panic(err)
	}
	return c
}

// CodecFor returns the built-in codec for kind.
func CodecFor(kind CodecKind) (*Codec, error) {
	switch kind {
	case CodecForm:
		return FormCodec(), nil
	case CodecJSON:
		return JSONCodec(), nil
	case CodecXML:
		return XMLCodec(), nil
	default:
		return nil, apperrors.InvalidConfig(fmt.Sprintf("no built-in codec for %s", kind))
	}
}

// Kind returns the codec kind.
func (c *Codec) Kind() CodecKind { return c.kind }

func (c *Codec) prepare(kw *RequestKwargs) error {
	if c.funcs.Prepare == nil {
		return nil
	}
	return c.funcs.Prepare(kw)
}

func (c *Codec) encode(data any, opts CodecOptions) (any, error) {
	return c.funcs.Encode(data, opts)
}

func (c *Codec) decode(resp *Response, opts CodecOptions) (any, error) {
	return c.funcs.Decode(resp, opts)
}

func (c *Codec) errorMessage(data any, resp *Response) string {
	if c.funcs.ErrorMessage == nil {
		return defaultErrorMessage(data)
	}
	return c.funcs.ErrorMessage(data, resp)
}

func (c *Codec) headers() map[string]string {
	if c.funcs.Headers == nil {
		return nil
	}
	return c.funcs.Headers()
}

func defaultErrorMessage(data any) string {
	if data == nil {
		return ""
	}
	return fmt.Sprint(data)
}

// isEmpty reports whether a payload carries nothing worth encoding: nil,
// zero-length containers and strings, and zero scalars.
func isEmpty(data any) bool {
	if data == nil {
		return true
	}
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String, reflect.Chan:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	case reflect.Struct:
		return false
	default:
		return v.IsZero()
	}
}
