package adapter

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/clbanning/mxj/v2"
	"github.com/spf13/cast"

	apperrors "github.com/kbukum/tapioca/errors"
)

// ContentTypeXML is the request content type set by the XML codec.
const ContentTypeXML = "application/xml"

// Keyword prefixes routing call arguments to the XML encoder and decoder.
const (
	XMLUnparsePrefix = "xml_unparse__"
	XMLParsePrefix   = "xml_parse__"
)

const xmlHeader = `<?xml version="1.0" encoding="utf-8"?>` + "\n"

var (
	xmlUnparseOptions = map[string]bool{"root": true, "pretty": true, "indent": true, "full_document": true}
	xmlParseOptions   = map[string]bool{"cast": true}
)

// XMLCodec returns the XML codec. Mappings follow the mxj convention:
// attributes are keys prefixed with "-" and element text is "#text".
func XMLCodec() *Codec {
	return mustCodec(CodecXML, CodecFuncs{
		Prepare: prepareXML,
		Encode:  encodeXML,
		Decode:  decodeXML,
		Headers: func() map[string]string {
			return map[string]string{"Content-Type": ContentTypeXML}
		},
	})
}

// prepareXML strips prefixed options out of kw.Extra and validates them.
func prepareXML(kw *RequestKwargs) error {
	unparse := extractPrefixed(kw.Extra, XMLUnparsePrefix)
	parse := extractPrefixed(kw.Extra, XMLParsePrefix)
	if err := checkOptions(unparse, xmlUnparseOptions, XMLUnparsePrefix); err != nil {
		return err
	}
	if err := checkOptions(parse, xmlParseOptions, XMLParsePrefix); err != nil {
		return err
	}
	if len(unparse) > 0 {
		kw.Codec.Unparse = unparse
	}
	if len(parse) > 0 {
		kw.Codec.Parse = parse
	}
	return nil
}

func extractPrefixed(extra map[string]any, prefix string) map[string]any {
	out := make(map[string]any)
	for k, v := range extra {
		if name, ok := strings.CutPrefix(k, prefix); ok {
			out[name] = v
			delete(extra, k)
		}
	}
	return out
}

func checkOptions(opts map[string]any, known map[string]bool, prefix string) error {
	for name, v := range opts {
		if !known[name] {
			return apperrors.InvalidOption(prefix+name, "unknown option")
		}
		switch name {
		case "root", "indent":
			if _, ok := v.(string); !ok {
				return apperrors.InvalidOption(prefix+name, "must be a string")
			}
		default:
			if _, err := cast.ToBoolE(v); err != nil {
				return apperrors.InvalidOption(prefix+name, "must be a boolean")
			}
		}
	}
	return nil
}

func boolOption(opts map[string]any, name string, def bool) bool {
	v, ok := opts[name]
	if !ok {
		return def
	}
	return cast.ToBool(v)
}

func stringOption(opts map[string]any, name, def string) string {
	if v, ok := opts[name].(string); ok {
		return v
	}
	return def
}

func encodeXML(data any, opts CodecOptions) (any, error) {
	if isEmpty(data) {
		return nil, nil
	}
	switch v := data.(type) {
	case map[string]any:
		return unparseXML(v, opts.Unparse)
	case mxj.Map:
		return unparseXML(v, opts.Unparse)
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	}
	if m, ok := toStringMap(reflect.ValueOf(data)); ok {
		return unparseXML(m, opts.Unparse)
	}
	return nil, apperrors.MalformedPayload("Format not recognized, please enter an XML as string or a mapping").
		WithDetail("type", fmt.Sprintf("%T", data))
}

// toStringMap converts any map keyed by strings, such as map[string]string,
// into the map[string]any form mxj encodes. Nested maps and slices are
// converted too.
func toStringMap(v reflect.Value) (map[string]any, bool) {
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = xmlValue(iter.Value())
	}
	return out, true
}

func xmlValue(v reflect.Value) any {
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Map:
		if m, ok := toStringMap(v); ok {
			return m
		}
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		out := make([]any, v.Len())
		for i := range out {
			out[i] = xmlValue(v.Index(i))
		}
		return out
	}
	return v.Interface()
}

func unparseXML(m map[string]any, opts map[string]any) ([]byte, error) {
	var roots []string
	if root := stringOption(opts, "root", ""); root != "" {
		roots = append(roots, root)
	} else if len(m) != 1 {
		return nil, apperrors.MalformedPayload("Document must have exactly one root").
			WithDetail("roots", len(m))
	}

	var (
		b   []byte
		err error
	)
	if boolOption(opts, "pretty", false) {
		b, err = mxj.Map(m).XmlIndent("", stringOption(opts, "indent", "\t"), roots...)
	} else {
		b, err = mxj.Map(m).Xml(roots...)
	}
	if err != nil {
		return nil, apperrors.MalformedPayload("cannot encode mapping as XML").WithCause(err)
	}
	if boolOption(opts, "full_document", true) {
		b = append([]byte(xmlHeader), b...)
	}
	return b, nil
}

func decodeXML(resp *Response, opts CodecOptions) (any, error) {
	if resp.Blank() {
		return nil, nil
	}
	if !strings.Contains(strings.ToLower(resp.ContentType()), "xml") {
		return map[string]any{"text": resp.Text()}, nil
	}
	mv, err := mxj.NewMapXml(resp.Body, boolOption(opts.Parse, "cast", false))
	if err != nil {
		return nil, apperrors.DecodeFailed("xml", err)
	}
	return map[string]any(mv), nil
}
