package adapter

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/kbukum/tapioca/errors"
)

// ContentTypeJSON is the request content type set by the JSON codec.
const ContentTypeJSON = "application/json"

// JSONCodec returns the JSON codec.
func JSONCodec() *Codec {
	return mustCodec(CodecJSON, CodecFuncs{
		Encode:       encodeJSON,
		Decode:       decodeJSON,
		ErrorMessage: jsonErrorMessage,
		Headers: func() map[string]string {
			return map[string]string{"Content-Type": ContentTypeJSON}
		},
	})
}

func encodeJSON(data any, _ CodecOptions) (any, error) {
	if isEmpty(data) {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, apperrors.MalformedPayload("cannot encode request data as JSON").WithCause(err)
	}
	return b, nil
}

func decodeJSON(resp *Response, _ CodecOptions) (any, error) {
	if resp.Blank() {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, apperrors.DecodeFailed("json", err)
	}
	return out, nil
}

// jsonErrorMessage reads the "error" field, decoding the raw body first when
// no data was decoded (404 and 5xx skip decoding).
func jsonErrorMessage(data any, resp *Response) string {
	if isEmpty(data) && !resp.Blank() {
		var raw any
		if err := json.Unmarshal(resp.Body, &raw); err != nil {
			return ""
		}
		data = raw
	}
	m, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	msg, ok := m["error"]
	if !ok || msg == nil {
		return ""
	}
	if s, ok := msg.(string); ok {
		return s
	}
	return fmt.Sprint(msg)
}
