package adapter

// FormCodec returns the passthrough codec. Request data is handed to the
// transport untouched and responses decode to {"text": body}.
func FormCodec() *Codec {
	return mustCodec(CodecForm, CodecFuncs{
		Encode: func(data any, _ CodecOptions) (any, error) {
			return data, nil
		},
		Decode: func(resp *Response, _ CodecOptions) (any, error) {
			return map[string]any{"text": resp.Text()}, nil
		},
	})
}
