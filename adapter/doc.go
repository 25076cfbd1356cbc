// Package adapter implements the per-API side of a tapioca client.
//
// An Adapter is built from a content codec (form, JSON, XML or a custom
// function table) plus options. It turns call input into RequestKwargs,
// classifies responses, and exposes the hooks that the caller loop in the
// client package drives:
//
//   - 404 fails as KindNotFound404 and 5xx as KindServerError, both without
//     decoding the body.
//   - Any other status is decoded; a decode failure is returned as a
//     DECODE_FAILED error.
//   - Remaining 4xx statuses fail as KindClientError carrying the decoded body.
//
// Retry, re-authentication, exception handling, extra requests and
// pagination are policies with no-op defaults:
//
//	a, err := adapter.New(adapter.JSONCodec(),
//	    adapter.WithRetryPolicy(adapter.RetryOnStatus{MaxRetries: 3}),
//	    adapter.WithPager(adapter.LinkPager{ItemsKey: "data", NextKey: "next"}),
//	)
package adapter
