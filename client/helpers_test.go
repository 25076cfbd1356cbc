package client

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kbukum/tapioca/adapter"
	"github.com/kbukum/tapioca/logger"
)

const testRoot = "https://api.example.com/v1"

type reply struct {
	status  int
	body    string
	headers map[string]string
	err     error
}

// stubTransport answers requests from a queue of replies, repeating the last
// one when the queue runs out.
type stubTransport struct {
	mu      sync.Mutex
	replies []reply
	sent    []adapter.RequestKwargs
}

func replies(rs ...reply) *stubTransport {
	return &stubTransport{replies: rs}
}

func (s *stubTransport) Send(_ context.Context, kw adapter.RequestKwargs) (*adapter.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, kw)
	r := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range r.headers {
		headers[k] = v
	}
	return &adapter.Response{StatusCode: r.status, Headers: headers, Body: []byte(r.body)}, nil
}

func (s *stubTransport) requests() []adapter.RequestKwargs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]adapter.RequestKwargs(nil), s.sent...)
}

func okReply(body string) reply { return reply{status: http.StatusOK, body: body} }

type sleeper struct {
	mu    sync.Mutex
	waits []time.Duration
	err   error
}

func (s *sleeper) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return s.err
}

func newTestClient(t *testing.T, tr Transport, adapterOpts ...adapter.Option) (*Client, *sleeper) {
	t.Helper()
	a, err := adapter.New(adapter.JSONCodec(), append([]adapter.Option{adapter.WithLogger(logger.NewNop())}, adapterOpts...)...)
	require.NoError(t, err)

	s := &sleeper{}
	c, err := New(a, tr, &adapter.APIParams{
		APIRoot: testRoot,
		Resources: map[string]string{
			"user":  "/users/{id}",
			"users": "/users",
		},
	}, WithLogger(logger.NewNop()), WithSleep(s.sleep))
	require.NoError(t, err)
	return c, s
}
