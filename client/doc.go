// Package client runs tapioca adapters against a transport.
//
// A Client owns the caller loop: it asks the adapter for the physical
// requests of a call, sends them one at a time, classifies every response,
// and drives the adapter's refresh, retry, exception and extra-request
// policies. Pages walks paginated resources lazily.
//
//	a, _ := adapter.New(adapter.JSONCodec(),
//	    adapter.WithPager(adapter.LinkPager{ItemsKey: "data", NextKey: "links.next"}),
//	)
//	t, _ := client.NewHTTPTransport(httpclient.Config{Timeout: 10 * time.Second})
//	c, _ := client.New(a, t, &adapter.APIParams{
//	    APIRoot:   "https://api.example.com/v1",
//	    Resources: map[string]string{"user": "/users/{id}", "users": "/users"},
//	})
//
//	kw, _ := c.Resource("user", map[string]any{"id": 42})
//	res, err := c.Call(ctx, kw)
//
//	users, _ := c.Resource("users", nil)
//	all, err := c.Pages(users, client.PageOptions{MaxPages: 10}).All(ctx)
//
// Every physical request gets a request ID, a debug log line, a
// "tapioca.request" span and a "tapioca.responses" count.
package client
