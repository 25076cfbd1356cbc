package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/tapioca/adapter"
	apperrors "github.com/kbukum/tapioca/errors"
)

func linkPager() adapter.Option {
	return adapter.WithPager(adapter.LinkPager{ItemsKey: "items", NextKey: "next"})
}

func TestPages_TwoPages(t *testing.T) {
	tr := replies(
		okReply(`{"items":[1,2],"next":"/v1/users?page=2"}`),
		okReply(`{"items":[3],"next":null}`),
	)
	c, _ := newTestClient(t, tr, linkPager())
	kw, err := c.Resource("users", nil)
	require.NoError(t, err)

	it := c.Pages(kw, PageOptions{})
	items, err := it.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, items)
	assert.Equal(t, 2, it.Pages())

	sent := tr.requests()
	require.Len(t, sent, 2)
	assert.Equal(t, testRoot+"/users", sent[0].URL)
	assert.Equal(t, "https://api.example.com/v1/users?page=2", sent[1].URL)

	_, more, err := it.Next(context.Background())
	assert.NoError(t, err)
	assert.False(t, more, "exhausted iterator stays exhausted")
	assert.Len(t, tr.requests(), 2)
}

func TestPages_IsLazy(t *testing.T) {
	tr := replies(
		okReply(`{"items":[1,2],"next":"/v1/users?page=2"}`),
		okReply(`{"items":[3],"next":null}`),
	)
	c, _ := newTestClient(t, tr, linkPager())
	it := c.Pages(adapter.RequestKwargs{URL: testRoot + "/users"}, PageOptions{})
	ctx := context.Background()

	assert.Empty(t, tr.requests())
	for _, want := range []float64{1, 2} {
		item, ok, err := it.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, item)
	}
	assert.Len(t, tr.requests(), 1, "second page not fetched until needed")

	item, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3.0, item)
	assert.Len(t, tr.requests(), 2)
}

func TestPages_Limits(t *testing.T) {
	page := okReply(`{"items":[1,2],"next":"/v1/users?more"}`)

	t.Run("max items", func(t *testing.T) {
		tr := replies(page)
		c, _ := newTestClient(t, tr, linkPager())
		items, err := c.Pages(adapter.RequestKwargs{URL: testRoot + "/users"}, PageOptions{MaxItems: 3}).All(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []any{1.0, 2.0, 1.0}, items)
		assert.Len(t, tr.requests(), 2)
	})

	t.Run("max pages", func(t *testing.T) {
		tr := replies(page)
		c, _ := newTestClient(t, tr, linkPager())
		items, err := c.Pages(adapter.RequestKwargs{URL: testRoot + "/users"}, PageOptions{MaxPages: 3}).All(context.Background())
		require.NoError(t, err)
		assert.Len(t, items, 6)
		assert.Len(t, tr.requests(), 3)
	})
}

func TestPages_EmptyPageStops(t *testing.T) {
	tr := replies(okReply(`{"items":[],"next":"/v1/users?page=2"}`))
	c, _ := newTestClient(t, tr, linkPager())

	items, err := c.Pages(adapter.RequestKwargs{URL: testRoot + "/users"}, PageOptions{}).All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Len(t, tr.requests(), 1)
}

func TestPages_OffsetPager(t *testing.T) {
	tr := replies(okReply(`["a","b"]`), okReply(`["c","d"]`), okReply(`["e"]`))
	c, _ := newTestClient(t, tr, adapter.WithPager(adapter.OffsetPager{Limit: 2}))

	items, err := c.Pages(adapter.RequestKwargs{URL: testRoot + "/letters"}, PageOptions{}).All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c", "d", "e"}, items)

	sent := tr.requests()
	require.Len(t, sent, 3)
	assert.Equal(t, map[string]string{"offset": "4", "limit": "2"}, sent[2].Params)
}

func TestPages_ErrorIsSticky(t *testing.T) {
	tr := replies(okReply(`{"items":[1],"next":"/v1/users?page=2"}`), reply{status: 500})
	c, _ := newTestClient(t, tr, linkPager())
	it := c.Pages(adapter.RequestKwargs{URL: testRoot + "/users"}, PageOptions{})
	ctx := context.Background()

	items, err := it.All(ctx)
	assert.True(t, adapter.IsServerError(err))
	assert.Equal(t, []any{1.0}, items)

	_, ok, err2 := it.Next(ctx)
	assert.False(t, ok)
	assert.Same(t, err, err2)
	assert.Len(t, tr.requests(), 2)
}

func TestPages_WithoutPager(t *testing.T) {
	c, _ := newTestClient(t, replies(okReply(`[1]`)))
	_, err := c.Pages(adapter.RequestKwargs{URL: testRoot}, PageOptions{}).All(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotImplemented))
}

func TestPages_Close(t *testing.T) {
	tr := replies(okReply(`{"items":[1,2],"next":"/v1/users?page=2"}`))
	c, _ := newTestClient(t, tr, linkPager())
	it := c.Pages(adapter.RequestKwargs{URL: testRoot + "/users"}, PageOptions{})
	ctx := context.Background()

	_, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	it.Close()
	_, ok, err = it.Next(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, tr.requests(), 1)
}

func TestPages_PagerError(t *testing.T) {
	boom := errors.New("bad cursor")
	tr := replies(okReply(`{"items":[1]}`))
	c, _ := newTestClient(t, tr, adapter.WithPager(adapter.PagerFuncs{
		ItemsFunc: func(data any) ([]any, error) { return data.(map[string]any)["items"].([]any), nil },
		NextFunc: func(adapter.RequestKwargs, any, *adapter.Response) (*adapter.RequestKwargs, error) {
			return nil, boom
		},
	}))

	_, err := c.Pages(adapter.RequestKwargs{URL: testRoot}, PageOptions{}).All(context.Background())
	assert.ErrorIs(t, err, boom)
}
