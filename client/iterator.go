package client

import (
	"context"

	"github.com/kbukum/tapioca/adapter"
	"github.com/kbukum/tapioca/logger"
)

// PageOptions bounds an Iterator. Zero values mean no limit.
type PageOptions struct {
	MaxPages int
	MaxItems int
}

// Iterator walks the items of a paginated resource, fetching one page at a
// time as items are consumed.
type Iterator struct {
	client *Client
	opts   PageOptions

	// next is the call input of the page still to fetch; nil when done.
	next    *adapter.RequestKwargs
	items   []any
	pos     int
	pages   int
	yielded int
	err     error
	closed  bool
}

// Pages returns an iterator over the items of kw and the pages after it.
// Each page is a full Call, so refresh, retry and the exception policy apply
// to every page. The pager receives the current page's call input and
// returns the next one.
//
// Iteration stops when the pager returns nil, a page has no items, or a limit
// in opts is reached. Without limits, a pager that never returns nil keeps
// the iterator going forever.
func (c *Client) Pages(kw adapter.RequestKwargs, opts PageOptions) *Iterator {
	start := kw
	return &Iterator{client: c, opts: opts, next: &start}
}

// Next returns the next item. The boolean is false once iteration is over;
// after an error every call returns that error.
func (it *Iterator) Next(ctx context.Context) (any, bool, error) {
	for {
		if it.closed || it.err != nil {
			return nil, false, it.err
		}
		if it.opts.MaxItems > 0 && it.yielded >= it.opts.MaxItems {
			return nil, false, nil
		}
		if it.pos < len(it.items) {
			item := it.items[it.pos]
			it.pos++
			it.yielded++
			return item, true, nil
		}
		if it.next == nil || (it.opts.MaxPages > 0 && it.pages >= it.opts.MaxPages) {
			return nil, false, nil
		}
		if err := it.fetch(ctx); err != nil {
			it.err = err
			return nil, false, err
		}
	}
}

func (it *Iterator) fetch(ctx context.Context) error {
	input := *it.next
	res, err := it.client.Call(ctx, input)
	if err != nil {
		return err
	}
	it.pages++

	data, resp := res.Last()
	items, err := it.client.adapter.IteratorList(data)
	if err != nil {
		return err
	}
	it.items, it.pos = items, 0
	if len(items) == 0 {
		it.next = nil
		return nil
	}

	next, err := it.client.adapter.IteratorNextRequestKwargs(input, data, resp)
	if err != nil {
		return err
	}
	it.next = next

	it.client.log.WithContext(ctx).Debug("page fetched", logger.Fields(
		logger.FieldPage, it.pages,
		logger.FieldURL, input.URL,
		"items", len(items),
		"more", next != nil,
	))
	return nil
}

// All drains the iterator.
func (it *Iterator) All(ctx context.Context) ([]any, error) {
	var out []any
	for {
		item, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, item)
	}
}

// Pages returns the number of pages fetched so far.
func (it *Iterator) Pages() int { return it.pages }

// Close stops the iterator. Further calls to Next report no items.
func (it *Iterator) Close() {
	it.closed = true
	it.items = nil
	it.next = nil
}
