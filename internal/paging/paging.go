// Package paging turns offset-paged remote listings into lazy sequences.
//
// A sequence only fetches the next page once the consumer has drained the current one, so a consumer that stops
// early (break out of the range loop) never requests pages it does not need.
package paging

import (
	"context"
	"iter"
)

// Page is one response of a paged listing.
type Page[T any] struct {
	Items   []T
	HasMore bool
}

// PageFunc fetches up to limit items starting at offset.
type PageFunc[T any] func(ctx context.Context, offset, limit int) (Page[T], error)

// Items yields every item of fetch in order, limit items per request.
//
// A fetch error is yielded once with the zero value and ends the sequence. A page with no items ends the
// sequence even when the remote claims there are more.
func Items[T any](ctx context.Context, fetch PageFunc[T], limit int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		offset := 0
		for {
			if err := ctx.Err(); err != nil {
				var zero T
				yield(zero, err)
				return
			}

			page, err := fetch(ctx, offset, limit)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}

			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}

			if !page.HasMore || len(page.Items) == 0 {
				return
			}
			offset += len(page.Items)
		}
	}
}

// Collect drains seq, returning the items read before the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var items []T
	for item, err := range seq {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// TakeWhile yields items from seq while keep reports true and stops at the first item it rejects.
func TakeWhile[T any](seq iter.Seq2[T, error], keep func(T) bool) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for item, err := range seq {
			if err != nil {
				yield(item, err)
				return
			}
			if !keep(item) {
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// FromSlice serves items as fixed pages, for fixtures and in-memory listings.
func FromSlice[T any](items []T) PageFunc[T] {
	return func(_ context.Context, offset, limit int) (Page[T], error) {
		if offset >= len(items) {
			return Page[T]{}, nil
		}
		end := min(offset+limit, len(items))
		return Page[T]{Items: items[offset:end], HasMore: end < len(items)}, nil
	}
}
