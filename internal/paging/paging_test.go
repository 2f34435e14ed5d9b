package paging

import (
	"context"
	"errors"
	"testing"
)

// countingFetch wraps FromSlice and records the offsets requested.
func countingFetch(items []int, offsets *[]int) PageFunc[int] {
	inner := FromSlice(items)
	return func(ctx context.Context, offset, limit int) (Page[int], error) {
		*offsets = append(*offsets, offset)
		return inner(ctx, offset, limit)
	}
}

func TestItems(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	t.Run("reads every page", func(t *testing.T) {
		var offsets []int
		got, err := Collect(Items(context.Background(), countingFetch(items, &offsets), 3))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != len(items) {
			t.Fatalf("expected %d items, got %d", len(items), len(got))
		}
		for i := range items {
			if got[i] != items[i] {
				t.Errorf("item %d = %d, want %d", i, got[i], items[i])
			}
		}
		want := []int{0, 3, 6}
		if len(offsets) != len(want) {
			t.Fatalf("expected offsets %v, got %v", want, offsets)
		}
		for i := range want {
			if offsets[i] != want[i] {
				t.Errorf("offset %d = %d, want %d", i, offsets[i], want[i])
			}
		}
	})

	t.Run("early stop skips later pages", func(t *testing.T) {
		var offsets []int
		for v, err := range Items(context.Background(), countingFetch(items, &offsets), 3) {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v == 2 {
				break
			}
		}
		if len(offsets) != 1 {
			t.Errorf("expected a single page request, got %v", offsets)
		}
	})

	t.Run("error ends the sequence", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		fetch := func(_ context.Context, offset, limit int) (Page[int], error) {
			calls++
			if offset > 0 {
				return Page[int]{}, boom
			}
			return Page[int]{Items: []int{1, 2}, HasMore: true}, nil
		}

		got, err := Collect(Items[int](context.Background(), fetch, 2))
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected the first page before the error, got %v", got)
		}
		if calls != 2 {
			t.Errorf("expected 2 calls, got %d", calls)
		}
	})

	t.Run("empty page stops", func(t *testing.T) {
		calls := 0
		fetch := func(context.Context, int, int) (Page[int], error) {
			calls++
			return Page[int]{HasMore: true}, nil
		}
		got, err := Collect(Items[int](context.Background(), fetch, 10))
		if err != nil || len(got) != 0 {
			t.Errorf("expected no items and no error, got %v %v", got, err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Collect(Items(ctx, FromSlice(items), 3))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestTakeWhile(t *testing.T) {
	var offsets []int
	seq := Items(context.Background(), countingFetch([]int{5, 4, 3, 2, 1}, &offsets), 2)

	got, err := Collect(TakeWhile(seq, func(v int) bool { return v > 3 }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != 5 || got[1] != 4 {
		t.Errorf("expected [5 4], got %v", got)
	}
	if len(offsets) != 2 {
		t.Errorf("expected 2 page requests, got %v", offsets)
	}
}
