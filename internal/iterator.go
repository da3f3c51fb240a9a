package internal

import (
	"context"
	"errors"

	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

// ErrNoMoreEntries is returned by EntryIterator.Next once the stream is drained.
var ErrNoMoreEntries = errors.New("no more entries available")

// PageFunc fetches one stream page starting at continuation ("" for the
// first page of a fresh stream).
type PageFunc func(ctx context.Context, continuation string) (*types.StreamPage, error)

// EntryIteratorOptions controls stream iteration.
type EntryIteratorOptions struct {
	// Filter drops entries for which it returns false.
	Filter func(*types.Entry) bool
	// MaxPages stops iteration after this many fetches. Zero means unbounded.
	MaxPages int
	// Continuation resumes a stream from a previously saved token.
	Continuation string
}

// EntryIterator walks a stream entry by entry, fetching pages lazily by
// continuation token. It issues exactly one request per page and stops once a
// page comes back without a continuation.
type EntryIterator struct {
	ctx          context.Context
	fetch        PageFunc
	filter       func(*types.Entry) bool
	maxPages     int
	pages        int
	buffer       []*types.Entry
	bufferIdx    int
	continuation string
	hasMore      bool
	err          error
}

// NewEntryIterator creates a new entry iterator. opts may be nil.
func NewEntryIterator(ctx context.Context, fetch PageFunc, opts *EntryIteratorOptions) *EntryIterator {
	if opts == nil {
		opts = &EntryIteratorOptions{}
	}
	return &EntryIterator{
		ctx:          ctx,
		fetch:        fetch,
		filter:       opts.Filter,
		maxPages:     opts.MaxPages,
		continuation: opts.Continuation,
		hasMore:      true,
	}
}

// HasNext reports whether Next may yield another entry. It can return true
// when the remaining pages turn out to be empty; Next then returns
// ErrNoMoreEntries.
func (it *EntryIterator) HasNext() bool {
	if it.err != nil {
		return false
	}
	return it.bufferIdx < len(it.buffer) || it.hasMore
}

// Next returns the next entry, fetching the following page when the buffer
// is exhausted.
func (it *EntryIterator) Next() (*types.Entry, error) {
	for {
		if it.err != nil {
			return nil, it.err
		}

		if it.bufferIdx >= len(it.buffer) {
			if !it.hasMore {
				return nil, ErrNoMoreEntries
			}
			if err := it.nextPage(); err != nil {
				it.err = err
				return nil, err
			}
			continue
		}

		entry := it.buffer[it.bufferIdx]
		it.bufferIdx++

		if entry == nil {
			continue
		}
		if it.filter != nil && !it.filter(entry) {
			continue
		}
		return entry, nil
	}
}

func (it *EntryIterator) nextPage() error {
	page, err := it.fetch(it.ctx, it.continuation)
	if err != nil {
		return err
	}
	it.pages++

	it.buffer = page.Items
	it.bufferIdx = 0
	it.continuation = page.Continuation

	if !page.HasMore() || (it.maxPages > 0 && it.pages >= it.maxPages) {
		it.hasMore = false
	}
	return nil
}

// Continuation returns the token for the page after the last one fetched.
// It can be persisted to resume iteration later.
func (it *EntryIterator) Continuation() string {
	return it.continuation
}

// Pages returns how many pages have been fetched so far.
func (it *EntryIterator) Pages() int {
	return it.pages
}

// Collect drains the iterator into a slice, stopping after limit entries
// when limit is positive.
func (it *EntryIterator) Collect(limit int) ([]*types.Entry, error) {
	var entries []*types.Entry
	for it.HasNext() {
		if limit > 0 && len(entries) >= limit {
			break
		}
		entry, err := it.Next()
		if errors.Is(err, ErrNoMoreEntries) {
			break
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
