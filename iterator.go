package feedly

import (
	"context"

	"github.com/jamesprial/go-feedly-api-wrapper/internal"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

// StreamIterator walks a stream entry by entry, one StreamContent call per page.
type StreamIterator = internal.EntryIterator

// IteratorOptions controls filtering, page limits and resuming.
type IteratorOptions = internal.EntryIteratorOptions

// ErrNoMoreEntries is returned by StreamIterator.Next once the stream is drained.
var ErrNoMoreEntries = internal.ErrNoMoreEntries

// NewStreamIterator returns an iterator over request's stream. The request's
// Continuation is ignored; set IteratorOptions.Continuation to resume.
//
//	it := client.NewStreamIterator(ctx, types.StreamRequest{StreamID: id}, nil)
//	for it.HasNext() {
//		entry, err := it.Next()
//		if errors.Is(err, feedly.ErrNoMoreEntries) {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		fmt.Println(entry.DisplayTitle())
//	}
func (c *Client) NewStreamIterator(ctx context.Context, request types.StreamRequest, opts *IteratorOptions) *StreamIterator {
	return internal.NewEntryIterator(ctx, func(ctx context.Context, continuation string) (*types.StreamPage, error) {
		page := request
		page.Continuation = continuation
		return c.StreamContent(ctx, &page)
	}, opts)
}

// NewRecentlyReadIterator returns an iterator over the global read tag.
func (c *Client) NewRecentlyReadIterator(ctx context.Context, request types.RecentlyReadRequest, opts *IteratorOptions) *StreamIterator {
	return c.NewStreamIterator(ctx, *c.recentlyReadRequest(&request), opts)
}
