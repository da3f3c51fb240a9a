package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

var (
	tech = types.CategoryKey{ID: "user/u/category/tech", Label: "Tech"}
	news = types.CategoryKey{ID: "user/u/category/news", Label: "News"}
)

// scriptedSource returns one snapshot per call, repeating the last one.
type scriptedSource struct {
	mu    sync.Mutex
	steps []map[types.CategoryKey]int
	err   error
	calls int
}

func (s *scriptedSource) UnreadCounts(context.Context) (types.UnreadCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	step := s.steps[min(s.calls-1, len(s.steps)-1)]
	counts := make(types.UnreadCounts, len(step))
	for key, n := range step {
		counts[key] = &types.CategoryAggregate{Total: n}
	}
	return counts, nil
}

func TestWatcher_PollNotifiesOnChange(t *testing.T) {
	t.Parallel()

	source := &scriptedSource{steps: []map[types.CategoryKey]int{
		{tech: 5, news: 2},
		{tech: 5, news: 2},
		{tech: 7},
	}}
	var snaps []Snapshot
	w := New(context.Background(), "@every 1h", source, func(_ context.Context, s Snapshot) {
		snaps = append(snaps, s)
	}, nil)

	ctx := context.Background()
	for i, want := range []bool{true, false, true} {
		notified, err := w.Poll(ctx)
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		if notified != want {
			t.Errorf("poll %d notified = %v, want %v", i, notified, want)
		}
	}

	if len(snaps) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(snaps))
	}
	if snaps[0].Total != 7 || snaps[0].Delta[tech] != 5 || snaps[0].Delta[news] != 2 {
		t.Errorf("first snapshot = %+v", snaps[0])
	}
	second := snaps[1]
	if second.Total != 7 || second.Delta[tech] != 2 || second.Delta[news] != -2 || len(second.Delta) != 2 {
		t.Errorf("second snapshot = %+v", second)
	}
	if last := w.Last(); last[tech] != 7 || len(last) != 1 {
		t.Errorf("Last() = %v", last)
	}
}

func TestWatcher_PollError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	w := New(context.Background(), "@every 1h", &scriptedSource{err: boom}, func(context.Context, Snapshot) {
		t.Error("notify must not run on error")
	}, nil)

	if _, err := w.Poll(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected source error, got %v", err)
	}
	if w.Last() != nil {
		t.Error("failed poll must not record state")
	}
}

func TestWatcher_StartRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	w := New(context.Background(), "every now and then", &scriptedSource{}, nil, nil)
	if err := w.Start(); err == nil {
		w.Stop()
		t.Fatal("expected schedule parse error")
	}
}

func TestWatcher_RunsOnSchedule(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the cron runner")
	}
	t.Parallel()

	source := &scriptedSource{steps: []map[types.CategoryKey]int{{tech: 1}}}
	fired := make(chan Snapshot, 1)
	w := New(context.Background(), "@every 1s", source, func(_ context.Context, s Snapshot) {
		select {
		case fired <- s:
		default:
		}
	}, nil)

	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	select {
	case s := <-fired:
		if s.Total != 1 {
			t.Errorf("snapshot total = %d", s.Total)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled poll never ran")
	}
}
