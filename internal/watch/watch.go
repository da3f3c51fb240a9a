// Package watch polls a Feedly account's unread counts on a cron schedule
// and reports every change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

const defaultPollTimeout = 2 * time.Minute

// Source yields the current unread counts. *feedly.Client satisfies it.
type Source interface {
	UnreadCounts(ctx context.Context) (types.UnreadCounts, error)
}

// Snapshot is the state observed by one poll.
type Snapshot struct {
	At     time.Time
	Total  int
	Counts types.UnreadCounts
	// Delta holds the per-category change since the previous poll. Categories
	// that disappeared are reported with a negative delta.
	Delta map[types.CategoryKey]int
}

// NotifyFunc receives a snapshot whenever the counts changed.
type NotifyFunc func(ctx context.Context, snap Snapshot)

// Watcher runs polls on a schedule. Overlapping runs are skipped, so the
// source is never called concurrently by the watcher.
type Watcher struct {
	ctx     context.Context
	cron    *cron.Cron
	spec    string
	source  Source
	notify  NotifyFunc
	timeout time.Duration
	log     *slog.Logger

	mu   sync.Mutex
	last map[types.CategoryKey]int
	seen bool
}

// New creates a Watcher. spec is a five-field cron expression or a
// descriptor such as "@every 5m".
func New(ctx context.Context, spec string, source Source, notify NotifyFunc, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Watcher{
		ctx:     ctx,
		cron:    c,
		spec:    spec,
		source:  source,
		notify:  notify,
		timeout: defaultPollTimeout,
		log:     log,
	}
}

// Start schedules the poll and starts the cron runner.
func (w *Watcher) Start() error {
	if _, err := w.cron.AddFunc(w.spec, w.poll); err != nil {
		return fmt.Errorf("schedule %q: %w", w.spec, err)
	}
	w.cron.Start()
	return nil
}

// Stop stops the runner and waits for a running poll to finish.
func (w *Watcher) Stop() {
	<-w.cron.Stop().Done()
}

func (w *Watcher) poll() {
	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		w.log.InfoContext(ctx, "Watcher context is done", "error", ctx.Err())
		return
	default:
	}

	if _, err := w.Poll(ctx); err != nil {
		w.log.ErrorContext(ctx, "Failed to poll unread counts", "error", err)
	}
}

// Poll fetches the counts once and notifies when they differ from the
// previous poll. The first successful poll always notifies. It reports
// whether a notification was sent.
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	counts, err := w.source.UnreadCounts(ctx)
	if err != nil {
		return false, err
	}

	current := make(map[types.CategoryKey]int, len(counts))
	total := 0
	for key, agg := range counts {
		current[key] = agg.Total
		total += agg.Total
	}

	w.mu.Lock()
	delta := diff(w.last, current)
	first := !w.seen
	w.last = current
	w.seen = true
	w.mu.Unlock()

	if !first && len(delta) == 0 {
		w.log.DebugContext(ctx, "Unread counts unchanged", "total", total)
		return false, nil
	}

	w.log.InfoContext(ctx, "Unread counts changed",
		"total", total,
		"categories", len(current),
		"changedCategories", len(delta))

	if w.notify != nil {
		w.notify(ctx, Snapshot{
			At:     time.Now(),
			Total:  total,
			Counts: counts,
			Delta:  delta,
		})
	}
	return true, nil
}

func diff(prev, cur map[types.CategoryKey]int) map[types.CategoryKey]int {
	delta := make(map[types.CategoryKey]int)
	for key, n := range cur {
		if d := n - prev[key]; d != 0 {
			delta[key] = d
		}
	}
	for key, n := range prev {
		if _, ok := cur[key]; !ok && n != 0 {
			delta[key] = -n
		}
	}
	return delta
}

// Last returns the totals seen by the most recent successful poll.
func (w *Watcher) Last() map[types.CategoryKey]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return maps.Clone(w.last)
}
