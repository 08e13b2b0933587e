package listing

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Picker drives a searchable combobox over a Source: debounced search,
// incremental page loading, and snapshots safe to render from any goroutine.
// A search started after another supersedes it; the superseded response is
// dropped when it lands. Close releases the pending debounce timer and
// detaches any in-flight fetch.
type Picker[T any] struct {
	source   Source[T]
	debounce time.Duration
	pageSize int

	mu         sync.Mutex
	generation uint64
	timer      *time.Timer
	closed     bool

	search  string
	items   []T
	total   int64
	hasMore bool
	loading bool
	err     error
}

// PickerState is a point-in-time snapshot of a picker.
type PickerState[T any] struct {
	Search  string
	Items   []T
	Total   int64
	HasMore bool
	Loading bool
	Err     error
}

// NewPicker builds a picker. A zero debounce fetches synchronously inside
// SetSearch, which server-side callers and tests rely on.
func NewPicker[T any](source Source[T], debounce time.Duration, pageSize int) *Picker[T] {
	if pageSize <= 0 {
		pageSize = DefaultLimit
	}
	return &Picker[T]{source: source, debounce: debounce, pageSize: pageSize}
}

// SetSearch replaces the active search term and schedules a reload of the
// first page. Rapid consecutive calls collapse into the last one.
func (p *Picker[T]) SetSearch(ctx context.Context, term string) {
	term = strings.TrimSpace(term)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.search = term
	p.generation++
	gen := p.generation
	p.loading = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.debounce <= 0 {
		p.mu.Unlock()
		p.fetch(ctx, gen, term, 0, false)
		return
	}
	p.timer = time.AfterFunc(p.debounce, func() {
		p.fetch(ctx, gen, term, 0, false)
	})
	p.mu.Unlock()
}

// LoadMore appends the next page of the current search. It is a no-op while
// a load is running or when the source is exhausted.
func (p *Picker[T]) LoadMore(ctx context.Context) {
	p.mu.Lock()
	if p.closed || p.loading || !p.hasMore {
		p.mu.Unlock()
		return
	}
	gen := p.generation
	term := p.search
	offset := len(p.items)
	p.loading = true
	p.mu.Unlock()

	p.fetch(ctx, gen, term, offset, true)
}

// Snapshot copies the current state for rendering.
func (p *Picker[T]) Snapshot() PickerState[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := make([]T, len(p.items))
	copy(items, p.items)
	return PickerState[T]{
		Search:  p.search,
		Items:   items,
		Total:   p.total,
		HasMore: p.hasMore,
		Loading: p.loading,
		Err:     p.err,
	}
}

// Close stops the pending debounce and drops whatever is in flight. The
// picker stays closed; further calls are no-ops.
func (p *Picker[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.generation++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.items = nil
	p.loading = false
}

func (p *Picker[T]) fetch(ctx context.Context, gen uint64, term string, offset int, appendPage bool) {
	page, err := p.source.Fetch(ctx, Query{Search: term, Offset: offset, Limit: p.pageSize})

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || gen != p.generation {
		return
	}
	p.loading = false
	if err != nil {
		p.err = err
		return
	}
	p.err = nil
	if appendPage {
		p.items = append(p.items, page.Items...)
	} else {
		p.items = page.Items
	}
	p.total = page.TotalCount
	p.hasMore = page.HasMore
}
