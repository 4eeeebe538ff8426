package stream

import (
	"fmt"
	"slices"
	"sync"

	toolscache "k8s.io/client-go/tools/cache"

	"github.com/vyrodovalexey/ingressmonitor/internal/observability"
)

// Subscriber receives projected snapshots. The slice is owned by the
// subscriber.
type Subscriber[T any] func(snapshot []T)

// Option configures a Projector.
type Option[R, T any] func(*Projector[R, T])

// WithPredicate limits the projection to values satisfying include.
func WithPredicate[R, T any](include func(T) bool) Option[R, T] {
	return func(p *Projector[R, T]) {
		p.include = include
	}
}

// WithLogger sets the logger for the projector.
func WithLogger[R, T any](logger observability.Logger) Option[R, T] {
	return func(p *Projector[R, T]) {
		p.logger = logger
	}
}

// Projector keeps the list of live objects that satisfy a predicate, mapped
// from the informer type R to the domain type T and identified by key.
type Projector[R, T any] struct {
	mapper  func(R) T
	key     func(T) string
	include func(T) bool
	logger  observability.Logger

	mu          sync.Mutex
	items       []T
	subscribers map[uint64]Subscriber[T]
	nextID      uint64
}

var _ toolscache.ResourceEventHandler = (*Projector[any, any])(nil)

// NewProjector creates a projector. key must return the stable identity
// of a value, such as namespace/name.
func NewProjector[R, T any](mapper func(R) T, key func(T) string, opts ...Option[R, T]) *Projector[R, T] {
	p := &Projector[R, T]{
		mapper:      mapper,
		key:         key,
		include:     func(T) bool { return true },
		logger:      observability.NopLogger(),
		subscribers: make(map[uint64]Subscriber[T]),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe registers fn and immediately hands it the current snapshot. The
// returned function removes the subscription.
func (p *Projector[R, T]) Subscribe(fn Subscriber[T]) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn
	fn(slices.Clone(p.items))

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

// Snapshot returns a copy of the current projection.
func (p *Projector[R, T]) Snapshot() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.items)
}

// OnAdd implements toolscache.ResourceEventHandler.
func (p *Projector[R, T]) OnAdd(obj interface{}, _ bool) {
	newObj, ok := p.convert(obj)
	if !ok {
		return
	}
	p.apply(nil, &newObj)
}

// OnUpdate implements toolscache.ResourceEventHandler.
func (p *Projector[R, T]) OnUpdate(oldObj, newObj interface{}) {
	oldValue, ok := p.convert(oldObj)
	if !ok {
		return
	}
	newValue, ok := p.convert(newObj)
	if !ok {
		return
	}
	p.apply(&oldValue, &newValue)
}

// OnDelete implements toolscache.ResourceEventHandler. Tombstones left by a
// missed delete are unwrapped.
func (p *Projector[R, T]) OnDelete(obj interface{}) {
	if tombstone, ok := obj.(toolscache.DeletedFinalStateUnknown); ok {
		obj = tombstone.Obj
	}
	oldValue, ok := p.convert(obj)
	if !ok {
		return
	}
	p.apply(&oldValue, nil)
}

func (p *Projector[R, T]) convert(obj interface{}) (T, bool) {
	raw, ok := obj.(R)
	if !ok {
		var zero T
		p.logger.Warn("ignoring event for unexpected object type",
			observability.String("type", fmt.Sprintf("%T", obj)),
		)
		return zero, false
	}
	return p.mapper(raw), true
}

// apply performs one of the four transitions. A nil side does not match.
func (p *Projector[R, T]) apply(oldValue, newValue *T) {
	oldMatches := oldValue != nil && p.include(*oldValue)
	newMatches := newValue != nil && p.include(*newValue)
	if !oldMatches && !newMatches {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case newMatches && !oldMatches:
		p.upsert(*newValue)
	case oldMatches && !newMatches:
		p.remove(p.key(*oldValue))
	default:
		if oldKey := p.key(*oldValue); oldKey != p.key(*newValue) {
			p.remove(oldKey)
		}
		p.upsert(*newValue)
	}

	for _, fn := range p.subscribers {
		fn(slices.Clone(p.items))
	}
}

// upsert replaces the entry with value's key or appends value. Replacing
// guards against an add replayed after a resync.
func (p *Projector[R, T]) upsert(value T) {
	k := p.key(value)
	for i := range p.items {
		if p.key(p.items[i]) == k {
			p.items[i] = value
			return
		}
	}
	p.items = append(p.items, value)
}

func (p *Projector[R, T]) remove(k string) {
	p.items = slices.DeleteFunc(p.items, func(item T) bool {
		return p.key(item) == k
	})
}
