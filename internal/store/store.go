package store

import (
	"sync"

	"suivi/internal/cache"
)

// State is an immutable view of a facade's channels at one instant.
type State[E any] struct {
	Items    []E
	Selected *E
	Loading  bool
	Err      error
}

// ErrorMessage returns the published error text, or "" when there is none.
func (s State[E]) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Store is the single mutable state cell of a facade. Every mutation notifies
// subscribers with the resulting State, in commit order. Subscribers may read
// the store but must not mutate it.
type Store[K comparable, E any] struct {
	mu       sync.Mutex
	cache    *cache.Cache[K, E]
	key      func(E) K
	selected *E
	inFlight int
	err      error
	subs     map[int]func(State[E])
	nextSub  int

	// seq numbers commits under mu. A commit is delivered only once every
	// earlier one has been, tracked by delivered under deliverMu.
	seq       uint64
	deliverMu sync.Mutex
	delivered uint64
	turn      *sync.Cond
}

func New[K comparable, E any](key func(E) K) *Store[K, E] {
	s := &Store[K, E]{
		cache: cache.New(key),
		key:   key,
		subs:  make(map[int]func(State[E])),
	}
	s.turn = sync.NewCond(&s.deliverMu)
	return s
}

// Subscribe registers fn for every subsequent state change and returns a cancel func.
func (s *Store[K, E]) Subscribe(fn func(State[E])) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// State returns the current state.
func (s *Store[K, E]) State() State[E] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Store[K, E]) Items() []E {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Snapshot()
}

// Len returns the number of cached items without copying them.
func (s *Store[K, E]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

func (s *Store[K, E]) Get(k K) (E, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Get(k)
}

func (s *Store[K, E]) Selected() *E {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyPtr(s.selected)
}

func (s *Store[K, E]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

func (s *Store[K, E]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Begin marks a request in flight.
func (s *Store[K, E]) Begin() {
	s.update(func() { s.inFlight++ })
}

// Fail ends a request and publishes err. Cached items are untouched.
func (s *Store[K, E]) Fail(err error) {
	s.update(func() {
		s.done()
		s.err = err
	})
}

// Reject publishes err without a request having been issued.
func (s *Store[K, E]) Reject(err error) {
	s.update(func() { s.err = err })
}

// ReplaceAll ends a load request, swaps the contents and clears the error.
func (s *Store[K, E]) ReplaceAll(items []E) {
	s.update(func() {
		s.done()
		s.err = nil
		s.cache.ReplaceAll(items)
	})
}

// Reset empties the contents without a request, as an empty load would.
func (s *Store[K, E]) Reset() {
	s.update(func() {
		s.err = nil
		s.cache.Clear()
	})
}

// Append ends a create request and appends item.
func (s *Store[K, E]) Append(item E) {
	s.update(func() {
		s.done()
		s.cache.UpsertAppend(item)
		s.refreshSelection(item)
	})
}

// Prepend ends a create request and inserts item first.
func (s *Store[K, E]) Prepend(item E) {
	s.update(func() {
		s.done()
		s.cache.UpsertPrepend(item)
		s.refreshSelection(item)
	})
}

// Replace ends an update request and replaces item in place.
func (s *Store[K, E]) Replace(item E) {
	s.update(func() {
		s.done()
		s.cache.UpsertInPlace(item)
		s.refreshSelection(item)
	})
}

// Remove ends a delete request, drops k and clears a matching selection.
func (s *Store[K, E]) Remove(k K) {
	s.update(func() {
		s.done()
		s.cache.Remove(k)
		if s.selected != nil && s.key(*s.selected) == k {
			s.selected = nil
		}
	})
}

// Finish ends a request that changes nothing locally.
func (s *Store[K, E]) Finish() {
	s.update(func() { s.done() })
}

func (s *Store[K, E]) Select(item *E) {
	s.update(func() { s.selected = copyPtr(item) })
}

func (s *Store[K, E]) ClearError() {
	s.update(func() { s.err = nil })
}

// Clear resets contents, selection and error. Requests still in flight keep
// counting toward Loading until they return.
func (s *Store[K, E]) Clear() {
	s.update(func() {
		s.cache.Clear()
		s.selected = nil
		s.err = nil
	})
}

func (s *Store[K, E]) refreshSelection(item E) {
	if s.selected != nil && s.key(*s.selected) == s.key(item) {
		s.selected = &item
	}
}

func (s *Store[K, E]) done() {
	if s.inFlight > 0 {
		s.inFlight--
	}
}

func (s *Store[K, E]) update(fn func()) {
	s.mu.Lock()
	fn()
	st := s.stateLocked()
	subs := make([]func(State[E]), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.deliverMu.Lock()
	for s.delivered != seq-1 {
		s.turn.Wait()
	}
	s.deliverMu.Unlock()
	defer func() {
		s.deliverMu.Lock()
		s.delivered = seq
		s.deliverMu.Unlock()
		s.turn.Broadcast()
	}()
	for _, sub := range subs {
		sub(st)
	}
}

func (s *Store[K, E]) stateLocked() State[E] {
	return State[E]{
		Items:    s.cache.Snapshot(),
		Selected: copyPtr(s.selected),
		Loading:  s.inFlight > 0,
		Err:      s.err,
	}
}

func copyPtr[E any](p *E) *E {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
