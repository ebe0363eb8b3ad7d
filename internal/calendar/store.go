package calendar

import (
	"slices"
	"sort"
	"sync"
	"time"
)

// Store is a mutex-guarded slice of entries kept in less order. Entries are
// owned by the store; callers hold references but must read or mutate them
// through store methods so the lock is held.
type Store[T any] struct {
	mu       sync.Mutex
	items    []*T
	less     func(a, b *T) bool
	covers   func(item *T, day time.Time) bool
	onChange func()
}

// NewStore returns an empty store. covers reports whether an entry has an
// occurrence touching day and backs the day-matching lookups.
func NewStore[T any](less func(a, b *T) bool, covers func(item *T, day time.Time) bool) *Store[T] {
	return &Store[T]{less: less, covers: covers}
}

// Insert places item after every entry that does not sort after it.
func (s *Store[T]) Insert(item *T) {
	s.mu.Lock()
	s.insertLocked(item)
	s.mu.Unlock()
	s.changed()
}

// Remove reports whether item was present.
func (s *Store[T]) Remove(item *T) bool {
	s.mu.Lock()
	ok := s.removeLocked(item)
	s.mu.Unlock()
	if ok {
		s.changed()
	}
	return ok
}

func (s *Store[T]) Contains(item *T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.items, item)
}

func (s *Store[T]) FindFirst(pred func(*T) bool) (*T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if pred(it) {
			return it, true
		}
	}
	return nil, false
}

func (s *Store[T]) FindAll(pred func(*T) bool) []*T {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*T
	for _, it := range s.items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}

// FindFirstMatching returns the first entry touching day for which pred
// holds. A nil pred matches everything.
func (s *Store[T]) FindFirstMatching(day time.Time, pred func(*T) bool) (*T, bool) {
	return s.FindFirst(s.onDay(day, pred))
}

func (s *Store[T]) FindAllMatching(day time.Time, pred func(*T) bool) []*T {
	return s.FindAll(s.onDay(day, pred))
}

func (s *Store[T]) onDay(day time.Time, pred func(*T) bool) func(*T) bool {
	return func(it *T) bool {
		if s.covers != nil && !s.covers(it, day) {
			return false
		}
		return pred == nil || pred(it)
	}
}

// ForEach calls fn for every entry in order with the lock held. fn must not
// block or call back into the store.
func (s *Store[T]) ForEach(fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		fn(it)
	}
}

// Snapshot copies the entry references out under the lock.
func (s *Store[T]) Snapshot() []*T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Reorder re-splices item after its sort key changed. It reports false when
// item is not in the store.
func (s *Store[T]) Reorder(item *T) bool {
	s.mu.Lock()
	ok := s.reorderLocked(item)
	s.mu.Unlock()
	if ok {
		s.changed()
	}
	return ok
}

// Update runs fn on item under the lock and reorders it afterwards. When fn
// returns an error the entry must be left untouched and nothing is reordered.
func (s *Store[T]) Update(item *T, fn func(*T) error) error {
	s.mu.Lock()
	if !slices.Contains(s.items, item) {
		s.mu.Unlock()
		return ErrNotInStore
	}
	if err := fn(item); err != nil {
		s.mu.Unlock()
		return err
	}
	s.reorderLocked(item)
	s.mu.Unlock()
	s.changed()
	return nil
}

// Read runs fn on item under the lock.
func (s *Store[T]) Read(item *T, fn func(*T)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.items, item) {
		return ErrNotInStore
	}
	fn(item)
	return nil
}

func (s *Store[T]) insertLocked(item *T) {
	i := sort.Search(len(s.items), func(i int) bool { return s.less(item, s.items[i]) })
	s.items = slices.Insert(s.items, i, item)
}

func (s *Store[T]) removeLocked(item *T) bool {
	i := slices.Index(s.items, item)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

func (s *Store[T]) reorderLocked(item *T) bool {
	i := slices.Index(s.items, item)
	if i < 0 {
		return false
	}
	inPlace := (i == 0 || !s.less(item, s.items[i-1])) &&
		(i == len(s.items)-1 || !s.less(s.items[i+1], item))
	if inPlace {
		return true
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.insertLocked(item)
	return true
}

func (s *Store[T]) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
