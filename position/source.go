package position

import "sync"

// Source emits position fixes until the returned unsubscribe func is called.
// onError receives permanent failures such as ErrPermissionDenied.
type Source interface {
	Subscribe(onFix func(Fix), onError func(error)) (unsubscribe func())
}

type subscriber struct {
	onFix   func(Fix)
	onError func(error)
}

// Stream is a Source fed by its owner through Publish and Fail. Fixes are
// delivered synchronously on the publishing goroutine.
type Stream struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscriber
	err    error
	last   *Fix
}

// NewStream creates an empty stream
func NewStream() *Stream {
	return &Stream{subs: make(map[int]subscriber)}
}

// Subscribe registers callbacks. A stream that already failed reports its
// error straight away.
func (s *Stream) Subscribe(onFix func(Fix), onError func(error)) func() {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		if onError != nil {
			onError(err)
		}
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = subscriber{onFix: onFix, onError: onError}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Publish delivers fix to every subscriber
func (s *Stream) Publish(fix Fix) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return
	}
	s.last = &fix
	subs := s.snapshot()
	s.mu.Unlock()

	for _, sub := range subs {
		if sub.onFix != nil {
			sub.onFix(fix)
		}
	}
}

// Fail reports a permanent failure and drops all subscribers
func (s *Stream) Fail(err error) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return
	}
	s.err = err
	subs := s.snapshot()
	s.subs = make(map[int]subscriber)
	s.mu.Unlock()

	for _, sub := range subs {
		if sub.onError != nil {
			sub.onError(err)
		}
	}
}

// Last returns the most recently published fix
func (s *Stream) Last() (Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Fix{}, false
	}
	return *s.last, true
}

// Err returns the failure reported through Fail, if any
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) snapshot() []subscriber {
	subs := make([]subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	return subs
}
