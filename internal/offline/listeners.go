package offline

import (
	"log"
	"sync"
)

type listener[T any] struct {
	id int
	fn func(T)
}

// listeners is an ordered subscriber list. Callbacks run on the emitting
// goroutine, in subscription order; a panicking callback is logged and
// does not stop delivery to the rest.
type listeners[T any] struct {
	mu   sync.Mutex
	next int
	subs []listener[T]
}

func (l *listeners[T]) add(fn func(T)) (unsubscribe func()) {
	l.mu.Lock()
	l.next++
	id := l.next
	l.subs = append(l.subs, listener[T]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, s := range l.subs {
				if s.id == id {
					l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (l *listeners[T]) emit(v T) {
	l.mu.Lock()
	subs := make([]listener[T], len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[offline] listener panic: %v", r)
				}
			}()
			s.fn(v)
		}()
	}
}
