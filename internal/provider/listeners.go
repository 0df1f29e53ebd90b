package provider

import (
	"math/big"
	"sync"
)

// listeners is a set of chain-changed callbacks keyed by registration id.
type listeners struct {
	mu   sync.Mutex
	next uint64
	fns  map[uint64]func(*big.Int)
}

// add registers fn and returns an idempotent remover.
func (l *listeners) add(fn func(*big.Int)) func() {
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[uint64]func(*big.Int))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

// fire calls every listener outside the lock, each with its own copy of id.
func (l *listeners) fire(id *big.Int) {
	l.mu.Lock()
	fns := make([]func(*big.Int), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(new(big.Int).Set(id))
	}
}
