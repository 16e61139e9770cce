package game

import (
	"sync"

	"github.com/alejandrocid0/alagloria-sub001/internal/domain"
)

// Broker fans change events out to per-game subscribers. Clients that
// fall behind lose intermediate events, never the latest one.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan domain.ChangeEvent]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan domain.ChangeEvent]struct{})}
}

// Subscribe registers a listener for one game's events. The caller must
// invoke the returned cancel function to avoid leaks.
func (b *Broker) Subscribe(gameID string) (<-chan domain.ChangeEvent, func()) {
	ch := make(chan domain.ChangeEvent, 8)

	b.mu.Lock()
	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[chan domain.ChangeEvent]struct{})
	}
	b.subs[gameID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[gameID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, gameID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its game. Invalid
// events (payload not matching the kind) are dropped at this boundary.
func (b *Broker) Publish(ev domain.ChangeEvent) {
	if !ev.Validate() {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[ev.GameID] {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop its oldest pending event so the
			// freshest state always gets through.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
