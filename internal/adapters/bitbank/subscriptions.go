package bitbank

import (
	"sync"

	"github.com/penguinworks/bitbank-gateway/internal/schema"
)

// subscriptionRegistry records which instruments the host subscribed to.
// Registrations survive reconnects; replay walks them in the order the host
// issued them.
type subscriptionRegistry struct {
	mu     sync.Mutex
	order  []string
	byPair map[string]schema.Instrument
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{byPair: make(map[string]schema.Instrument)}
}

// add registers an instrument and returns its channel set. Repeat
// registrations are idempotent and report added=false.
func (r *subscriptionRegistry) add(inst schema.Instrument) (channels []string, added bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPair[inst.PairCode]; ok {
		return nil, false
	}
	r.byPair[inst.PairCode] = inst
	r.order = append(r.order, inst.PairCode)
	return channelsForPair(inst.PairCode), true
}

// remove drops an instrument from the registry so reconnect replay no
// longer restores it.
func (r *subscriptionRegistry) remove(pair string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPair[pair]; !ok {
		return false
	}
	delete(r.byPair, pair)
	for i, p := range r.order {
		if p == pair {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// instrumentFor resolves the instrument behind a venue pair code.
func (r *subscriptionRegistry) instrumentFor(pair string) (schema.Instrument, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.byPair[pair]
	return inst, ok
}

// replay returns every registered channel in registration order.
func (r *subscriptionRegistry) replay() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	channels := make([]string, 0, len(r.order)*3)
	for _, pair := range r.order {
		channels = append(channels, channelsForPair(pair)...)
	}
	return channels
}

func (r *subscriptionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

func channelsForPair(pair string) []string {
	return []string{TickerChannel(pair), TransactionsChannel(pair), DepthChannel(pair)}
}
