package sse

import (
	"github.com/kbukum/streamkit/errors"
)

// Entry is one registration in a Registry.
type Entry struct {
	// Name is the registration key. It may differ from Event.Name().
	Name  string
	Event Event
}

// canceler is the handle of a scheduled timer.
type canceler interface {
	cancel()
}

type registryEntry struct {
	name  string
	event Event
	order uint64
	timer canceler
}

// Registry maps registration names to events in insertion order.
// It is not safe for concurrent use; the Scheduler serializes access.
type Registry struct {
	entries []*registryEntry
	byName  map[string]*registryEntry
	next    uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*registryEntry)}
}

// Add registers ev under name. An existing registration keeps its position,
// takes the new event and has its timer canceled.
func (r *Registry) Add(name string, ev Event) {
	if e, ok := r.byName[name]; ok {
		e.cancelTimer()
		e.event = ev
		return
	}
	r.next++
	e := &registryEntry{name: name, event: ev, order: r.next}
	r.entries = append(r.entries, e)
	r.byName[name] = e
}

// Get returns the event registered under name, or an EVENT_NOT_FOUND error.
func (r *Registry) Get(name string) (Event, error) {
	e, ok := r.byName[name]
	if !ok {
		return nil, errors.EventNotFound(name)
	}
	return e.event, nil
}

// Remove drops name and cancels its timer. Unknown names are ignored.
func (r *Registry) Remove(name string) {
	e, ok := r.byName[name]
	if !ok {
		return
	}
	e.cancelTimer()
	delete(r.byName, name)
	for i, cur := range r.entries {
		if cur == e {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
}

// List returns a snapshot of all registrations in insertion order.
func (r *Registry) List() []Entry {
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = Entry{Name: e.name, Event: e.event}
	}
	return out
}

// Len returns the number of registrations.
func (r *Registry) Len() int { return len(r.entries) }

func (r *Registry) entry(name string) *registryEntry { return r.byName[name] }

func (e *registryEntry) cancelTimer() {
	if e.timer != nil {
		e.timer.cancel()
		e.timer = nil
	}
}
