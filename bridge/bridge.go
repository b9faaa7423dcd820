// Package bridge pushes committed state changes to the presentation
// layer. Publishing never blocks the mutating caller; each subscriber is
// drained by its own goroutine in commit order, at least once. Events
// carry unique ids so duplicate delivery is detectable and harmless.
package bridge

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventProfileUpdated EventKind = "profile-updated"
	EventProfileDeleted EventKind = "profile-deleted"
	EventCatalogChanged EventKind = "catalog-changed"
)

// ModSnapshot is one entry of a profile snapshot, in load order.
type ModSnapshot struct {
	ID         uint
	Kind       string
	Owner      string
	Name       string
	Version    string
	Enabled    bool
	OrderIndex int
}

// ProfileSnapshot is the full state of a profile as of one commit.
type ProfileSnapshot struct {
	ID       uint
	GameID   uint
	Name     string
	Path     string
	Favorite bool
	Mods     []ModSnapshot
}

// Event is one committed mutation made visible to subscribers.
type Event struct {
	ID        uuid.UUID
	Kind      EventKind
	ProfileID uint
	Profile   *ProfileSnapshot
	At        time.Time
}

// Subscription delivers events on C until Cancel is called.
type Subscription struct {
	C      <-chan Event
	cancel func()
}

func (s *Subscription) Cancel() { s.cancel() }

type subscriber struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool
	ch     chan Event
	done   chan struct{}
	once   sync.Once
}

func newSubscriber() *subscriber {
	s := &subscriber{
		ch:   make(chan Event, 16),
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.pump()
	return s
}

func (s *subscriber) push(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, e)
	s.cond.Signal()
}

// pump moves queued events to the delivery channel so publishers never
// wait on a slow consumer.
func (s *subscriber) pump() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed && len(s.queue) == 0 {
			s.mu.Unlock()
			close(s.ch)
			return
		}
		e := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.ch <- e:
		case <-s.done:
			close(s.ch)
			return
		}
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.closed = true
		s.cond.Signal()
		s.mu.Unlock()
	})
}

// Bus fans committed mutations out to per-profile channels and a
// catalog-changed topic.
type Bus struct {
	mu      sync.Mutex
	profile map[uint][]*subscriber
	catalog []*subscriber
}

func NewBus() *Bus {
	return &Bus{profile: make(map[uint][]*subscriber)}
}

// SubscribeProfile delivers every committed mutation of one profile.
func (b *Bus) SubscribeProfile(profileID uint) *Subscription {
	sub := newSubscriber()

	b.mu.Lock()
	b.profile[profileID] = append(b.profile[profileID], sub)
	b.mu.Unlock()

	return &Subscription{
		C: sub.ch,
		cancel: func() {
			b.mu.Lock()
			b.profile[profileID] = remove(b.profile[profileID], sub)
			b.mu.Unlock()
			sub.close()
		},
	}
}

// SubscribeCatalog delivers a notification for every committed catalog
// mutation.
func (b *Bus) SubscribeCatalog() *Subscription {
	sub := newSubscriber()

	b.mu.Lock()
	b.catalog = append(b.catalog, sub)
	b.mu.Unlock()

	return &Subscription{
		C: sub.ch,
		cancel: func() {
			b.mu.Lock()
			b.catalog = remove(b.catalog, sub)
			b.mu.Unlock()
			sub.close()
		},
	}
}

// PublishProfile announces a committed profile mutation with the full
// updated snapshot.
func (b *Bus) PublishProfile(snap ProfileSnapshot) {
	b.publishProfile(Event{
		ID:        uuid.New(),
		Kind:      EventProfileUpdated,
		ProfileID: snap.ID,
		Profile:   &snap,
		At:        time.Now(),
	})
}

// PublishProfileDeleted announces that a profile no longer exists.
func (b *Bus) PublishProfileDeleted(profileID uint) {
	b.publishProfile(Event{
		ID:        uuid.New(),
		Kind:      EventProfileDeleted,
		ProfileID: profileID,
		At:        time.Now(),
	})
}

func (b *Bus) publishProfile(e Event) {
	b.mu.Lock()
	subs := append([]*subscriber(nil), b.profile[e.ProfileID]...)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.push(e)
	}
}

// PublishCatalogChanged announces a committed catalog mutation.
func (b *Bus) PublishCatalogChanged() {
	e := Event{ID: uuid.New(), Kind: EventCatalogChanged, At: time.Now()}

	b.mu.Lock()
	subs := append([]*subscriber(nil), b.catalog...)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.push(e)
	}
}

func remove(subs []*subscriber, target *subscriber) []*subscriber {
	out := subs[:0]
	for _, s := range subs {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
