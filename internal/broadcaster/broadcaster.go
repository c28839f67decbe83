// Package broadcaster fans newly raised alerts out to live subscribers of
// a household. Subscribers that cannot keep up or have gone away are
// pruned; one broken listener never affects delivery to the rest.
package broadcaster

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber whose
// buffer is full when an alert arrives is treated as dead and removed.
const subscriberBuffer = 16

// Subscription is a live listener on one household's alerts.
type Subscription struct {
	ID          string
	HouseholdID string
	C           <-chan models.Alert

	ch chan models.Alert

	// sendMu serializes sends against close, so pruning a subscriber
	// while a publish is in flight cannot panic on a closed channel.
	sendMu sync.Mutex
	closed bool
}

// trySend offers an alert without blocking. ok=false means the
// subscription is closed or its buffer is full.
func (s *Subscription) trySend(alert models.Alert) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- alert:
		return true
	default:
		return false
	}
}

func (s *Subscription) closeOnce() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Broadcaster maintains the household -> subscriber mapping.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[string]map[string]*Subscription // household -> sub id -> sub
	logger *zap.Logger
}

// New creates a Broadcaster.
func New(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[string]map[string]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a new listener for a household's alerts.
func (b *Broadcaster) Subscribe(householdID string) *Subscription {
	ch := make(chan models.Alert, subscriberBuffer)
	sub := &Subscription{
		ID:          uuid.New().String(),
		HouseholdID: householdID,
		C:           ch,
		ch:          ch,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	household, ok := b.subs[householdID]
	if !ok {
		household = make(map[string]*Subscription)
		b.subs[householdID] = household
	}
	household[sub.ID] = sub

	b.logger.Debug("Subscriber added",
		zap.String("household_id", householdID),
		zap.String("subscription_id", sub.ID),
	)
	return sub
}

// Unsubscribe removes a listener and closes its channel. Unsubscribing an
// unknown or already removed id is a no-op.
func (b *Broadcaster) Unsubscribe(householdID, subscriptionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(householdID, subscriptionID)
}

// removeLocked deletes a subscription; caller holds the lock.
func (b *Broadcaster) removeLocked(householdID, subscriptionID string) {
	household, ok := b.subs[householdID]
	if !ok {
		return
	}
	sub, ok := household[subscriptionID]
	if !ok {
		return
	}
	delete(household, subscriptionID)
	sub.closeOnce()
	if len(household) == 0 {
		delete(b.subs, householdID)
	}
	b.logger.Debug("Subscriber removed",
		zap.String("household_id", householdID),
		zap.String("subscription_id", subscriptionID),
	)
}

// Publish delivers an alert to every subscriber of its household. The
// subscriber set is snapshotted under the lock; the sends happen outside
// it so a slow household cannot block another. Full buffers mark the
// subscriber dead and it is pruned.
func (b *Broadcaster) Publish(alert models.Alert) int {
	b.mu.Lock()
	household := b.subs[alert.HouseholdID]
	targets := make([]*Subscription, 0, len(household))
	for _, sub := range household {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	if len(targets) == 0 {
		b.logger.Debug("No live subscribers for household",
			zap.String("household_id", alert.HouseholdID),
		)
		return 0
	}

	delivered := 0
	var dead []string
	for _, sub := range targets {
		if sub.trySend(alert) {
			delivered++
		} else {
			dead = append(dead, sub.ID)
		}
	}

	if len(dead) > 0 {
		b.mu.Lock()
		for _, id := range dead {
			b.removeLocked(alert.HouseholdID, id)
		}
		b.mu.Unlock()
		b.logger.Warn("Pruned dead subscribers",
			zap.String("household_id", alert.HouseholdID),
			zap.Int("count", len(dead)),
		)
	}

	return delivered
}

// SubscriberCount reports the live subscriber count for a household.
func (b *Broadcaster) SubscriberCount(householdID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[householdID])
}
