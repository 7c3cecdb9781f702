package tasks

import (
	"sync/atomic"
	"time"

	"group-access-api/internal/models"
	"group-access-api/internal/services"
	"group-access-api/pkg/logging"
)

// Sweeper periodically expires subscriptions that have passed their end
// date and removes their members from the group. Each row is handled
// independently: a removal failure leaves that subscription active for
// the next sweep and never blocks the rest of the batch.
type Sweeper struct {
	subscriptions *services.SubscriptionService
	interval      time.Duration

	running int32
	stop    chan struct{}
	stopped chan struct{}
}

// NewSweeper creates a sweeper over the subscription lifecycle service
func NewSweeper(subscriptions *services.SubscriptionService, interval time.Duration) *Sweeper {
	return &Sweeper{
		subscriptions: subscriptions,
		interval:      interval,
		stop:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
}

// Start runs the sweep loop in its own goroutine. The first sweep fires
// after one full interval.
func (s *Sweeper) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		logging.Infof("Expiry sweeper started (interval %s)", s.interval)
		for {
			select {
			case <-ticker.C:
				s.RunOnce(time.Now())
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop shuts the sweep loop down. A sweep already in progress finishes.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.stopped
}

// RunOnce performs a single sweep. If a previous sweep is still running
// the call is skipped; overlapping sweeps would race on the same rows.
// Returns the number of subscriptions expired.
func (s *Sweeper) RunOnce(asOf time.Time) int {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		logging.Warnf("Skipping sweep: previous sweep still running")
		return 0
	}
	defer atomic.StoreInt32(&s.running, 0)

	expired := 0

	subscriptions, err := s.subscriptions.ListExpired(asOf)
	if err != nil {
		logging.Errorf("Sweep failed to list expired subscriptions: %v", err)
		return 0
	}

	for i := range subscriptions {
		if s.expireOne(&subscriptions[i]) {
			expired++
		}
	}

	stale, err := s.subscriptions.ExpireStalePending(asOf)
	if err != nil {
		logging.Errorf("Sweep failed to expire stale pending subscriptions: %v", err)
	} else if stale > 0 {
		logging.Infof("Expired %d pending subscriptions with lapsed invites", stale)
	}

	if expired > 0 || len(subscriptions) > 0 {
		logging.Infof("Sweep expired %d of %d lapsed subscriptions", expired, len(subscriptions))
	}
	return expired + int(stale)
}

// expireOne removes the member and marks the subscription expired. The
// removal comes first: if it fails the subscription stays active so the
// next sweep retries the kick.
func (s *Sweeper) expireOne(subscription *models.Subscription) bool {
	if err := s.subscriptions.RemoveFromGroup(subscription); err != nil {
		logging.Errorf("Sweep could not remove user from group for subscription %d, leaving active: %v", subscription.ID, err)
		return false
	}
	if err := s.subscriptions.Expire(subscription.ID); err != nil {
		logging.Errorf("Sweep failed to mark subscription %d expired: %v", subscription.ID, err)
		return false
	}
	return true
}
