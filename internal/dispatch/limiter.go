package dispatch

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterStore maintains per-sender rate limiters and performs periodic
// cleanup. A sender flooding the webhook gets its events dropped before any
// store I/O happens.
type LimiterStore struct {
	mu              sync.Mutex
	limit           rate.Limit
	burst           int
	senders         map[string]*senderEntry
	cleanupInterval time.Duration
	stopCh          chan struct{}
}

type senderEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiterStore creates a store of per-sender limiters. limitPerMinute
// controls allowed events per minute; burst is the burst capacity.
func NewLimiterStore(limitPerMinute int, burst int, cleanupInterval time.Duration) *LimiterStore {
	if limitPerMinute <= 0 {
		limitPerMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	// time.NewTicker panics on a non-positive duration.
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	s := &LimiterStore{
		limit:           rate.Every(time.Minute / time.Duration(limitPerMinute)),
		burst:           burst,
		senders:         map[string]*senderEntry{},
		cleanupInterval: cleanupInterval,
		stopCh:          make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

func (s *LimiterStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-10 * time.Minute)
			s.mu.Lock()
			for k, v := range s.senders {
				if v.lastSeen.Before(cutoff) {
					delete(s.senders, k)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops internal goroutines (useful for tests).
func (s *LimiterStore) Stop() {
	close(s.stopCh)
}

func (s *LimiterStore) getLimiter(senderID string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.senders[senderID]; ok {
		e.lastSeen = time.Now()
		return e.limiter
	}
	limiter := rate.NewLimiter(s.limit, s.burst)
	s.senders[senderID] = &senderEntry{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

// Allow checks whether an event from the given sender is permitted.
func (s *LimiterStore) Allow(senderID string) bool {
	return s.getLimiter(senderID).Allow()
}
