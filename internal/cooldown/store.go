// Package cooldown holds the only shared mutable state of the monitoring
// engine besides delivery history: the last-delivery table used for alert
// deduplication and the per-channel rate-limit counters. Both sit behind a
// single Store so concurrent cycles and manual triggers serialize on one
// structure.
package cooldown

import (
	"context"
	"sync"
	"time"
)

// Store tracks last delivery times per alert fingerprint and hourly send
// counts per channel.
type Store interface {
	// MarkIfNotWithin atomically records a delivery of the fingerprint at
	// the given time, unless one was already recorded inside the window.
	// It returns true when the caller won the reservation; of any number
	// of concurrent callers with the same fingerprint, exactly one wins.
	MarkIfNotWithin(ctx context.Context, fingerprint string, at time.Time, window time.Duration) (bool, error)

	// AllowChannel reserves one send slot on the channel if its hourly rate
	// limit has not been exceeded. A limit of zero means unlimited.
	AllowChannel(ctx context.Context, channel string, limit uint, now time.Time) (bool, error)

	Close() error
}

// MemoryStore is the in-process Store used by single-instance deployments
// and tests. Rate limiting uses a sliding one-hour window of send
// timestamps per channel.
type MemoryStore struct {
	mu         sync.Mutex
	deliveries map[string]time.Time
	sends      map[string][]time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		deliveries: make(map[string]time.Time),
		sends:      make(map[string][]time.Time),
	}
}

func (s *MemoryStore) MarkIfNotWithin(_ context.Context, fingerprint string, at time.Time, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.deliveries[fingerprint]; ok && at.Sub(last) < window {
		return false, nil
	}
	s.deliveries[fingerprint] = at
	return true, nil
}

func (s *MemoryStore) AllowChannel(_ context.Context, channel string, limit uint, now time.Time) (bool, error) {
	if limit == 0 {
		return true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-time.Hour)
	recent := s.sends[channel][:0]
	for _, t := range s.sends[channel] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if uint(len(recent)) >= limit {
		s.sends[channel] = recent
		return false, nil
	}

	s.sends[channel] = append(recent, now)
	return true, nil
}

// Cleanup drops delivery records older than the cutoff. The alert manager
// runs this alongside its history retention sweep.
func (s *MemoryStore) Cleanup(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for fp, t := range s.deliveries {
		if t.Before(cutoff) {
			delete(s.deliveries, fp)
		}
	}
}

func (s *MemoryStore) Close() error {
	return nil
}
