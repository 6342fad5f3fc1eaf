// Package vault holds ephemeral per-thread session payloads with
// inactivity-based expiry and least-recently-accessed capacity eviction.
// Payloads must already be sanitized by the caller; no raw secret-bearing
// fields may be stored.
package vault

import (
	"context"
	"time"

	"antevus.backend/pkg/audit"
	"antevus.backend/pkg/store"
)

const (
	// DefaultMaxThreads caps how many thread sessions are held at once.
	DefaultMaxThreads = 10
	// DefaultExpiration is the inactivity window before a session is removable.
	DefaultExpiration = 30 * time.Minute
	// DefaultSweepInterval is how often the expiry sweep runs.
	DefaultSweepInterval = 60 * time.Second
)

// Status reports vault occupancy for observability.
type Status struct {
	Count            int     `json:"count"`
	OldestAgeMinutes float64 `json:"oldestAgeMinutes"`
}

// Vault is a bounded session store keyed by thread identifier. Every read or
// write refreshes the record's last access time; the least recently accessed
// record is evicted when capacity is exceeded.
type Vault struct {
	threads *store.Store[interface{}]
	sink    audit.Sink
}

func New(maxThreads int, expiration time.Duration, sink audit.Sink) *Vault {
	if maxThreads <= 0 {
		maxThreads = DefaultMaxThreads
	}
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	if sink == nil {
		sink = audit.NopSink{}
	}

	v := &Vault{
		threads: store.New[interface{}](maxThreads, expiration, store.Sliding),
		sink:    sink,
	}
	v.threads.OnEvict(func(key string, reason store.EvictReason) {
		if reason == store.ReasonExpired {
			v.sink.Emit(context.Background(), audit.Event{
				Timestamp: time.Now(),
				Type:      audit.EventSessionExpired,
				Resource:  key,
				Success:   true,
			})
		}
	})
	return v
}

// SetClock replaces the time source (used for testing)
func (v *Vault) SetClock(now func() time.Time) {
	v.threads.SetClock(now)
}

// Put stores or overwrites the payload for a thread, evicting the least
// recently accessed record first when the vault is full and the thread is new.
func (v *Vault) Put(threadID string, payload interface{}) {
	v.threads.Put(threadID, payload)
}

// Get returns the thread's payload and refreshes its last access time.
func (v *Vault) Get(threadID string) (interface{}, bool) {
	return v.threads.Get(threadID)
}

// Delete removes a thread's session unconditionally.
func (v *Vault) Delete(threadID string) bool {
	return v.threads.Delete(threadID)
}

// ClearAll removes every session, returning how many were removed. Intended
// for shutdown/unload signals.
func (v *Vault) ClearAll(ctx context.Context) int {
	n := v.threads.Clear()
	v.sink.Emit(ctx, audit.Event{
		Timestamp: time.Now(),
		Type:      audit.EventSessionCleared,
		Success:   true,
	})
	return n
}

// SweepExpired removes every session whose inactivity exceeds the expiration
// window, returning how many were removed.
func (v *Vault) SweepExpired() int {
	return v.threads.Sweep()
}

// Status reports current occupancy and the age of the least recently
// accessed session.
func (v *Vault) Status() Status {
	return Status{
		Count:            v.threads.Len(),
		OldestAgeMinutes: v.threads.OldestAge().Minutes(),
	}
}
