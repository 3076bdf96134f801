// Package registry holds per-call state shared between the HTTP surface and
// the live media-stream bridges: pending call configurations keyed by call
// token, and post-call records keyed by the telephony provider's call SID.
package registry

import (
	"sync"
	"time"
)

// CallConfig is the immutable configuration of one pending call. It is never
// mutated after Put; bridges borrow it read-only for the duration of a call.
type CallConfig struct {
	Sender    string
	Recipient string
	Script    string
	Style     string
	VoiceID   string
	Explicit  bool
	CreatedAt time.Time
}

// CallRecord is the lightweight post-call metadata kept per telephony call
// SID until the follow-up action has fired.
type CallRecord struct {
	Token     string
	To        string
	Sender    string
	Recipient string
	CreatedAt time.Time
}

const sweepInterval = 60 * time.Second

// Store is the process-local call session registry. Construct with New and
// release with Shutdown; all operations are safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	configs    map[string]CallConfig
	records    map[string]CallRecord
	followedUp map[string]struct{}

	ttl time.Duration
	now func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Store whose entries expire after ttl, swept once a minute.
func New(ttl time.Duration) *Store {
	s := &Store{
		configs:    make(map[string]CallConfig),
		records:    make(map[string]CallRecord),
		followedUp: make(map[string]struct{}),
		ttl:        ttl,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Shutdown stops the background sweeper. Safe to call more than once.
func (s *Store) Shutdown() {
	s.closeOnce.Do(func() { close(s.done) })
}

// PutConfig stores the configuration for a pending call token. The stored
// CreatedAt is stamped here if the caller left it zero.
func (s *Store) PutConfig(token string, cfg CallConfig) {
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[token] = cfg
}

// GetConfig returns the configuration for token, if present.
func (s *Store) GetConfig(token string) (CallConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[token]
	return cfg, ok
}

// DeleteConfig removes token's configuration. Deleting an absent token is a
// no-op.
func (s *Store) DeleteConfig(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, token)
}

// PutRecord stores post-call metadata under the telephony call SID.
func (s *Store) PutRecord(callSID string, rec CallRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[callSID] = rec
}

// GetRecord returns the record for callSID, if present.
func (s *Store) GetRecord(callSID string) (CallRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[callSID]
	return rec, ok
}

// DeleteRecord removes callSID's record. Absent SIDs are a no-op.
func (s *Store) DeleteRecord(callSID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, callSID)
}

// MarkFollowedUp records that the post-call follow-up for callSID has been
// claimed. It returns true exactly once per SID; duplicate provider callbacks
// see false.
func (s *Store) MarkFollowedUp(callSID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.followedUp[callSID]; done {
		return false
	}
	s.followedUp[callSID] = struct{}{}
	return true
}

// Counts returns the number of live config and record entries.
func (s *Store) Counts() (configs, records int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.configs), len(s.records)
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep evicts entries older than the TTL, including stale follow-up guards
// whose record has already expired.
func (s *Store) sweep() {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, cfg := range s.configs {
		if cfg.CreatedAt.Before(cutoff) {
			delete(s.configs, token)
		}
	}
	for sid, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, sid)
		}
	}
	// A guard only needs to outlive its record; drop orphans.
	for sid := range s.followedUp {
		if _, ok := s.records[sid]; !ok {
			delete(s.followedUp, sid)
		}
	}
}
