package loader

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/stwalsh4118/choropleth/internal/models"
)

// Snapshot is one complete, immutable load of all three inputs.
type Snapshot struct {
	Token    uint64
	Geometry *models.GeoLayer
	Metrics  *models.MetricIndex
	Registry *models.DatasetRegistry
	Issues   []ScaleIssue
	LoadedAt time.Time
}

// Status describes the store for readiness checks and diagnostics.
type Status struct {
	Loading   bool         `json:"loading"`
	Ready     bool         `json:"ready"`
	Token     uint64       `json:"token"`
	LastError string       `json:"lastError,omitempty"`
	LoadedAt  *time.Time   `json:"loadedAt,omitempty"`
	Features  int          `json:"features"`
	Records   int          `json:"records"`
	Datasets  int          `json:"datasets"`
	Issues    []ScaleIssue `json:"issues,omitempty"`
}

// Store publishes snapshots and discards responses of superseded loads.
//
// Every load takes a token from Begin. Only the most recent token may
// publish or fail; results for older tokens are dropped, so a slow earlier
// load can never overwrite a newer one. Readers get the current snapshot
// without locking.
type Store struct {
	current atomic.Pointer[Snapshot]

	mu        sync.Mutex
	latest    uint64
	loading   bool
	lastError string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Begin starts a load and returns its token.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	s.loading = true
	return s.latest
}

// Publish installs snap if token is still the latest load.
// It reports whether the snapshot was accepted.
func (s *Store) Publish(token uint64, snap *Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.latest {
		return false
	}
	snap.Token = token
	s.current.Store(snap)
	s.loading = false
	s.lastError = ""
	return true
}

// Fail ends the load for token with err. The previous snapshot, if any,
// stays published. It reports whether token was still the latest load.
func (s *Store) Fail(token uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.latest {
		return false
	}
	s.loading = false
	if err != nil {
		s.lastError = err.Error()
	}
	return true
}

// Snapshot returns the published snapshot, or nil before the first load.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Loading reports whether the latest load is still in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Registry returns the published registry.
func (s *Store) Registry() *models.DatasetRegistry {
	if snap := s.Snapshot(); snap != nil {
		return snap.Registry
	}
	return nil
}

// Geometry returns the published geometry.
func (s *Store) Geometry() *models.GeoLayer {
	if snap := s.Snapshot(); snap != nil {
		return snap.Geometry
	}
	return nil
}

// Metrics returns the published metric index.
func (s *Store) Metrics() *models.MetricIndex {
	if snap := s.Snapshot(); snap != nil {
		return snap.Metrics
	}
	return nil
}

// Status reports the store state.
func (s *Store) Status() Status {
	s.mu.Lock()
	status := Status{
		Loading:   s.loading,
		Token:     s.latest,
		LastError: s.lastError,
	}
	s.mu.Unlock()

	if snap := s.Snapshot(); snap != nil {
		loadedAt := snap.LoadedAt
		status.Ready = true
		status.LoadedAt = &loadedAt
		status.Features = snap.Geometry.Len()
		status.Records = snap.Metrics.Len()
		status.Datasets = snap.Registry.Len()
		status.Issues = snap.Issues
	}
	return status
}
