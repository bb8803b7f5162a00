package memory

import (
	"context"
	"sync"

	"github.com/stresssense/stress-sense/internal/domain/reading"
)

// StateStore implements reading.StateStore in memory.
type StateStore struct {
	mu          sync.RWMutex
	env         reading.Environment
	hasEnv      bool
	analyses    map[reading.DeviceID]reading.Analysis
	latest      reading.DeviceID
	screenHours float64
}

// NewStateStore creates an empty state store.
func NewStateStore() *StateStore {
	return &StateStore{
		analyses: make(map[reading.DeviceID]reading.Analysis),
	}
}

// SetEnvironment replaces the environment snapshot.
func (s *StateStore) SetEnvironment(_ context.Context, env reading.Environment) error {
	s.mu.Lock()
	s.env, s.hasEnv = env, true
	s.mu.Unlock()
	return nil
}

// Environment returns the snapshot, ok=false before the first push.
func (s *StateStore) Environment(_ context.Context) (reading.Environment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.env, s.hasEnv, nil
}

// SetAnalysis stores the analysis and marks the device as most recent.
func (s *StateStore) SetAnalysis(_ context.Context, a reading.Analysis) error {
	s.mu.Lock()
	s.analyses[a.DeviceID] = a
	s.latest = a.DeviceID
	s.mu.Unlock()
	return nil
}

// LatestAnalysis returns the analysis of the device updated most recently,
// not the device that pushed first.
func (s *StateStore) LatestAnalysis(_ context.Context) (reading.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.analyses[s.latest]
	if !ok {
		return reading.Analysis{}, reading.ErrNoAnalysis
	}
	return a, nil
}

// AnalysisFor returns the stored analysis of one device.
func (s *StateStore) AnalysisFor(_ context.Context, deviceID reading.DeviceID) (reading.Analysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.analyses[deviceID]
	return a, ok
}

// SetScreenTime stores the last screen time.
func (s *StateStore) SetScreenTime(_ context.Context, hours float64) error {
	s.mu.Lock()
	s.screenHours = hours
	s.mu.Unlock()
	return nil
}

// LastScreenTime returns the last screen time (0 before any push).
func (s *StateStore) LastScreenTime(_ context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screenHours, nil
}

var _ reading.StateStore = (*StateStore)(nil)
