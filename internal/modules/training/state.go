// Package training runs the end-to-end forecast training pipeline: it loads
// sales, fetches external signals, trains both model variants per product,
// and publishes the comparison results. At most one run is active at a time.
package training

import "sync"

// Snapshot is a point-in-time copy of the run state, safe to hand out
type Snapshot struct {
	Running  bool   `json:"running"`
	Progress string `json:"progress"`
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	Results  int    `json:"results"`
}

// runState is the single mutable record of the active (or last) run. All
// fields are guarded by mu; readers take snapshots, never references.
type runState struct {
	mu       sync.Mutex
	running  bool
	progress string
	current  int
	total    int
	results  int

	listeners map[chan Snapshot]struct{}
}

func newRunState() *runState {
	return &runState{
		progress:  "idle",
		listeners: make(map[chan Snapshot]struct{}),
	}
}

// tryStart flips the state to running if no run is active.
// Returns false when a run is already in flight.
func (s *runState) tryStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.progress = "Starting..."
	s.current = 0
	s.total = 0
	s.notifyLocked()
	return true
}

// setProgress updates the progress message and optional counters
func (s *runState) setProgress(msg string, current, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = msg
	s.current = current
	s.total = total
	s.notifyLocked()
}

// finish marks the run as no longer active, keeping the final progress
// message in place for status readers.
func (s *runState) finish(results int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if results >= 0 {
		s.results = results
	}
	s.notifyLocked()
}

// snapshot returns a copy of the current state
func (s *runState) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *runState) snapshotLocked() Snapshot {
	return Snapshot{
		Running:  s.running,
		Progress: s.progress,
		Current:  s.current,
		Total:    s.total,
		Results:  s.results,
	}
}

// subscribe registers a progress listener. The returned channel is buffered;
// slow listeners drop intermediate snapshots rather than block the run.
func (s *runState) subscribe() chan Snapshot {
	ch := make(chan Snapshot, 16)
	s.mu.Lock()
	s.listeners[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()
	return ch
}

// unsubscribe removes a listener and closes its channel
func (s *runState) unsubscribe(ch chan Snapshot) {
	s.mu.Lock()
	if _, ok := s.listeners[ch]; ok {
		delete(s.listeners, ch)
		close(ch)
	}
	s.mu.Unlock()
}

func (s *runState) notifyLocked() {
	snap := s.snapshotLocked()
	for ch := range s.listeners {
		select {
		case ch <- snap:
		default:
		}
	}
}
