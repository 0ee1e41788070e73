package hid

import "time"

// ChainStatus is one chain's position on the delivery timeline.
type ChainStatus struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Steps    int       `json:"steps"`
	State    string    `json:"state"`
	Error    string    `json:"error,omitempty"`
	QueuedAt time.Time `json:"queued_at"`
	EndedAt  time.Time `json:"ended_at"`
}

// Snapshot reports the queue and recent chain outcomes, oldest first.
type Snapshot struct {
	QueueDepth int           `json:"queue_depth"`
	Active     *ChainStatus  `json:"active,omitempty"`
	Recent     []ChainStatus `json:"recent"`
}

// Snapshot captures the scheduler's current timeline state.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{QueueDepth: len(s.queue)}
	if s.active != nil {
		st := *s.active
		snap.Active = &st
	}
	snap.Recent = append([]ChainStatus(nil), s.recent...)
	return snap
}
