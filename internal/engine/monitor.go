package engine

import (
	"sort"
	"sync"
)

// Progress is one replica's state as last reported.
type Progress struct {
	RunID           string  `json:"run_id"`
	Replica         int     `json:"replica"`
	Cycle           int     `json:"cycle"`
	Cycles          int     `json:"cycles"`
	Success         float64 `json:"success"`
	SuccessfulWords float64 `json:"successful_words"`
	Words           int     `json:"words_in_world"`
	Done            bool    `json:"done"`
}

// Monitor is the progress board shared by all replicas of a run and read
// by observers. Slow subscribers miss updates rather than stall a replica.
type Monitor struct {
	mu     sync.RWMutex
	runID  string
	latest map[int]Progress
	subs   map[int]chan Progress
	nextID int
}

// NewMonitor creates an empty board for the run.
func NewMonitor(runID string) *Monitor {
	return &Monitor{
		runID:  runID,
		latest: make(map[int]Progress),
		subs:   make(map[int]chan Progress),
	}
}

// RunID returns the run the board belongs to.
func (m *Monitor) RunID() string {
	return m.runID
}

// Report records p and fans it out to subscribers.
func (m *Monitor) Report(p Progress) {
	p.RunID = m.runID

	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[p.Replica] = p
	for _, ch := range m.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

// Snapshot returns the latest progress of every replica, by replica number.
func (m *Monitor) Snapshot() []Progress {
	m.mu.RLock()
	out := make([]Progress, 0, len(m.latest))
	for _, p := range m.latest {
		out = append(out, p)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Replica < out[j].Replica })
	return out
}

// Done reports whether every replica seen so far has finished.
func (m *Monitor) Done() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.latest) == 0 {
		return false
	}
	for _, p := range m.latest {
		if !p.Done {
			return false
		}
	}
	return true
}

// Subscribe returns a channel receiving every report from now on and a
// function that unsubscribes and closes it.
func (m *Monitor) Subscribe(buffer int) (<-chan Progress, func()) {
	ch := make(chan Progress, buffer)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(ch)
		})
	}
}
