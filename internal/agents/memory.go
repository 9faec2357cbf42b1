// Agent memory stream: a bounded record of notable moments in an agent's
// language development, surfaced by the observer API.
package agents

import "sort"

const MaxMemories = 50

// Importance of the events agents remember.
const (
	importanceConcept = 0.2
	importanceAdopt   = 0.4
	importanceCoin    = 0.5
)

// Memory records a notable event.
type Memory struct {
	Cycle      int     `json:"cycle"`
	Content    string  `json:"content"`
	Importance float32 `json:"importance"` // 0.0–1.0
}

// AddMemory appends a memory to the agent's stream. When full, drops the
// lowest-importance memory to make room.
func AddMemory(a *Agent, content string, importance float32) {
	m := Memory{Cycle: a.Cycle, Content: content, Importance: importance}

	if len(a.Memories) < MaxMemories {
		a.Memories = append(a.Memories, m)
		return
	}

	minIdx := 0
	for i := 1; i < len(a.Memories); i++ {
		if a.Memories[i].Importance < a.Memories[minIdx].Importance {
			minIdx = i
		}
	}
	if m.Importance > a.Memories[minIdx].Importance {
		a.Memories[minIdx] = m
	}
}

// RecentMemories returns the most recent N memories, newest first.
func RecentMemories(mems []Memory, count int) []Memory {
	if len(mems) == 0 {
		return nil
	}

	sorted := make([]Memory, len(mems))
	copy(sorted, mems)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Cycle > sorted[j].Cycle
	})

	if count > len(sorted) {
		count = len(sorted)
	}
	return sorted[:count]
}

// ImportantMemories returns the top N memories by importance.
func ImportantMemories(mems []Memory, count int) []Memory {
	if len(mems) == 0 {
		return nil
	}

	sorted := make([]Memory, len(mems))
	copy(sorted, mems)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Importance > sorted[j].Importance
	})

	if count > len(sorted) {
		count = len(sorted)
	}
	return sorted[:count]
}
