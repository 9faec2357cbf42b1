package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/talgya/concept-world/internal/agents"
)

// RunRow is a stored run.
type RunRow struct {
	ID           string  `db:"id" json:"id"`
	Mode         string  `db:"mode" json:"mode"`
	Seed         int64   `db:"seed" json:"seed"`
	Agents       int     `db:"agents" json:"agents"`
	Cycles       int     `db:"cycles" json:"cycles"`
	Replicas     int     `db:"replicas" json:"replicas"`
	StartedAt    string  `db:"started_at" json:"started_at"`
	FinishedAt   string  `db:"finished_at" json:"finished_at"`
	FinalSuccess float64 `db:"final_success" json:"final_success"`
	FinalWords   float64 `db:"final_words" json:"final_words"`
}

// AgentRow is the summary line of a stored agent.
type AgentRow struct {
	Replica               int     `db:"replica" json:"replica"`
	Name                  string  `db:"name" json:"name"`
	Percepts              int     `db:"percepts" json:"percepts"`
	Words                 int     `db:"words" json:"words"`
	SuccessfulWords       int     `db:"successful_words" json:"successful_words"`
	DiscriminationSuccess float64 `db:"discrimination_success" json:"discrimination_success"`
	GuessingSuccess       float64 `db:"guessing_success" json:"guessing_success"`
}

// ProgressRow is one cycle of a run's aggregated series.
type ProgressRow struct {
	Cycle       int     `db:"cycle" json:"cycle"`
	SuccessMean float64 `db:"success_mean" json:"success_mean"`
	SuccessSD   float64 `db:"success_sd" json:"success_sd"`
	WordsMean   float64 `db:"words_mean" json:"words_mean"`
	WordsSD     float64 `db:"words_sd" json:"words_sd"`
}

// RecentRuns returns the most recent N runs.
func (db *DB) RecentRuns(limit int) ([]RunRow, error) {
	var runs []RunRow
	err := db.conn.Select(&runs,
		`SELECT id, mode, seed, agents, cycles, replicas, started_at, finished_at, final_success, final_words
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	return runs, err
}

// RunAgents lists the agents stored for a run.
func (db *DB) RunAgents(runID string) ([]AgentRow, error) {
	var rows []AgentRow
	err := db.conn.Select(&rows,
		`SELECT replica, name, percepts, words, successful_words, discrimination_success, guessing_success
		 FROM agents WHERE run_id = ? ORDER BY replica, name`,
		runID,
	)
	return rows, err
}

// Progress returns a run's series, every step-th cycle. The last cycle is
// always included.
func (db *DB) Progress(runID string, step int) ([]ProgressRow, error) {
	if step < 1 {
		step = 1
	}
	var rows []ProgressRow
	err := db.conn.Select(&rows,
		`SELECT cycle, success_mean, success_sd, words_mean, words_sd
		 FROM progress WHERE run_id = ?
		   AND (cycle % ? = 0 OR cycle = (SELECT MAX(cycle) FROM progress WHERE run_id = ?))
		 ORDER BY cycle`,
		runID, step, runID,
	)
	return rows, err
}

// WordsInWorld returns every word form coined or taught in a replica, in
// the order it entered the population.
func (db *DB) WordsInWorld(runID string, replica int) ([]string, error) {
	var words []string
	err := db.conn.Select(&words,
		"SELECT word FROM words_in_world WHERE run_id = ? AND replica = ? ORDER BY position",
		runID, replica,
	)
	return words, err
}

// LoadAgent returns the stored snapshot of one agent, ready for
// agents.Restore.
func (db *DB) LoadAgent(runID string, replica int, name string) (agents.Snapshot, error) {
	var raw string
	err := db.conn.Get(&raw,
		"SELECT snapshot_json FROM agents WHERE run_id = ? AND replica = ? AND name = ?",
		runID, replica, name,
	)
	if err != nil {
		return agents.Snapshot{}, fmt.Errorf("load agent %s: %w", name, err)
	}
	var snap agents.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return agents.Snapshot{}, fmt.Errorf("decode agent %s: %w", name, err)
	}
	return snap, nil
}

// AgentMemories returns the stored memory stream of one agent.
func (db *DB) AgentMemories(runID string, replica int, name string) ([]agents.Memory, error) {
	var raw string
	err := db.conn.Get(&raw,
		"SELECT memories_json FROM agents WHERE run_id = ? AND replica = ? AND name = ?",
		runID, replica, name,
	)
	if err != nil {
		return nil, fmt.Errorf("load memories of %s: %w", name, err)
	}
	var mems []agents.Memory
	if err := json.Unmarshal([]byte(raw), &mems); err != nil {
		return nil, fmt.Errorf("decode memories of %s: %w", name, err)
	}
	return mems, nil
}
