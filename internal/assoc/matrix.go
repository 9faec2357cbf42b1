// Package assoc implements the weighted association matrix linking an
// agent's concept tags (rows) to its word tags (columns).
//
// The matrix only grows: rows and columns are appended, cells are
// reweighted but never removed, and growth never touches stored values.
package assoc

import (
	"errors"
	"fmt"

	"github.com/talgya/concept-world/internal/metric"
)

// LinkWeight is the weight every fresh or refreshed link starts at.
const LinkWeight = 0.5

// ErrUnknownLabel is returned when a weight update names a concept or word
// the matrix has never linked.
var ErrUnknownLabel = errors.New("unknown matrix label")

// Matrix is a dense concept × word weight table with O(1) label lookup.
type Matrix struct {
	Name string

	// LateralInhibition makes every reinforcement also weaken the competing
	// links of the same concept and of the same word.
	LateralInhibition bool

	rows     []string
	cols     []string
	rowIndex map[string]int
	colIndex map[string]int
	cells    [][]float64 // cells[row][col]
}

// New creates an empty matrix.
func New(name string, lateralInhibition bool) *Matrix {
	return &Matrix{
		Name:              name,
		LateralInhibition: lateralInhibition,
		rowIndex:          make(map[string]int),
		colIndex:          make(map[string]int),
	}
}

// Size returns the number of rows (concepts) and columns (words).
func (m *Matrix) Size() (rows, cols int) {
	return len(m.rows), len(m.cols)
}

// Concepts returns the row labels in insertion order.
func (m *Matrix) Concepts() []string {
	return append([]string(nil), m.rows...)
}

// Words returns the column labels in insertion order.
func (m *Matrix) Words() []string {
	return append([]string(nil), m.cols...)
}

// HasConcept reports whether the concept has a row.
func (m *Matrix) HasConcept(concept string) bool {
	_, ok := m.rowIndex[concept]
	return ok
}

// HasWord reports whether the word has a column.
func (m *Matrix) HasWord(word string) bool {
	_, ok := m.colIndex[word]
	return ok
}

// AddLink sets the concept/word cell to LinkWeight, appending a row and/or
// a column first when either label is new. New cells other than the linked
// one start at 0.
func (m *Matrix) AddLink(concept, word string) {
	r := m.ensureRow(concept)
	c := m.ensureCol(word)
	m.cells[r][c] = LinkWeight
}

// IncreaseStrength adds amount to the link, capped at 1. With lateral
// inhibition every other cell in the concept's row and in the word's
// column loses amount, floored at 0.
func (m *Matrix) IncreaseStrength(word, concept string, amount float64) error {
	r, c, err := m.cell(word, concept)
	if err != nil {
		return fmt.Errorf("increase strength: %w", err)
	}
	m.cells[r][c] = clamp(m.cells[r][c] + amount)

	if !m.LateralInhibition {
		return nil
	}
	for i := range m.rows {
		if i != r {
			m.cells[i][c] = clamp(m.cells[i][c] - amount)
		}
	}
	for j := range m.cols {
		if j != c {
			m.cells[r][j] = clamp(m.cells[r][j] - amount)
		}
	}
	return nil
}

// DecreaseStrength subtracts amount from the link only, floored at 0.
func (m *Matrix) DecreaseStrength(word, concept string, amount float64) error {
	r, c, err := m.cell(word, concept)
	if err != nil {
		return fmt.Errorf("decrease strength: %w", err)
	}
	m.cells[r][c] = clamp(m.cells[r][c] - amount)
	return nil
}

// SetStrength overwrites the link weight, clamped to [0,1].
func (m *Matrix) SetStrength(word, concept string, weight float64) error {
	r, c, err := m.cell(word, concept)
	if err != nil {
		return fmt.Errorf("set strength: %w", err)
	}
	m.cells[r][c] = clamp(weight)
	return nil
}

// Weight returns the link weight; ok is false if either label is unknown.
func (m *Matrix) Weight(concept, word string) (weight float64, ok bool) {
	r, rok := m.rowIndex[concept]
	c, cok := m.colIndex[word]
	if !rok || !cok {
		return 0, false
	}
	return m.cells[r][c], true
}

// BestWordForConcept returns the word most strongly linked to the concept.
// Ties go to the word added first.
func (m *Matrix) BestWordForConcept(concept string) (string, bool) {
	r, ok := m.rowIndex[concept]
	if !ok || len(m.cols) == 0 {
		return "", false
	}
	return m.cols[metric.ArgMax(m.cells[r])], true
}

// BestConceptForWord returns the concept most strongly linked to the word.
// Ties go to the concept added first.
func (m *Matrix) BestConceptForWord(word string) (string, bool) {
	c, ok := m.colIndex[word]
	if !ok || len(m.rows) == 0 {
		return "", false
	}
	return m.rows[metric.ArgMax(m.column(c))], true
}

// Link is one labelled weight.
type Link struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// ConceptLinks returns every word weight of the concept's row.
func (m *Matrix) ConceptLinks(concept string) ([]Link, bool) {
	r, ok := m.rowIndex[concept]
	if !ok {
		return nil, false
	}
	out := make([]Link, len(m.cols))
	for j, w := range m.cols {
		out[j] = Link{Label: w, Weight: m.cells[r][j]}
	}
	return out, true
}

// WordLinks returns every concept weight of the word's column.
func (m *Matrix) WordLinks(word string) ([]Link, bool) {
	c, ok := m.colIndex[word]
	if !ok {
		return nil, false
	}
	out := make([]Link, len(m.rows))
	for i, concept := range m.rows {
		out[i] = Link{Label: concept, Weight: m.cells[i][c]}
	}
	return out, true
}

// WeakConcepts returns the concepts with no link above threshold.
func (m *Matrix) WeakConcepts(threshold float64) []string {
	var out []string
	for i, concept := range m.rows {
		if maxOf(m.cells[i]) <= threshold {
			out = append(out, concept)
		}
	}
	return out
}

// WeakWords returns the words with no link above threshold.
func (m *Matrix) WeakWords(threshold float64) []string {
	var out []string
	for j, word := range m.cols {
		if maxOf(m.column(j)) <= threshold {
			out = append(out, word)
		}
	}
	return out
}

func (m *Matrix) cell(word, concept string) (int, int, error) {
	r, ok := m.rowIndex[concept]
	if !ok {
		return 0, 0, fmt.Errorf("concept %q: %w", concept, ErrUnknownLabel)
	}
	c, ok := m.colIndex[word]
	if !ok {
		return 0, 0, fmt.Errorf("word %q: %w", word, ErrUnknownLabel)
	}
	return r, c, nil
}

func (m *Matrix) ensureRow(concept string) int {
	if r, ok := m.rowIndex[concept]; ok {
		return r
	}
	m.rows = append(m.rows, concept)
	m.rowIndex[concept] = len(m.rows) - 1
	m.cells = append(m.cells, make([]float64, len(m.cols)))
	return len(m.rows) - 1
}

func (m *Matrix) ensureCol(word string) int {
	if c, ok := m.colIndex[word]; ok {
		return c
	}
	m.cols = append(m.cols, word)
	m.colIndex[word] = len(m.cols) - 1
	for i := range m.cells {
		m.cells[i] = append(m.cells[i], 0)
	}
	return len(m.cols) - 1
}

func (m *Matrix) column(c int) []float64 {
	col := make([]float64, len(m.rows))
	for i := range m.rows {
		col[i] = m.cells[i][c]
	}
	return col
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[metric.ArgMax(values)]
}
