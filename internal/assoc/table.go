package assoc

import "fmt"

// Table is the raw dump of a matrix: the word labels as header and one
// weight row per concept, both in insertion order.
type Table struct {
	Words []string   `json:"words"`
	Rows  []TableRow `json:"rows"`
}

// TableRow is one concept's weights, aligned with Table.Words.
type TableRow struct {
	Concept string    `json:"concept"`
	Weights []float64 `json:"weights"`
}

// Table dumps the matrix. The result shares no memory with m.
func (m *Matrix) Table() Table {
	t := Table{
		Words: append([]string(nil), m.cols...),
		Rows:  make([]TableRow, len(m.rows)),
	}
	for i, concept := range m.rows {
		t.Rows[i] = TableRow{Concept: concept, Weights: append([]float64(nil), m.cells[i]...)}
	}
	return t
}

// FromTable rebuilds a matrix from a dump.
func FromTable(name string, lateralInhibition bool, t Table) (*Matrix, error) {
	m := New(name, lateralInhibition)
	for _, w := range t.Words {
		if m.HasWord(w) {
			return nil, fmt.Errorf("table %s: duplicate word %q", name, w)
		}
		m.ensureCol(w)
	}
	for _, row := range t.Rows {
		if m.HasConcept(row.Concept) {
			return nil, fmt.Errorf("table %s: duplicate concept %q", name, row.Concept)
		}
		if len(row.Weights) != len(t.Words) {
			return nil, fmt.Errorf("table %s: concept %q has %d weights for %d words",
				name, row.Concept, len(row.Weights), len(t.Words))
		}
		r := m.ensureRow(row.Concept)
		copy(m.cells[r], row.Weights)
	}
	return m, nil
}
