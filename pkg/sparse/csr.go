// Package sparse implements the compressed sparse row matrix used as the
// adjacency operator of the vectorized engine.
package sparse

import (
	"errors"
	"fmt"
	"slices"
)

// Errors returned by shape validation.
var (
	ErrNotSquare    = errors.New("matrix is not square")
	ErrNotSymmetric = errors.New("matrix is not symmetric")
	ErrSelfLoop     = errors.New("matrix has a non-zero diagonal")
	ErrOutOfRange   = errors.New("index out of range")
)

// CSR is an immutable compressed sparse row matrix of float64 values.
// Column indices within a row are sorted ascending and unique.
type CSR struct {
	rows    int
	cols    int
	indptr  []int
	indices []int
	data    []float64
}

// Entry is one (row, col, value) triple.
type Entry struct {
	Row   int
	Col   int
	Value float64
}

// FromEntries builds a rows x cols CSR matrix. Duplicate coordinates are
// summed; explicit zeros are dropped.
func FromEntries(rows, cols int, entries []Entry) (*CSR, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: shape %dx%d", ErrOutOfRange, rows, cols)
	}

	counts := make([]int, rows+1)
	for _, e := range entries {
		if e.Row < 0 || e.Row >= rows || e.Col < 0 || e.Col >= cols {
			return nil, fmt.Errorf("%w: (%d, %d) in %dx%d", ErrOutOfRange, e.Row, e.Col, rows, cols)
		}
		counts[e.Row+1]++
	}
	for i := 1; i <= rows; i++ {
		counts[i] += counts[i-1]
	}

	// Scatter into row buckets, then sort and merge each row.
	cursor := slices.Clone(counts[:rows])
	indices := make([]int, len(entries))
	data := make([]float64, len(entries))
	for _, e := range entries {
		p := cursor[e.Row]
		indices[p] = e.Col
		data[p] = e.Value
		cursor[e.Row]++
	}

	m := &CSR{rows: rows, cols: cols, indptr: make([]int, rows+1)}
	m.indices = make([]int, 0, len(entries))
	m.data = make([]float64, 0, len(entries))
	for r := 0; r < rows; r++ {
		lo, hi := counts[r], counts[r+1]
		order := make([]int, hi-lo)
		for i := range order {
			order[i] = lo + i
		}
		slices.SortStableFunc(order, func(a, b int) int { return indices[a] - indices[b] })

		for k := 0; k < len(order); {
			col := indices[order[k]]
			sum := 0.0
			for ; k < len(order) && indices[order[k]] == col; k++ {
				sum += data[order[k]]
			}
			if sum != 0 {
				m.indices = append(m.indices, col)
				m.data = append(m.data, sum)
			}
		}
		m.indptr[r+1] = len(m.indices)
	}
	return m, nil
}

// FromAdjacency builds an n x n 0/1 matrix from neighbor lists.
// Repeated neighbors collapse to a single 1.
func FromAdjacency(adj [][]int) (*CSR, error) {
	n := len(adj)
	m := &CSR{rows: n, cols: n, indptr: make([]int, n+1)}
	for r, neighbors := range adj {
		row := slices.Clone(neighbors)
		slices.Sort(row)
		row = slices.Compact(row)
		for _, c := range row {
			if c < 0 || c >= n {
				return nil, fmt.Errorf("%w: (%d, %d) in %dx%d", ErrOutOfRange, r, c, n, n)
			}
			m.indices = append(m.indices, c)
			m.data = append(m.data, 1)
		}
		m.indptr[r+1] = len(m.indices)
	}
	return m, nil
}

// Dims returns (rows, cols).
func (m *CSR) Dims() (int, int) { return m.rows, m.cols }

// NNZ returns the number of stored non-zero values.
func (m *CSR) NNZ() int { return len(m.data) }

// At returns the value at (r, c).
func (m *CSR) At(r, c int) float64 {
	row := m.indices[m.indptr[r]:m.indptr[r+1]]
	if i, found := slices.BinarySearch(row, c); found {
		return m.data[m.indptr[r]+i]
	}
	return 0
}

// Row returns the column indices of the stored values in row r. The slice
// must not be modified.
func (m *CSR) Row(r int) []int {
	return m.indices[m.indptr[r]:m.indptr[r+1]]
}

// MulVec computes dst = m * x. dst is allocated when nil.
func (m *CSR) MulVec(dst, x []float64) ([]float64, error) {
	if len(x) != m.cols {
		return nil, fmt.Errorf("%w: vector length %d, want %d", ErrOutOfRange, len(x), m.cols)
	}
	if dst == nil {
		dst = make([]float64, m.rows)
	} else if len(dst) != m.rows {
		return nil, fmt.Errorf("%w: destination length %d, want %d", ErrOutOfRange, len(dst), m.rows)
	}

	for r := 0; r < m.rows; r++ {
		sum := 0.0
		for p := m.indptr[r]; p < m.indptr[r+1]; p++ {
			sum += m.data[p] * x[m.indices[p]]
		}
		dst[r] = sum
	}
	return dst, nil
}

// ValidateAdjacency checks that m is square, symmetric and has a zero
// diagonal.
func (m *CSR) ValidateAdjacency() error {
	if m.rows != m.cols {
		return fmt.Errorf("%w: %dx%d", ErrNotSquare, m.rows, m.cols)
	}
	for r := 0; r < m.rows; r++ {
		for p := m.indptr[r]; p < m.indptr[r+1]; p++ {
			c := m.indices[p]
			if c == r {
				return fmt.Errorf("%w: (%d, %d)", ErrSelfLoop, r, c)
			}
			if m.At(c, r) != m.data[p] {
				return fmt.Errorf("%w: (%d, %d) != (%d, %d)", ErrNotSymmetric, r, c, c, r)
			}
		}
	}
	return nil
}
