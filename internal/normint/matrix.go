// Package normint implements the normalization-integral matrix: a
// Hermitian N×N table of ∫ A_i A_j* dΦ integrals over a Monte Carlo
// sample, plus its on-disk serialization so a fit process can reuse a
// previously computed normalization without re-integrating.
package normint

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Matrix holds a Hermitian N×N complex matrix. Set and Add write an
// entry and its conjugate mirror together, so Get reads either
// triangle directly.
type Matrix struct {
	n      int
	data   []complex128 // row-major, length n*n, both triangles kept in sync
	labels []string      // term full-names, axis order; may be nil
}

// NewMatrix allocates an n×n zero matrix.
func NewMatrix(n int) *Matrix {
	return &Matrix{n: n, data: make([]complex128, n*n)}
}

// N reports the matrix dimension.
func (m *Matrix) N() int { return m.n }

// Labels returns the ordered term full-names used as this matrix's
// axis labels, or nil if none were set.
func (m *Matrix) Labels() []string { return append([]string(nil), m.labels...) }

// SetLabels records the ordered term full-names used as this matrix's
// axis labels, persisted alongside the data by WriteTo. len(labels)
// must equal N().
func (m *Matrix) SetLabels(labels []string) error {
	if len(labels) != m.n {
		return fmt.Errorf("normint: %d labels does not match matrix dimension %d", len(labels), m.n)
	}
	m.labels = append([]string(nil), labels...)
	return nil
}

// Set writes entry (i,j) and its Hermitian conjugate (j,i) in one call.
// Panics if i==j and v has a non-zero imaginary part: diagonal entries
// of a normalization-integral matrix are always real.
func (m *Matrix) Set(i, j int, v complex128) {
	if i == j && imag(v) != 0 {
		panic(fmt.Sprintf("normint: diagonal entry (%d,%d) must be real, got %v", i, j, v))
	}
	m.data[i*m.n+j] = v
	m.data[j*m.n+i] = complex(real(v), -imag(v))
}

// Get returns entry (i,j).
func (m *Matrix) Get(i, j int) complex128 {
	return m.data[i*m.n+j]
}

// Add accumulates v into (i,j) and its conjugate into (j,i), used when
// integral contributions are computed incrementally across chunks of
// a Monte Carlo sample.
func (m *Matrix) Add(i, j int, v complex128) {
	m.Set(i, j, m.Get(i, j)+v)
}

// IsHermitian reports whether every off-diagonal pair is exact
// conjugates and every diagonal entry is real, within tol.
func (m *Matrix) IsHermitian(tol float64) bool {
	for i := 0; i < m.n; i++ {
		if math.Abs(imag(m.Get(i, i))) > tol {
			return false
		}
		for j := i + 1; j < m.n; j++ {
			a, b := m.Get(i, j), m.Get(j, i)
			if math.Abs(real(a)-real(b)) > tol || math.Abs(imag(a)+imag(b)) > tol {
				return false
			}
		}
	}
	return true
}

const matrixMagic uint32 = 0x4e_49_4d_31 // "NIM1"

// WriteTo serializes the matrix as a magic number, dimension, the
// ordered list of axis labels (each a uint32 length followed by its
// UTF-8 bytes; an empty string if no label was set for that axis),
// then n*n interleaved (re,im) float64 pairs in row-major order.
func (m *Matrix) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64
	if err := binary.Write(bw, binary.LittleEndian, matrixMagic); err != nil {
		return written, err
	}
	written += 4
	if err := binary.Write(bw, binary.LittleEndian, uint32(m.n)); err != nil {
		return written, err
	}
	written += 4
	labels := m.labels
	if labels == nil {
		labels = make([]string, m.n)
	}
	for _, label := range labels {
		b := []byte(label)
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(b))); err != nil {
			return written, err
		}
		written += 4
		if len(b) > 0 {
			n, err := bw.Write(b)
			written += int64(n)
			if err != nil {
				return written, err
			}
		}
	}
	for _, v := range m.data {
		if err := binary.Write(bw, binary.LittleEndian, real(v)); err != nil {
			return written, err
		}
		if err := binary.Write(bw, binary.LittleEndian, imag(v)); err != nil {
			return written, err
		}
		written += 16
	}
	return written, bw.Flush()
}

// ReadFrom deserializes a matrix written by WriteTo, returning the
// matrix and its ordered axis labels (empty strings if the writer had
// none set).
func ReadFrom(r io.Reader) (*Matrix, []string, error) {
	br := bufio.NewReader(r)
	var magic, n uint32
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return nil, nil, fmt.Errorf("normint: reading magic: %w", err)
	}
	if magic != matrixMagic {
		return nil, nil, fmt.Errorf("normint: bad magic %#x, expected %#x", magic, matrixMagic)
	}
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return nil, nil, fmt.Errorf("normint: reading dimension: %w", err)
	}
	labels := make([]string, n)
	for i := range labels {
		var strLen uint32
		if err := binary.Read(br, binary.LittleEndian, &strLen); err != nil {
			return nil, nil, fmt.Errorf("normint: reading label %d length: %w", i, err)
		}
		if strLen > 0 {
			b := make([]byte, strLen)
			if _, err := io.ReadFull(br, b); err != nil {
				return nil, nil, fmt.Errorf("normint: reading label %d: %w", i, err)
			}
			labels[i] = string(b)
		}
	}
	m := NewMatrix(int(n))
	for i := range m.data {
		var re, im float64
		if err := binary.Read(br, binary.LittleEndian, &re); err != nil {
			return nil, nil, fmt.Errorf("normint: reading entry %d: %w", i, err)
		}
		if err := binary.Read(br, binary.LittleEndian, &im); err != nil {
			return nil, nil, fmt.Errorf("normint: reading entry %d: %w", i, err)
		}
		m.data[i] = complex(re, im)
	}
	hasLabel := false
	for _, l := range labels {
		if l != "" {
			hasLabel = true
			break
		}
	}
	if hasLabel {
		m.labels = labels
	}
	return m, labels, nil
}
