// Package nrm computes and persists the numerator relationship matrix over a
// renumbered pedigree using the tabular method. The matrix is indexed by
// canonical identity, so it is only meaningful for a consistent container.
package nrm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"pedigreecore/internal/pedigree"
	"pedigreecore/pkg/domain"
)

// Matrix is a dense square matrix indexed by canonical identity, 1-based.
type Matrix struct {
	N      int
	Values []float64
}

// NewMatrix allocates an n by n zero matrix.
func NewMatrix(n int) *Matrix {
	return &Matrix{N: n, Values: make([]float64, n*n)}
}

// At returns the coefficient for canonical identities i and j.
func (m *Matrix) At(i, j int) float64 {
	return m.Values[(i-1)*m.N+(j-1)]
}

// Set stores the coefficient for canonical identities i and j.
func (m *Matrix) Set(i, j int, v float64) {
	m.Values[(i-1)*m.N+(j-1)] = v
}

// Compute builds the relationship matrix by the tabular method: the
// topological invariant guarantees both parents of row i already have their
// rows filled, so one forward pass suffices.
func Compute(ped *pedigree.Pedigree) (*Matrix, error) {
	if !ped.Renumbered() {
		return nil, domain.ConsistencyError{Op: "nrm compute", Reason: "pedigree is not renumbered"}
	}
	missing := ped.Options().MissingParent
	records := ped.Records()
	n := len(records)
	m := NewMatrix(n)

	for idx, a := range records {
		i := a.ID
		if i != idx+1 {
			return nil, domain.ConsistencyError{Op: "nrm compute",
				Reason: fmt.Sprintf("canonical identity %d at position %d", i, idx+1)}
		}
		s := a.SireID
		d := a.DamID
		diag := 1.0
		if s != missing && d != missing {
			diag += 0.5 * m.At(s, d)
		}
		m.Set(i, i, diag)
		for j := 1; j < i; j++ {
			var v float64
			if s != missing {
				v += 0.5 * m.At(j, s)
			}
			if d != missing {
				v += 0.5 * m.At(j, d)
			}
			m.Set(i, j, v)
			m.Set(j, i, v)
		}
	}
	return m, nil
}

// SaveText writes the matrix as whitespace-delimited rows preceded by the
// dimension.
func (m *Matrix) SaveText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, m.N); err != nil {
		return err
	}
	for i := 1; i <= m.N; i++ {
		fields := make([]string, m.N)
		for j := 1; j <= m.N; j++ {
			fields[j-1] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if _, err := fmt.Fprintln(bw, strings.Join(fields, " ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadText reads a matrix written by SaveText.
func LoadText(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return nil, domain.FormatError{Line: 1, Reason: "missing matrix dimension"}
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || n < 0 {
		return nil, domain.FormatError{Line: 1, Reason: "invalid matrix dimension"}
	}
	m := NewMatrix(n)
	for i := 1; i <= n; i++ {
		if !scanner.Scan() {
			return nil, domain.FormatError{Line: i + 1, Reason: "matrix row missing"}
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) != n {
			return nil, domain.FormatError{Line: i + 1,
				Reason: fmt.Sprintf("row has %d values, dimension is %d", len(fields), n)}
		}
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, domain.FormatError{Line: i + 1, Reason: "unparseable value " + f}
			}
			m.Set(i, j+1, v)
		}
	}
	return m, scanner.Err()
}

// SaveBinary writes the dimension followed by the flat coefficient slab in
// little-endian order.
func (m *Matrix) SaveBinary(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, int64(m.N)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, m.Values)
}

// LoadBinary reads a matrix written by SaveBinary.
func LoadBinary(r io.Reader) (*Matrix, error) {
	var n int64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, domain.FormatError{Reason: "negative matrix dimension"}
	}
	m := NewMatrix(int(n))
	if err := binary.Read(r, binary.LittleEndian, m.Values); err != nil {
		return nil, err
	}
	return m, nil
}

// SaveTextFile and LoadTextFile wrap the stream forms for path-based callers.
func (m *Matrix) SaveTextFile(path string) error {
	f, err := os.Create(path) // #nosec G304: caller-provided output path
	if err != nil {
		return domain.ResourceError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	return m.SaveText(f)
}

func LoadTextFile(path string) (*Matrix, error) {
	f, err := os.Open(path) // #nosec G304: caller-provided data path
	if err != nil {
		return nil, domain.ResourceError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()
	return LoadText(f)
}
