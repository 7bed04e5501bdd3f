package score

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	tableSize  = 27
	spaceIndex = 26
)

// Table holds relative frequencies of the letters a-z and the space character
// in English text. Index 26 is the space.
type Table struct {
	Freq [tableSize]float64
}

// DefaultTable returns letter and space frequencies measured over a large
// English corpus.
func DefaultTable() Table {
	return Table{Freq: [tableSize]float64{
		0.065454, 0.012614, 0.022382, 0.032896, 0.102875, 0.019871, 0.016282,
		0.049887, 0.056799, 0.000977, 0.005621, 0.033243, 0.020307, 0.057236,
		0.061721, 0.015074, 0.000838, 0.049980, 0.053278, 0.075322, 0.022804,
		0.007977, 0.017074, 0.001412, 0.014306, 0.000514, 0.183256,
	}}
}

// index maps a case-folded byte to its table slot.
func index(b byte) (int, bool) {
	switch {
	case 'a' <= b && b <= 'z':
		return int(b - 'a'), true
	case b == ' ':
		return spaceIndex, true
	}
	return 0, false
}

func symbol(i int) byte {
	if i == spaceIndex {
		return ' '
	}
	return byte('a' + i)
}

// Frequency returns the expected frequency of b after case folding.
func (t Table) Frequency(b byte) (float64, bool) {
	i, ok := index(Fold(b))
	if !ok {
		return 0, false
	}
	return t.Freq[i], true
}

// Order returns the table's characters sorted by descending frequency. Equal
// frequencies keep table order (a-z, then space).
func (t Table) Order() string {
	idx := make([]int, tableSize)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.Freq[idx[a]] > t.Freq[idx[b]]
	})
	out := make([]byte, tableSize)
	for i, j := range idx {
		out[i] = symbol(j)
	}
	return string(out)
}

type tableFile struct {
	Frequencies map[string]float64 `yaml:"frequencies"`
}

// ParseTable decodes a YAML frequency table:
//
//	frequencies:
//	  space: 18.28
//	  e: 10.26
//	  t: 7.51
//
// Values are normalised so they sum to one. Missing letters get zero.
func ParseTable(data []byte) (Table, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return Table{}, fmt.Errorf("parse frequency table: %w", err)
	}
	if len(tf.Frequencies) == 0 {
		return Table{}, errors.New("frequency table is empty")
	}

	var t Table
	var total float64
	for key, val := range tf.Frequencies {
		k := strings.ToLower(strings.TrimSpace(key))
		var i int
		switch {
		case k == "space" || key == " ":
			i = spaceIndex
		case len(k) == 1 && 'a' <= k[0] && k[0] <= 'z':
			i = int(k[0] - 'a')
		default:
			return Table{}, fmt.Errorf("unsupported frequency key %q", key)
		}
		if val < 0 {
			return Table{}, fmt.Errorf("negative frequency for %q", key)
		}
		t.Freq[i] += val
		total += val
	}
	if total == 0 {
		return Table{}, errors.New("frequency table sums to zero")
	}
	for i := range t.Freq {
		t.Freq[i] /= total
	}
	return t, nil
}

// LoadTable reads a YAML frequency table from disk.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read frequency table %s: %w", path, err)
	}
	return ParseTable(data)
}
