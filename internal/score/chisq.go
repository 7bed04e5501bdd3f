package score

// ChiSquaredScorer measures the chi-squared distance between the letter and
// space counts of a candidate and the counts expected from Table. The
// statistic is divided by the squared fraction of letters and spaces so that
// text padded with symbols is penalised, then mapped to 1/(1+chi) so higher
// remains better. Text without any letter or space scores zero.
type ChiSquaredScorer struct {
	Table  Table
	Strict bool
}

// NewChiSquaredScorer returns a scorer over DefaultTable.
func NewChiSquaredScorer(strict bool) *ChiSquaredScorer {
	return &ChiSquaredScorer{Table: DefaultTable(), Strict: strict}
}

func (s *ChiSquaredScorer) Score(text []byte) float64 {
	if len(text) == 0 {
		return 0
	}
	if s.Strict && !Printable(text) {
		return 0
	}

	var counts [tableSize]int
	letters := 0
	for _, b := range text {
		if i, ok := index(Fold(b)); ok {
			counts[i]++
			letters++
		}
	}
	if letters == 0 {
		return 0
	}

	n := float64(len(text))
	var chi float64
	for i, c := range counts {
		expected := s.Table.Freq[i] * n
		if expected == 0 {
			continue
		}
		d := float64(c) - expected
		chi += d * d / expected
	}
	frac := float64(letters) / n
	return 1 / (1 + chi/(frac*frac))
}
