package config

import (
	"github.com/RowanDark/xorbreak/internal/breaker"
	"github.com/RowanDark/xorbreak/internal/score"
)

// Scorer builds the scorer described by the scoring section, loading the
// frequency table when one is configured.
func (c Config) Scorer() (score.Scorer, error) {
	opts := score.Options{
		Method: score.Method(c.Scoring.Method),
		TopN:   c.Scoring.TopN,
		Strict: c.Scoring.Strict,
	}
	if c.Scoring.TablePath != "" {
		table, err := score.LoadTable(c.Scoring.TablePath)
		if err != nil {
			return nil, err
		}
		opts.Table = &table
	}
	return score.New(opts)
}

// BreakerOptions translates the configuration into breaker options.
func (c Config) BreakerOptions() ([]breaker.Option, error) {
	scorer, err := c.Scorer()
	if err != nil {
		return nil, err
	}
	return []breaker.Option{
		breaker.WithScorer(scorer),
		breaker.WithWorkers(c.Workers),
		breaker.WithKeyLengthRange(c.KeyLength.Min, c.KeyLength.Max),
		breaker.WithSampleBlocks(c.KeyLength.SampleBlocks),
	}, nil
}
