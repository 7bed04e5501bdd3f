package breaker

import (
	"github.com/RowanDark/xorbreak/internal/score"
)

const (
	// DefaultMinKeyLength is the shortest key length tried by default.
	DefaultMinKeyLength = 2
	// DefaultMaxKeyLength is the longest key length tried by default.
	DefaultMaxKeyLength = 40
	// DefaultSampleBlocks is the number of key-length blocks compared per
	// candidate length. It must be even.
	DefaultSampleBlocks = 10
)

type options struct {
	scorer       score.Scorer
	workers      int
	minLen       int
	maxLen       int
	sampleBlocks int
	keyLength    int
}

// Option customises a break.
type Option func(*options)

func defaultOptions() options {
	return options{
		scorer:       score.NewRankScorer(score.DefaultTopN, false),
		workers:      1,
		minLen:       DefaultMinKeyLength,
		maxLen:       DefaultMaxKeyLength,
		sampleBlocks: DefaultSampleBlocks,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.scorer == nil {
		o.scorer = score.NewRankScorer(score.DefaultTopN, false)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	return o
}

// WithScorer replaces the default rank scorer.
func WithScorer(s score.Scorer) Option {
	return func(o *options) { o.scorer = s }
}

// WithWorkers spreads candidate keys and key columns over n goroutines.
// Results do not depend on n.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithKeyLengthRange bounds the key lengths tried by the estimator.
func WithKeyLengthRange(minLen, maxLen int) Option {
	return func(o *options) {
		o.minLen = minLen
		o.maxLen = maxLen
	}
}

// WithSampleBlocks sets how many blocks the estimator compares per length.
func WithSampleBlocks(n int) Option {
	return func(o *options) { o.sampleBlocks = n }
}

// WithKeyLength skips estimation and breaks with a key of exactly n bytes.
func WithKeyLength(n int) Option {
	return func(o *options) { o.keyLength = n }
}
