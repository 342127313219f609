package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RandomSource is the uniform generator the sampler draws from. *math/rand/v2.Rand
// satisfies it; tests inject fixed sequences.
type RandomSource interface {
	Float64() float64
}

// Sampler runs Monte Carlo portfolio simulations.
//
// Weights are drawn as independent uniform(0,1) values divided by their sum. This is not
// a uniform distribution on the simplex: draws concentrate toward equal weighting. The
// scheme is kept on purpose because changing the distribution changes which portfolios
// a given seed finds.
type Sampler struct {
	rng     RandomSource
	workers int
	log     zerolog.Logger
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithWorkers evaluates trials on n goroutines. Draw order, and therefore every index,
// is unaffected.
func WithWorkers(n int) SamplerOption {
	return func(s *Sampler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) SamplerOption {
	return func(s *Sampler) {
		s.log = log.With().Str("component", "sampler").Logger()
	}
}

// NewSampler builds a sampler around an explicit random source.
func NewSampler(rng RandomSource, opts ...SamplerOption) *Sampler {
	s := &Sampler{rng: rng, workers: 1, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate draws numTrials weight vectors and scores each against returns.
// Invalid trials keep their slot. It fails with ErrInsufficientAssets before drawing
// anything when returns has fewer than two assets or no rows, and with
// ErrNoValidPortfolio when no trial has finite metrics.
func (s *Sampler) Simulate(ctx context.Context, returns *ReturnTable, numTrials int) (*Results, error) {
	if returns == nil || returns.NumAssets() < 2 || returns.NumRows() == 0 {
		n := 0
		if returns != nil {
			n = returns.NumAssets()
		}
		return nil, fmt.Errorf("simulate with %d assets: %w", n, ErrInsufficientAssets)
	}
	if numTrials < 1 {
		return nil, fmt.Errorf("simulate %d trials: %w", numTrials, ErrNoValidPortfolio)
	}

	moments, err := NewMoments(returns)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	res := &Results{
		Assets:      returns.Assets,
		Performance: make([]Performance, numTrials),
		Weights:     make([]WeightVector, numTrials),
	}

	// Drawing stays sequential so trial i always receives the i-th draw.
	for i := range res.Weights {
		res.Weights[i] = s.draw(returns.NumAssets())
	}

	if err := s.evaluate(ctx, moments, res); err != nil {
		return nil, err
	}

	valid := res.ValidCount()
	s.log.Debug().
		Int("trials", numTrials).
		Int("valid", valid).
		Int("workers", s.workers).
		Dur("elapsed", time.Since(started)).
		Msg("simulation finished")

	if valid == 0 {
		return nil, fmt.Errorf("simulate %d trials: %w", numTrials, ErrNoValidPortfolio)
	}
	return res, nil
}

func (s *Sampler) draw(n int) WeightVector {
	w := make(WeightVector, n)
	sum := 0.0
	for j := range w {
		w[j] = s.rng.Float64()
		sum += w[j]
	}
	for j := range w {
		w[j] /= sum
	}
	return w
}

func (s *Sampler) evaluate(ctx context.Context, m *Moments, res *Results) error {
	n := res.Len()
	if s.workers <= 1 || n < 2 {
		for i := 0; i < n; i++ {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			p, err := m.Evaluate(res.Weights[i])
			if err != nil {
				return err
			}
			res.Performance[i] = p
		}
		return nil
	}

	workers := s.workers
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				p, err := m.Evaluate(res.Weights[i])
				if err != nil {
					return err
				}
				res.Performance[i] = p
			}
			return nil
		})
	}
	return g.Wait()
}
