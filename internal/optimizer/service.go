// Package optimizer runs a complete Monte Carlo optimisation: price download, return
// calculation, simulation, selection and bookkeeping.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"portfolioFrontier/internal/finance"
	"portfolioFrontier/internal/metrics"
	"portfolioFrontier/internal/portfolio"
	"portfolioFrontier/internal/storage"
)

// pcgStream is the fixed second PCG word; the user-facing seed is the first.
const pcgStream = 0x9e3779b97f4a7c15

// RunStore persists run summaries.
type RunStore interface {
	SaveRun(r storage.Run) error
}

type Request struct {
	Tickers []string
	Start   time.Time
	End     time.Time
	Trials  int
	Seed    uint64 // 0 derives a seed from the clock
	Workers int
}

type Outcome struct {
	RunID    string
	Seed     uint64
	Assets   []string
	Prices   *portfolio.PriceTable
	Rows     int // return observations used
	Results  *portfolio.Results
	Optimal  portfolio.OptimalSet
	Duration time.Duration
}

type Service struct {
	prices finance.PriceProvider
	store  RunStore
	log    zerolog.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithStore enables run persistence.
func WithStore(s RunStore) Option {
	return func(svc *Service) { svc.store = s }
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

func NewService(prices finance.PriceProvider, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		prices: prices,
		log:    log.With().Str("component", "optimizer").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Run(ctx context.Context, req Request) (*Outcome, error) {
	started := s.now()
	out, err := s.run(ctx, req)
	metrics.Runs.WithLabelValues(outcomeLabel(err)).Inc()
	if err != nil {
		return nil, err
	}
	out.Duration = s.now().Sub(started)
	metrics.RunDuration.Observe(out.Duration.Seconds())
	s.log.Info().
		Str("run_id", out.RunID).
		Strs("assets", out.Assets).
		Int("trials", out.Results.Len()).
		Int("valid", out.Results.ValidCount()).
		Uint64("seed", out.Seed).
		Dur("duration", out.Duration).
		Msg("optimization complete")
	return out, nil
}

func (s *Service) run(ctx context.Context, req Request) (*Outcome, error) {
	if len(req.Tickers) == 0 {
		return nil, fmt.Errorf("no tickers given: %w", portfolio.ErrInsufficientAssets)
	}
	if req.Trials < 1 {
		return nil, fmt.Errorf("trials must be positive, got %d: %w", req.Trials, portfolio.ErrNoValidPortfolio)
	}
	if !req.End.After(req.Start) {
		return nil, fmt.Errorf("end %s is not after start %s", req.End.Format(time.DateOnly), req.Start.Format(time.DateOnly))
	}

	seed := req.Seed
	if seed == 0 {
		seed = uint64(s.now().UnixNano())
	}

	prices, err := s.prices.FetchPrices(ctx, req.Tickers, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	if prices == nil || prices.NumRows() == 0 || len(prices.Assets) == 0 {
		return nil, fmt.Errorf("provider returned no prices: %w", portfolio.ErrDataUnavailable)
	}

	returns, err := portfolio.ComputeReturns(prices)
	if err != nil {
		return nil, fmt.Errorf("compute returns: %w", err)
	}

	sampler := portfolio.NewSampler(
		rand.New(rand.NewPCG(seed, pcgStream)),
		portfolio.WithWorkers(req.Workers),
		portfolio.WithLogger(s.log),
	)
	results, err := sampler.Simulate(ctx, returns, req.Trials)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	metrics.ObserveTrials(results.Len(), results.ValidCount())

	optimal, err := results.Select()
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	out := &Outcome{
		RunID:   uuid.NewString(),
		Seed:    seed,
		Assets:  returns.Assets,
		Prices:  prices,
		Rows:    returns.NumRows(),
		Results: results,
		Optimal: optimal,
	}
	s.persist(out, req)
	return out, nil
}

func (s *Service) persist(out *Outcome, req Request) {
	if s.store == nil {
		return
	}
	err := s.store.SaveRun(storage.Run{
		ID:          out.RunID,
		CreatedAt:   s.now().UTC(),
		Tickers:     out.Assets,
		Trials:      out.Results.Len(),
		ValidTrials: out.Results.ValidCount(),
		Seed:        out.Seed,
		Start:       req.Start,
		End:         req.End,
		Optimal:     out.Optimal,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("run_id", out.RunID).Msg("failed to save run")
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, portfolio.ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, portfolio.ErrEmptyResult):
		return "empty_returns"
	case errors.Is(err, portfolio.ErrInsufficientAssets):
		return "insufficient_assets"
	case errors.Is(err, portfolio.ErrNoValidPortfolio):
		return "no_valid_portfolio"
	default:
		return "error"
	}
}
