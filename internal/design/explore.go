package design

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/resource"
	"github.com/fentz26/rtcheck/internal/sched"
)

// SearchConcurrency finds an interface with the given period, exploring
// the concurrencies in conc with strategy.
func SearchConcurrency(ctx context.Context, ts models.TaskSet, period models.Time, conc ConcurrencyRange,
	strategy Strategy, fn ResourceFunc) (resource.MultiprocessorResourceModel, error) {
	if conc.Min < 1 || conc.Max < conc.Min {
		return resource.MultiprocessorResourceModel{}, ErrInvalidBounds
	}

	try := func(m int64) (resource.MultiprocessorResourceModel, bool, error) {
		model, err := SearchResource(ctx, ts, Candidate{Period: period, Concurrency: m}, fn)
		if err != nil {
			if aborts(err) {
				return model, false, err
			}
			return model, false, nil
		}
		return model, true, nil
	}

	var (
		best  resource.MultiprocessorResourceModel
		found bool
	)
	switch strategy {
	case Naive:
		for m := conc.Min; m <= conc.Max; m++ {
			model, ok, err := try(m)
			if err != nil {
				return best, err
			}
			if ok && (!found || model.Resource < best.Resource) {
				best, found = model, true
			}
		}
	case MonotoneLinear:
		for m := conc.Min; m <= conc.Max && !found; m++ {
			model, ok, err := try(m)
			if err != nil {
				return best, err
			}
			if ok {
				best, found = model, true
			}
		}
	case MonotoneBinary:
		lo, hi := conc.Min, conc.Max
		for lo <= hi {
			mid := lo + (hi-lo)/2
			model, ok, err := try(mid)
			if err != nil {
				return best, err
			}
			if ok {
				best, found = model, true
				hi = mid - 1
			} else {
				lo = mid + 1
			}
		}
	default:
		return best, ErrUnknownStrategy
	}

	if !found {
		return best, sched.Infeasible("no concurrency in [%d, %d] fits period %d", conc.Min, conc.Max, int64(period))
	}
	return best, nil
}

// SearchPeriod explores periods concurrently, at most cfg.WorkerLimit()
// at a time, and returns the interface with the smallest budget. Ties go
// to the earliest period.
func SearchPeriod(ctx context.Context, ts models.TaskSet, periods []models.Time, conc ConcurrencyRange,
	strategy Strategy, fn ResourceFunc, cfg *Config) (resource.MultiprocessorResourceModel, error) {
	log := cfg.logger()
	log.Debug("period search started", "periods", len(periods), "strategy", strategy.String(), "workers", cfg.WorkerLimit())

	results := make([]*resource.MultiprocessorResourceModel, len(periods))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.WorkerLimit())
	for i, period := range periods {
		i, period := i, period
		g.Go(func() error {
			model, err := SearchConcurrency(gctx, ts, period, conc, strategy, fn)
			if err != nil {
				if aborts(err) {
					return err
				}
				log.Debug("period rejected", "period", int64(period), "reason", err)
				return nil
			}
			log.Debug("period accepted", "period", int64(period), "model", model.String())
			results[i] = &model
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return resource.MultiprocessorResourceModel{}, err
	}

	var best *resource.MultiprocessorResourceModel
	for _, model := range results {
		if model != nil && (best == nil || model.Resource < best.Resource) {
			best = model
		}
	}
	if best == nil {
		log.Debug("period search infeasible")
		return resource.MultiprocessorResourceModel{}, sched.Infeasible("no period among %d candidates admits an interface", len(periods))
	}
	log.Debug("period search finished", "model", best.String())
	return *best, nil
}
