package catalog

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/iwvelando/procurement-planner/internal/config"
	"github.com/iwvelando/procurement-planner/internal/models"
	"github.com/iwvelando/procurement-planner/internal/zone"
	"github.com/iwvelando/procurement-planner/pkg/constants"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives the number of evaluated combinations. With more than
// one worker it may be called from several goroutines at once.
type ProgressFunc func(done, total int)

// Generator evaluates every price×size bucket pair through the model bank.
type Generator struct {
	logger   *zap.Logger
	seed     uint64
	workers  int
	bank     *models.Bank
	prices   []int
	sizes    []int
	progress ProgressFunc
}

// NewGenerator resolves the configured zones into price and size buckets and
// builds the model bank.
func NewGenerator(logger *zap.Logger, conf *config.Configuration) (*Generator, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	gen := conf.Generation
	guardrails := zone.GuardrailsFromConfig(gen.Guardrails)

	priceZones, err := resolve(gen.ResolvePriceZones)
	if err != nil {
		return nil, fmt.Errorf("price zones: %w", err)
	}
	sizeZones, err := resolve(gen.ResolveSizeZones)
	if err != nil {
		return nil, fmt.Errorf("size zones: %w", err)
	}
	if len(gen.PriceRange) != 2 || len(gen.SizeRange) != 2 {
		return nil, fmt.Errorf("price and size ranges need two values")
	}

	g := &Generator{
		logger:  logger,
		seed:    conf.Seed,
		workers: gen.Workers,
		bank:    models.NewBank(conf),
		prices:  zone.Synthesize(gen.PriceRange[0], gen.PriceRange[1], priceZones, guardrails),
		sizes:   zone.Synthesize(gen.SizeRange[0], gen.SizeRange[1], sizeZones, guardrails),
	}
	if g.workers < 1 {
		g.workers = 1
	}
	g.progress = g.logProgress
	return g, nil
}

func resolve(fn func() ([]config.ResolvedZone, error)) ([]zone.Zone, error) {
	resolved, err := fn()
	if err != nil {
		return nil, err
	}
	return zone.FromConfig(resolved)
}

// OnProgress replaces the default progress logger. A nil fn disables reporting.
func (g *Generator) OnProgress(fn ProgressFunc) {
	g.progress = fn
}

// Prices returns the synthesized price buckets.
func (g *Generator) Prices() []int { return g.prices }

// Sizes returns the synthesized size buckets.
func (g *Generator) Sizes() []int { return g.sizes }

// Generate evaluates the full cartesian product in row-major order. Each price
// row draws from its own random stream seeded by (seed, row), so the output is
// identical for any worker count.
func (g *Generator) Generate(ctx context.Context) ([]Candidate, Stats, error) {
	start := time.Now()
	g.logger.Info("starting candidate generation",
		zap.String("op", "catalog.Generate"),
		zap.Int("workers", g.workers),
	)

	stats := Stats{
		PriceBuckets: NewBucketStats(g.prices),
		SizeBuckets:  NewBucketStats(g.sizes),
	}
	g.logger.Info("built buckets",
		zap.String("op", "catalog.Generate"),
		zap.Object("prices", stats.PriceBuckets),
		zap.Object("sizes", stats.SizeBuckets),
	)

	nSizes := len(g.sizes)
	total := len(g.prices) * nSizes
	stats.Combinations = total
	candidates := make([]Candidate, total)
	if total == 0 {
		return candidates, stats, nil
	}

	step := total / constants.ProgressSteps
	if step < 1 {
		step = 1
	}
	var done atomic.Int64

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(g.workers)
	for row := range g.prices {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(g.seed, uint64(row)))
			price := float64(g.prices[row])
			offset := row * nSizes
			for col, size := range g.sizes {
				idx := offset + col
				candidates[idx] = g.candidate(idx, price, float64(size), rng)

				n := int(done.Add(1))
				if g.progress != nil && (n%step == 0 || n == total) {
					g.progress(n, total)
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, stats, fmt.Errorf("candidate generation interrupted: %w", err)
	}

	stats.accumulate(candidates)
	stats.Elapsed = time.Since(start)

	g.logger.Info("candidate generation complete",
		zap.String("op", "catalog.Generate"),
		zap.Int("candidates", len(candidates)),
		zap.Int("courier", stats.TransitCounts[models.Courier]),
		zap.Int("pallet", stats.TransitCounts[models.Pallet]),
		zap.Int("container", stats.TransitCounts[models.Container]),
		zap.Int("unboundedStock", stats.UnboundedStock),
		zap.Duration("elapsed", stats.Elapsed),
	)
	return candidates, stats, nil
}

func (g *Generator) candidate(idx int, price, size float64, rng *rand.Rand) Candidate {
	attrs := g.bank.Evaluate(price, size, rng)
	return Candidate{
		ID:              fmt.Sprintf(constants.CandidateIDFormat, idx+1),
		Price:           price,
		Size:            size,
		Demand:          attrs.Demand,
		Markup:          attrs.Markup,
		Logistics:       attrs.Logistics,
		Transit:         attrs.Transit.Mode,
		TransitCapacity: attrs.Transit.Capacity,
		TransitCost:     attrs.Transit.Cost,
		Stock:           attrs.Stock,
	}
}

func (g *Generator) logProgress(done, total int) {
	g.logger.Info("working through combinations",
		zap.String("op", "catalog.Generate"),
		zap.Int("done", done),
		zap.Int("total", total),
		zap.Float64("percent", float64(done)/float64(total)*100),
	)
}
