package tam

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/canvas"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/stamp"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/stroke"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/worker"
)

// CellFunc is called after each cell is finalised.
type CellFunc func(report CellReport, completed, total int)

// Options carries optional builder collaborators.
type Options struct {
	Logger *slog.Logger
	OnCell CellFunc

	// OnProgress is called as the candidates of one growth iteration are
	// scored; completed == total marks the end of the iteration.
	OnProgress worker.ProgressFunc
}

// Builder grows the canvases of a hierarchy in tone-then-mip order.
type Builder struct {
	cfg        Config
	sampler    stroke.Sampler
	evaluator  *Evaluator
	compositor *Compositor
	pool       *worker.Pool
	logger     *slog.Logger
	onCell     CellFunc
}

// NewBuilder validates cfg and prepares a builder for the base stamp s.
func NewBuilder(cfg Config, s *stamp.Stamp, opts Options) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s == nil || s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("%w: base stamp must be non-empty", ErrInvalidConfig)
	}

	t := stamp.NewTransformer(s, cfg.LowAlphaThreshold)
	return &Builder{
		cfg:        cfg,
		sampler:    stroke.Sampler{BaseHeight: s.Height, SkewDisabled: cfg.SkewDisabled},
		evaluator:  NewEvaluator(t),
		compositor: NewCompositor(t),
		pool:       worker.New(worker.Config{Workers: cfg.Workers, OnProgress: opts.OnProgress}),
		logger:     opts.Logger,
		onCell:     opts.OnCell,
	}, nil
}

// Build generates every cell. Candidates come from a single stream seeded
// with cfg.Seed and are drawn sequentially, so the result does not depend on
// the number of scoring workers.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	rng := rand.New(rand.NewSource(b.cfg.Seed))
	tones := b.cfg.Tones()
	h := NewHierarchy(b.cfg.ToneLevels, b.cfg.MipLevels)

	result := &Result{Config: b.cfg, Hierarchy: h}
	total := b.cfg.ToneLevels * b.cfg.MipLevels

	b.log().Info("Building tonal art map",
		"resolution", b.cfg.Resolution,
		"mip_levels", b.cfg.MipLevels,
		"tone_levels", b.cfg.ToneLevels,
		"seed", b.cfg.Seed,
		"workers", b.pool.Workers(),
	)

	for tone := 0; tone < b.cfg.ToneLevels; tone++ {
		// All mips of a tone exist before growth starts: committing at a
		// coarse mip also draws into the finer ones.
		for mip := 0; mip < b.cfg.MipLevels; mip++ {
			var c *canvas.Canvas
			if tone == 0 {
				c = canvas.New(b.cfg.MipResolution(mip))
			} else {
				c = h.At(tone-1, mip).Clone()
			}
			if err := h.Set(tone, mip, c); err != nil {
				return nil, err
			}
		}

		for mip := 0; mip < b.cfg.MipLevels; mip++ {
			report, err := b.growCell(ctx, rng, h, tone, mip, tones[tone])
			if err != nil {
				return nil, fmt.Errorf("failed to build tone %d mip %d: %w", tone, mip, err)
			}
			result.Reports = append(result.Reports, report)

			if report.Degraded() {
				b.log().Warn("Cell accepted below target tone",
					"tone", tone,
					"mip", mip,
					"status", report.Status.String(),
					"target", report.Target,
					"achieved", report.Achieved,
					"iterations", report.Iterations,
				)
			} else {
				b.log().Debug("Cell finished",
					"tone", tone,
					"mip", mip,
					"achieved", report.Achieved,
					"strokes", len(report.Strokes),
				)
			}

			if b.onCell != nil {
				b.onCell(report, len(result.Reports), total)
			}
		}
	}

	return result, nil
}

func (b *Builder) growCell(ctx context.Context, rng *rand.Rand, h *Hierarchy, tone, mip int, target float64) (CellReport, error) {
	c := h.At(tone, mip)
	res := b.cfg.MipResolution(mip)
	orientation := stroke.OrientationFor(tone, b.cfg.ToneLevels)

	report := CellReport{Tone: tone, Mip: mip, Target: target, Status: Converged}

	scorer := worker.ScorerFunc(func(_ context.Context, st stroke.Stroke) (float64, error) {
		return b.evaluator.Evaluate(st, c, tone), nil
	})
	tasks := make([]worker.Task, b.cfg.Candidates(tone))

	for c.MeanAlpha() < target {
		if report.Iterations >= b.cfg.MaxIterations {
			report.Status = IterationCap
			break
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		for k := range tasks {
			tasks[k] = worker.Task{Index: k, Stroke: b.sampler.Sample(rng, res, orientation)}
		}

		// Results come back in task order; the strictly greatest score
		// wins, so ties go to the earliest candidate.
		best, bestScore := -1, 0.0
		for _, r := range b.pool.Run(ctx, scorer, tasks) {
			if r.Err != nil {
				return report, fmt.Errorf("failed to score candidate %d: %w", r.Task.Index, r.Err)
			}
			if r.Score > bestScore {
				best, bestScore = r.Task.Index, r.Score
			}
		}
		if best < 0 {
			report.Status = NoCandidate
			break
		}

		st := tasks[best].Stroke
		if err := b.compositor.Commit(st, mip, tone, h); err != nil {
			return report, err
		}
		report.Strokes = append(report.Strokes, st)
		report.Iterations++
	}

	report.Achieved = c.MeanAlpha()
	return report, nil
}

func (b *Builder) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}
