package density

import (
	"github.com/notargets/gosph/nbrtree"
	"github.com/notargets/gosph/particle"
	"github.com/notargets/gosph/sphfault"
	"github.com/notargets/gosph/walk"
)

// PassConfig bundles the external parameters density.Pass needs, the Go
// analogue of the All.DesNumNgb/MaxNumNgbDeviation/MinGasHsml/MaxIter
// globals the source reads directly.
type PassConfig struct {
	DesNumNgb          float64
	MaxNumNgbDeviation float64
	MinGasHsml         float64
	MaxIter            int
	Dim                int
	KernelName         string
	EOS                EOS
	// SearchRadius is density_decide_hsearch's extension hook: a kind-
	// specific larger search radius (e.g. a sink's feedback ball). nil
	// means "use the target's own Hsml", the mainstream gas path.
	SearchRadius func(idx int) float64
	// Observers lets an optional physics overlay ride along
	// the density walk's per-pair loop without the visitor itself knowing
	// about any concrete overlay.
	Observers particle.Observers
}

// Pass runs density_pass(): the collective density iteration
// over finder's active particles, repeating run_walk/Controller.Update
// until every particle converges or cfg.MaxIter is exceeded, in which
// case it returns a *sphfault.ConvergenceError.
// Grounded on density() in original_source/density.c: the outer do/while
// loop, the DensityIterationDone reset before the first pass, and the
// iter > MAXITER fatal check performed immediately after an unconverged
// round rather than before the next treewalk_run. Each round calls
// FinalizeDensity/FinalizeSink unconditionally, before Controller.Update,
// mirroring density_post_process's unconditional call ahead of
// density_check_neighbours every iteration rather than only once a
// particle converges.
func Pass(ctx *walk.Context, finder nbrtree.Finder, active []int, cfg PassConfig) error {
	for _, idx := range active {
		finder.Particle(idx).DensityIterationDone = false
	}

	controller := Controller{
		DesNumNgb:          cfg.DesNumNgb,
		MaxNumNgbDeviation: cfg.MaxNumNgbDeviation,
		MinGasHsml:         cfg.MinGasHsml,
		Dim:                cfg.Dim,
	}

	pending := append([]int(nil), active...)
	iter := 0

	for {
		spec := walk.WalkSpec[Result]{
			IsActive:     func(idx int) bool { return !finder.Particle(idx).DensityIterationDone },
			InitScratch:  InitScratch(finder, cfg.KernelName, cfg.Dim, cfg.SearchRadius),
			VisitPair:    VisitPair(finder, cfg.Observers),
			ReduceResult: ReduceResult(finder),
			Finder:       finder,
		}
		if err := walk.RunWalk(ctx, spec, pending); err != nil {
			return err
		}

		var next []int
		for _, idx := range pending {
			p := finder.Particle(idx)
			if !p.Participates() {
				continue
			}
			if p.IsGas() {
				FinalizeDensity(p, cfg.Dim, cfg.EOS)
			} else {
				FinalizeSink(p)
			}
			if p.DensityIterationDone {
				return &sphfault.InvariantViolation{
					ParticleID: p.ID,
					Detail:     "DensityIterationDone already set when re-queued into the next density round",
				}
			}
			if err := controller.Update(p); err != nil {
				return err
			}
			if !p.DensityIterationDone {
				next = append(next, idx)
			}
		}

		if len(next) == 0 {
			return nil
		}

		iter++
		if iter > cfg.MaxIter {
			p := finder.Particle(next[0])
			return &sphfault.ConvergenceError{
				ParticleID: p.ID,
				Hsml:       p.Hsml,
				Left:       p.Bracket.Left,
				Right:      p.Bracket.Right,
				NumNgb:     p.NumNgb,
				Pos:        [3]float64{p.Pos[0], p.Pos[1], p.Pos[2]},
				Iterations: iter,
			}
		}
		pending = next
	}
}
