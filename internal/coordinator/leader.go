package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hepamp/ampengine/internal/amplitude"
	"github.com/hepamp/ampengine/internal/logger"
	"github.com/hepamp/ampengine/internal/metrics"
	"github.com/hepamp/ampengine/internal/normint"
)

// LikelihoodResult is the combined outcome of one gather round: the
// total extended-likelihood value plus the raw sums it was built
// from, useful for diagnostics.
type LikelihoodResult struct {
	NegTwoLnL       float64
	SumLogIntensity float64
	NormalizationTerm float64
	NumDataEvents   int
	NumBkgEvents    int
}

// Leader drives the distributed evaluation protocol: it owns the
// shared reaction description, evaluates its own local shard exactly
// like a follower would (rank 0 participates, per the original MPI
// design), and dials out to remote followers for the rest.
type Leader struct {
	manager      *amplitude.Manager
	contributors []LikelihoodContributor
	remotes      []*remoteContributor

	mu         sync.Mutex
	integrals  *normint.Matrix
	finalized  bool
}

// NewLeader builds a Leader around manager and its own local shard,
// which is always contributors[0].
func NewLeader(manager *amplitude.Manager, local LikelihoodContributor) *Leader {
	return &Leader{
		manager:      manager,
		contributors: []LikelihoodContributor{local},
	}
}

// AddContributor registers an additional shard contributor that did
// not come from Dial, such as another in-process local contributor
// evaluating a different partition of the same reaction.
func (l *Leader) AddContributor(c LikelihoodContributor) {
	l.mu.Lock()
	l.contributors = append(l.contributors, c)
	l.mu.Unlock()
}

// Dial connects to a follower listening at addr and adds it as an
// additional contributor.
func (l *Leader) Dial(ctx context.Context, addr string) error {
	rc, err := dialFollower(ctx, addr)
	if err != nil {
		return fmt.Errorf("coordinator: dialing follower %s: %w", addr, err)
	}
	l.mu.Lock()
	l.remotes = append(l.remotes, rc)
	l.contributors = append(l.contributors, rc)
	l.mu.Unlock()
	return nil
}

// UpdateParameter broadcasts a parameter change to every contributor.
func (l *Leader) UpdateParameter(ctx context.Context, name string, value float64) error {
	metrics.RecordCoordinatorRoundTrip(verbUpdateParameter)
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range l.contributors {
		c := c
		g.Go(func() error { return c.UpdateParameter(gctx, name, value) })
	}
	return g.Wait()
}

// RecomputeIntegrals gathers and combines every contributor's
// normalization-integral contribution. Call it after any parameter
// change that affects the amplitudes, before ComputeLikelihood.
func (l *Leader) RecomputeIntegrals(ctx context.Context) error {
	metrics.RecordCoordinatorRoundTrip(verbComputeIntegrals)
	start := time.Now()

	partials := make([]integralGather, len(l.contributors))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range l.contributors {
		i, c := i, c
		g.Go(func() error {
			var err error
			partials[i], err = c.IntegralContribution(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	metrics.RecordCoordinatorFollowerLag(time.Since(start))

	termNames := l.manager.TermNames()
	n := len(termNames)
	totalGenerated := 0
	raw := make(map[[2]int]complex128)
	for _, p := range partials {
		totalGenerated += p.NGenerated
		for _, e := range p.Entries {
			key := [2]int{e.I, e.J}
			raw[key] += complex(e.Re, e.Im)
		}
	}
	if totalGenerated == 0 {
		return fmt.Errorf("coordinator: no generated events reported across %d contributors", len(l.contributors))
	}

	combined := normint.NewMatrix(n)
	if err := combined.SetLabels(termNames); err != nil {
		return err
	}
	scale := complex(1/float64(totalGenerated), 0)
	for key, v := range raw {
		combined.Set(key[0], key[1], v*scale)
	}
	metrics.RecordIntegralElements(len(raw))

	l.mu.Lock()
	l.integrals = combined
	l.mu.Unlock()
	return nil
}

// ComputeLikelihood gathers every contributor's partial likelihood
// sums and combines them with the current normalization-integral
// matrix into one -2·lnL value. RecomputeIntegrals must have been
// called at least once first.
func (l *Leader) ComputeLikelihood(ctx context.Context) (LikelihoodResult, error) {
	l.mu.Lock()
	integrals := l.integrals
	l.mu.Unlock()
	if integrals == nil {
		return LikelihoodResult{}, fmt.Errorf("coordinator: RecomputeIntegrals has not been called yet")
	}

	metrics.RecordCoordinatorRoundTrip(verbLikelihoodGather)
	start := time.Now()

	partials := make([]likelihoodGather, len(l.contributors))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range l.contributors {
		i, c := i, c
		g.Go(func() error {
			var err error
			partials[i], err = c.LikelihoodContribution(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return LikelihoodResult{}, err
	}
	metrics.RecordCoordinatorFollowerLag(time.Since(start))

	var total likelihoodGather
	for _, p := range partials {
		total.add(p)
	}

	normTerm := l.manager.NormalizationTerm(integrals, total.NumDataEvents)
	negTwoLnL := -2 * (total.SumLogIntensity - normTerm)

	logger.Log.Debug("likelihood gather complete",
		"sum_log_intensity", total.SumLogIntensity,
		"normalization_term", normTerm,
		"neg_two_ln_l", negTwoLnL,
		"num_data_events", total.NumDataEvents)

	return LikelihoodResult{
		NegTwoLnL:         negTwoLnL,
		SumLogIntensity:   total.SumLogIntensity,
		NormalizationTerm: normTerm,
		NumDataEvents:     total.NumDataEvents,
		NumBkgEvents:      total.NumBkgEvents,
	}, nil
}

// Finalize notifies every contributor the fit is done and closes
// remote connections. Safe to call multiple times.
func (l *Leader) Finalize(ctx context.Context) error {
	l.mu.Lock()
	if l.finalized {
		l.mu.Unlock()
		return nil
	}
	l.finalized = true
	l.mu.Unlock()

	metrics.RecordCoordinatorRoundTrip(verbFinalize)
	for _, c := range l.contributors {
		if err := c.Finalize(ctx); err != nil {
			return err
		}
	}
	for _, r := range l.remotes {
		r.close()
	}
	return nil
}
