package coordinator

import (
	"context"
	"fmt"

	"github.com/hepamp/ampengine/internal/amplitude"
)

// LikelihoodContributor is the unit of work a Leader gathers from: one
// shard of data plus Monte Carlo events, evaluated against a shared
// reaction model. localContributor implements it directly against an
// in-process amplitude.Manager; remoteContributor implements it over
// Arrow Flight against a Follower process.
type LikelihoodContributor interface {
	UpdateParameter(ctx context.Context, name string, value float64) error
	LikelihoodContribution(ctx context.Context) (likelihoodGather, error)
	IntegralContribution(ctx context.Context) (integralGather, error)
	Finalize(ctx context.Context) error
}

// localContributor evaluates a shard in-process: used both as the
// leader's own shard (rank-0 participates directly, as in the
// original MPI design) and inside a Follower process, which exposes
// the same evaluation logic over the network.
type localContributor struct {
	manager    *amplitude.Manager
	data       *amplitude.EventBuffer
	bkg        *amplitude.EventBuffer // optional background-subtraction sample
	mc         *amplitude.EventBuffer
	nGenerated int
}

// NewLocalContributor builds a contributor evaluating data against mc
// using manager. bkg may be nil if this shard has no background
// sample to subtract.
func NewLocalContributor(manager *amplitude.Manager, data, bkg, mc *amplitude.EventBuffer, nGenerated int) *localContributor {
	return &localContributor{manager: manager, data: data, bkg: bkg, mc: mc, nGenerated: nGenerated}
}

func (c *localContributor) UpdateParameter(ctx context.Context, name string, value float64) error {
	c.manager.SetParValue(name, value)
	c.manager.UpdatePar(name)
	return nil
}

func (c *localContributor) LikelihoodContribution(ctx context.Context) (likelihoodGather, error) {
	c.manager.Evaluate(c.data)
	sumLogI := c.manager.CalcSumLogIntensity(c.data)

	var sumBkgWeights float64
	var numBkgEvents int
	if c.bkg != nil {
		c.manager.Evaluate(c.bkg)
		for e := 0; e < c.bkg.NTrue; e++ {
			sumBkgWeights += c.bkg.Weights[e]
		}
		numBkgEvents = c.bkg.NTrue
	}

	return likelihoodGather{
		SumLogIntensity: sumLogI,
		SumBkgWeights:   sumBkgWeights,
		NumBkgEvents:    numBkgEvents,
		NumDataEvents:   c.data.NTrue,
	}, nil
}

func (c *localContributor) IntegralContribution(ctx context.Context) (integralGather, error) {
	if c.nGenerated <= 0 {
		return integralGather{}, fmt.Errorf("coordinator: contributor has no generated-event count set")
	}
	c.manager.CalcUserVars(c.mc)
	c.manager.CalcTerms(c.mc)
	if err := c.manager.CalcIntegrals(c.mc, c.nGenerated); err != nil {
		return integralGather{}, err
	}

	n := c.mc.Integrals.N()
	entries := make([]integralEntry, 0, n*(n+1)/2)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			v := c.mc.Integrals.Get(i, j) * complex(float64(c.nGenerated), 0) // undo the per-shard normalization; the leader renormalizes once across shards
			entries = append(entries, integralEntry{I: i, J: j, Re: real(v), Im: imag(v)})
		}
	}
	return integralGather{Entries: entries, NGenerated: c.nGenerated}, nil
}

func (c *localContributor) Finalize(ctx context.Context) error { return nil }
