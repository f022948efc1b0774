// Command ampleader drives the distributed leader/follower evaluation
// protocol: it evaluates its own local shard the same way a follower
// would (rank 0 participates, per the original MPI design), dials out
// to every follower address given on the command line, and reports
// the combined -2*lnL.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/hepamp/ampengine/internal/coordinator"
	"github.com/hepamp/ampengine/internal/demoreaction"
	"github.com/hepamp/ampengine/internal/logger"
)

type followerList []string

func (f *followerList) String() string { return strings.Join(*f, ",") }
func (f *followerList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

var (
	followers     followerList
	nDataEvents   = flag.Int("data-events", 2000, "Number of synthetic data events in the leader's own shard")
	nMCEvents     = flag.Int("mc-events", 8000, "Number of synthetic Monte Carlo events in the leader's own shard")
	nGenerated    = flag.Int("n-generated", 10000, "Number of Monte Carlo events thrown before acceptance cuts, for the leader's shard")
	shardSeed     = flag.Int64("seed", 1, "Random seed for the leader's own synthetic events")
	dialTimeout   = flag.Duration("dial-timeout", 10*time.Second, "Timeout for connecting to each follower")
	roundTimeout  = flag.Duration("round-timeout", 30*time.Second, "Timeout for each gather round")
	logLevel      = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat     = flag.String("log-format", "console", "Log format: console or json")
)

func main() {
	flag.Var(&followers, "follower", "Follower address to dial (repeatable)")
	flag.Parse()
	logger.Setup(*logLevel, *logFormat)

	manager, err := demoreaction.BuildReaction()
	if err != nil {
		logger.Log.Error("reaction setup failed", "error", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*shardSeed))
	data := demoreaction.SyntheticBuffer(rng, *nDataEvents)
	mc := demoreaction.SyntheticBuffer(rng, *nMCEvents)
	local := coordinator.NewLocalContributor(manager, data, nil, mc, *nGenerated)

	leader := coordinator.NewLeader(manager, local)

	for _, addr := range followers {
		ctx, cancel := context.WithTimeout(context.Background(), *dialTimeout)
		err := leader.Dial(ctx, addr)
		cancel()
		if err != nil {
			logger.Log.Error("dialing follower failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		logger.Log.Info("follower connected", "addr", addr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *roundTimeout)
	defer cancel()

	if err := leader.RecomputeIntegrals(ctx); err != nil {
		logger.Log.Error("recomputing integrals failed", "error", err)
		os.Exit(1)
	}
	result, err := leader.ComputeLikelihood(ctx)
	if err != nil {
		logger.Log.Error("computing likelihood failed", "error", err)
		os.Exit(1)
	}

	if err := leader.Finalize(context.Background()); err != nil {
		logger.Log.Warn("finalize reported an error", "error", err)
	}

	fmt.Printf("-2lnL = %v  (sumLogI=%v, normTerm=%v, dataEvents=%d, followers=%d)\n",
		result.NegTwoLnL, result.SumLogIntensity, result.NormalizationTerm, result.NumDataEvents, len(followers))
}
