// Command ampfollower serves one shard of data and Monte Carlo events
// over Arrow Flight, answering a leader's parameter-update, likelihood-
// gather, and integral-gather commands against a local
// amplitude.Manager. The reaction and event shard are wired directly
// through the amplitude.Manager/EventBuffer API (no configuration-file
// parser or data-reader plugin is in scope).
package main

import (
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/hepamp/ampengine/internal/coordinator"
	"github.com/hepamp/ampengine/internal/demoreaction"
	"github.com/hepamp/ampengine/internal/logger"
)

var (
	listenAddr  = flag.String("listen", ":50061", "Address to serve the Arrow Flight DoAction endpoint on")
	nDataEvents = flag.Int("data-events", 2000, "Number of synthetic data events in this shard")
	nMCEvents   = flag.Int("mc-events", 8000, "Number of synthetic Monte Carlo events in this shard")
	nGenerated  = flag.Int("n-generated", 10000, "Number of Monte Carlo events thrown before acceptance cuts, for this shard")
	shardSeed   = flag.Int64("seed", 2, "Random seed for this shard's synthetic events")
	logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat   = flag.String("log-format", "console", "Log format: console or json")
)

func main() {
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

	contributor := coordinator.NewLocalContributor(manager, data, nil, mc, *nGenerated)
	follower := coordinator.NewFollower(contributor)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Log.Info("follower shutting down")
		follower.Stop()
	}()

	logger.Log.Info("follower serving", "addr", *listenAddr, "data_events", data.NTrue, "mc_events", mc.NTrue)
	if err := follower.Serve(*listenAddr); err != nil {
		logger.Log.Error("follower stopped", "error", err)
		os.Exit(1)
	}
}
