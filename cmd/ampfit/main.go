// Command ampfit runs a single-process amplitude evaluation over a
// synthetic data and Monte Carlo sample, reporting -2*lnL the way a
// minimizer's objective function would call into this engine once per
// iteration. It does not parse a reaction configuration file or drive
// a minimizer itself (out of scope); the reaction is wired directly
// through the amplitude.Manager API, standing in for whatever loader
// a real fit driver would use.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hepamp/ampengine/internal/amplitude"
	"github.com/hepamp/ampengine/internal/config"
	"github.com/hepamp/ampengine/internal/demoreaction"
	"github.com/hepamp/ampengine/internal/logger"
	"github.com/hepamp/ampengine/internal/monitoring"
	"github.com/hepamp/ampengine/internal/normint"
)

var (
	numDataEvents = flag.Int("data-events", 5000, "Number of synthetic data events to evaluate")
	numMCEvents   = flag.Int("mc-events", 20000, "Number of synthetic Monte Carlo events to integrate over")
	nGenerated    = flag.Int("n-generated", 25000, "Number of Monte Carlo events thrown before acceptance cuts")
	deviceBackend = flag.String("device", "host", "Device backend: host or gpu")
	legacyScaling = flag.Bool("legacy-lnlik-scaling", false, "Skip the default 1/NTrue likelihood scaling")
	integralCache = flag.String("integral-cache", "", "Path to persist the normalization-integral matrix (skips recomputation if the file exists)")
	healthAddr    = flag.String("health-addr", ":8090", "Address to serve /health, /status, and /metrics on")
	logLevel      = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat     = flag.String("log-format", "console", "Log format: console or json")
	seed          = flag.Int64("seed", 1, "Random seed for the synthetic event generator")
)

func main() {
	flag.Parse()
	logger.Setup(*logLevel, *logFormat)

	cfg := config.Default()
	cfg.LegacyLnLikScaling = *legacyScaling
	switch *deviceBackend {
	case "host":
		cfg.DeviceBackend = config.DeviceHost
	case "gpu":
		cfg.DeviceBackend = config.DeviceGPU
	default:
		logger.Log.Error("unknown device backend", "backend", *deviceBackend)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	hm := monitoring.NewHealthMonitor()
	go func() {
		if err := hm.Start(*healthAddr); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("health monitor stopped", "error", err)
		}
	}()

	manager, err := demoreaction.BuildReaction()
	if err != nil {
		logger.Log.Error("reaction setup failed", "error", err)
		os.Exit(1)
	}
	if cfg.DeviceBackend == config.DeviceGPU {
		exec, err := newGPUExecutor(1)
		if err != nil {
			logger.Log.Error("gpu device backend unavailable", "error", err)
			os.Exit(1)
		}
		manager.SetExecutor(exec)
	}
	manager.LegacyLnLikScaling = cfg.LegacyLnLikScaling
	manager.ForceUserVarRecalculation = cfg.ForceUserVarRecalculation

	rng := rand.New(rand.NewSource(*seed))
	data := demoreaction.SyntheticBuffer(rng, *numDataEvents)
	mc := demoreaction.SyntheticBuffer(rng, *numMCEvents)

	hm.SetEngineInfo(monitoring.EngineInfo{
		ReactionLoaded:   true,
		Reaction:         fmt.Sprint(manager.Reaction()),
		NumTerms:         len(manager.TermNames()),
		DeviceBackend:    cfg.DeviceBackend.String(),
		DataBufferEvents: data.NTrue,
		MCBufferEvents:   mc.NTrue,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hm.Stop(ctx)
		os.Exit(0)
	}()

	start := time.Now()
	if *integralCache != "" {
		if err := loadOrComputeIntegrals(manager, mc, *nGenerated, *integralCache); err != nil {
			logger.Log.Error("loading or computing normalization integrals", "error", err)
			os.Exit(1)
		}
	} else {
		manager.CalcUserVars(mc)
		manager.CalcTerms(mc)
		if err := manager.CalcIntegrals(mc, *nGenerated); err != nil {
			logger.Log.Error("computing normalization integrals", "error", err)
			os.Exit(1)
		}
	}

	manager.Evaluate(data)
	sumLogI := manager.CalcSumLogIntensity(data)
	normTerm := manager.NormalizationTerm(mc.Integrals, data.NTrue)
	negTwoLnL := -2 * (sumLogI - normTerm)
	elapsed := time.Since(start)

	hm.RecordEvaluation(data.NTrue, elapsed)
	logger.Log.Info("evaluation complete",
		"sum_log_intensity", sumLogI,
		"normalization_term", normTerm,
		"neg_two_ln_l", negTwoLnL,
		"elapsed", elapsed)

	fmt.Printf("-2lnL = %v  (sumLogI=%v, normTerm=%v, data=%d, mc=%d, elapsed=%s)\n",
		negTwoLnL, sumLogI, normTerm, data.NTrue, mc.NTrue, elapsed)
}

// loadOrComputeIntegrals fills mc.Integrals from path if it already
// holds a matrix whose axis labels match manager.TermNames(), or
// computes it from mc and writes it to path for next time.
func loadOrComputeIntegrals(manager *amplitude.Manager, mc *amplitude.EventBuffer, nGenerated int, path string) error {
	if f, err := os.Open(path); err == nil {
		matrix, labels, readErr := normint.ReadFrom(f)
		f.Close()
		if readErr == nil && sameLabels(labels, manager.TermNames()) {
			mc.Integrals = matrix
			logger.Log.Info("loaded cached normalization integrals", "path", path, "terms", labels)
			return nil
		}
		logger.Log.Warn("integral cache stale or unreadable, recomputing", "path", path)
	}

	manager.CalcUserVars(mc)
	manager.CalcTerms(mc)
	if err := manager.CalcIntegrals(mc, nGenerated); err != nil {
		return err
	}
	if err := mc.Integrals.SetLabels(manager.TermNames()); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating integral cache %s: %w", path, err)
	}
	defer f.Close()
	if _, err := mc.Integrals.WriteTo(f); err != nil {
		return fmt.Errorf("writing integral cache %s: %w", path, err)
	}
	return nil
}

func sameLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
