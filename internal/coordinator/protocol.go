// Package coordinator implements the leader/follower distributed
// reduction protocol: a leader broadcasts parameter updates to a set
// of followers, each holding a shard of the data and Monte Carlo
// samples, then gathers their partial likelihood and normalization-
// integral contributions and combines them into one -2·lnL value.
// Transport is Apache Arrow Flight over gRPC, grounded on the same
// flight.Client/flight.FlightServer types IUAmpToolsMPI's
// LikelihoodCalculatorMPI drives over MPI.
package coordinator

import "encoding/json"

const (
	verbUpdateParameter   = "update_parameter"
	verbLikelihoodGather  = "likelihood_gather"
	verbComputeIntegrals  = "compute_integrals"
	verbFinalize          = "finalize"
)

// parameterUpdate is the DoAction body for verbUpdateParameter.
type parameterUpdate struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// likelihoodGather is one contributor's partial sums toward the total
// extended likelihood, mirroring the four-tuple LikelihoodCalculatorMPI
// gathers from every rank before forming -2·lnL.
type likelihoodGather struct {
	SumLogIntensity float64 `json:"sum_log_intensity"`
	SumBkgWeights   float64 `json:"sum_bkg_weights"`
	NumBkgEvents    int     `json:"num_bkg_events"`
	NumDataEvents   int     `json:"num_data_events"`
}

func (g *likelihoodGather) add(other likelihoodGather) {
	g.SumLogIntensity += other.SumLogIntensity
	g.SumBkgWeights += other.SumBkgWeights
	g.NumBkgEvents += other.NumBkgEvents
	g.NumDataEvents += other.NumDataEvents
}

// integralEntry is one (i,j) partial normalization-integral
// contribution from a contributor's Monte Carlo shard, not yet
// divided by the combined generated-event count.
type integralEntry struct {
	I, J int
	Re   float64
	Im   float64
}

// integralGather is a contributor's complete set of partial integral
// entries plus how many events it generated before any acceptance
// cut, so the leader can combine shards and normalize once.
type integralGather struct {
	Entries    []integralEntry `json:"entries"`
	NGenerated int             `json:"n_generated"`
}

func encodeJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic("coordinator: payload marshal failure: " + err.Error())
	}
	return b
}

func decodeJSON(body []byte, v interface{}) error {
	return json.Unmarshal(body, v)
}
