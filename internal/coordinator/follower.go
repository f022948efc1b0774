package coordinator

import (
	"fmt"
	"net"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc"

	"github.com/hepamp/ampengine/internal/logger"
)

// Follower serves one shard's LikelihoodContributor over Arrow
// Flight's DoAction RPC, so a Leader process can drive it as though
// it were local. It embeds flight.BaseFlightServer so every RPC this
// protocol doesn't use keeps its default unimplemented behavior.
type Follower struct {
	flight.BaseFlightServer

	contributor LikelihoodContributor
	server      *grpc.Server
}

// NewFollower wraps contributor (typically a localContributor built
// over this process's own shard of data and Monte Carlo events).
func NewFollower(contributor LikelihoodContributor) *Follower {
	return &Follower{contributor: contributor}
}

// Serve blocks, accepting connections on addr until the listener
// fails or the process is killed.
func (f *Follower) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("coordinator: listening on %s: %w", addr, err)
	}
	f.server = grpc.NewServer()
	flight.RegisterFlightServiceServer(f.server, f)
	logger.Log.Info("follower listening", "addr", addr)
	return f.server.Serve(lis)
}

// Stop gracefully shuts the gRPC server down.
func (f *Follower) Stop() {
	if f.server != nil {
		f.server.GracefulStop()
	}
}

// DoAction dispatches one of the protocol's command verbs to the
// wrapped contributor and streams back a single Result.
func (f *Follower) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	ctx := stream.Context()

	switch action.Type {
	case verbUpdateParameter:
		var upd parameterUpdate
		if err := decodeJSON(action.Body, &upd); err != nil {
			return fmt.Errorf("coordinator: decoding parameter update: %w", err)
		}
		if err := f.contributor.UpdateParameter(ctx, upd.Name, upd.Value); err != nil {
			return err
		}
		return stream.Send(&flight.Result{})

	case verbLikelihoodGather:
		g, err := f.contributor.LikelihoodContribution(ctx)
		if err != nil {
			return err
		}
		return stream.Send(&flight.Result{Body: encodeJSON(g)})

	case verbComputeIntegrals:
		g, err := f.contributor.IntegralContribution(ctx)
		if err != nil {
			return err
		}
		return stream.Send(&flight.Result{Body: encodeJSON(g)})

	case verbFinalize:
		if err := f.contributor.Finalize(ctx); err != nil {
			return err
		}
		return stream.Send(&flight.Result{})

	default:
		return fmt.Errorf("coordinator: unknown action %q", action.Type)
	}
}
