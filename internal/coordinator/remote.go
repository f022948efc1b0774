package coordinator

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// remoteContributor drives a Follower process over Arrow Flight's
// DoAction RPC: each command verb is sent as an Action whose Body
// carries a small JSON payload, and the follower streams back exactly
// one Result also carrying JSON.
type remoteContributor struct {
	addr   string
	conn   *grpc.ClientConn
	client flight.FlightServiceClient
}

func dialFollower(ctx context.Context, addr string) (*remoteContributor, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &remoteContributor{
		addr:   addr,
		conn:   conn,
		client: flight.NewFlightServiceClient(conn),
	}, nil
}

func (r *remoteContributor) close() {
	r.conn.Close()
}

// doAction sends one Action and reads back its single Result body.
func (r *remoteContributor) doAction(ctx context.Context, verb string, body []byte) ([]byte, error) {
	stream, err := r.client.DoAction(ctx, &flight.Action{Type: verb, Body: body})
	if err != nil {
		return nil, fmt.Errorf("coordinator: DoAction(%s) to %s: %w", verb, r.addr, err)
	}
	result, err := stream.Recv()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("coordinator: follower %s returned no result for %s", r.addr, verb)
		}
		return nil, fmt.Errorf("coordinator: receiving %s result from %s: %w", verb, r.addr, err)
	}
	return result.Body, nil
}

func (r *remoteContributor) UpdateParameter(ctx context.Context, name string, value float64) error {
	_, err := r.doAction(ctx, verbUpdateParameter, encodeJSON(parameterUpdate{Name: name, Value: value}))
	return err
}

func (r *remoteContributor) LikelihoodContribution(ctx context.Context) (likelihoodGather, error) {
	var g likelihoodGather
	body, err := r.doAction(ctx, verbLikelihoodGather, nil)
	if err != nil {
		return g, err
	}
	return g, decodeJSON(body, &g)
}

func (r *remoteContributor) IntegralContribution(ctx context.Context) (integralGather, error) {
	var g integralGather
	body, err := r.doAction(ctx, verbComputeIntegrals, nil)
	if err != nil {
		return g, err
	}
	return g, decodeJSON(body, &g)
}

func (r *remoteContributor) Finalize(ctx context.Context) error {
	_, err := r.doAction(ctx, verbFinalize, nil)
	return err
}
