// Package frontend is the thin gRPC adapter: it registers each resource's
// Enumerate/Query/Mutate RPCs and dispatches them straight to the
// aggregator's generic entry points. It holds no state of its own.
package frontend

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/google/ecclesia-mmaster/internal/resource"
	"github.com/google/ecclesia-mmaster/pkg/logger"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// ServerOption forces every connection on the server to use the JSON wire
// codec, regardless of the content-subtype a client requests. Pass it to
// server.New: there is no generated protobuf type for these messages to
// negotiate a codec against, so the frontend picks one unconditionally.
func ServerOption() grpc.ServerOption {
	return grpc.ForceServerCodec(jsonCodec{})
}

// Aggregator is the subset of *aggregator.Aggregator the frontend dispatches
// to.
type Aggregator interface {
	Enumerate(ctx context.Context, kind resource.Kind, onWrite func(resource.Identifier) error) error
	Query(ctx context.Context, kind resource.Kind, id resource.Identifier, mask *fieldmaskpb.FieldMask) resource.Response
}

// ServiceName is the hand-authored gRPC service name, standing in for the
// generated one a .proto-based build would produce.
const ServiceName = "ecclesia.mmaster.MachineMaster"

// NewServiceDesc builds the grpc.ServiceDesc backing agg: one server-
// streaming Enumerate<R> and one bidi-streaming Query<R> per resource.Kind,
// plus one unary Mutate<R><Verb> per entry in resource.MutationVerbs (only
// PowerDomain.Reset today). No protobuf codegen is available, so this plays
// the role a generated *_grpc.pb.go file would.
func NewServiceDesc(agg Aggregator) *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Metadata:    "frontend/service.go",
	}

	for _, kind := range resource.Kinds {
		kind := kind
		desc.Streams = append(desc.Streams,
			grpc.StreamDesc{
				StreamName:    "Enumerate" + string(kind),
				Handler:       enumerateHandler(agg, kind),
				ServerStreams: true,
			},
			grpc.StreamDesc{
				StreamName:    "Query" + string(kind),
				Handler:       queryHandler(agg, kind),
				ServerStreams: true,
				ClientStreams: true,
			},
		)
		for _, verb := range resource.MutationVerbs[kind] {
			verb := verb
			desc.Methods = append(desc.Methods, grpc.MethodDesc{
				MethodName: "Mutate" + string(kind) + verb,
				Handler:    mutateHandler(agg, kind, verb),
			})
		}
	}

	return desc
}

// Register attaches the service built by NewServiceDesc to s.
func Register(s *grpc.Server, agg Aggregator) {
	s.RegisterService(NewServiceDesc(agg), nil)
}

// enumerateHandler streams every id the aggregator enumerates for kind, in
// the order the aggregator's single consuming goroutine produces them.
func enumerateHandler(agg Aggregator, kind resource.Kind) grpc.StreamHandler {
	return func(srv any, stream grpc.ServerStream) error {
		var req Empty
		if err := stream.RecvMsg(&req); err != nil {
			return err
		}
		return agg.Enumerate(stream.Context(), kind, func(id resource.Identifier) error {
			return stream.SendMsg(&EnumerateResponse{ID: id})
		})
	}
}

// queryHandler implements the bidi-streaming Query<R> RPC: one response per
// request, in request order, read until the client closes its send side.
func queryHandler(agg Aggregator, kind resource.Kind) grpc.StreamHandler {
	return func(srv any, stream grpc.ServerStream) error {
		for {
			var req QueryRequest
			err := stream.RecvMsg(&req)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}

			mask := &fieldmaskpb.FieldMask{Paths: req.FieldMask}
			resp := agg.Query(stream.Context(), kind, req.ID, mask)

			wire := QueryResponse{ID: resp.ID, Status: resp.Status, Fields: resp.Fields}
			if err := stream.SendMsg(&wire); err != nil {
				return err
			}
		}
	}
}

// mutateHandler is the unary handler for the one declared mutation verb.
// Execution of the mutation itself is out of scope — hardware control
// actions are an explicit non-goal beyond the RPC shape; it logs the
// request and always succeeds for any id, without consulting the
// aggregator or its mapper. The response does not echo the id.
func mutateHandler(agg Aggregator, kind resource.Kind, verb string) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		var req MutateRequest
		if err := dec(&req); err != nil {
			return nil, err
		}

		handler := func(ctx context.Context, req any) (any, error) {
			logger.Get().Info("frontend: mutation dispatched", "kind", string(kind), "verb", verb, "devpath", req.(*MutateRequest).ID.Devpath)
			return &MutateResponse{}, nil
		}

		if interceptor == nil {
			return handler(ctx, &req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fmt.Sprintf("/%s/Mutate%s%s", ServiceName, kind, verb),
		}
		return interceptor(ctx, &req, info, handler)
	}
}
