package grpcapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	slogcontext "github.com/veqryn/slog-context"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/cred/model"
)

// Server implements VerifierServer backed by a model.Service.
type Server struct {
	UnimplementedVerifierServer
	Service model.Service
}

func (s *Server) Verify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req model.VerifyRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, toStatus(err)
	}
	resp, err := s.Service.Verify(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(resp)
}

func (s *Server) Decode(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req model.VerifyRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, toStatus(err)
	}
	resp, err := s.Service.Decode(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(resp)
}

func (s *Server) ResolveKey(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	rec, err := s.Service.ResolveKey(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(rec)
}

func (s *Server) HashPayload(_ context.Context, in *structpb.ListValue) (*wrapperspb.StringValue, error) {
	fields := make([]string, 0, len(in.GetValues()))
	for _, v := range in.GetValues() {
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, toStatus(model.NewError(model.ErrInvalidRequest, "fields must be strings"))
		}
		fields = append(fields, sv.StringValue)
	}
	resp, err := s.Service.Hash(model.HashRequest{Fields: fields})
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(resp.Hash), nil
}

// LoggingInterceptor puts logger, tagged with the method, into each call's
// context and logs the outcome.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		l := logger.With(slog.String("method", info.FullMethod))
		ctx = slogcontext.NewCtx(ctx, l)
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			l.InfoContext(ctx, "rpc failed",
				slog.String("code", status.Code(err).String()),
				slog.String("error", status.Convert(err).Message()))
		} else {
			l.DebugContext(ctx, "rpc", slog.Duration("elapsed", time.Since(start)))
		}
		return resp, err
	}
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, toStatus(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

func fromStruct(in *structpb.Struct, v any) error {
	if in == nil {
		return model.NewError(model.ErrInvalidRequest, "empty request")
	}
	b, err := protojson.Marshal(in)
	if err != nil {
		return model.NewError(model.ErrInvalidRequest, err.Error())
	}
	if err := json.Unmarshal(b, v); err != nil {
		return model.NewError(model.ErrInvalidRequest, "invalid request: "+err.Error())
	}
	return nil
}
