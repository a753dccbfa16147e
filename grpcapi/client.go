// Package grpcapi exposes the verifier as the xdao.cred.v1.Verifier gRPC
// service and provides a typed client for it.
package grpcapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/cred/model"
)

// Client calls a remote Verifier service. Errors are *model.CodedError
// whenever the server supplied one.
type Client struct {
	cc     *grpc.ClientConn
	client VerifierClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions, extra ...grpc.DialOption) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	dialOpts = append(dialOpts, extra...)

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewVerifierClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Verify(ctx context.Context, req model.VerifyRequest) (*model.VerifyResponse, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	out, err := c.client.Verify(ctx, in)
	if err != nil {
		return nil, mapRPC(err)
	}
	var resp model.VerifyResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Decode(ctx context.Context, req model.VerifyRequest) (*model.DecodeResponse, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	out, err := c.client.Decode(ctx, in)
	if err != nil {
		return nil, mapRPC(err)
	}
	var resp model.DecodeResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResolveKey(ctx context.Context, keyID string) (*model.KeyRecord, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	out, err := c.client.ResolveKey(ctx, wrapperspb.String(keyID))
	if err != nil {
		return nil, mapRPC(err)
	}
	var rec model.KeyRecord
	if err := fromStruct(out, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) HashPayload(ctx context.Context, fields []string) (string, error) {
	values := make([]*structpb.Value, len(fields))
	for i, f := range fields {
		values[i] = structpb.NewStringValue(f)
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	out, err := c.client.HashPayload(ctx, &structpb.ListValue{Values: values})
	if err != nil {
		return "", mapRPC(err)
	}
	return out.GetValue(), nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
