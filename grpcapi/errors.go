package grpcapi

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/cred/model"
)

const errorDomain = "xdao.co/cred"

func grpcCode(c model.ErrorCode) codes.Code {
	switch c {
	case model.ErrInvalidRequest, model.ErrDecode:
		return codes.InvalidArgument
	case model.ErrUnsupportedCurve:
		return codes.FailedPrecondition
	case model.ErrKeyNotFound:
		return codes.NotFound
	case model.ErrVerificationFailed:
		return codes.PermissionDenied
	case model.ErrTransport:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// toStatus converts err to a gRPC status carrying an ErrorInfo detail.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	ce := model.FromError(err)
	st := status.New(grpcCode(ce.Code), ce.Message)
	info := &errdetails.ErrorInfo{Reason: string(ce.Code), Domain: errorDomain}
	if ce.RuleID != "" {
		info.Metadata = map[string]string{"ruleId": ce.RuleID}
	}
	if withInfo, derr := st.WithDetails(info); derr == nil {
		st = withInfo
	}
	return st.Err()
}

// mapRPC recovers the *model.CodedError a server sent. Errors without an
// ErrorInfo detail are mapped by status code alone.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		return &model.CodedError{
			Code:    model.ErrorCode(info.GetReason()),
			RuleID:  info.GetMetadata()["ruleId"],
			Message: st.Message(),
		}
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return model.NewError(model.ErrInvalidRequest, st.Message())
	case codes.NotFound:
		return model.NewError(model.ErrKeyNotFound, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return model.NewError(model.ErrTransport, st.Message())
	default:
		return err
	}
}
