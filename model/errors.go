package model

import (
	"errors"
	"fmt"
	"net/http"

	"xdao.co/cred/cred"
)

type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrDecode             ErrorCode = "DECODE_ERROR"
	ErrUnsupportedCurve   ErrorCode = "UNSUPPORTED_CURVE"
	ErrKeyNotFound        ErrorCode = "KEY_NOT_FOUND"
	ErrVerificationFailed ErrorCode = "VERIFICATION_FAILED"
	ErrTransport          ErrorCode = "TRANSPORT"
	ErrInternal           ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
// RuleID carries the cred rule identifier when one exists.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	RuleID  string    `json:"ruleId,omitempty"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// FromError maps any error onto a CodedError.
func FromError(err error) *CodedError {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce
	}
	var e *cred.Error
	if !errors.As(err, &e) {
		return NewError(ErrInternal, err.Error())
	}
	code := ErrInternal
	switch e.Kind {
	case cred.KindDecode:
		code = ErrDecode
	case cred.KindUnsupportedCurve:
		code = ErrUnsupportedCurve
	case cred.KindNotFound:
		code = ErrKeyNotFound
	case cred.KindVerification:
		code = ErrVerificationFailed
	case cred.KindTransport:
		code = ErrTransport
	}
	return &CodedError{Code: code, RuleID: e.RuleID, Message: err.Error()}
}

// HTTPStatus is the response status for code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrInvalidRequest, ErrDecode, ErrUnsupportedCurve:
		return http.StatusBadRequest
	case ErrKeyNotFound:
		return http.StatusNotFound
	case ErrVerificationFailed:
		return http.StatusUnprocessableEntity
	case ErrTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
