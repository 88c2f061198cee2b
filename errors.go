package twirl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCode is a machine-readable error code. The set is closed: every
// code maps to exactly one HTTP status via HTTPStatus.
type ErrorCode string

const (
	CodeCanceled           ErrorCode = "canceled"
	CodeUnknown            ErrorCode = "unknown"
	CodeInvalidArgument    ErrorCode = "invalid_argument"
	CodeMalformed          ErrorCode = "malformed"
	CodeDeadlineExceeded   ErrorCode = "deadline_exceeded"
	CodeNotFound           ErrorCode = "not_found"
	CodeBadRoute           ErrorCode = "bad_route"
	CodeAlreadyExists      ErrorCode = "already_exists"
	CodePermissionDenied   ErrorCode = "permission_denied"
	CodeUnauthenticated    ErrorCode = "unauthenticated"
	CodeResourceExhausted  ErrorCode = "resource_exhausted"
	CodeFailedPrecondition ErrorCode = "failed_precondition"
	CodeAborted            ErrorCode = "aborted"
	CodeOutOfRange         ErrorCode = "out_of_range"
	CodeUnimplemented      ErrorCode = "unimplemented"
	CodeInternal           ErrorCode = "internal"
	CodeUnavailable        ErrorCode = "unavailable"
	CodeDataLoss           ErrorCode = "data_loss"
)

// Error is the wire error envelope. Errors are always serialized as JSON
// regardless of the request's content type, with keys "code", "msg" and
// "meta". Meta is never null on the wire; an Error with no metadata
// serializes with an empty object.
type Error struct {
	Code ErrorCode         `json:"code"`
	Msg  string            `json:"msg"`
	Meta map[string]string `json:"meta"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// NewError creates a new RPC error.
func NewError(code ErrorCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new RPC error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// WithMeta returns a copy of the error with the key-value pair added to
// its metadata. The receiver is not modified.
func (e *Error) WithMeta(key, value string) *Error {
	meta := make(map[string]string, len(e.Meta)+1)
	for k, v := range e.Meta {
		meta[k] = v
	}
	meta[key] = value
	return &Error{
		Code: e.Code,
		Msg:  e.Msg,
		Meta: meta,
	}
}

// MetaValue returns the metadata value for key, or "" if absent.
func (e *Error) MetaValue(key string) string {
	return e.Meta[key]
}

// HTTPStatus maps an ErrorCode to its fixed HTTP status code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeCanceled, CodeDeadlineExceeded:
		return http.StatusRequestTimeout
	case CodeInvalidArgument, CodeMalformed, CodeOutOfRange:
		return http.StatusBadRequest
	case CodeNotFound, CodeBadRoute:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeAborted:
		return http.StatusConflict
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	case CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	case CodeUnimplemented:
		return http.StatusNotImplemented
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeUnknown, CodeInternal, CodeDataLoss:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorTransformer maps an application error to an RPC error.
// If it returns nil, the default transformer logic is applied.
type ErrorTransformer func(error) *Error

// DefaultErrorTransformer maps standard Go errors to RPC errors.
// *Error values pass through unchanged; context cancellation and
// validator failures get dedicated codes; everything else is internal.
func DefaultErrorTransformer(err error) *Error {
	if err == nil {
		return nil
	}

	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeDeadlineExceeded, "request deadline exceeded")
	}

	if errors.Is(err, context.Canceled) {
		return NewError(CodeCanceled, "request canceled")
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		out := NewError(CodeInvalidArgument, "")
		msgs := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			msg := formatValidationError(ve)
			out = out.WithMeta(ve.Field(), msg)
			msgs = append(msgs, ve.Field()+": "+msg)
		}
		out.Msg = strings.Join(msgs, "; ")
		return out
	}

	return NewError(CodeInternal, err.Error())
}

// formatValidationError converts a validator.FieldError to a short message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", ve.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", ve.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}

func writeError(w http.ResponseWriter, rpcErr *Error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if rpcErr.Meta == nil {
		// Meta must serialize as {} rather than null.
		rpcErr = &Error{Code: rpcErr.Code, Msg: rpcErr.Msg, Meta: map[string]string{}}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rpcErr.Code.HTTPStatus())
	if err := encodeErrorBody(w, rpcErr); err != nil {
		// Headers already sent at this point. Log for debugging.
		logger.Error("failed to encode error response",
			slog.String("code", string(rpcErr.Code)),
			slog.String("msg", rpcErr.Msg),
			slog.Any("error", err))
	}
}
