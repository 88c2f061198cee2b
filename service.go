package twirl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"runtime/debug"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// defaultMaxRequestBodySize bounds request bodies unless overridden.
const defaultMaxRequestBodySize = 1 << 20 // 1MB

// Service binds a ServiceDescriptor to one handler object and serves its
// RPCs over HTTP. It implements http.Handler.
//
// Configure a Service with the With* methods before serving; once requests
// are flowing it must be treated as read-only. Dispatch itself keeps no
// per-call state on the Service, so one instance is safe for concurrent
// requests. The handler object is shared across calls and its own thread
// safety is the caller's responsibility.
type Service struct {
	desc               *ServiceDescriptor
	methods            map[string]reflect.Value
	logger             *slog.Logger
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	interceptors       []UnaryInterceptor
	maxRequestBodySize int64
}

// NewService validates handler against desc and returns the bound service.
//
// For every RPC in the descriptor, handler must expose a method named
// RPCEntry.HandlerMethod with signature
//
//	func(context.Context, Req) (Resp, error)
//
// where Req and Resp are the entry's concrete message types, or interfaces
// they implement (typically proto.Message). The first entry in
// registration order that is not satisfied fails construction. A handler
// is required whenever the descriptor declares at least one RPC; a service
// with no RPCs accepts a nil handler.
func NewService(desc *ServiceDescriptor, handler any) (*Service, error) {
	if desc == nil {
		return nil, errors.New("twirl: descriptor is required")
	}
	methods, err := bindHandler(desc, handler)
	if err != nil {
		return nil, err
	}
	return &Service{
		desc:               desc,
		methods:            methods,
		maxRequestBodySize: defaultMaxRequestBodySize,
	}, nil
}

// WithLogger sets the logger used for dispatch diagnostics.
// If not set, slog.Default() is used.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// WithErrorTransformer adds a custom error transformer for handler
// failures that are not already *Error values.
func (s *Service) WithErrorTransformer(fn ErrorTransformer) *Service {
	s.errorTransformer = fn
	return s
}

// WithMaskInternalErrors rewrites internal error messages to a generic one
// before they leave the dispatcher. Useful in production to avoid leaking
// failure details to clients; the original error is still logged.
// Errors a handler explicitly returns as *Error are never masked.
func (s *Service) WithMaskInternalErrors() *Service {
	s.maskInternalErrors = true
	return s
}

// WithUnaryInterceptor adds an interceptor around handler invocation.
// Interceptors run in the order added, first added outermost.
func (s *Service) WithUnaryInterceptor(i UnaryInterceptor) *Service {
	s.interceptors = append(s.interceptors, i)
	return s
}

// WithMaxRequestBodySize sets the maximum request body size in bytes.
// A value of 0 means no limit. Default is 1MB.
func (s *Service) WithMaxRequestBodySize(size int64) *Service {
	s.maxRequestBodySize = size
	return s
}

// Descriptor returns the service's descriptor.
func (s *Service) Descriptor() *ServiceDescriptor { return s.desc }

var (
	contextType      = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType        = reflect.TypeOf((*error)(nil)).Elem()
	protoMessageType = reflect.TypeOf((*proto.Message)(nil)).Elem()
)

// bindHandler resolves each RPC to a bound handler method, checking the
// full contract up front so no request can hit an unservable RPC.
func bindHandler(desc *ServiceDescriptor, handler any) (map[string]reflect.Value, error) {
	entries := desc.entries
	if handler == nil {
		if len(entries) == 0 {
			return nil, nil
		}
		return nil, errors.New("twirl: handler is required")
	}

	hv := reflect.ValueOf(handler)
	methods := make(map[string]reflect.Value, len(entries))
	for _, e := range entries {
		m := hv.MethodByName(e.HandlerMethod)
		if !m.IsValid() || !methodServes(m.Type(), e) {
			return nil, fmt.Errorf("Handler must respond to .%s(input) in order to handle the message %s.", e.HandlerMethod, e.Name)
		}
		methods[e.Name] = m
	}
	return methods, nil
}

// methodServes reports whether a bound method type satisfies an RPC's
// contract: func(context.Context, Req) (Resp, error).
func methodServes(t reflect.Type, e *RPCEntry) bool {
	if t.NumIn() != 2 || t.NumOut() != 2 {
		return false
	}
	if t.In(0) != contextType {
		return false
	}
	if !messageTypeFits(e.Request, t.In(1)) {
		return false
	}
	if !messageTypeFits(e.Response, t.Out(0)) {
		return false
	}
	return t.Out(1) == errorType
}

// messageTypeFits reports whether t can carry instances of mt: either the
// concrete Go type of the message, or an interface it implements.
func messageTypeFits(mt protoreflect.MessageType, t reflect.Type) bool {
	concrete := reflect.TypeOf(mt.Zero().Interface())
	if t == concrete {
		return true
	}
	return t.Kind() == reflect.Interface && concrete.Implements(t)
}

// ServeHTTP dispatches one RPC. The checks run in a fixed order — path
// shape, HTTP verb, Content-Type, method lookup, body decode, handler —
// and the first failing check terminates the request. Every failure,
// including a handler panic, becomes a JSON error envelope; nothing
// escapes as an unhandled failure.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log().Error("panic recovered during dispatch",
				slog.Any("panic", rec),
				slog.String("path", r.URL.Path),
				slog.String("stack", string(debug.Stack())))
			writeError(w, NewError(CodeInternal, "internal service error"), s.logger)
		}
	}()

	methodName, ok := s.matchPath(r.URL.Path)
	if !ok {
		s.writeBadRoute(w, r, "Invalid route. Expected format: POST {BaseURL}/twirp/(package.)?{Service}/{Method}")
		return
	}

	if r.Method != http.MethodPost {
		s.writeBadRoute(w, r, "HTTP request method must be POST")
		return
	}

	ct := r.Header.Get("Content-Type")
	c, ok := codecFor(ct)
	if !ok {
		s.writeBadRoute(w, r, fmt.Sprintf("unexpected Content-Type: %q. Content-Type header must be one of %q or %q", ct, ContentTypeJSON, ContentTypeProtobuf))
		return
	}

	entry, ok := s.desc.RPC(methodName)
	if !ok {
		s.writeBadRoute(w, r, fmt.Sprintf("rpc method not found: %q", methodName))
		return
	}

	body, rpcErr := s.readBody(w, r)
	if rpcErr != nil {
		writeError(w, rpcErr, s.logger)
		return
	}

	req := entry.Request.New().Interface()
	if err := c.unmarshal(body, req); err != nil {
		writeError(w, Errorf(CodeMalformed, "the %s request could not be decoded: %v", c, err), s.logger)
		return
	}

	info := &RPCInfo{Service: s.desc.FullName(), Method: entry.Name}
	ctx := newCallContext(r.Context(), w, r, info)

	res, err := s.invoke(ctx, info, req)
	if err != nil {
		writeError(w, s.transformError(err), s.logger)
		return
	}

	resp, ok := asMessage(res)
	if !ok {
		s.log().Error("handler returned a non-message response",
			slog.String("service", info.Service),
			slog.String("method", info.Method))
		writeError(w, NewError(CodeInternal, "internal service error"), s.logger)
		return
	}

	out, err := c.marshal(resp)
	if err != nil {
		s.log().Error("failed to encode response",
			slog.String("service", info.Service),
			slog.String("method", info.Method),
			slog.Any("error", err))
		writeError(w, NewError(CodeInternal, "failed to encode response"), s.logger)
		return
	}

	w.Header().Set("Content-Type", c.contentType())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		// Client likely went away mid-write. Log for debugging.
		s.log().Error("failed to write response",
			slog.String("service", info.Service),
			slog.String("method", info.Method),
			slog.Any("error", err))
	}
}

// matchPath extracts the trailing method segment from a path of the form
// PathPrefix + "/" + Method. Anything else is a routing failure.
func (s *Service) matchPath(path string) (string, bool) {
	prefix := s.desc.PathPrefix() + "/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	method := path[len(prefix):]
	if method == "" || strings.Contains(method, "/") {
		return "", false
	}
	return method, true
}

func (s *Service) readBody(w http.ResponseWriter, r *http.Request) ([]byte, *Error) {
	body := r.Body
	if s.maxRequestBodySize > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxRequestBodySize)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, Errorf(CodeResourceExhausted, "request body too large: limit is %d bytes", maxErr.Limit)
		}
		return nil, NewError(CodeInternal, "failed to read request body")
	}
	return raw, nil
}

// invoke runs the interceptor chain around the bound handler method.
func (s *Service) invoke(ctx context.Context, info *RPCInfo, req proto.Message) (any, error) {
	call := s.methods[info.Method]
	final := func(ctx context.Context, reqAny any) (any, error) {
		msg, ok := asMessage(reqAny)
		if !ok {
			return nil, NewError(CodeInternal, "interceptor replaced the request with a non-message value")
		}
		out := call.Call([]reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(msg)})
		if !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}
	return chainInterceptors(s.interceptors, info, final)(ctx, req)
}

// transformError maps a handler failure to the wire error. An *Error
// returned by the handler is an explicit signal and passes through
// untouched, including its metadata; everything else goes through the
// transformer and is subject to masking.
func (s *Service) transformError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	var mapped *Error
	if s.errorTransformer != nil {
		mapped = s.errorTransformer(err)
	}
	if mapped == nil {
		mapped = DefaultErrorTransformer(err)
	}
	if s.maskInternalErrors && mapped.Code == CodeInternal {
		mapped = NewError(CodeInternal, "internal service error")
	}
	return mapped
}

func (s *Service) writeBadRoute(w http.ResponseWriter, r *http.Request, msg string) {
	rpcErr := NewError(CodeBadRoute, msg).
		WithMeta("twirp_invalid_route", r.Method+" "+r.URL.Path)
	writeError(w, rpcErr, s.logger)
}

func (s *Service) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// asMessage unwraps v to a proto.Message, rejecting nil and typed-nil
// values that would otherwise slip through an interface comparison.
func asMessage(v any) (proto.Message, bool) {
	m, ok := v.(proto.Message)
	if !ok || m == nil {
		return nil, false
	}
	rv := reflect.ValueOf(m)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, false
	}
	return m, true
}
