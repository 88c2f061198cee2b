package twirl

import (
	"context"
)

// RPCInfo identifies the RPC being dispatched. Service is the full
// service name ("package.Service"), Method the RPC name.
type RPCInfo struct {
	Service string
	Method  string
}

// HandlerFunc represents the next handler in an interceptor chain. It is
// passed to [UnaryInterceptor] functions to invoke the next interceptor
// or the final handler method.
type HandlerFunc func(ctx context.Context, req any) (res any, err error)

// UnaryInterceptor is a hook that wraps handler invocation.
//
//	func timing(ctx context.Context, req any, info *twirl.RPCInfo, next twirl.HandlerFunc) (any, error) {
//		start := time.Now()
//		res, err := next(ctx, req)
//		log.Printf("%s/%s took %v", info.Service, info.Method, time.Since(start))
//		return res, err
//	}
//
// Interceptors run after the request body has been decoded and before the
// handler method is called. They can inspect or replace the request,
// inspect or replace the response, short-circuit by returning an error
// without calling next, or attach values to the context. req and res are
// the decoded request and response messages.
type UnaryInterceptor func(ctx context.Context, req any, info *RPCInfo, next HandlerFunc) (res any, err error)

// chainInterceptors wraps final in the given interceptors. The first
// interceptor in the slice is the outermost one (runs first).
func chainInterceptors(interceptors []UnaryInterceptor, info *RPCInfo, final HandlerFunc) HandlerFunc {
	h := final
	for i := len(interceptors) - 1; i >= 0; i-- {
		ic := interceptors[i]
		next := h
		h = func(ctx context.Context, req any) (any, error) {
			return ic(ctx, req, info, next)
		}
	}
	return h
}
