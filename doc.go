// Package twirl implements the server side of a Twirp-style RPC protocol.
//
// A service is described once by a ServiceDescriptor, which names the
// service, its optional protobuf package, and its RPCs. Binding the
// descriptor to a handler object produces a Service, an http.Handler that
// routes requests of the form
//
//	POST /twirp/{package.}?{Service}/{Method}
//
// to the handler method for the matched RPC. Request and response bodies
// are protobuf messages, carried either as JSON (Content-Type
// "application/json") or as binary protobuf ("application/protobuf").
// Successful responses mirror the request's content type; errors are
// always delivered as a JSON envelope
//
//	{"code": "...", "msg": "...", "meta": {...}}
//
// with the HTTP status fixed by the error code, so clients can parse
// failures uniformly even when the success path is binary.
//
// A minimal service:
//
//	desc, err := twirl.NewDescriptor("example", "Haberdasher").
//		RPC("MakeHat", sizeType, hatType).
//		Build()
//	if err != nil {
//		log.Fatal(err)
//	}
//	svc, err := twirl.NewService(desc, &haberdasher{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", svc)
//
// The handler must expose one method per RPC, named after the RPC, with
// signature func(context.Context, Req) (Resp, error); NewService verifies
// this before any request is served.
package twirl
