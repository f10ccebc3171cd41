// Package trailerprop provides gRPC server middleware that rescues response
// headers set during request handling and re-exposes them to clients as
// trailing metadata.
//
// gRPC responses have two metadata phases: headers, written before the first
// message, and trailers, written together with the final status. Code that
// runs early in a call, such as an authentication interceptor rejecting a
// request, often attaches diagnostic headers (a www-authenticate challenge,
// rate-limit hints) that never reach the client because the transport sends a
// trailers-only response for failed calls. This package bridges that timing
// gap: handlers write to one header sink regardless of how the call ends, and
// the propagator merges the captured headers into the trailing metadata that
// is actually delivered.
//
// # Basic Usage
//
//	tp, err := trailerprop.NewBuilder().
//		Deny("x-internal-debug").
//		Build()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	server := grpc.NewServer(
//		grpc.ChainUnaryInterceptor(tp.UnaryServerInterceptor(), authInterceptor),
//		grpc.StreamInterceptor(tp.StreamServerInterceptor()),
//	)
//
// Handlers and inner interceptors attach headers through the sink:
//
//	trailerprop.SetHeader(ctx, "www-authenticate", `Bearer realm="api"`)
//	return nil, status.Error(codes.Unauthenticated, "missing bearer token")
//
// # Propagation Rules
//
// Exactly one rule is active per propagator: propagate-all (the default), an
// allow-list, or a deny-list. Keys reserved by the transport ("grpc-"
// prefixed names, content-type, te, and friends) are never propagated;
// allow-listing one is a construction error.
//
// # Guarantees
//
//   - The merge runs exactly once per call, after the handler chain returns
//     (success or error) and before the status is written.
//   - Handler-set trailers are preserved; when a key exists in both sources
//     the trailer-origin values come first and nothing is dropped.
//   - Canceled calls propagate nothing.
//   - Propagation is best-effort: a transport that refuses the merge never
//     alters the handler's status or message.
//
// # Configuration
//
// The package supports both programmatic configuration via the builder
// pattern and declarative configuration loaded from JSON/YAML files.
//
// # grpc-gateway Integration
//
// For HTTP clients fronted by grpc-gateway the same information loss happens
// in reverse: trailing metadata is invisible to plain HTTP clients. The
// ResponseModifier and OutgoingTrailerMatcher helpers surface rule-eligible
// trailer entries as HTTP response headers:
//
//	mux := trailerprop.CreateGatewayMux(tp)
package trailerprop
