package trailerprop

import (
	"context"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/protobuf/proto"
)

// grpc-gateway integration. HTTP clients behind a gateway cannot read gRPC
// trailing metadata, so these helpers surface rule-eligible trailer entries
// as plain HTTP response headers.

// ResponseModifier creates a forward-response option that copies eligible
// trailing metadata onto the HTTP response headers of gateway-forwarded
// calls.
func (tp *TrailerPropagator) ResponseModifier() func(context.Context, http.ResponseWriter, proto.Message) error {
	return func(ctx context.Context, w http.ResponseWriter, msg proto.Message) error {
		md, ok := runtime.ServerMetadataFromContext(ctx)
		if !ok {
			return nil
		}

		for key, values := range md.TrailerMD {
			if !tp.rule.eligible(strings.ToLower(key)) {
				continue
			}
			name := http.CanonicalHeaderKey(key)
			for _, value := range values {
				w.Header().Add(name, value)
			}
		}

		if tp.config.Debug {
			tp.logger.Debug("mapped trailing metadata to HTTP response headers")
		}

		return nil
	}
}

// OutgoingTrailerMatcher creates a trailer matcher for grpc-gateway that
// forwards rule-eligible trailer keys without the default "Grpc-Trailer-"
// prefix and drops everything else.
func (tp *TrailerPropagator) OutgoingTrailerMatcher() func(string) (string, bool) {
	return func(key string) (string, bool) {
		lower := strings.ToLower(key)
		if tp.rule.eligible(lower) {
			return lower, true
		}
		return "", false
	}
}

// CreateGatewayMux creates a new gRPC gateway ServeMux wired with trailer
// propagation
func CreateGatewayMux(tp *TrailerPropagator, opts ...runtime.ServeMuxOption) *runtime.ServeMux {
	// Prepend our options
	allOpts := []runtime.ServeMuxOption{
		runtime.WithOutgoingTrailerMatcher(tp.OutgoingTrailerMatcher()),
		runtime.WithForwardResponseOption(tp.ResponseModifier()),
	}

	// Add user-provided options
	allOpts = append(allOpts, opts...)

	return runtime.NewServeMux(allOpts...)
}
