package trailerprop

import (
	"context"
	"errors"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Logger interface for logging (can be implemented by any logger)
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

// NoOpLogger is a no-operation logger
type NoOpLogger struct{}

func (n NoOpLogger) Debug(args ...interface{}) {}
func (n NoOpLogger) Info(args ...interface{})  {}
func (n NoOpLogger) Warn(args ...interface{})  {}
func (n NoOpLogger) Error(args ...interface{}) {}

// ErrNoPropagator is returned by SetHeader when the current call is not
// wrapped by a TrailerPropagator interceptor.
var ErrNoPropagator = errors.New("trailerprop: no propagator registered on this call")

// ErrAlreadyFinalized is returned by SetHeader when the call's trailing
// metadata has already been merged and sent. Headers attached this late can
// no longer reach the client.
var ErrAlreadyFinalized = errors.New("trailerprop: call already finalized, header dropped")

// callState is the per-call scratch state. It is created when the interceptor
// enters a call, owned exclusively by that call, and discarded when the call
// completes.
type callState struct {
	headers   *HeaderSet
	finalized atomic.Bool
}

type callStateKey struct{}

// FromContext returns the HeaderSet collecting response headers for the
// current call, when the call is wrapped by a TrailerPropagator.
func FromContext(ctx context.Context) (*HeaderSet, bool) {
	call, ok := ctx.Value(callStateKey{}).(*callState)
	if !ok {
		return nil, false
	}
	return call.headers, true
}

// SetHeader attaches a response header to the current call. It may be called
// from any handler or interceptor running inside a TrailerPropagator,
// including immediately before returning an error status. The attached values
// are merged into the call's trailing metadata when the call finalizes,
// subject to the propagator's configured rule.
//
// Upstream code only ever writes through this single sink; it does not need
// to know whether the call will end in headers, trailers, or an early error.
func SetHeader(ctx context.Context, key string, values ...string) error {
	call, ok := ctx.Value(callStateKey{}).(*callState)
	if !ok {
		return ErrNoPropagator
	}
	if call.finalized.Load() {
		return ErrAlreadyFinalized
	}
	call.headers.Add(key, values...)
	return nil
}

// TrailerPropagator copies response headers captured during a call into the
// call's trailing metadata. Instances are immutable after construction and
// safe for concurrent use by any number of calls.
type TrailerPropagator struct {
	config      *Config
	rule        *rule
	skipMethods map[string]bool
	logger      Logger

	finalizedCalls    atomic.Int64
	propagatedHeaders atomic.Int64
	screenedHeaders   atomic.Int64
	droppedMerges     atomic.Int64
}

// New creates a TrailerPropagator from the given configuration. A nil config
// propagates everything except reserved keys. New returns a
// *ConfigurationError when the configured rule is self-contradictory, for
// example when the allow-list names a reserved key.
func New(config *Config) (*TrailerPropagator, error) {
	if config == nil {
		config = &Config{}
	}

	r, err := compileRule(config)
	if err != nil {
		return nil, err
	}

	skipMethods := make(map[string]bool)
	for _, method := range config.SkipMethods {
		skipMethods[method] = true
	}

	return &TrailerPropagator{
		config:      config,
		rule:        r,
		skipMethods: skipMethods,
		logger:      NoOpLogger{},
	}, nil
}

// SetLogger sets a custom logger
func (tp *TrailerPropagator) SetLogger(logger Logger) {
	tp.logger = logger
}

// UnaryServerInterceptor creates a gRPC unary server interceptor. It must be
// registered outermost, before any interceptor that attaches headers, so that
// its per-call state is visible to the whole chain.
func (tp *TrailerPropagator) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if tp.skipMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		call := &callState{headers: NewHeaderSet()}
		ctx = context.WithValue(ctx, callStateKey{}, call)

		resp, err := handler(ctx, req)

		// Canceled calls send no trailers; partial headers are discarded.
		if ctx.Err() != nil {
			return resp, err
		}

		tp.finalize(call, func(md metadata.MD) error {
			return grpc.SetTrailer(ctx, md)
		})

		return resp, err
	}
}

// StreamServerInterceptor creates a gRPC stream server interceptor with the
// same semantics as UnaryServerInterceptor.
func (tp *TrailerPropagator) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if tp.skipMethods[info.FullMethod] {
			return handler(srv, ss)
		}

		call := &callState{headers: NewHeaderSet()}
		ctx := context.WithValue(ss.Context(), callStateKey{}, call)

		wrapped := &wrappedServerStream{
			ServerStream: ss,
			ctx:          ctx,
		}

		err := handler(srv, wrapped)

		if ctx.Err() != nil {
			return err
		}

		tp.finalize(call, func(md metadata.MD) error {
			ss.SetTrailer(md)
			return nil
		})

		return err
	}
}

// finalize merges the captured headers into the call's trailing metadata.
// It runs exactly once per call, after the handler chain has returned and
// before the transport writes the final status. The handler's own trailers
// were set earlier in the call, so gRPC's append semantics order them ahead
// of the propagated values; nothing is overwritten.
//
// Propagation is best-effort: when the transport refuses the trailer merge
// the original status is still delivered untouched and only the enhancement
// is lost.
func (tp *TrailerPropagator) finalize(call *callState, setTrailer func(metadata.MD) error) {
	if !call.finalized.CompareAndSwap(false, true) {
		return
	}
	tp.finalizedCalls.Add(1)

	md, screened := call.headers.filteredMD(tp.rule.eligible)
	tp.screenedHeaders.Add(int64(screened))
	if len(md) == 0 {
		return
	}

	if err := setTrailer(md); err != nil {
		tp.droppedMerges.Add(1)
		if tp.config.Debug {
			tp.logger.Debug("trailer merge rejected by transport:", err)
		}
		return
	}

	tp.propagatedHeaders.Add(int64(len(md)))
	if tp.config.Debug {
		tp.logger.Debug("propagated headers to trailers:", md)
	}
}

// wrappedServerStream wraps a grpc.ServerStream to provide custom context
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// Stats provides counters about propagation activity since construction
type Stats struct {
	// FinalizedCalls counts calls whose trailer merge step ran
	FinalizedCalls int64
	// PropagatedHeaders counts header keys copied into trailers
	PropagatedHeaders int64
	// ScreenedHeaders counts header keys rejected by the active rule
	ScreenedHeaders int64
	// DroppedMerges counts merges the transport refused
	DroppedMerges int64
}

// GetStats returns a snapshot of the propagator's counters.
func (tp *TrailerPropagator) GetStats() Stats {
	return Stats{
		FinalizedCalls:    tp.finalizedCalls.Load(),
		PropagatedHeaders: tp.propagatedHeaders.Load(),
		ScreenedHeaders:   tp.screenedHeaders.Load(),
		DroppedMerges:     tp.droppedMerges.Load(),
	}
}
