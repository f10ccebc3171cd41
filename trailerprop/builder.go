package trailerprop

// Builder provides a fluent API for creating a TrailerPropagator
type Builder struct {
	config *Config
}

// NewBuilder creates a new propagator builder. With no further calls the
// built propagator copies every captured header except reserved keys.
func NewBuilder() *Builder {
	return &Builder{
		config: &Config{},
	}
}

// Allow restricts propagation to the given header keys. Mutually exclusive
// with Deny; naming a reserved key makes Build fail.
func (b *Builder) Allow(keys ...string) *Builder {
	b.config.AllowedHeaders = append(b.config.AllowedHeaders, keys...)
	return b
}

// Deny excludes the given header keys from propagation. Mutually exclusive
// with Allow.
func (b *Builder) Deny(keys ...string) *Builder {
	b.config.BlockedHeaders = append(b.config.BlockedHeaders, keys...)
	return b
}

// SkipMethods sets full gRPC method names the propagator leaves untouched
func (b *Builder) SkipMethods(methods ...string) *Builder {
	b.config.SkipMethods = append(b.config.SkipMethods, methods...)
	return b
}

// Debug enables debug logging
func (b *Builder) Debug(debug bool) *Builder {
	b.config.Debug = debug
	return b
}

// Build creates the TrailerPropagator. It returns a *ConfigurationError when
// the accumulated configuration is self-contradictory.
func (b *Builder) Build() (*TrailerPropagator, error) {
	return New(b.config)
}
