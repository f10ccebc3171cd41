package trailerprop

import (
	"fmt"
	"strings"
)

// PropagationMode defines which header keys are eligible for propagation
type PropagationMode int

const (
	// PropagateAll copies every captured header except reserved keys
	PropagateAll PropagationMode = iota
	// PropagateAllowlist copies only explicitly allowed keys
	PropagateAllowlist
	// PropagateDenylist copies everything except explicitly blocked keys
	PropagateDenylist
)

// ConfigurationError reports an invalid propagation configuration detected at
// construction time. A propagator cannot be built from such a configuration.
type ConfigurationError struct {
	// Field is the configuration field that failed validation
	Field string
	// Reason describes why the configuration is invalid
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("trailerprop: invalid configuration: %s: %s", e.Field, e.Reason)
}

// reservedHeaderKeys are transport-controlled names that must never be copied
// into trailing metadata. Copying them would corrupt the gRPC protocol
// exchange, so they are screened under every propagation mode.
var reservedHeaderKeys = map[string]bool{
	"content-type":      true,
	"te":                true,
	"trailer":           true,
	"transfer-encoding": true,
	"user-agent":        true,
	"connection":        true,
	"keep-alive":        true,
}

// IsReservedKey reports whether the given header key is reserved for the
// transport. The check is case-insensitive. All keys with the "grpc-" prefix
// are reserved per the gRPC wire protocol.
func IsReservedKey(key string) bool {
	key = strings.ToLower(key)
	return strings.HasPrefix(key, "grpc-") || reservedHeaderKeys[key]
}

// rule is the compiled, immutable form of the configured propagation policy.
// It is shared read-only by every call handled by the same propagator.
type rule struct {
	mode PropagationMode
	keys map[string]bool // allow-list or deny-list members, lowercase
}

// compileRule validates the configured key lists and builds the active rule.
// Exactly one mode results: allow-list when AllowedHeaders is set, deny-list
// when BlockedHeaders is set, propagate-all when neither is.
func compileRule(config *Config) (*rule, error) {
	if len(config.AllowedHeaders) > 0 && len(config.BlockedHeaders) > 0 {
		return nil, &ConfigurationError{
			Field:  "allowed_headers",
			Reason: "allowed_headers and blocked_headers are mutually exclusive",
		}
	}

	r := &rule{mode: PropagateAll}

	switch {
	case len(config.AllowedHeaders) > 0:
		r.mode = PropagateAllowlist
		keys, err := compileKeyList("allowed_headers", config.AllowedHeaders)
		if err != nil {
			return nil, err
		}
		for key := range keys {
			if IsReservedKey(key) {
				return nil, &ConfigurationError{
					Field:  "allowed_headers",
					Reason: fmt.Sprintf("%q is reserved for the transport and can never be propagated", key),
				}
			}
		}
		r.keys = keys
	case len(config.BlockedHeaders) > 0:
		r.mode = PropagateDenylist
		keys, err := compileKeyList("blocked_headers", config.BlockedHeaders)
		if err != nil {
			return nil, err
		}
		r.keys = keys
	}

	return r, nil
}

func compileKeyList(field string, list []string) (map[string]bool, error) {
	keys := make(map[string]bool, len(list))
	for i, key := range list {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return nil, &ConfigurationError{
				Field:  field,
				Reason: fmt.Sprintf("entry %d is empty", i),
			}
		}
		if keys[key] {
			return nil, &ConfigurationError{
				Field:  field,
				Reason: fmt.Sprintf("duplicate key %q", key),
			}
		}
		keys[key] = true
	}
	return keys, nil
}

// eligible reports whether a captured header key may be copied into trailing
// metadata. The key must already be lowercase (HeaderSet normalizes on
// insert). Reserved keys are never eligible.
func (r *rule) eligible(key string) bool {
	if IsReservedKey(key) {
		return false
	}
	switch r.mode {
	case PropagateAllowlist:
		return r.keys[key]
	case PropagateDenylist:
		return !r.keys[key]
	default:
		return true
	}
}
