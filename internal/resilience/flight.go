package resilience

import (
	"context"
	"strings"

	"golang.org/x/sync/singleflight"
)

// FlightGroup deduplicates concurrent identical provider calls: callers
// sharing a fingerprint wait on one physical call and all receive its
// result.
type FlightGroup struct {
	group singleflight.Group
}

// NewFlightGroup creates an empty in-flight dedup group.
func NewFlightGroup() *FlightGroup {
	return &FlightGroup{}
}

// Fingerprint builds the dedup key from provider, method, and normalized
// parameters.
func Fingerprint(provider, method string, params ...string) string {
	parts := append([]string{provider, method}, params...)
	return strings.Join(parts, "\x1f")
}

// Do executes fn once per fingerprint among concurrent callers. Shared
// reports whether the result came from another caller's flight.
func (f *FlightGroup) Do(ctx context.Context, fingerprint string, fn func(ctx context.Context) (any, error)) (any, bool, error) {
	val, err, shared := f.group.Do(fingerprint, func() (any, error) {
		return fn(ctx)
	})
	return val, shared, err
}
