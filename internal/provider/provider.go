// Package provider adapts heterogeneous search backends to one interface.
package provider

import (
	"context"
	"fmt"

	"github.com/sells-group/event-scout/internal/model"
	"github.com/sells-group/event-scout/internal/query"
)

// Provider is the uniform search surface the discovery orchestrator fans
// out over.
type Provider interface {
	Name() string
	Search(ctx context.Context, q query.Query) ([]model.CandidateURL, error)
}

// ProviderError wraps a failure from a specific adapter.
type ProviderError struct {
	Provider string
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }
