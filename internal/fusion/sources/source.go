// Package sources holds the adapters for the external government data
// sources. Each adapter fetches for one source, classifies failures through
// the shared taxonomy, and normalizes its loosely-typed raw output into the
// fixed profile shape before anything crosses the resolver boundary.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"trustcheck/pkg/domain"
)

// Adapter is the universal interface every source must implement. The
// resolver does not know or care whether an adapter is backed by a
// structured API, an HTML scrape, or a static snapshot - only that it
// returns a normalized payload on success and a classifiable error on
// failure.
type Adapter interface {
	// Source names the external source this adapter fetches from.
	Source() domain.Source

	// Fetch retrieves and normalizes the facts for one identifier. The
	// returned payload is the JSON encoding of the corresponding profile
	// fact type.
	Fetch(ctx context.Context, id domain.BusinessID) (json.RawMessage, error)
}

// Registry maps each source to its adapter.
type Registry struct {
	adapters map[domain.Source]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.Source]Adapter)}
}

// Register adds an adapter. Registering the same source twice is an error.
func (r *Registry) Register(a Adapter) error {
	source := a.Source()
	if _, exists := r.adapters[source]; exists {
		return fmt.Errorf("adapter for %s already registered", source)
	}
	r.adapters[source] = a
	return nil
}

// Get retrieves the adapter for a source.
func (r *Registry) Get(source domain.Source) (Adapter, bool) {
	a, ok := r.adapters[source]
	return a, ok
}

// httpGetJSON issues a GET, classifies failures, and returns the body.
// Shared by every HTTP-backed adapter.
func httpGetJSON(ctx context.Context, client *http.Client, source domain.Source, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewSourceError(ErrorClient, source.String(), "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewSourceError(ErrorTimeout, source.String(), "request timed out", err)
		}
		return nil, NewSourceError(ErrorTransient, source.String(), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		category := categorizeStatus(resp.StatusCode)
		return nil, NewSourceError(category, source.String(),
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, NewSourceError(ErrorTransient, source.String(), "read response body", err)
	}
	return body, nil
}
