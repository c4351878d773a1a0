// Package services contains the per-entity-family repositories of the
// offline-first core. Both families share one policy:
//
//   - reads are cache-first: local records are served even when the server
//     is unreachable, and a reachable server refreshes the mirror in the
//     same call, whose result wins;
//   - writes are optimistic: the record lands in the local store before any
//     network round-trip, a reachable server confirms it synchronously, and
//     any network failure degrades to a queued mutation instead of an error.
//
// Only local-store failures propagate out of a write; server failures are
// absorbed into the queue.
package services

import (
	"context"
	"net/url"
	"time"
)

// API is the transport surface the repositories need. *api.Client
// implements it; tests substitute fakes.
type API interface {
	Get(ctx context.Context, path string, params url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// OnlineFunc reports current connectivity. It must be cheap and
// synchronous; the connectivity monitor provides one.
type OnlineFunc func() bool

// listResponse is the paginated envelope some catalog endpoints use.
type listResponse[T any] struct {
	Items []T `json:"items"`
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
