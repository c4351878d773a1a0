package services

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faddenpatrick/ironledger/internal/logging"
	"github.com/faddenpatrick/ironledger/internal/store"
)

var errUnreachable = errors.New("dial tcp: connection refused")

type apiCall struct {
	Method string
	Path   string
	Body   any
}

// fakeAPI records every call and delegates to the per-verb handlers. A nil
// handler fails the request, which is how tests simulate a flaky server.
type fakeAPI struct {
	Calls []apiCall

	GetFn    func(path string, params url.Values, out any) error
	PostFn   func(path string, body, out any) error
	PutFn    func(path string, body, out any) error
	PatchFn  func(path string, body, out any) error
	DeleteFn func(path string) error
}

func (f *fakeAPI) Get(_ context.Context, path string, params url.Values, out any) error {
	f.Calls = append(f.Calls, apiCall{Method: "GET", Path: path})
	if f.GetFn == nil {
		return errUnreachable
	}
	return f.GetFn(path, params, out)
}

func (f *fakeAPI) Post(_ context.Context, path string, body, out any) error {
	f.Calls = append(f.Calls, apiCall{Method: "POST", Path: path, Body: body})
	if f.PostFn == nil {
		return errUnreachable
	}
	return f.PostFn(path, body, out)
}

func (f *fakeAPI) Put(_ context.Context, path string, body, out any) error {
	f.Calls = append(f.Calls, apiCall{Method: "PUT", Path: path, Body: body})
	if f.PutFn == nil {
		return errUnreachable
	}
	return f.PutFn(path, body, out)
}

func (f *fakeAPI) Patch(_ context.Context, path string, body, out any) error {
	f.Calls = append(f.Calls, apiCall{Method: "PATCH", Path: path, Body: body})
	if f.PatchFn == nil {
		return errUnreachable
	}
	return f.PatchFn(path, body, out)
}

func (f *fakeAPI) Delete(_ context.Context, path string) error {
	f.Calls = append(f.Calls, apiCall{Method: "DELETE", Path: path})
	if f.DeleteFn == nil {
		return errUnreachable
	}
	return f.DeleteFn(path)
}

func online() bool  { return true }
func offline() bool { return false }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testLogger() logging.Logger {
	return logging.NewDefault()
}
