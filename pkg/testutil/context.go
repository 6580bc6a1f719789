package testutil

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"partnerd/internal/platform/middleware"
	id "partnerd/pkg/domain"
)

// WithCaller adds an authenticated caller address to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithCaller(req *http.Request, caller id.Address) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyCaller, caller)
	return req.WithContext(ctx)
}

// Addr returns a deterministic valid address for test fixture n.
func Addr(t testing.TB, n int) id.Address {
	t.Helper()
	addr, err := id.ParseAddress(fmt.Sprintf("0x%040x", n+1))
	if err != nil {
		t.Fatalf("Addr(%d): %v", n, err)
	}
	return addr
}
