package httpserver

import (
	"net/http"
	"time"
)

// Timeouts are sized around the router's 30s per-request budget: the write
// deadline leaves headroom past the handler deadline so timeout responses
// still reach the client.
const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 35 * time.Second
	idleTimeout       = 2 * time.Minute
)

// New builds the ledger's HTTP server.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
