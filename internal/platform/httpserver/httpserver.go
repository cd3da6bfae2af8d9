// Package httpserver builds the process's HTTP listeners (API surface and
// metrics endpoint) with shared timeout defaults.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server with timeouts sized for small JSON request bodies.
// Slow readers are cut off at the header stage.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
