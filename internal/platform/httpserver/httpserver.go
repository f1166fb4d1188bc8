package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. The withdraw surface is polled by agents, so
// requests are many and small: keep-alives stay open for a while, but a
// single slow client cannot hold a connection past the handler timeout.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Slightly above the router's per-request timeout so the timeout
		// middleware gets to write its response.
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}
}
