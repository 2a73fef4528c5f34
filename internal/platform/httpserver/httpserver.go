package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. WriteTimeout sits above the router's 30s
// request timeout so slow handlers are cut off by the middleware, which
// still writes a response, rather than by the socket.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
