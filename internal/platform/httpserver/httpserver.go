package httpserver

import (
	"net/http"
	"time"
)

// Slow header reads get cut off here; request deadlines beyond that belong
// to the handlers and their contexts.
const readHeaderTimeout = 5 * time.Second

// New wraps the router in an *http.Server bound to addr.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
