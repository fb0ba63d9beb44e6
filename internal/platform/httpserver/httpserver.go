package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. The read and write timeouts are sized for
// base64 document uploads, the largest bodies this service accepts; the
// header timeout bounds slow-loris clients before a body is ever read.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
