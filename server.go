package main

import (
	"net/http"
)

// server fronts the websocket bus handler with the HTTP concerns the
// library leaves out: method filtering and extra response headers.
type server struct {
	handler http.Handler
	header  http.Header
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "unsupported method", http.StatusUnsupportedMediaType)
		return
	}
	for k, values := range s.header {
		for _, v := range values {
			w.Header().Set(k, v)
		}
	}
	s.handler.ServeHTTP(w, r)
}
