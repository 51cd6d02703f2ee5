/*
Copyright 2026 Prameya LLC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes a registry's collectors over /metrics plus a plain
// /health liveness endpoint, for the run driver CLI to serve alongside
// the rest of its ambient plumbing.
type Server struct {
	server *http.Server
	log    *zap.Logger
}

// NewServer builds a Server bound to port (e.g. "8080"; "0" picks a
// free port for tests).
func NewServer(port string, reg *prometheus.Registry, log *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{Addr: fmt.Sprintf(":%s", port), Handler: mux},
		log:    log,
	}
}

// StartAsync starts serving in a background goroutine, logging (but not
// panicking on) a listen error after Stop has not yet been called.
func (s *Server) StartAsync() {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.log.Error("metrics server listen failed", zap.Error(err))
		return
	}
	// Addr may have been ":0"; record the concrete address for callers
	// that need the chosen port.
	s.server.Addr = ln.Addr().String()

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("metrics server stopped unexpectedly", zap.Error(err))
		}
	}()
}

// Addr returns the server's bound address, valid only after StartAsync.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Stop gracefully shuts the server down, honoring ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
