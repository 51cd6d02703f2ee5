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

// Package queryapi is a thin, read-only HTTP surface over store.Store:
// GET /records/{type}/{id} and GET /records/{type} filtered by
// congress and/or an update_date range. It issues no writes.
package queryapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-logr/logr"

	apperrors "github.com/prameyallc/congress-ingest/internal/errors"
	"github.com/prameyallc/congress-ingest/pkg/family"
	"github.com/prameyallc/congress-ingest/pkg/model"
	"github.com/prameyallc/congress-ingest/pkg/store"
)

// Server is the query surface's HTTP handler, backed by a store.Store.
type Server struct {
	router chi.Router
	store  store.Store
	log    logr.Logger
}

// NewServer builds a Server with CORS enabled for browser clients.
func NewServer(st store.Store, log logr.Logger) *Server {
	s := &Server{store: st, log: log}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/records/{type}/{id}", s.handleGetByID)
	r.Get("/records/{type}", s.handleList)

	s.router = r
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleGetByID(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	if !family.Valid(family.Tag(typ)) {
		writeError(w, apperrors.New(apperrors.ErrorTypeValidation, "unknown record type").WithDetails(typ))
		return
	}

	it, err := s.store.QueryPrefix(r.Context(), store.QueryPredicate{HashValue: id})
	if err != nil {
		writeError(w, apperrors.NewDatabaseError("query_prefix", err))
		return
	}
	defer it.Close()

	for {
		rec, ok, err := it.Next(r.Context())
		if err != nil {
			writeError(w, apperrors.NewDatabaseError("query_prefix iteration", err))
			return
		}
		if !ok {
			writeError(w, apperrors.New(apperrors.ErrorTypeNotFound, "record not found").WithDetails(id))
			return
		}
		if rec.ID == id && string(rec.Type) == typ {
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	if !family.Valid(family.Tag(typ)) {
		writeError(w, apperrors.New(apperrors.ErrorTypeValidation, "unknown record type").WithDetails(typ))
		return
	}

	pred := store.QueryPredicate{
		Index:     "type-update_date",
		HashValue: typ,
		RangeFrom: r.URL.Query().Get("from"),
		RangeTo:   r.URL.Query().Get("to"),
	}
	if congress := r.URL.Query().Get("congress"); congress != "" {
		if _, err := strconv.Atoi(congress); err != nil {
			writeError(w, apperrors.New(apperrors.ErrorTypeValidation, "congress must be an integer"))
			return
		}
		pred.Index = "congress-type"
		pred.HashValue = congress
	}

	it, err := s.store.QueryPrefix(r.Context(), pred)
	if err != nil {
		writeError(w, apperrors.NewDatabaseError("query_prefix", err))
		return
	}
	defer it.Close()

	var records []*model.Record
	for {
		rec, ok, err := it.Next(r.Context())
		if err != nil {
			writeError(w, apperrors.NewDatabaseError("query_prefix iteration", err))
			return
		}
		if !ok {
			break
		}
		if string(rec.Type) != typ {
			continue
		}
		records = append(records, rec)
	}

	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err *apperrors.AppError) {
	writeJSON(w, err.StatusCode, map[string]string{
		"type":    string(err.Type),
		"message": err.Message,
		"details": err.Details,
	})
}
