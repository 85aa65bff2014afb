// Package docserver serves a docstore.Backend over HTTP and WebSocket so the
// remote client can reach it across a network.
//
// Routes:
//
//	POST   /v1/query
//	POST   /v1/docs/{collection}
//	GET    /v1/docs/{collection}/{id}
//	PUT    /v1/docs/{collection}/{id}
//	PATCH  /v1/docs/{collection}/{id}
//	DELETE /v1/docs/{collection}/{id}
//	GET    /v1/listen   (WebSocket)
//	GET    /healthz
package docserver

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/five82/cohort/internal/docstore"
	"github.com/five82/cohort/internal/docstore/wire"
)

const maxBodyBytes = 1 << 20

// Server exposes a backend on an http.Handler.
type Server struct {
	backend  docstore.Backend
	logger   *log.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds a Server for backend.
func New(backend docstore.Backend, opts ...Option) *Server {
	s := &Server{
		backend: backend,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /v1/query", s.handleQuery)
	s.mux.HandleFunc("POST /v1/docs/{collection}", s.handleAdd)
	s.mux.HandleFunc("GET /v1/docs/{collection}/{id}", s.handleGet)
	s.mux.HandleFunc("PUT /v1/docs/{collection}/{id}", s.handleWrite)
	s.mux.HandleFunc("PATCH /v1/docs/{collection}/{id}", s.handleWrite)
	s.mux.HandleFunc("DELETE /v1/docs/{collection}/{id}", s.handleDelete)
	s.mux.HandleFunc("GET /v1/listen", s.handleListen)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req wire.QueryRequest
	if !s.decode(w, r, &req) {
		return
	}
	records, err := s.backend.RunQuery(r.Context(), req.Query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, wire.RecordsResponse{Records: wire.EncodeRecords(records)})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req wire.FieldsRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.backend.Add(r.Context(), r.PathValue("collection"), wire.DecodeFields(req.Fields))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, wire.IDResponse{ID: id})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.backend.Get(r.Context(), r.PathValue("collection"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req wire.FieldsRequest
	if !s.decode(w, r, &req) {
		return
	}
	collection, id := r.PathValue("collection"), r.PathValue("id")
	fields := wire.DecodeFields(req.Fields)

	var err error
	if r.Method == http.MethodPatch {
		err = s.backend.Update(r.Context(), collection, id, fields)
	} else {
		err = s.backend.Set(r.Context(), collection, id, fields)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Delete(r.Context(), r.PathValue("collection"), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dest); err != nil {
		s.writeError(w, &docstore.Error{Code: docstore.CodeInvalidArgument, Message: "malformed request body", Err: err})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	body := wire.NewErrorResponse(err)
	status := wire.StatusFor(docstore.ParseCode(body.Code))
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "code", body.Code, "err", err)
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", "err", err)
	}
}
