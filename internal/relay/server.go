package relay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"cipherchat/internal/domain"
	"cipherchat/internal/observability"
)

// Server is the HTTP face of the relay:
//
//	POST /register              create an account
//	POST /login                 verify clientAuth, return the owner record
//	GET  /keys/{hash}           directory lookup by public key hash
//	GET  /users/{username}/key  directory lookup by username
//	GET  /ws                    websocket relay
//	GET  /metrics               Prometheus metrics
//	GET  /healthz               liveness
type Server struct {
	accounts domain.AccountService
	hub      *Hub
	metrics  *observability.Metrics
	log      zerolog.Logger
	mux      *http.ServeMux
}

// NewServer builds the route table.
func NewServer(accounts domain.AccountService, hub *Hub, metrics *observability.Metrics, log zerolog.Logger) *Server {
	s := &Server{
		accounts: accounts,
		hub:      hub,
		metrics:  metrics,
		log:      log.With().Str("component", "http").Logger(),
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /register", s.handleRegister)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("GET /keys/{hash}", s.handleKeyByHash)
	s.mux.HandleFunc("GET /users/{username}/key", s.handleKeyByUsername)
	s.mux.HandleFunc("GET /ws", hub.ServeWS)
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return s
}

// ServeHTTP implements http.Handler with a one-line access log per request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.log.Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("remote", r.RemoteAddr).
		Int("status", rec.status).
		Int("bytes", rec.bytes).
		Dur("duration", time.Since(start)).
		Msg("request")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var p domain.RegistrationPayload
	if !s.decodeBody(w, r, &p) {
		return
	}
	if err := s.accounts.Register(r.Context(), p); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var p domain.LoginPayload
	if !s.decodeBody(w, r, &p) {
		return
	}
	owner, err := s.accounts.Login(r.Context(), p)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, owner)
}

func (s *Server) handleKeyByHash(w http.ResponseWriter, r *http.Request) {
	rec, err := s.accounts.PublicKeyByHash(r.Context(), domain.PublicKeyHash(r.PathValue("hash")))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleKeyByUsername(w http.ResponseWriter, r *http.Request) {
	rec, err := s.accounts.PublicKeyByUsername(r.Context(), domain.Username(r.PathValue("username")))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFrameBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidPayload, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err))
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
		err = errors.New("internal error")
	}
	writeError(w, status, code, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
