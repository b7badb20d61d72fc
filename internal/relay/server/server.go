package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"cachet/internal/domain"
)

// Server is the store-and-forward relay: it publishes certificate
// records and queues envelopes per recipient. It stores only ciphertext
// and public material.
type Server struct {
	log   *zap.Logger
	queue Queue

	mu    sync.RWMutex
	certs map[domain.Username]domain.CertificateRecord
}

// New returns a relay server backed by the given queue.
func New(log *zap.Logger, queue Queue) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		log:   log,
		queue: queue,
		certs: make(map[domain.Username]domain.CertificateRecord),
	}
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/certs", s.handlePublishCert).Methods(http.MethodPost)
	r.HandleFunc("/certs/{username}", s.handleFetchCert).Methods(http.MethodGet)
	r.HandleFunc("/msgs/{username}", s.handleSend).Methods(http.MethodPost)
	r.HandleFunc("/msgs/{username}", s.handleFetch).Methods(http.MethodGet)
	r.HandleFunc("/msgs/{username}/ack", s.handleAck).Methods(http.MethodPost)
	return r
}

func (s *Server) handlePublishCert(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var rec domain.CertificateRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if rec.Certificate.Username == "" {
		http.Error(w, "missing username", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.certs[rec.Certificate.Username] = rec
	s.mu.Unlock()
	s.log.Info("certificate published",
		zap.String("username", rec.Certificate.Username))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleFetchCert(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	s.mu.RLock()
	rec, ok := s.certs[username]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, rec)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	to := mux.Vars(r)["username"]
	var env domain.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	env.To = to
	if err := s.queue.Push(r.Context(), to, env); err != nil {
		s.log.Error("queue push failed", zap.String("to", to), zap.Error(err))
		http.Error(w, "queue error", http.StatusInternalServerError)
		return
	}
	s.log.Debug("envelope queued",
		zap.String("from", env.From),
		zap.String("to", to))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	to := mux.Vars(r)["username"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	envs, err := s.queue.Peek(r.Context(), to, limit)
	if err != nil {
		s.log.Error("queue peek failed", zap.String("to", to), zap.Error(err))
		http.Error(w, "queue error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, envs)
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	to := mux.Vars(r)["username"]
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.queue.Ack(r.Context(), to, body.Count); err != nil {
		s.log.Error("queue ack failed", zap.String("to", to), zap.Error(err))
		http.Error(w, "queue error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
