package relay

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Server exposes the relay's HTTP API over a Store.
type Server struct {
	store *Store
	log   zerolog.Logger
}

// NewServer returns a Server backed by store.
func NewServer(store *Store, log zerolog.Logger) *Server {
	return &Server{store: store, log: log.With().Str("component", "relay").Logger()}
}

// Handler returns the mux routing the relay's four endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/send", s.requireAuth(s.handleSend))
	mux.HandleFunc("/fetch", s.requireAuth(s.handleFetch))
	mux.HandleFunc("/pending", s.handlePending)
	return mux
}

type registerRequest struct {
	DeviceID      string `json:"device_id"`
	PublicKeyHash string `json:"public_key_hash"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.DeviceID == "" {
		http.Error(w, "device_id is required", http.StatusBadRequest)
		return
	}

	token, err := s.store.Register(req.DeviceID, req.PublicKeyHash)
	if err != nil {
		s.log.Error().Err(err).Str("device_id", req.DeviceID).Msg("register failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var env RelayEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := s.store.Send(env); err != nil {
		switch {
		case errors.Is(err, ErrMessageTooLarge):
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		case errors.Is(err, ErrMessageExpired):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrTooManyPending):
			http.Error(w, err.Error(), http.StatusTooManyRequests)
		default:
			s.log.Error().Err(err).Str("to_device", env.ToDevice).Msg("send failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": env.ID})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		http.Error(w, "device_id is required", http.StatusBadRequest)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	envs, err := s.store.Fetch(deviceID, limit)
	if err != nil {
		s.log.Error().Err(err).Str("device_id", deviceID).Msg("fetch failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if envs == nil {
		envs = []RelayEnvelope{}
	}
	writeJSON(w, http.StatusOK, envs)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		http.Error(w, "device_id is required", http.StatusBadRequest)
		return
	}
	count, err := s.store.PendingCount(deviceID)
	if err != nil {
		s.log.Error().Err(err).Str("device_id", deviceID).Msg("pending count failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// requireAuth validates the bearer token against the registration store
// before calling next. The relay only confirms the token maps to some
// registered device; it does not check the token's owner against the
// request's device_id, since a device is free to fetch/send under its
// own identity however it authenticated.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if _, err := s.store.ValidateToken(token); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
