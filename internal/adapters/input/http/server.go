package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"rc-lights/internal/domain/model"
	"rc-lights/internal/ports"
)

type Server struct {
	dispatcher  ports.DispatcherPort
	logger      ports.Logger
	corsOrigins []string
}

func NewServer(dispatcher ports.DispatcherPort, logger ports.Logger, corsOrigins []string) *Server {
	return &Server{
		dispatcher:  dispatcher,
		logger:      logger,
		corsOrigins: corsOrigins,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	if len(s.corsOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}).Handler)
	}

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/config", s.handleConfig)
		r.Post("/rc", s.handleEvent)
		r.Post("/rc/{code}", s.handleCode)
	})
	return r
}

func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	// copy without the token
	cfg := *s.dispatcher.Config()
	if cfg.HassToken != "" {
		cfg.HassToken = "********"
	}
	cfg.MQTT.Password = ""
	writeJSON(w, http.StatusOK, cfg)
}

// handleEvent accepts the same record as a Home Assistant script call:
// {"code": 13923313} or {"rc": "13923313"}.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var data map[string]interface{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, ok := model.CodeFromEvent(data); !ok {
		s.logger.Warn("rejected RC request without code", "remote_addr", r.RemoteAddr)
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	report := s.dispatcher.HandleEvent(r.Context(), data)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCode(w http.ResponseWriter, r *http.Request) {
	code, ok := model.CodeFrom(chi.URLParam(r, "code"))
	if !ok {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	report := s.dispatcher.Dispatch(r.Context(), code)
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
