package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ocrworker/internal/async"
	"ocrworker/internal/common"
	"ocrworker/internal/export"
	"ocrworker/internal/job"
	"ocrworker/internal/store"
)

const maxRequestBody = 64 << 20 // inline base64 PDFs can be large

// Server exposes the job queue and journal over HTTP, with a WebSocket
// feed of job updates. The hosting platform's own dispatch is out of
// scope; this is the local operational surface.
type Server struct {
	queue    async.Queue
	journal  *store.Journal
	exporter *export.Service
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func New(queue async.Queue, journal *store.Journal, exporter *export.Service, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		queue:    queue,
		journal:  journal,
		exporter: exporter,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// Handler returns the HTTP routing for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", s.handleJobs)
	mux.HandleFunc("/jobs/export", s.handleExport)
	mux.HandleFunc("/jobs/", s.handleJobDetails)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "InvalidInput", "method not allowed")
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "InvalidInput", "reading request body")
		return
	}

	// Schema check first: the exactly-one-of invariant is enforced before
	// anything is decoded or queued.
	if err := job.ValidateRequestJSON(body); err != nil {
		s.writeError(w, http.StatusBadRequest, "InvalidInput", err.Error())
		return
	}

	var req job.Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "InvalidInput", err.Error())
		return
	}

	j := async.Job{
		ID:          uuid.New(),
		Request:     req,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(r.Context(), j); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "Internal", err.Error())
		return
	}

	s.logger.Info("job accepted", "job_id", j.ID, "source", req.SourceKind())
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID.String(),
		"status": "queued",
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := s.journal.List(r.Context(), 100)
	if err != nil {
		s.logger.Error("list jobs failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal", "list jobs failed")
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleJobDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "InvalidInput", "method not allowed")
		return
	}
	id := path.Base(r.URL.Path)
	rec, err := s.journal.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "NotFound", "job not found")
			return
		}
		s.logger.Error("get job failed", "job_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal", "get job failed")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "InvalidInput", "method not allowed")
		return
	}
	raw, err := s.exporter.ExportJobsXLSX(r.Context(), 1000)
	if err != nil {
		s.logger.Error("export failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal", "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="jobs.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.hub.Register(conn)

	// Drain client messages; we only care about disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.Unregister(conn)
				return
			}
		}
	}()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, map[string]string{
		"status":  job.StatusFailed,
		"error":   kind,
		"message": message,
	})
}
