package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"stepwise/internal/api"
	"stepwise/internal/assets"
	"stepwise/internal/catalog"
	"stepwise/internal/logging"
	"stepwise/internal/services"
)

const (
	maxRequestBytes = 1 << 20
	logFollowWait   = 10 * time.Second
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind string, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(bind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", d.handleFrames)
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("GET /api/tasks", srv.handleTasks)
	mux.HandleFunc("GET /api/tasks/{task}", srv.handleTask)
	mux.HandleFunc("POST /api/tasks/{task}/evaluate", srv.handleEvaluate)
	mux.HandleFunc("GET /api/sessions", srv.handleSessions)
	mux.HandleFunc("GET /api/sessions/{id}", srv.handleSession)
	mux.HandleFunc("GET /api/handoffs", srv.handleHandoffs)
	mux.HandleFunc("POST /api/handoffs/{token}/resume", srv.handleResume)
	mux.HandleFunc("GET /api/images/{name}", srv.handleImage)
	mux.HandleFunc("GET /api/logs", srv.handleLogs)

	srv.handler = requestIDMiddleware(authMiddleware(d.cfg.Paths.APIToken, mux))
	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// requestIDMiddleware stamps each request with a correlation id, reusing
// X-Request-ID when the caller sent one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status()
	cfg := s.daemon.cfg
	payload := api.DaemonStatus{
		Running:         status.Running,
		PID:             status.PID,
		LockFilePath:    status.LockFilePath,
		DetectorKind:    cfg.Detector.Kind,
		DetectorURL:     cfg.Detector.URL,
		Tasks:           status.Tasks,
		DefaultTask:     cfg.Tasks.Default,
		Sessions:        status.Sessions,
		PendingHandoffs: status.PendingHandoffs,
		MissingImages:   status.MissingImages,
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	resp := api.TaskListResponse{}
	for _, v := range s.daemon.registry.All() {
		resp.Tasks = append(resp.Tasks, api.SummarizeVariant(v))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleTask(w http.ResponseWriter, r *http.Request) {
	v, err := s.daemon.registry.Get(r.PathValue("task"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromVariant(v))
}

func (s *apiServer) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	v, err := s.daemon.registry.Get(r.PathValue("task"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req api.EvaluateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		s.writeError(w, services.Wrap(services.ErrInvalidInputFormat, "api", "evaluate", "decode request", err))
		return
	}
	resp, err := api.Evaluate(v, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	resp := api.SessionListResponse{Sessions: []api.SessionInfo{}}
	for _, snap := range s.daemon.sessions.snapshots() {
		v, err := s.daemon.registry.Get(snap.Task)
		if err != nil {
			continue
		}
		resp.Sessions = append(resp.Sessions, api.FromSnapshot(v.Catalog, snap))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.daemon.sessions.get(r.PathValue("id"))
	if !ok {
		s.writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "session not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSnapshot(c.Variant().Catalog, c.Snapshot()))
}

func (s *apiServer) handleHandoffs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HandoffListResponse{Handoffs: api.FromTickets(s.daemon.desk.Pending())})
}

// handleResume records the expert's step for a pending hand-off. The step
// is checked against the session's catalog before the desk sees it.
func (s *apiServer) handleResume(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	ticket, ok := s.daemon.desk.Get(token)
	if !ok {
		s.writeError(w, services.Wrap(services.ErrUnknownToken, "api", "resume", token, nil))
		return
	}
	var req api.ResumeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		s.writeError(w, services.Wrap(services.ErrInvalidInputFormat, "api", "resume", "decode request", err))
		return
	}
	v, err := s.daemon.registry.Get(ticket.Task)
	if err != nil {
		s.writeError(w, err)
		return
	}
	step := strings.TrimSpace(req.Step)
	if !catalog.IsStartName(step) {
		resolved, err := v.Catalog.LookupName(step)
		if err != nil {
			s.writeError(w, err)
			return
		}
		step = resolved.Name
	}
	if err := s.daemon.desk.Report(token, step); err != nil {
		s.writeError(w, err)
		return
	}
	logging.WithContext(r.Context(), s.logger).Info("hand-off step reported",
		logging.String(logging.FieldEventType, "handoff_reported"),
		logging.SessionID(ticket.SessionID),
		logging.Task(ticket.Task),
		logging.Step(step),
	)
	s.writeJSON(w, http.StatusOK, api.ResumeResponse{Token: token, Step: step})
}

func (s *apiServer) handleImage(w http.ResponseWriter, r *http.Request) {
	data, err := s.daemon.images.Load(r.PathValue("name"))
	if err != nil {
		if errors.Is(err, assets.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
			return
		}
		s.writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "max-age=3600")
	_, _ = w.Write(data)
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.hub
	if hub == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: []logging.LogEvent{}})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")
	sessionID := strings.TrimSpace(query.Get("session"))
	component := strings.TrimSpace(query.Get("component"))

	ctx := r.Context()
	if follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, logFollowWait)
		defer cancel()
	}
	events, next, err := hub.Fetch(ctx, since, limit, follow)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return
	}

	filtered := make([]logging.LogEvent, 0, len(events))
	for _, evt := range events {
		if sessionID != "" && evt.SessionID != sessionID {
			continue
		}
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		filtered = append(filtered, evt)
	}
	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: filtered, Next: next})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusCodeFor(err), api.ErrorResponse{
		Error:  err.Error(),
		Status: string(services.StatusFor(err)),
	})
}

func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInputFormat),
		errors.Is(err, services.ErrImageTooLarge),
		errors.Is(err, services.ErrUnknownStep):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnknownTask), errors.Is(err, services.ErrUnknownToken):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSuspended), errors.Is(err, services.ErrNotSuspended):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
