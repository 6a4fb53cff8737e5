package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"coverforge/internal/config"
	"coverforge/internal/fsutil"
	"coverforge/internal/pipeline"
	"coverforge/internal/storage"
	"coverforge/internal/watch"
)

// Server wraps the HTTP API with optional cover directory monitoring
type Server struct {
	addr     string
	store    *storage.Store
	pipeline *pipeline.Pipeline
	watcher  *watch.Watcher
	cfg      *config.Config
	log      *slog.Logger
	server   *http.Server
}

// NewServer creates a new server, optionally watching cover directories
func NewServer(
	addr string,
	store *storage.Store,
	pipe *pipeline.Pipeline,
	watchPaths []string,
	cfg *config.Config,
	log *slog.Logger,
) (*Server, error) {

	s := &Server{
		addr:     addr,
		store:    store,
		pipeline: pipe,
		cfg:      cfg,
		log:      log,
	}

	if len(watchPaths) > 0 {
		watcher, err := watch.New(watchPaths, log)
		if err != nil {
			log.Warn("Failed to setup cover watcher", "error", err)
		} else {
			s.watcher = watcher
			log.Info("Cover watcher initialized", "paths", watchPaths)
		}
	}

	return s, nil
}

// Start begins the server and monitoring services
func (s *Server) Start(ctx context.Context) error {
	if s.watcher != nil {
		if err := s.watcher.Start(); err != nil {
			s.log.Error("Failed to start cover watcher", "error", err)
			return err
		}
		go s.watcher.AutoSubmit(ctx, s.pipeline)
	}

	r := mux.NewRouter()
	s.setupRoutes(r)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		s.log.Info("Shutting down server...")

		if s.watcher != nil {
			s.watcher.Stop()
		}

		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(ctxShutdown)
	}()

	s.log.Info("Server starting", "addr", s.addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/jobs", s.handleJobs).Methods("GET")
	r.HandleFunc("/renders", s.handleRenders).Methods("GET")
	r.HandleFunc("/templates", s.handleTemplates).Methods("GET")
	r.HandleFunc("/covers", s.handleUpload).Methods("POST")
	r.HandleFunc("/stream", s.handleJobStream).Methods("GET")
}

// Serve starts a server without directory monitoring
func Serve(ctx context.Context, addr string, store *storage.Store, pipe *pipeline.Pipeline, cfg *config.Config, log *slog.Logger) error {
	server, err := NewServer(addr, store, pipe, nil, cfg, log)
	if err != nil {
		return err
	}
	return server.Start(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.RecentJobs(100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recs)
}

func (s *Server) handleRenders(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.RecentRenders(100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recs)
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.cfg.Render.Palette)
}

// handleUpload accepts a multipart cover upload, saves it to the covers
// directory, and queues a render for it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("cover")
	if err != nil {
		http.Error(w, "missing cover file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !fsutil.IsCoverFile(name) {
		http.Error(w, "unsupported cover format", http.StatusBadRequest)
		return
	}

	if err := os.MkdirAll(s.cfg.Paths.CoversDir, 0o755); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	dest := filepath.Join(s.cfg.Paths.CoversDir, name)
	out, err := os.Create(dest)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dest)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := out.Close(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	job := pipeline.Job{
		ID:        uuid.NewString(),
		Type:      pipeline.JobMockup,
		InputPath: dest,
		Options:   map[string]any{"source": "upload"},
	}
	if err := s.pipeline.Submit(job); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.log.Info("cover uploaded", "path", dest, "job", job.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"job_id": job.ID,
		"path":   dest,
	})
}

func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	resCh, unsubscribe := s.pipeline.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-r.Context().Done():
			return
		case res, ok := <-resCh:
			if !ok {
				return
			}
			payload, _ := json.Marshal(resultEvent(res))
			_, _ = w.Write([]byte("data: " + string(payload) + "\n\n"))
			flusher.Flush()
		}
	}
}

// resultEvent flattens a pipeline result into a JSON-friendly shape.
func resultEvent(res pipeline.Result) map[string]any {
	status := "completed"
	var errMsg string
	if res.Error != nil {
		status = "failed"
		errMsg = res.Error.Error()
	}
	return map[string]any{
		"job_id": res.Job.ID,
		"type":   res.Job.Type,
		"input":  res.Job.InputPath,
		"status": status,
		"error":  errMsg,
		"meta":   res.Meta,
	}
}
