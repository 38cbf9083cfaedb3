package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/semmidev/pgkeeper/internal/adapter/storage"
	"github.com/semmidev/pgkeeper/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

// Dashboard serves a read-only JSON view of the backup tree.
type Dashboard struct {
	root    *storage.LocalStorage
	backups *storage.LocalStorage
	logs    *storage.LocalStorage
	logger  usecase.Logger
	now     func() time.Time
}

func NewDashboard(root, backups, logs *storage.LocalStorage, logger usecase.Logger) *Dashboard {
	return &Dashboard{
		root:    root,
		backups: backups,
		logs:    logs,
		logger:  logger,
		now:     time.Now,
	}
}

func (d *Dashboard) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(d.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", d.health)
		r.Get("/backups", d.listBackups)
		r.Get("/logs", d.tailLogs)
	})
	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (d *Dashboard) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		d.logger.Infof("Dashboard listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("dashboard server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown dashboard: %w", err)
	}
	d.logger.Infof("Dashboard stopped")
	return nil
}

func (d *Dashboard) health(w http.ResponseWriter, r *http.Request) {
	if err := d.root.Healthy(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": d.now().Format(time.RFC3339),
	})
}

func (d *Dashboard) listBackups(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1, 1, 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	pageSize, err := queryInt(r, "page_size", storage.DefaultPageSize, 1, storage.MaxPageSize)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	result, err := d.backups.Page(r.Context(), page, pageSize)
	if err != nil {
		d.logger.Errorf("Failed to list backups: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (d *Dashboard) tailLogs(w http.ResponseWriter, r *http.Request) {
	lines, err := d.logs.TailLogs(r.Context(), storage.LogTailLines)
	if err != nil {
		d.logger.Errorf("Failed to read logs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"logs": lines})
}

func (d *Dashboard) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		d.logger.Infof("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond),
			chimiddleware.GetReqID(r.Context()))
	})
}

// queryInt reads an integer query parameter. hi <= 0 means unbounded.
func queryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	if n < lo {
		return 0, fmt.Errorf("%s must be at least %d", key, lo)
	}
	if hi > 0 && n > hi {
		return 0, fmt.Errorf("%s must be at most %d", key, hi)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
