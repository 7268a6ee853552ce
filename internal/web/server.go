// Package web exposes the meeting library and protocol generation over a
// JSON HTTP API for browser frontends.
package web

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wby/protokoll/internal/config"
	"github.com/wby/protokoll/internal/db"
	"github.com/wby/protokoll/internal/mail"
	"github.com/wby/protokoll/internal/protocol"
)

// NewServer creates and configures the HTTP API server.
func NewServer(database *sql.DB, cfg *config.Config, baseDir, bind string, port int) *http.Server {
	h := &Handlers{
		db:         database,
		cfg:        cfg,
		generator:  protocol.NewGenerator(cfg),
		mailer:     mail.NewHTTPMailer(cfg),
		exportsDir: db.ExportsDir(baseDir),
	}

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", bind, port),
		Handler: NewHandler(h),
	}
}

// NewHandler wires the route table around the handlers.
func NewHandler(h *Handlers) http.Handler {
	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /api/meetings", h.HandleList)
	mux.HandleFunc("GET /api/meetings/{id}", h.HandleFetch)
	mux.HandleFunc("DELETE /api/meetings/{id}", h.HandleDelete)
	mux.HandleFunc("POST /api/meetings/{id}/protocol", h.HandleGenerate)
	mux.HandleFunc("POST /api/meetings/prune", h.HandlePrune)
	mux.HandleFunc("GET /api/folders", h.HandleFolderList)
	mux.HandleFunc("POST /api/folders", h.HandleFolderAdd)
	mux.HandleFunc("DELETE /api/folders/{name}", h.HandleFolderRemove)

	return securityHeaders(mux)
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("Protokoll API running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
